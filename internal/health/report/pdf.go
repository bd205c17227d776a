package report

import (
	"fmt"
	"io"
	"time"

	"github.com/2beens/healthdash/internal/health"
	"github.com/2beens/healthdash/internal/health/aggregate"
	"github.com/2beens/healthdash/internal/health/stats"

	"github.com/jung-kurt/gofpdf"
)

const fontName = "Helvetica"

// Summary is everything the PDF report shows for one period.
type Summary struct {
	// Period is nil for an all-time report.
	Period      *health.DateRange
	Statistics  stats.Summary
	Records     stats.PersonalRecords
	Monthly     []aggregate.YearAggregate
	GeneratedAt time.Time
}

// RenderPDF writes an A4 report: period, workout statistics, personal records
// and a monthly table of count, duration, energy and distance.
func RenderPDF(w io.Writer, s Summary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Health Report", false)
	pdf.SetCreator("healthdash", false)
	pdf.AddPage()

	pdf.SetFont(fontName, "B", 16)
	pdf.Cell(0, 10, "Health Report")
	pdf.Ln(10)

	pdf.SetFont(fontName, "", 11)
	pdf.Cell(0, 7, "Period: "+periodText(s))
	pdf.Ln(6)
	if !s.GeneratedAt.IsZero() {
		pdf.Cell(0, 7, "Generated: "+s.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	section(pdf, "Workouts")
	line(pdf, "Total workouts: %d", s.Statistics.TotalWorkouts)
	line(pdf, "Total duration: %s", formatMinutes(s.Statistics.TotalDurationMinutes))
	line(pdf, "Total energy: %.0f kcal", s.Statistics.TotalEnergyKcal)
	line(pdf, "Total distance: %.2f km", s.Statistics.TotalDistanceKm)
	line(pdf, "Workouts per week: %.2f", s.Statistics.AvgWorkoutsPerWeek)
	line(pdf, "Workouts per month: %.2f", s.Statistics.AvgWorkoutsPerMonth)
	pdf.Ln(6)

	section(pdf, "Personal records")
	longest := s.Records.LongestWorkout
	if longest.Date != nil {
		line(pdf, "Longest workout: %s %s on %s",
			longest.Activity, formatMinutes(longest.DurationMinutes), longest.Date.Format(health.DateLayout))
	} else {
		line(pdf, "Longest workout: -")
	}
	if s.Records.MostActiveMonth.Found() {
		line(pdf, "Most active month: %s (%d workouts)", s.Records.MostActiveMonth, s.Records.MostActiveMonth.Count)
	} else {
		line(pdf, "Most active month: -")
	}
	line(pdf, "Current streak: %d days", s.Records.CurrentStreak)
	line(pdf, "Longest streak: %d days", s.Records.LongestStreak)
	pdf.Ln(6)

	if len(s.Monthly) > 0 {
		section(pdf, "Monthly")
		monthlyTable(pdf, s.Monthly)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont(fontName, "B", 13)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont(fontName, "", 10)
}

func line(pdf *gofpdf.Fpdf, format string, args ...any) {
	pdf.Cell(0, 6, fmt.Sprintf(format, args...))
	pdf.Ln(5)
}

func monthlyTable(pdf *gofpdf.Fpdf, years []aggregate.YearAggregate) {
	widths := []float64{30, 25, 35, 35, 35}
	header := []string{"Month", "Workouts", "Duration", "Energy (kcal)", "Distance (km)"}

	pdf.SetFont(fontName, "B", 9)
	for i, h := range header {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontName, "", 9)
	for _, y := range years {
		for _, b := range y.Buckets {
			count := b.Value(aggregate.MetricCount).Total()
			if count == 0 {
				continue
			}
			cells := []string{
				fmt.Sprintf("%s %d", b.Label, y.Year),
				fmt.Sprintf("%.0f", count),
				formatMinutes(b.Value(aggregate.MetricDuration).Total()),
				fmt.Sprintf("%.0f", b.Value(aggregate.MetricEnergy).Total()),
				fmt.Sprintf("%.2f", b.Value(aggregate.MetricDistance).Total()),
			}
			for i, c := range cells {
				align := "R"
				if i == 0 {
					align = "L"
				}
				pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
		}
	}
}

func periodText(s Summary) string {
	switch {
	case s.Period != nil:
		return s.Period.Start.Format(health.DateLayout) + " - " + s.Period.End.Format(health.DateLayout)
	case s.Statistics.Period != nil:
		return "all time (" + s.Statistics.Period.Start.Format(health.DateLayout) +
			" - " + s.Statistics.Period.End.Format(health.DateLayout) + ")"
	default:
		return "all time"
	}
}

func formatMinutes(minutes float64) string {
	total := int(minutes + 0.5)
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}
