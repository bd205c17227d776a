package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/2beens/healthdash/internal/health"
)

var workoutsCSVColumns = []string{"startDate", "duration", "totalEnergyBurned", "totalDistance"}

// ParseWorkoutsCSV reads a per-activity workouts CSV
// (startDate,duration,totalEnergyBurned,totalDistance; duration in minutes,
// energy in kcal, distance in km). Bad rows are skipped and reported.
func ParseWorkoutsCSV(activity string, r io.Reader) (*ParseResult, error) {
	activity = ActivityName(activity)
	if activity == "" {
		return nil, errors.New("workouts csv: activity empty")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParseResult{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range workoutsCSVColumns {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("workouts csv: missing column [%s]", c)
		}
	}

	result := &ParseResult{}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.skip(fmt.Errorf("line %d: %w", line, err))
			continue
		}

		rec, err := workoutFromRow(activity, row, columns)
		if err != nil {
			result.skip(fmt.Errorf("line %d: %w", line, err))
			continue
		}
		result.Records = append(result.Records, rec)
	}

	return result, nil
}

func workoutFromRow(activity string, row []string, columns map[string]int) (health.Record, error) {
	field := func(name string) string {
		i := columns[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	start, err := ParseAppleTime(field("startDate"))
	if err != nil {
		return health.Record{}, err
	}
	duration, err := parseFloat(field("duration"))
	if err != nil {
		return health.Record{}, fmt.Errorf("duration: %w", err)
	}
	energy, err := parseFloat(field("totalEnergyBurned"))
	if err != nil {
		return health.Record{}, fmt.Errorf("energy: %w", err)
	}
	distance, err := parseFloat(field("totalDistance"))
	if err != nil {
		return health.Record{}, fmt.Errorf("distance: %w", err)
	}

	return health.NewWorkout(start, health.Workout{
		Activity:        activity,
		DurationMinutes: duration,
		EnergyKcal:      energy,
		DistanceKm:      distance,
	}), nil
}

// ActivityFromCSVKey derives the activity of a workouts CSV from its object key:
// "Running/workouts.csv" -> Running, "Cycling.csv" -> Cycling.
func ActivityFromCSVKey(key string) string {
	dir, file := path.Split(strings.TrimSuffix(key, "/"))
	stem := strings.TrimSuffix(file, path.Ext(file))
	if strings.EqualFold(stem, "workouts") && dir != "" {
		return ActivityName(path.Base(dir))
	}
	return ActivityName(stem)
}
