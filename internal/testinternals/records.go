package testinternals

import (
	"time"

	"github.com/2beens/healthdash/internal/health"

	"github.com/brianvoe/gofakeit/v6"
)

var TestActivities = []string{
	"Running",
	"Walking",
	"Cycling",
	"Yoga",
	"TraditionalStrengthTraining",
	"Curling",
}

// RandomRecords generates n random records of all kinds, dated within [from, to].
// The same seed always yields the same records.
func RandomRecords(seed int64, n int, from, to time.Time) []health.Record {
	faker := gofakeit.New(seed)
	records := make([]health.Record, 0, n)
	for i := 0; i < n; i++ {
		start := faker.DateRange(from, to).UTC()
		switch faker.Number(0, 9) {
		case 0:
			records = append(records, health.NewSleep(start, round2(faker.Float64Range(3, 10))))
		case 1:
			records = append(records, health.NewSteps(start, int64(faker.Number(0, 25000))))
		case 2:
			avg := round2(faker.Float64Range(50, 110))
			records = append(records, health.NewHeartRate(start, avg, avg+round2(faker.Float64Range(0, 80))))
		default:
			records = append(records, RandomWorkout(faker, start))
		}
	}
	return records
}

func RandomWorkout(faker *gofakeit.Faker, start time.Time) health.Record {
	return health.NewWorkout(start, health.Workout{
		Activity:        faker.RandomString(TestActivities),
		DurationMinutes: round2(faker.Float64Range(5, 180)),
		EnergyKcal:      round2(faker.Float64Range(0, 1500)),
		DistanceKm:      round2(faker.Float64Range(0, 40)),
	})
}

// WorkoutOn is a shorthand for a workout at 08:00 UTC on the given day.
func WorkoutOn(year int, month time.Month, day int, activity string, durationMinutes float64) health.Record {
	return health.NewWorkout(
		time.Date(year, month, day, 8, 0, 0, 0, time.UTC),
		health.Workout{
			Activity:        activity,
			DurationMinutes: durationMinutes,
			EnergyKcal:      durationMinutes * 10,
			DistanceKm:      durationMinutes / 10,
		},
	)
}

func round2(v float64) float64 {
	return float64(int64(v*100)) / 100
}
