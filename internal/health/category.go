package health

import (
	"sort"
	"strings"
)

const (
	// ActivityTotal is the activity filter meaning all activities.
	ActivityTotal = "Total"

	CategoryCardio   = "Cardio"
	CategoryStrength = "Strength Training"
	CategoryMindBody = "Mind & Body"
	DefaultCategory  = "Other"
)

var defaultCategories = map[string]string{
	"Running":                       CategoryCardio,
	"Walking":                       CategoryCardio,
	"Cycling":                       CategoryCardio,
	"Swimming":                      CategoryCardio,
	"Rowing":                        CategoryCardio,
	"Elliptical":                    CategoryCardio,
	"StairClimbing":                 CategoryCardio,
	"HighIntensityIntervalTraining": CategoryCardio,
	"Hiking":                        CategoryCardio,
	"Dance":                         CategoryCardio,
	"TraditionalStrengthTraining":   CategoryStrength,
	"FunctionalStrengthTraining":    CategoryStrength,
	"CoreTraining":                  CategoryStrength,
	"CrossTraining":                 CategoryStrength,
	"Yoga":                          CategoryMindBody,
	"Pilates":                       CategoryMindBody,
	"Flexibility":                   CategoryMindBody,
	"Cooldown":                      CategoryMindBody,
	"MindAndBody":                   CategoryMindBody,
}

// Classifier maps workout activities to categories.
// It is read-only after construction and safe for concurrent use.
type Classifier struct {
	table           map[string]string
	defaultCategory string
}

// NewClassifier builds a classifier from the built-in table with overrides
// layered on top. An empty defaultCategory falls back to DefaultCategory.
func NewClassifier(overrides map[string]string, defaultCategory string) *Classifier {
	table := make(map[string]string, len(defaultCategories)+len(overrides))
	for activity, category := range defaultCategories {
		table[activity] = category
	}
	for activity, category := range overrides {
		activity = strings.TrimSpace(activity)
		category = strings.TrimSpace(category)
		if activity == "" || category == "" {
			continue
		}
		table[activity] = category
	}

	defaultCategory = strings.TrimSpace(defaultCategory)
	if defaultCategory == "" {
		defaultCategory = DefaultCategory
	}

	return &Classifier{
		table:           table,
		defaultCategory: defaultCategory,
	}
}

func DefaultClassifier() *Classifier {
	return NewClassifier(nil, DefaultCategory)
}

// Classify returns the category of the given activity.
func (c *Classifier) Classify(activity string) string {
	if category, ok := c.table[activity]; ok {
		return category
	}
	return c.defaultCategory
}

// CategoryOf prefers the category stored on the workout itself.
func (c *Classifier) CategoryOf(w *Workout) string {
	if w == nil {
		return c.defaultCategory
	}
	if w.Category != "" {
		return w.Category
	}
	return c.Classify(w.Activity)
}

// Categories returns all known categories, sorted, default included.
func (c *Classifier) Categories() []string {
	seen := map[string]bool{c.defaultCategory: true}
	for _, category := range c.table {
		seen[category] = true
	}
	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// Activities returns the sorted distinct workout activity labels of the records.
func Activities(records []Record) []string {
	seen := map[string]bool{}
	for _, r := range records {
		if r.IsWorkout() {
			seen[r.Workout.Activity] = true
		}
	}
	activities := make([]string, 0, len(seen))
	for activity := range seen {
		activities = append(activities, activity)
	}
	sort.Strings(activities)
	return activities
}
