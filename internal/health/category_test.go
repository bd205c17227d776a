package health_test

import (
	"testing"

	"github.com/2beens/healthdash/internal/health"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := health.DefaultClassifier()

	assert.Equal(t, health.CategoryCardio, c.Classify("Running"))
	assert.Equal(t, health.CategoryStrength, c.Classify("TraditionalStrengthTraining"))
	assert.Equal(t, health.CategoryMindBody, c.Classify("Yoga"))
	assert.Equal(t, health.DefaultCategory, c.Classify("Curling"))
	assert.Equal(t, health.DefaultCategory, c.Classify(""))
}

func TestClassifier_Overrides(t *testing.T) {
	c := health.NewClassifier(map[string]string{
		"Curling":  "Winter Sports",
		"Walking":  "Commute",
		" ":        "ignored",
		"Climbing": "",
	}, "Misc")

	assert.Equal(t, "Winter Sports", c.Classify("Curling"))
	assert.Equal(t, "Commute", c.Classify("Walking"))
	assert.Equal(t, health.CategoryCardio, c.Classify("Running"))
	assert.Equal(t, "Misc", c.Classify("Climbing"))
	assert.NotContains(t, c.Categories(), "ignored")
	assert.Contains(t, c.Categories(), "Misc")
	assert.Contains(t, c.Categories(), "Winter Sports")
}

func TestClassifier_CategoryOf_PrefersStoredCategory(t *testing.T) {
	c := health.DefaultClassifier()

	assert.Equal(t, "Racket", c.CategoryOf(&health.Workout{Activity: "Running", Category: "Racket"}))
	assert.Equal(t, health.CategoryCardio, c.CategoryOf(&health.Workout{Activity: "Running"}))
	assert.Equal(t, health.DefaultCategory, c.CategoryOf(nil))
}
