package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dietitian-bot/internal/models"
)

func fullProfile() *models.UserProfile {
	return &models.UserProfile{
		TelegramID: 1,
		Language:   models.LangEN,
		Name:       "Alex",
		Goal:       models.GoalLose,
		WeightKg:   70,
		HeightCm:   175,
		Age:        30,
		Activity:   models.ActivityMedium,
	}
}

func TestNextMissingFieldOrder(t *testing.T) {
	p := &models.UserProfile{}
	assert.Equal(t, FieldLanguage, NextMissingField(p))

	p.Language = models.LangEN
	assert.Equal(t, FieldName, NextMissingField(p))

	p.Name = "Alex"
	assert.Equal(t, FieldGoal, NextMissingField(p))

	p.Goal = models.GoalLose
	assert.Equal(t, FieldMetrics, NextMissingField(p))

	p.WeightKg, p.HeightCm, p.Age = 70, 175, 30
	assert.Equal(t, FieldActivity, NextMissingField(p))

	p.Activity = models.ActivityMedium
	assert.Equal(t, Field(""), NextMissingField(p))
	assert.True(t, Complete(p))
}

func TestNextMissingFieldNilProfile(t *testing.T) {
	assert.Equal(t, FieldLanguage, NextMissingField(nil))
}

func TestPartialMetricsStillMissing(t *testing.T) {
	p := fullProfile()
	p.Age = 0
	assert.Equal(t, FieldMetrics, NextMissingField(p))
}

func TestApplySuccessAdvances(t *testing.T) {
	p := &models.UserProfile{Language: models.LangEN}

	updates, ok := Apply(p, FieldName, "Alex")
	require.True(t, ok)
	require.Len(t, updates, 1)
	assert.Equal(t, "name", updates[0].Column)
	assert.Equal(t, "Alex", p.Name)
	assert.Equal(t, FieldGoal, NextMissingField(p))
}

func TestApplyFailureLeavesProfileUntouched(t *testing.T) {
	p := &models.UserProfile{Language: models.LangEN, Name: "Alex", Goal: models.GoalLose}

	updates, ok := Apply(p, FieldMetrics, "70 and not much else")
	assert.False(t, ok)
	assert.Nil(t, updates)
	assert.Zero(t, p.WeightKg)
	assert.Zero(t, p.HeightCm)
	assert.Zero(t, p.Age)
	assert.Equal(t, FieldMetrics, NextMissingField(p))
}

func TestApplyMetricsTriple(t *testing.T) {
	p := &models.UserProfile{Language: models.LangEN, Name: "Alex", Goal: models.GoalLose}

	updates, ok := Apply(p, FieldMetrics, "114, 182, 49")
	require.True(t, ok)
	assert.Len(t, updates, 3)
	assert.Equal(t, 114, p.WeightKg)
	assert.Equal(t, 182, p.HeightCm)
	assert.Equal(t, 49, p.Age)
	assert.Equal(t, FieldActivity, NextMissingField(p))
}

func TestApplyIdempotent(t *testing.T) {
	// The same valid answer applied twice leaves the profile in the
	// same state and the resolver pointing at the same next field.
	p := &models.UserProfile{Language: models.LangEN}

	_, ok := Apply(p, FieldName, "Alex")
	require.True(t, ok)
	first := *p

	_, ok = Apply(p, FieldName, "Alex")
	require.True(t, ok)
	assert.Equal(t, first, *p)
	assert.Equal(t, FieldGoal, NextMissingField(p))
}

func TestPromptForFallsBack(t *testing.T) {
	// Language prompt only exists in the default locale.
	assert.NotEmpty(t, PromptFor(FieldLanguage, models.LangCS))
	assert.NotEmpty(t, RetryPromptFor(FieldMetrics, models.LangRU))
	assert.NotEqual(t, PromptFor(FieldName, models.LangRU), PromptFor(FieldName, models.LangEN))
}
