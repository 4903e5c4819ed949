package texts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dietitian-bot/internal/models"
)

func TestGetFallsBackToEnglish(t *testing.T) {
	// ask_language is deliberately English-only; every locale must
	// still get a string back.
	for _, lang := range []models.Language{models.LangRU, models.LangCS, models.LangEN} {
		assert.NotEmpty(t, Get("ask_language", lang), "lang %s", lang)
	}
	assert.Equal(t, Get("ask_language", models.LangEN), Get("ask_language", models.LangRU))
}

func TestGetLocalized(t *testing.T) {
	ru := Get("ask_name", models.LangRU)
	en := Get("ask_name", models.LangEN)
	assert.NotEmpty(t, ru)
	assert.NotEmpty(t, en)
	assert.NotEqual(t, ru, en)
}

func TestGetUnknownKey(t *testing.T) {
	assert.Empty(t, Get("no_such_key", models.LangEN))
}

func TestEveryKeyHasEnglish(t *testing.T) {
	for key, byLang := range table {
		assert.NotEmpty(t, byLang[models.DefaultLanguage], "key %s lacks the fallback locale", key)
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, models.LangRU, DetectLanguage("Привет, сколько калорий?"))
	assert.Equal(t, models.LangCS, DetectLanguage("Ahoj, kolik kalorií?"))
	assert.Equal(t, models.LangEN, DetectLanguage("Hello, how many calories?"))
}
