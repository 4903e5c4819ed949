// Package parse turns free-form user answers into validated typed
// profile values. Malformed input is an expected case: every parser
// returns (zero, false) instead of an error so callers can re-ask.
package parse

import (
	"strconv"
	"strings"
	"unicode"

	"dietitian-bot/internal/models"
	"dietitian-bot/internal/texts"
)

// Validation ranges for the body-metrics triple.
const (
	MinWeightKg = 30
	MaxWeightKg = 350
	MinHeightCm = 120
	MaxHeightCm = 230
	MinAge      = 10
	MaxAge      = 100
)

// Name validates a user-supplied name: trimmed, 2-30 runes, and not
// composed entirely of digits and punctuation.
func Name(text string) (string, bool) {
	name := strings.TrimSpace(text)
	n := len([]rune(name))
	if n < 2 || n > 30 {
		return "", false
	}
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return "", false
	}
	return name, true
}

// BodyMetrics extracts weight, height and age from free text. It
// takes the first three integer runs left to right, tolerating
// commas, spaces, slashes or prose between them. The parse succeeds
// only as a unit: fewer than three integers, or any range violation,
// fails the whole triple so a misordered answer is never half-saved.
func BodyMetrics(text string) (weightKg, heightCm, age int, ok bool) {
	nums := integers(text)
	if len(nums) < 3 {
		return 0, 0, 0, false
	}
	w, h, a := nums[0], nums[1], nums[2]
	if w < MinWeightKg || w > MaxWeightKg {
		return 0, 0, 0, false
	}
	if h < MinHeightCm || h > MaxHeightCm {
		return 0, 0, 0, false
	}
	if a < MinAge || a > MaxAge {
		return 0, 0, 0, false
	}
	return w, h, a, true
}

// Weight parses a single weigh-in value in kilograms.
func Weight(text string) (int, bool) {
	nums := integers(text)
	if len(nums) == 0 {
		return 0, false
	}
	w := nums[0]
	if w < MinWeightKg || w > MaxWeightKg {
		return 0, false
	}
	return w, true
}

// integers returns every decimal run in text, left to right.
func integers(text string) []int {
	var nums []int
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		if n, err := strconv.Atoi(cur.String()); err == nil {
			nums = append(nums, n)
		}
		cur.Reset()
	}
	for _, r := range text {
		if r >= '0' && r <= '9' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return nums
}

var goalKeywords = map[models.Goal][]string{
	models.GoalLose:     {"lose", "похуд", "сниз", "сброс", "zhubnout", "hubnout", "снизить"},
	models.GoalGain:     {"gain", "набрать", "набор", "массу", "přibrat", "nabrat"},
	models.GoalMaintain: {"maintain", "keep", "поддерж", "сохран", "udržet", "udržovat"},
}

// Goal classifies a free-text answer into one of the goal values by
// multilingual keyword matching. The first matching category wins;
// no match fails the parse — the resolver re-asks, it never guesses.
func Goal(text string) (models.Goal, bool) {
	lower := strings.ToLower(text)
	for _, g := range []models.Goal{models.GoalLose, models.GoalGain, models.GoalMaintain} {
		for _, kw := range goalKeywords[g] {
			if strings.Contains(lower, kw) {
				return g, true
			}
		}
	}
	return "", false
}

var activityKeywords = map[models.Activity][]string{
	models.ActivityLow:    {"1", "low", "низк", "сидяч", "nízká", "nizka", "málo", "malo"},
	models.ActivityMedium: {"2", "medium", "moderate", "средн", "střední", "stredni"},
	models.ActivityHigh:   {"3", "high", "высок", "спорт", "vysoká", "vysoka", "hodně", "hodne"},
}

// Activity classifies an activity-level answer, accepting the numeric
// shorthand 1/2/3 as well as descriptive phrases in three languages.
func Activity(text string) (models.Activity, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, a := range []models.Activity{models.ActivityLow, models.ActivityMedium, models.ActivityHigh} {
		for _, kw := range activityKeywords[a] {
			if strings.Contains(lower, kw) {
				return a, true
			}
		}
	}
	return "", false
}

var languageKeywords = map[models.Language][]string{
	models.LangRU: {"рус", "russian", "ru"},
	models.LangCS: {"čeština", "cestina", "czech", "česky", "cs"},
	models.LangEN: {"english", "англ", "en"},
}

// Language resolves an explicit language choice, falling back to
// script detection for answers like a bare greeting in Russian.
func Language(text string) (models.Language, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, l := range []models.Language{models.LangRU, models.LangCS, models.LangEN} {
		for _, kw := range languageKeywords[l] {
			// Two-letter codes must match exactly; "ru" inside an
			// unrelated word is not a language choice.
			if lower == kw || (len(kw) > 2 && strings.Contains(lower, kw)) {
				return l, true
			}
		}
	}
	if detected := texts.DetectLanguage(text); detected != models.LangEN {
		return detected, true
	}
	return "", false
}
