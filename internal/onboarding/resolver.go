// Package onboarding drives the fixed profile questionnaire. The
// resolver derives the conversation state from the profile itself:
// the next question is always the first empty field in the fixed
// order, so there is no separate state to drift out of sync.
package onboarding

import (
	"dietitian-bot/internal/models"
	"dietitian-bot/internal/parse"
	"dietitian-bot/internal/texts"
)

// Field identifies one onboarding question. Metrics covers the
// weight/height/age triple answered in a single message.
type Field string

const (
	FieldLanguage Field = "language"
	FieldName     Field = "name"
	FieldGoal     Field = "goal"
	FieldMetrics  Field = "metrics"
	FieldActivity Field = "activity"
)

// order is the fixed questionnaire sequence. There are no backward
// transitions except a full reset.
var order = []Field{FieldLanguage, FieldName, FieldGoal, FieldMetrics, FieldActivity}

// NextMissingField returns the first unanswered field in the fixed
// order, or "" when the profile is complete.
func NextMissingField(p *models.UserProfile) Field {
	for _, f := range order {
		if !filled(p, f) {
			return f
		}
	}
	return ""
}

// Complete reports whether every onboarding field is answered.
func Complete(p *models.UserProfile) bool {
	return NextMissingField(p) == ""
}

func filled(p *models.UserProfile, f Field) bool {
	if p == nil {
		return false
	}
	switch f {
	case FieldLanguage:
		return p.Language != ""
	case FieldName:
		return p.Name != ""
	case FieldGoal:
		return p.Goal != ""
	case FieldMetrics:
		return p.WeightKg != 0 && p.HeightCm != 0 && p.Age != 0
	case FieldActivity:
		return p.Activity != ""
	}
	return false
}

var promptKeys = map[Field]string{
	FieldLanguage: "ask_language",
	FieldName:     "ask_name",
	FieldGoal:     "ask_goal",
	FieldMetrics:  "ask_metrics",
	FieldActivity: "ask_activity",
}

var retryKeys = map[Field]string{
	FieldLanguage: "ask_language",
	FieldName:     "bad_name",
	FieldGoal:     "bad_goal",
	FieldMetrics:  "bad_metrics",
	FieldActivity: "bad_activity",
}

// PromptFor returns the localized question for a field.
func PromptFor(f Field, lang models.Language) string {
	return texts.Get(promptKeys[f], lang)
}

// RetryPromptFor returns the localized re-ask text emitted when the
// answer for a field failed to parse.
func RetryPromptFor(f Field, lang models.Language) string {
	return texts.Get(retryKeys[f], lang)
}

// Update is one profile column changed by a successful answer, in
// the shape the store's single-field upsert expects.
type Update struct {
	Column string
	Value  interface{}
}

// Apply parses an answer for the given field. On success the profile
// is updated in place and the changed columns are returned for
// persistence; on failure nothing changes and the caller re-emits
// the same prompt.
func Apply(p *models.UserProfile, f Field, text string) ([]Update, bool) {
	switch f {
	case FieldLanguage:
		lang, ok := parse.Language(text)
		if !ok {
			return nil, false
		}
		p.Language = lang
		return []Update{{"language", string(lang)}}, true
	case FieldName:
		name, ok := parse.Name(text)
		if !ok {
			return nil, false
		}
		p.Name = name
		return []Update{{"name", name}}, true
	case FieldGoal:
		goal, ok := parse.Goal(text)
		if !ok {
			return nil, false
		}
		p.Goal = goal
		return []Update{{"goal", string(goal)}}, true
	case FieldMetrics:
		w, h, a, ok := parse.BodyMetrics(text)
		if !ok {
			return nil, false
		}
		p.WeightKg, p.HeightCm, p.Age = w, h, a
		return []Update{{"weight_kg", w}, {"height_cm", h}, {"age", a}}, true
	case FieldActivity:
		act, ok := parse.Activity(text)
		if !ok {
			return nil, false
		}
		p.Activity = act
		return []Update{{"activity", string(act)}}, true
	}
	return nil, false
}
