package vision

import (
	"strconv"
	"strings"

	"dietitian-bot/internal/models"
)

// The model is asked for one labeled field per line, but its output
// is untrusted free text: labels come back in any of three languages,
// with markdown bold, extra prose, or missing lines. The scanner
// below is deliberately forgiving and leaves unmatched fields unset.

var fieldLabels = map[string][]string{
	"dish":     {"dish", "блюдо", "название", "pokrm", "jídlo", "jidlo"},
	"portion":  {"portion", "порция", "porce", "вес", "hmotnost"},
	"calories": {"calories", "калории", "kalorie", "kcal", "ккал"},
	"protein":  {"protein", "белки", "белок", "bílkoviny", "bilkoviny"},
	"fat":      {"fat", "жиры", "жир", "tuky"},
	"carbs":    {"carbs", "carbohydrates", "углеводы", "sacharidy"},
	"advice":   {"advice", "совет", "рекомендация", "rada", "doporučení", "doporuceni"},
}

// parsed carries the extracted fields with explicit set flags so an
// absent label is distinguishable from a genuine zero.
type parsed struct {
	dish     string
	advice   string
	portion  int
	calories int
	protein  int
	fat      int
	carbs    int

	portionSet  bool
	caloriesSet bool
	proteinSet  bool
	fatSet      bool
	carbsSet    bool
}

// parseReply scans the model reply line by line for recognized field
// labels and takes the first numeric token after each label.
func parseReply(reply string) parsed {
	var p parsed
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "*-• \t"))
		if line == "" {
			continue
		}
		label, rest, ok := splitLabel(line)
		if !ok {
			continue
		}
		switch label {
		case "dish":
			if p.dish == "" {
				p.dish = strings.TrimSpace(strings.Trim(rest, "*"))
			}
		case "advice":
			if p.advice == "" {
				p.advice = strings.TrimSpace(strings.Trim(rest, "*"))
			}
		case "portion":
			if n, ok := firstNumber(rest); ok && !p.portionSet {
				p.portion, p.portionSet = n, true
			}
		case "calories":
			if n, ok := firstNumber(rest); ok && !p.caloriesSet {
				p.calories, p.caloriesSet = n, true
			}
		case "protein":
			if n, ok := firstNumber(rest); ok && !p.proteinSet {
				p.protein, p.proteinSet = n, true
			}
		case "fat":
			if n, ok := firstNumber(rest); ok && !p.fatSet {
				p.fat, p.fatSet = n, true
			}
		case "carbs":
			if n, ok := firstNumber(rest); ok && !p.carbsSet {
				p.carbs, p.carbsSet = n, true
			}
		}
	}
	return p
}

// splitLabel matches a line against the known labels. The label must
// appear before the first colon so prose mentioning "calories" late
// in a sentence is not mistaken for a field.
func splitLabel(line string) (field, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	head := strings.ToLower(strings.Trim(line[:idx], "* "))
	rest = line[idx+1:]
	for field, labels := range fieldLabels {
		for _, l := range labels {
			if strings.Contains(head, l) {
				return field, rest, true
			}
		}
	}
	return "", "", false
}

// firstNumber extracts the first numeric token, truncating decimals.
func firstNumber(s string) (int, bool) {
	start := -1
	for i, r := range s {
		isDigit := r >= '0' && r <= '9'
		if start < 0 {
			if isDigit {
				start = i
			}
			continue
		}
		if !isDigit && r != '.' && r != ',' {
			return parseNumToken(s[start:i])
		}
	}
	if start < 0 {
		return 0, false
	}
	return parseNumToken(s[start:])
}

func parseNumToken(tok string) (int, bool) {
	tok = strings.Trim(tok, ".,")
	// take the integer part only
	if i := strings.IndexAny(tok, ".,"); i >= 0 {
		tok = tok[:i]
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// refusalPhrases is the heuristic for a model declining to analyze.
var refusalPhrases = []string{
	"can't identify",
	"cannot identify",
	"can't analyze",
	"cannot analyze",
	"i'm sorry",
	"i am sorry",
	"unable to",
	"не могу",
	"не получилось",
	"извините",
	"nemohu",
	"nedokážu",
	"omlouvám se",
}

// isRefusal reports whether the reply looks like a refusal: known
// refusal phrasing, or no macro field extracted at all.
func isRefusal(reply string, p parsed) bool {
	if !p.caloriesSet && !p.proteinSet && !p.fatSet && !p.carbsSet {
		return true
	}
	lower := strings.ToLower(reply)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

const (
	minPortionGrams     = 20
	defaultPortionGrams = 250
	minMealCalories     = 10
)

// toRecord converts the parsed fields into a nutrition record,
// repairing physically implausible extractions: a sub-threshold
// portion becomes a default plate estimate, and a calorie figure far
// below what the macros imply is recomputed from them.
func toRecord(p parsed, lang models.Language) *models.NutritionRecord {
	rec := &models.NutritionRecord{
		DishName:     p.dish,
		PortionGrams: p.portion,
		Calories:     p.calories,
		ProteinG:     p.protein,
		FatG:         p.fat,
		CarbsG:       p.carbs,
		Advice:       p.advice,
	}
	if rec.DishName == "" {
		rec.DishName = defaultDishName(lang)
	}
	if rec.PortionGrams < minPortionGrams {
		rec.PortionGrams = defaultPortionGrams
	}
	macros := rec.ProteinG > 0 || rec.FatG > 0 || rec.CarbsG > 0
	if macros && rec.Calories < minMealCalories {
		rec.Calories = rec.ProteinG*4 + rec.FatG*9 + rec.CarbsG*4
	}
	return rec
}

func defaultDishName(lang models.Language) string {
	switch lang {
	case models.LangRU:
		return "Блюдо"
	case models.LangCS:
		return "Pokrm"
	default:
		return "Dish"
	}
}
