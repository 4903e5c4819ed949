package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dietitian-bot/internal/models"
)

func TestParseReplyEnglish(t *testing.T) {
	reply := `Dish: Chicken salad
Portion: 320 g
Calories: 410 kcal
Protein: 35 g
Fat: 22 g
Carbs: 14 g
Advice: A good lean choice for weight loss.`

	p := parseReply(reply)
	assert.Equal(t, "Chicken salad", p.dish)
	assert.Equal(t, 320, p.portion)
	assert.Equal(t, 410, p.calories)
	assert.Equal(t, 35, p.protein)
	assert.Equal(t, 22, p.fat)
	assert.Equal(t, 14, p.carbs)
	assert.Equal(t, "A good lean choice for weight loss.", p.advice)
}

func TestParseReplyRussianLabels(t *testing.T) {
	reply := `Блюдо: Борщ
Порция: 350 г
Калории: 180 ккал
Белки: 8 г
Жиры: 6 г
Углеводы: 20 г`

	p := parseReply(reply)
	assert.Equal(t, "Борщ", p.dish)
	assert.Equal(t, 350, p.portion)
	assert.Equal(t, 180, p.calories)
	assert.Equal(t, 8, p.protein)
	assert.Equal(t, 6, p.fat)
	assert.Equal(t, 20, p.carbs)
}

func TestParseReplyCzechLabels(t *testing.T) {
	reply := `Pokrm: Svíčková
Porce: 400 g
Kalorie: 650
Bílkoviny: 30
Tuky: 35
Sacharidy: 50`

	p := parseReply(reply)
	assert.Equal(t, "Svíčková", p.dish)
	assert.Equal(t, 650, p.calories)
	assert.Equal(t, 30, p.protein)
}

func TestParseReplyMarkdownAndDecimals(t *testing.T) {
	reply := `**Dish:** Oatmeal with berries
**Portion:** 250 g
**Calories:** 310.5 kcal
**Protein:** 9.2 g
**Fat:** 5.8 g
**Carbs:** 55.1 g`

	p := parseReply(reply)
	assert.Equal(t, "Oatmeal with berries", p.dish)
	assert.Equal(t, 310, p.calories)
	assert.Equal(t, 9, p.protein)
	assert.Equal(t, 5, p.fat)
	assert.Equal(t, 55, p.carbs)
}

func TestParseReplyMissingLabelsLeftUnset(t *testing.T) {
	reply := `Dish: Mystery soup
Calories: 120`

	p := parseReply(reply)
	assert.True(t, p.caloriesSet)
	assert.False(t, p.proteinSet)
	assert.False(t, p.fatSet)
	assert.False(t, p.carbsSet)
	assert.False(t, p.portionSet)
}

func TestParseReplyNonNumericValue(t *testing.T) {
	p := parseReply("Calories: unknown\nProtein: n/a")
	assert.False(t, p.caloriesSet)
	assert.False(t, p.proteinSet)
}

func TestIsRefusal(t *testing.T) {
	// Explicit refusal phrasing.
	reply := "I'm sorry, I can't identify the contents of this image."
	assert.True(t, isRefusal(reply, parseReply(reply)))

	// Localized refusal.
	reply = "Извините, не могу определить, что на фото."
	assert.True(t, isRefusal(reply, parseReply(reply)))

	// No macro labels at all counts as a refusal.
	reply = "This looks like some kind of food on a plate."
	assert.True(t, isRefusal(reply, parseReply(reply)))

	// A usable reply is not a refusal.
	reply = "Dish: Pizza\nCalories: 800\nProtein: 30\nFat: 35\nCarbs: 90"
	assert.False(t, isRefusal(reply, parseReply(reply)))
}

func TestToRecordClampsPortion(t *testing.T) {
	p := parseReply("Dish: Steak\nPortion: 3 g\nCalories: 500\nProtein: 40\nFat: 35\nCarbs: 2")
	rec := toRecord(p, models.LangEN)
	assert.Equal(t, defaultPortionGrams, rec.PortionGrams)
}

func TestToRecordRepairsImplausibleCalories(t *testing.T) {
	// 3 kcal for a meal with real macros is recomputed from them.
	p := parseReply("Dish: Pasta\nPortion: 300\nCalories: 3\nProtein: 12\nFat: 10\nCarbs: 60")
	rec := toRecord(p, models.LangEN)
	require.Equal(t, 12*4+10*9+60*4, rec.Calories)
}

func TestToRecordAllZeroIsUnrecognized(t *testing.T) {
	p := parseReply("Dish: Empty plate\nCalories: 0\nProtein: 0\nFat: 0\nCarbs: 0")
	rec := toRecord(p, models.LangEN)
	assert.True(t, rec.Unrecognized())
}

func TestToRecordDefaultDishName(t *testing.T) {
	p := parseReply("Calories: 200\nProtein: 10\nFat: 5\nCarbs: 25")
	assert.Equal(t, "Блюдо", toRecord(p, models.LangRU).DishName)
	assert.Equal(t, "Dish", toRecord(p, models.LangEN).DishName)
}
