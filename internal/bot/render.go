package bot

import (
	"fmt"

	"dietitian-bot/internal/models"
	"dietitian-bot/internal/texts"
)

// renderCard formats a recognized nutrition record as the fixed
// layout card. Callers must never pass an unrecognized record.
func renderCard(rec *models.NutritionRecord, lang models.Language) string {
	card := fmt.Sprintf(texts.Get("card_header", lang),
		rec.DishName, rec.PortionGrams, rec.Calories, rec.ProteinG, rec.FatG, rec.CarbsG)
	if rec.Advice != "" {
		card += "\n\n💡 " + rec.Advice
	}
	return card
}
