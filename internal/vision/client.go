// Package vision turns a food photo into a structured nutrition
// record via a vision-capable chat model, with a bounded
// refusal-retry ladder and numeric sanity repairs.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"dietitian-bot/internal/models"
	"dietitian-bot/pkg/logger"
)

// ChatCompleter is the slice of the OpenAI client the analyzer
// needs; tests substitute a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Analyzer struct {
	client ChatCompleter
	model  string
	logger *logger.Logger
}

func NewAnalyzer(client ChatCompleter, model string, l *logger.Logger) *Analyzer {
	return &Analyzer{client: client, model: model, logger: l}
}

const (
	firstAttemptTemperature = 0.3
	retryTemperature        = 0.9
	maxReplyTokens          = 700
)

// Result is the outcome of one analysis. Exactly one of Record and
// Unrecognized is meaningful: an unrecognized result carries the raw
// reply so the caller can fall back to a describe-in-words prompt.
type Result struct {
	Record       *models.NutritionRecord
	Unrecognized bool
	RawReply     string
}

// Analyze runs the full pipeline: profile-aware instruction, one
// vision call, defensive reply parsing, and a single permissive
// retry when the model refuses. A transport or API failure is
// returned as an error and must not consume the caller's quota.
func (a *Analyzer) Analyze(ctx context.Context, imageBytes []byte, profile *models.UserProfile) (*Result, error) {
	lang := profile.Lang()
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageBytes)

	reply, err := a.call(ctx, imageURL, systemPrompt(profile), userPrompt(lang), firstAttemptTemperature)
	if err != nil {
		return nil, err
	}

	p := parseReply(reply)
	if isRefusal(reply, p) {
		a.logger.Info("Vision model refused, retrying once", "user_id", profile.TelegramID)
		reply, err = a.call(ctx, imageURL, systemPrompt(profile), retryPrompt(lang), retryTemperature)
		if err != nil {
			return nil, err
		}
		p = parseReply(reply)
	}

	rec := toRecord(p, lang)
	if rec.Unrecognized() {
		return &Result{Unrecognized: true, RawReply: reply}, nil
	}
	return &Result{Record: rec, RawReply: reply}, nil
}

func (a *Analyzer) call(ctx context.Context, imageURL, system, user string, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: user,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		MaxTokens:   maxReplyTokens,
		Temperature: temperature,
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from vision model")
	}
	return resp.Choices[0].Message.Content, nil
}

func systemPrompt(profile *models.UserProfile) string {
	return fmt.Sprintf(
		"You are an experienced dietitian analyzing food photos. "+
			"The user's goal is to %s weight, they weigh %d kg and their activity level is %s. "+
			"Identify the dish, estimate the portion, calories and macros, and give one short "+
			"personalized piece of advice for their goal. Answer in %s.",
		goalVerb(profile.Goal), profile.WeightKg, activityWord(profile.Activity), languageName(profile.Lang()),
	)
}

func userPrompt(lang models.Language) string {
	return "Analyze the food in this photo. Reply with exactly one field per line, in this format:\n" +
		outputContract(lang)
}

func retryPrompt(lang models.Language) string {
	return "Give an approximate estimate, do not refuse. Even a rough guess is fine. " +
		"Reply with exactly one field per line, in this format:\n" + outputContract(lang)
}

func outputContract(lang models.Language) string {
	return "Dish: <dish name>\n" +
		"Portion: <grams>\n" +
		"Calories: <kcal>\n" +
		"Protein: <grams>\n" +
		"Fat: <grams>\n" +
		"Carbs: <grams>\n" +
		"Advice: <one sentence in " + languageName(lang) + ">"
}

func goalVerb(g models.Goal) string {
	switch g {
	case models.GoalLose:
		return "lose"
	case models.GoalGain:
		return "gain"
	default:
		return "maintain"
	}
}

func activityWord(a models.Activity) string {
	switch a {
	case models.ActivityLow:
		return "low"
	case models.ActivityHigh:
		return "high"
	default:
		return "medium"
	}
}

func languageName(l models.Language) string {
	switch l {
	case models.LangRU:
		return "Russian"
	case models.LangCS:
		return "Czech"
	default:
		return "English"
	}
}
