// Package chat produces free-form dietitian replies with the user's
// profile and a bounded tail of conversation history as context.
package chat

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"dietitian-bot/internal/models"
	"dietitian-bot/internal/store"
	"dietitian-bot/internal/vision"
)

type Responder struct {
	client       vision.ChatCompleter
	store        store.Store
	model        string
	historyLimit int
}

func NewResponder(client vision.ChatCompleter, st store.Store, model string, historyLimit int) *Responder {
	return &Responder{client: client, store: st, model: model, historyLimit: historyLimit}
}

const maxChatTokens = 1200

// Reply answers a free-form message. The incoming message and the
// answer are both appended to the history log; only the most recent
// historyLimit entries are fed back to the model.
func (r *Responder) Reply(ctx context.Context, profile *models.UserProfile, text string) (string, error) {
	history, err := r.store.RecentMessages(ctx, profile.TelegramID, r.historyLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(profile)},
	}
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   maxChatTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from chat model")
	}
	answer := resp.Choices[0].Message.Content

	if err := r.store.AppendMessage(ctx, profile.TelegramID, "user", text); err != nil {
		return "", fmt.Errorf("failed to append history: %w", err)
	}
	if err := r.store.AppendMessage(ctx, profile.TelegramID, "assistant", answer); err != nil {
		return "", fmt.Errorf("failed to append history: %w", err)
	}
	return answer, nil
}

// MealPlan asks the model for a personalized meal plan, the way the
// paid flow used to generate one.
func (r *Responder) MealPlan(ctx context.Context, profile *models.UserProfile) (string, error) {
	prompt := fmt.Sprintf(
		"Create a one-week meal plan for this user: goal %s, weight %d kg, height %d cm, "+
			"age %d, activity level %s. Include daily calories, macro split and meal times. "+
			"Answer in %s.",
		profile.Goal, profile.WeightKg, profile.HeightCm, profile.Age, profile.Activity,
		languageName(profile.Lang()),
	)
	return r.oneShot(ctx, profile, prompt)
}

// WorkoutPlan asks the model for a short workout suggestion matched
// to the user's goal and activity level.
func (r *Responder) WorkoutPlan(ctx context.Context, profile *models.UserProfile) (string, error) {
	prompt := fmt.Sprintf(
		"Suggest a weekly workout routine for this user: goal %s, weight %d kg, age %d, "+
			"activity level %s. Keep it short and practical. Answer in %s.",
		profile.Goal, profile.WeightKg, profile.Age, profile.Activity,
		languageName(profile.Lang()),
	)
	return r.oneShot(ctx, profile, prompt)
}

func (r *Responder) oneShot(ctx context.Context, profile *models.UserProfile, prompt string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(profile)},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   2500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from chat model")
	}
	return resp.Choices[0].Message.Content, nil
}

func systemPrompt(profile *models.UserProfile) string {
	return fmt.Sprintf(
		"You are an experienced dietitian. The user is %s: goal %s, weight %d kg, height %d cm, "+
			"age %d, activity %s. Answer briefly and practically, in %s.",
		profile.Name, profile.Goal, profile.WeightKg, profile.HeightCm, profile.Age,
		profile.Activity, languageName(profile.Lang()),
	)
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
