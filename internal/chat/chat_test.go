package chat

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dietitian-bot/internal/models"
)

type fakeModel struct {
	requests []openai.ChatCompletionRequest
	reply    string
	err      error
}

func (f *fakeModel) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}},
		},
	}, nil
}

// historyStore implements the Store methods the responder touches and
// fails loudly on everything else.
type historyStore struct {
	entries []models.HistoryEntry
}

func (s *historyStore) RecentMessages(_ context.Context, _ int64, limit int) ([]models.HistoryEntry, error) {
	h := s.entries
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h, nil
}

func (s *historyStore) AppendMessage(_ context.Context, _ int64, role, content string) error {
	s.entries = append(s.entries, models.HistoryEntry{Role: role, Content: content})
	return nil
}

func (s *historyStore) EnsureUser(context.Context, int64, int64, string) error { panic("unused") }
func (s *historyStore) GetProfile(context.Context, int64) (*models.UserProfile, error) {
	panic("unused")
}
func (s *historyStore) SetProfileField(context.Context, int64, string, interface{}) error {
	panic("unused")
}
func (s *historyStore) ResetProfile(context.Context, int64) error { panic("unused") }
func (s *historyStore) GetSubscription(context.Context, int64) (*models.SubscriptionRecord, error) {
	panic("unused")
}
func (s *historyStore) GetSubscriptionByRef(context.Context, string) (*models.SubscriptionRecord, error) {
	panic("unused")
}
func (s *historyStore) PutSubscription(context.Context, *models.SubscriptionRecord) error {
	panic("unused")
}
func (s *historyStore) GetDailyUsage(context.Context, int64, string) (int, error) { panic("unused") }
func (s *historyStore) IncrementPhotoCount(context.Context, int64, string) error  { panic("unused") }

func testProfile() *models.UserProfile {
	return &models.UserProfile{
		TelegramID: 1,
		Language:   models.LangEN,
		Name:       "Alex",
		Goal:       models.GoalLose,
		WeightKg:   90,
		HeightCm:   180,
		Age:        30,
		Activity:   models.ActivityLow,
	}
}

func TestReplyCarriesHistoryAndProfile(t *testing.T) {
	model := &fakeModel{reply: "Try a salad."}
	st := &historyStore{entries: []models.HistoryEntry{
		{Role: "user", Content: "I skipped breakfast"},
		{Role: "assistant", Content: "That is fine occasionally."},
	}}
	r := NewResponder(model, st, "gpt-4o", 20)

	answer, err := r.Reply(context.Background(), testProfile(), "what about lunch?")

	require.NoError(t, err)
	assert.Equal(t, "Try a salad.", answer)

	require.Len(t, model.requests, 1)
	msgs := model.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Alex")
	assert.Contains(t, msgs[0].Content, "lose")
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "what about lunch?", msgs[3].Content)
}

func TestReplyTruncatesHistory(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	st := &historyStore{}
	for i := 0; i < 30; i++ {
		st.entries = append(st.entries, models.HistoryEntry{Role: "user", Content: "older"})
	}
	r := NewResponder(model, st, "gpt-4o", 5)

	_, err := r.Reply(context.Background(), testProfile(), "latest")

	require.NoError(t, err)
	// system + 5 history entries + the new message
	assert.Len(t, model.requests[0].Messages, 7)
}

func TestReplyAppendsBothSidesToHistory(t *testing.T) {
	model := &fakeModel{reply: "Drink water."}
	st := &historyStore{}
	r := NewResponder(model, st, "gpt-4o", 20)

	_, err := r.Reply(context.Background(), testProfile(), "I am thirsty")

	require.NoError(t, err)
	require.Len(t, st.entries, 2)
	assert.Equal(t, models.HistoryEntry{Role: "user", Content: "I am thirsty"}, st.entries[0])
	assert.Equal(t, models.HistoryEntry{Role: "assistant", Content: "Drink water."}, st.entries[1])
}

func TestReplyErrorLeavesHistoryUntouched(t *testing.T) {
	model := &fakeModel{err: errors.New("upstream timeout")}
	st := &historyStore{}
	r := NewResponder(model, st, "gpt-4o", 20)

	_, err := r.Reply(context.Background(), testProfile(), "hello")

	require.Error(t, err)
	assert.Empty(t, st.entries)
}

func TestMealPlanPromptIsPersonalized(t *testing.T) {
	model := &fakeModel{reply: "Breakfast: oats."}
	r := NewResponder(model, &historyStore{}, "gpt-4o", 20)

	answer, err := r.MealPlan(context.Background(), testProfile())

	require.NoError(t, err)
	assert.Equal(t, "Breakfast: oats.", answer)
	require.Len(t, model.requests, 1)
	prompt := model.requests[0].Messages[1].Content
	assert.Contains(t, prompt, "lose")
	assert.Contains(t, prompt, "90 kg")
	assert.Contains(t, prompt, "English")
}

func TestWorkoutPlanRespectsLanguage(t *testing.T) {
	model := &fakeModel{reply: "Pondělí: dřepy."}
	p := testProfile()
	p.Language = models.LangCS
	r := NewResponder(model, &historyStore{}, "gpt-4o", 20)

	_, err := r.WorkoutPlan(context.Background(), p)

	require.NoError(t, err)
	assert.Contains(t, model.requests[0].Messages[1].Content, "Czech")
}