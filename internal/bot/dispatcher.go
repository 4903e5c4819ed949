// Package bot routes incoming Telegram events to the onboarding
// resolver, the entitlement gate, the nutrition pipeline and the
// chat responder. The Dispatcher is the only component that composes
// the others.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dietitian-bot/internal/entitlement"
	"dietitian-bot/internal/models"
	"dietitian-bot/internal/onboarding"
	"dietitian-bot/internal/parse"
	"dietitian-bot/internal/store"
	"dietitian-bot/internal/texts"
	"dietitian-bot/internal/vision"
	"dietitian-bot/pkg/logger"
)

// Sender is the outbound half of the chat transport.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Downloader fetches photo bytes for a Telegram file id.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Analyzer is the nutrition pipeline boundary.
type Analyzer interface {
	Analyze(ctx context.Context, imageBytes []byte, profile *models.UserProfile) (*vision.Result, error)
}

// Responder is the free-chat and plan-generation boundary.
type Responder interface {
	Reply(ctx context.Context, profile *models.UserProfile, text string) (string, error)
	MealPlan(ctx context.Context, profile *models.UserProfile) (string, error)
	WorkoutPlan(ctx context.Context, profile *models.UserProfile) (string, error)
}

// Checkout starts a payment checkout for a user.
type Checkout interface {
	CreateCheckoutSession(userID int64, successURL, cancelURL string) (string, string, error)
}

// pending actions that span one extra message beyond a menu command.
const pendingWeighIn = "weigh_in"

type Dispatcher struct {
	store     store.Store
	gate      *entitlement.Gate
	analyzer  Analyzer
	responder Responder
	checkout  Checkout
	sender    Sender
	files     Downloader
	logger    *logger.Logger
	botName   string

	mu        sync.Mutex
	userLocks map[int64]*sync.Mutex
	pending   map[int64]string
}

func NewDispatcher(
	st store.Store,
	gate *entitlement.Gate,
	analyzer Analyzer,
	responder Responder,
	checkout Checkout,
	sender Sender,
	files Downloader,
	botName string,
	l *logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:     st,
		gate:      gate,
		analyzer:  analyzer,
		responder: responder,
		checkout:  checkout,
		sender:    sender,
		files:     files,
		logger:    l,
		botName:   botName,
		userLocks: make(map[int64]*sync.Mutex),
		pending:   make(map[int64]string),
	}
}

// lockUser serializes handling per user; cross-user events run in
// parallel.
func (d *Dispatcher) lockUser(userID int64) func() {
	d.mu.Lock()
	lock, ok := d.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.userLocks[userID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

var resetWords = []string{"/reset", "reset", "сброс", "заново", "znovu", "restart"}

func isReset(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range resetWords {
		if lower == w {
			return true
		}
	}
	return false
}

var greetingWords = []string{"hi", "hello", "hey", "привет", "здравствуйте", "ahoj", "dobrý den", "start", "/start"}

func isGreeting(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range greetingWords {
		if lower == w {
			return true
		}
	}
	return false
}

// HandleText routes one inbound text event through the fixed
// priority order: reset, in-progress onboarding, onboarding prompt,
// entitlement, then menu or free chat.
func (d *Dispatcher) HandleText(ctx context.Context, userID, chatID int64, username, text string) {
	defer d.lockUser(userID)()

	if err := d.store.EnsureUser(ctx, userID, chatID, username); err != nil {
		d.logger.Error("Failed to ensure user", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", texts.DetectLanguage(text)))
		return
	}

	profile, err := d.store.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		d.logger.Error("Failed to load profile", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", texts.DetectLanguage(text)))
		return
	}
	lang := profile.Lang()

	// Priority 1: explicit reset wipes everything and restarts the
	// questionnaire at the first field.
	if isReset(text) {
		d.handleReset(ctx, userID, chatID, lang)
		return
	}

	// Priorities 2 and 3: an incomplete profile always drives toward
	// the next missing field. Menu semantics do not apply until the
	// questionnaire is done.
	if field := onboarding.NextMissingField(profile); field != "" {
		d.handleOnboarding(ctx, profile, chatID, field, text)
		return
	}

	// Informational commands that must work even without a valid
	// subscription, or the user has no way to obtain one.
	switch command(text) {
	case "start", "help":
		d.send(chatID, texts.Get("help", lang))
		return
	case "subscribe":
		d.handleSubscribe(userID, chatID, lang)
		return
	}

	// Priority 4: entitlement gates everything else after onboarding.
	valid, reason, err := d.gate.CheckValid(ctx, userID)
	if err != nil {
		d.logger.Error("Entitlement check failed", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}
	if !valid {
		d.send(chatID, texts.Get(reason, lang))
		return
	}

	// A pending weigh-in consumes the next message exclusively.
	if d.pendingAction(userID) == pendingWeighIn {
		d.handleWeighIn(ctx, profile, chatID, text)
		return
	}

	// Priority 5: menu commands, then free-form chat.
	switch command(text) {
	case "photo":
		d.send(chatID, texts.Get("send_photo", lang))
	case "plan":
		d.handleGenerated(ctx, profile, chatID, d.responder.MealPlan)
	case "workout":
		d.handleGenerated(ctx, profile, chatID, d.responder.WorkoutPlan)
	case "weight":
		d.setPending(userID, pendingWeighIn)
		d.send(chatID, texts.Get("ask_weight", lang))
	case "progress":
		d.send(chatID, fmt.Sprintf(texts.Get("progress", lang), profile.WeightKg, profile.Goal))
	case "settings":
		d.send(chatID, fmt.Sprintf(texts.Get("settings", lang),
			profile.Name, profile.Goal, profile.WeightKg, profile.HeightCm, profile.Age, profile.Activity))
	default:
		d.handleFreeChat(ctx, profile, chatID, text)
	}
}

// HandlePhoto routes an inbound photo through the same priority
// gates before invoking the nutrition pipeline.
func (d *Dispatcher) HandlePhoto(ctx context.Context, userID, chatID int64, username, fileID string) {
	defer d.lockUser(userID)()

	if err := d.store.EnsureUser(ctx, userID, chatID, username); err != nil {
		d.logger.Error("Failed to ensure user", "error", err, "user_id", userID)
		return
	}
	profile, err := d.store.GetProfile(ctx, userID)
	if err != nil || profile == nil {
		d.logger.Error("Failed to load profile", "error", err, "user_id", userID)
		return
	}
	lang := profile.Lang()

	// Photos cannot answer questionnaire fields: keep driving toward
	// the next missing one.
	if field := onboarding.NextMissingField(profile); field != "" {
		d.send(chatID, onboarding.PromptFor(field, lang))
		return
	}

	allowed, reason, err := d.gate.CanUsePhoto(ctx, userID)
	if err != nil {
		d.logger.Error("Entitlement check failed", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}
	if !allowed {
		d.send(chatID, texts.Get(reason, lang))
		return
	}

	d.send(chatID, texts.Get("analyzing", lang))

	imageBytes, err := d.files.Download(ctx, fileID)
	if err != nil {
		d.logger.Error("Failed to download photo", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}

	res, err := d.analyzer.Analyze(ctx, imageBytes, profile)
	if err != nil {
		// Upstream failure: generic retryable message, quota intact.
		d.logger.Error("Photo analysis failed", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}
	if res.Unrecognized {
		d.send(chatID, texts.Get("describe_dish", lang))
		return
	}

	// Quota is consumed only after the analysis is confirmed usable.
	if err := d.gate.ConsumePhoto(ctx, userID); err != nil {
		d.logger.Error("Failed to record quota use", "error", err, "user_id", userID)
	}

	card := renderCard(res.Record, lang)
	d.send(chatID, card)

	if err := d.store.AppendMessage(ctx, userID, "user", "[photo: "+res.Record.DishName+"]"); err != nil {
		d.logger.Error("Failed to append history", "error", err, "user_id", userID)
	}
	if err := d.store.AppendMessage(ctx, userID, "assistant", card); err != nil {
		d.logger.Error("Failed to append history", "error", err, "user_id", userID)
	}
}

func (d *Dispatcher) handleReset(ctx context.Context, userID, chatID int64, lang models.Language) {
	d.setPending(userID, "")
	if err := d.store.ResetProfile(ctx, userID); err != nil {
		d.logger.Error("Failed to reset profile", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}
	if err := d.store.EnsureUser(ctx, userID, chatID, ""); err != nil {
		d.logger.Error("Failed to recreate user after reset", "error", err, "user_id", userID)
	}
	d.send(chatID, texts.Get("reset_done", lang))
	d.send(chatID, onboarding.PromptFor(onboarding.FieldLanguage, lang))
}

func (d *Dispatcher) handleOnboarding(ctx context.Context, profile *models.UserProfile, chatID int64, field onboarding.Field, text string) {
	lang := profile.Lang()

	updates, ok := onboarding.Apply(profile, field, text)
	if !ok {
		// A greeting mid-questionnaire is framing, not a state
		// change: greet, then re-emit the pending prompt.
		if isGreeting(text) {
			d.send(chatID, texts.Get("greeting", lang)+"\n\n"+onboarding.PromptFor(field, lang))
			return
		}
		d.send(chatID, onboarding.RetryPromptFor(field, lang))
		return
	}

	for _, u := range updates {
		if err := d.store.SetProfileField(ctx, profile.TelegramID, u.Column, u.Value); err != nil {
			d.logger.Error("Failed to persist profile field", "error", err,
				"user_id", profile.TelegramID, "column", u.Column)
			d.send(chatID, texts.Get("generic_error", lang))
			return
		}
	}

	lang = profile.Lang() // the answer may have just set the language
	if next := onboarding.NextMissingField(profile); next != "" {
		d.send(chatID, onboarding.PromptFor(next, lang))
		return
	}
	d.send(chatID, texts.Get("onboarding_done", lang))
}

func (d *Dispatcher) handleWeighIn(ctx context.Context, profile *models.UserProfile, chatID int64, text string) {
	lang := profile.Lang()
	w, ok := parse.Weight(text)
	if !ok {
		d.send(chatID, texts.Get("bad_weight", lang))
		return
	}
	if err := d.store.SetProfileField(ctx, profile.TelegramID, "weight_kg", w); err != nil {
		d.logger.Error("Failed to persist weigh-in", "error", err, "user_id", profile.TelegramID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}
	d.setPending(profile.TelegramID, "")
	d.send(chatID, fmt.Sprintf(texts.Get("weight_logged", lang), w))
}

func (d *Dispatcher) handleSubscribe(userID, chatID int64, lang models.Language) {
	successURL := fmt.Sprintf("https://t.me/%s?start=payment_success", d.botName)
	cancelURL := fmt.Sprintf("https://t.me/%s?start=payment_cancel", d.botName)

	_, checkoutURL, err := d.checkout.CreateCheckoutSession(userID, successURL, cancelURL)
	if err != nil {
		d.logger.Error("Failed to create checkout session", "error", err, "user_id", userID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}

	msg := tgbotapi.NewMessage(chatID, texts.Get("checkout_link", lang))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳", checkoutURL),
		),
	)
	if _, err := d.sender.Send(msg); err != nil {
		d.logger.Error("Failed to send checkout link", "error", err, "chat_id", chatID)
	}
}

func (d *Dispatcher) handleGenerated(ctx context.Context, profile *models.UserProfile, chatID int64, gen func(context.Context, *models.UserProfile) (string, error)) {
	lang := profile.Lang()
	answer, err := gen(ctx, profile)
	if err != nil {
		d.logger.Error("Generation failed", "error", err, "user_id", profile.TelegramID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}
	d.send(chatID, answer)
}

func (d *Dispatcher) handleFreeChat(ctx context.Context, profile *models.UserProfile, chatID int64, text string) {
	lang := profile.Lang()
	answer, err := d.responder.Reply(ctx, profile, text)
	if err != nil {
		d.logger.Error("Chat reply failed", "error", err, "user_id", profile.TelegramID)
		d.send(chatID, texts.Get("generic_error", lang))
		return
	}
	d.send(chatID, answer)
}

func (d *Dispatcher) send(chatID int64, text string) {
	if text == "" {
		return
	}
	if _, err := d.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		d.logger.Error("Failed to send message", "error", err, "chat_id", chatID)
	}
}

func (d *Dispatcher) pendingAction(userID int64) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[userID]
}

func (d *Dispatcher) setPending(userID int64, action string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if action == "" {
		delete(d.pending, userID)
		return
	}
	d.pending[userID] = action
}

// menuWords maps localized button labels onto canonical commands so
// a tapped reply-keyboard button behaves like the slash command.
var menuWords = map[string]string{
	"photo":      "photo",
	"фото":       "photo",
	"fotka":      "photo",
	"plan":       "plan",
	"план":       "plan",
	"jídelníček": "plan",
	"workout":    "workout",
	"тренировка": "workout",
	"trénink":    "workout",
	"weight":     "weight",
	"вес":        "weight",
	"váha":       "weight",
	"progress":   "progress",
	"прогресс":   "progress",
	"pokrok":     "progress",
	"settings":   "settings",
	"настройки":  "settings",
	"nastavení":  "settings",
	"help":       "help",
	"помощь":     "help",
	"pomoc":      "help",
	"subscribe":  "subscribe",
	"подписка":   "subscribe",
	"předplatné": "subscribe",
	"start":      "start",
}

// command canonicalizes a text into a menu command name, or returns
// "" when the text is free-form chat.
func command(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	lower = strings.TrimPrefix(lower, "/")
	// strip the bot mention in group-style commands
	if i := strings.Index(lower, "@"); i > 0 {
		lower = lower[:i]
	}
	// strip a leading emoji from button labels
	lower = strings.TrimSpace(strings.TrimLeft(lower, "📸📋🏋️⚖️📈⚙️💳ℹ️ "))
	if cmd, ok := menuWords[lower]; ok {
		return cmd
	}
	return ""
}
