package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dietitian-bot/pkg/logger"
)

// TelegramBot owns the long-polling loop and adapts the Telegram API
// to the Dispatcher's Sender and Downloader boundaries.
type TelegramBot struct {
	api        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	logger     *logger.Logger
}

func NewTelegramBot(token string, l *logger.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	l.Info("Authorized on Telegram", "username", api.Self.UserName)

	return &TelegramBot{api: api, logger: l}, nil
}

// Username is the bot's Telegram username, used in checkout redirect
// links.
func (t *TelegramBot) Username() string {
	return t.api.Self.UserName
}

// Send implements Sender.
func (t *TelegramBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return t.api.Send(c)
}

// Download implements Downloader: resolves the file id to a direct
// URL and fetches the bytes.
func (t *TelegramBot) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SetDispatcher attaches the dispatcher once it has been built with
// this bot as its sender.
func (t *TelegramBot) SetDispatcher(d *Dispatcher) {
	t.dispatcher = d
}

// Start removes any stale webhook and begins long polling.
func (t *TelegramBot) Start(ctx context.Context) error {
	t.logger.Info("Removing any existing webhook")
	_, err := t.api.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := t.api.GetUpdatesChan(updateConfig)

	t.logger.Info("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)

	return nil
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		go func(update tgbotapi.Update) {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("Recovered from panic while processing update", "error", r)
				}
			}()

			switch {
			case update.Message != nil && len(update.Message.Photo) > 0:
				msg := update.Message
				// Highest resolution is last.
				fileID := msg.Photo[len(msg.Photo)-1].FileID
				t.dispatcher.HandlePhoto(ctx, msg.From.ID, msg.Chat.ID, msg.From.UserName, fileID)

			case update.Message != nil && update.Message.Text != "":
				msg := update.Message
				t.dispatcher.HandleText(ctx, msg.From.ID, msg.Chat.ID, msg.From.UserName, msg.Text)

			case update.CallbackQuery != nil:
				cb := update.CallbackQuery
				// Acknowledge the tap, then treat the payload as text.
				if _, err := t.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
					t.logger.Error("Failed to answer callback", "error", err)
				}
				if cb.Message != nil {
					t.dispatcher.HandleText(ctx, cb.From.ID, cb.Message.Chat.ID, cb.From.UserName, cb.Data)
				}
			}
		}(update)
	}
}

// Stop shuts the polling loop down and gives in-flight handlers a
// moment to finish.
func (t *TelegramBot) Stop(ctx context.Context) error {
	t.api.StopReceivingUpdates()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}
