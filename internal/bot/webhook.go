package bot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stripe/stripe-go/v72"

	"dietitian-bot/internal/entitlement"
	"dietitian-bot/internal/models"
	"dietitian-bot/internal/store"
	"dietitian-bot/internal/texts"
	"dietitian-bot/pkg/logger"
)

// Verifier checks webhook payload signatures.
type Verifier interface {
	VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error)
}

// WebhookHandler maps Stripe webhook events onto entitlement
// mutations. Replays are harmless: every mutation sets the expiry
// keyed on the external subscription reference.
type WebhookHandler struct {
	verifier Verifier
	gate     *entitlement.Gate
	store    store.Store
	sender   Sender
	logger   *logger.Logger
}

func NewWebhookHandler(verifier Verifier, gate *entitlement.Gate, st store.Store, sender Sender, l *logger.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, gate: gate, store: st, sender: sender, logger: l}
}

func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.logger.Error("Missing Stripe signature header")
		http.Error(w, "Missing signature", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Error("Failed to verify webhook signature", "error", err)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(ctx, event)

	case "invoice.payment_succeeded":
		h.handleRenewal(ctx, event)

	case "customer.subscription.deleted":
		h.handleCancellation(ctx, event)

	default:
		h.logger.Info("Ignoring webhook event", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("Failed to parse checkout session", "error", err)
		return
	}
	if session.ClientReferenceID == "" {
		h.logger.Error("Missing client reference ID", "session_id", session.ID)
		return
	}
	userID, err := strconv.ParseInt(session.ClientReferenceID, 10, 64)
	if err != nil {
		h.logger.Error("Invalid client reference ID", "error", err, "value", session.ClientReferenceID)
		return
	}

	ev := entitlement.CheckoutEvent{
		UserID:     userID,
		Plan:       models.PlanBasic,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}
	if plan, ok := session.Metadata["plan"]; ok && plan != "" {
		ev.Plan = models.Plan(plan)
	}
	if session.Customer != nil {
		ev.CustomerRef = session.Customer.ID
	}
	if session.Subscription != nil {
		ev.SubscriptionRef = session.Subscription.ID
	}

	if err := h.gate.ApplyCheckoutCompleted(ctx, ev); err != nil {
		h.logger.Error("Failed to apply checkout event", "error", err, "user_id", userID)
		return
	}
	h.logger.Info("Subscription activated", "user_id", userID, "plan", ev.Plan)

	h.notify(ctx, userID, "subscribed")
}

func (h *WebhookHandler) handleRenewal(ctx context.Context, event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("Failed to parse invoice", "error", err)
		return
	}
	if invoice.Subscription == nil {
		// One-off invoice, nothing to extend.
		return
	}

	periodEnd := time.Unix(event.Created, 0).UTC().Add(31 * 24 * time.Hour)
	if invoice.Lines != nil && len(invoice.Lines.Data) > 0 && invoice.Lines.Data[0].Period != nil {
		periodEnd = time.Unix(invoice.Lines.Data[0].Period.End, 0).UTC()
	}

	ev := entitlement.RenewalEvent{
		SubscriptionRef: invoice.Subscription.ID,
		PeriodEnd:       periodEnd,
	}
	if err := h.gate.ApplySubscriptionRenewed(ctx, ev); err != nil {
		h.logger.Error("Failed to apply renewal event", "error", err, "subscription", ev.SubscriptionRef)
		return
	}
	h.logger.Info("Subscription renewed", "subscription", ev.SubscriptionRef, "period_end", periodEnd)
}

func (h *WebhookHandler) handleCancellation(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("Failed to parse subscription", "error", err)
		return
	}

	if err := h.gate.ApplySubscriptionCancelled(ctx, entitlement.CancelEvent{SubscriptionRef: sub.ID}); err != nil {
		h.logger.Error("Failed to apply cancellation", "error", err, "subscription", sub.ID)
		return
	}
	h.logger.Info("Subscription cancelled", "subscription", sub.ID)
}

// notify sends a localized status message to the user's chat when we
// know it.
func (h *WebhookHandler) notify(ctx context.Context, userID int64, key string) {
	profile, err := h.store.GetProfile(ctx, userID)
	if err != nil || profile == nil || profile.ChatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(profile.ChatID, texts.Get(key, profile.Lang()))
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.Error("Failed to send webhook notification", "error", err, "user_id", userID)
	}
}
