package bot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dietitian-bot/internal/entitlement"
	"dietitian-bot/internal/models"
	"dietitian-bot/internal/texts"
	"dietitian-bot/pkg/logger"
)

type fakeVerifier struct {
	event stripe.Event
	err   error
}

func (f fakeVerifier) VerifyWebhookSignature(_ []byte, _ string) (stripe.Event, error) {
	return f.event, f.err
}

func webhookEvent(eventType string, created time.Time, payload interface{}) stripe.Event {
	raw, _ := json.Marshal(payload)
	return stripe.Event{
		Type:    eventType,
		Created: created.Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func postWebhook(h *WebhookHandler, signed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader("{}"))
	if signed {
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	}
	rec := httptest.NewRecorder()
	h.HandleStripeWebhook(rec, req)
	return rec
}

func newWebhookFixture(event stripe.Event, verifyErr error) (*WebhookHandler, *memStore, *fakeSender) {
	st := newMemStore()
	gate := entitlement.NewGate(st, nil, 10, 31).WithClock(func() time.Time { return testNow })
	sender := &fakeSender{}
	h := NewWebhookHandler(fakeVerifier{event: event, err: verifyErr}, gate, st, sender, logger.NewNop())
	return h, st, sender
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h, _, _ := newWebhookFixture(stripe.Event{}, nil)

	rec := postWebhook(h, false)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	h, st, _ := newWebhookFixture(stripe.Event{}, errors.New("signature mismatch"))

	rec := postWebhook(h, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, st.subs)
}

func TestWebhookRejectsGet(t *testing.T) {
	h, _, _ := newWebhookFixture(stripe.Event{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook/stripe", nil)
	rec := httptest.NewRecorder()
	h.HandleStripeWebhook(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhookCheckoutActivatesSubscription(t *testing.T) {
	event := webhookEvent("checkout.session.completed", testNow, map[string]interface{}{
		"id":                  "cs_1",
		"client_reference_id": "1",
		"customer":            map[string]interface{}{"id": "cus_1"},
		"subscription":        map[string]interface{}{"id": "sub_1"},
	})
	h, st, sender := newWebhookFixture(event, nil)
	st.profiles[1] = &models.UserProfile{TelegramID: 1, ChatID: 10, Language: models.LangEN}

	rec := postWebhook(h, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	sub := st.subs[1]
	require.NotNil(t, sub)
	assert.Equal(t, models.PlanBasic, sub.Plan)
	assert.Equal(t, "cus_1", sub.CustomerRef)
	assert.Equal(t, "sub_1", sub.SubscriptionRef)
	assert.Equal(t, testNow.Add(31*24*time.Hour), sub.ExpiresAt)

	// The user is told their subscription is live.
	require.Len(t, sender.sent, 1)
	assert.Equal(t, texts.Get("subscribed", models.LangEN), sender.sent[0])
}

func TestWebhookCheckoutReplayIsIdempotent(t *testing.T) {
	event := webhookEvent("checkout.session.completed", testNow, map[string]interface{}{
		"id":                  "cs_1",
		"client_reference_id": "1",
		"subscription":        map[string]interface{}{"id": "sub_1"},
	})
	h, st, _ := newWebhookFixture(event, nil)

	postWebhook(h, true)
	first := st.subs[1].ExpiresAt
	postWebhook(h, true)

	assert.Equal(t, first, st.subs[1].ExpiresAt, "replay must not extend the expiry")
}

func TestWebhookCheckoutIgnoresBadReference(t *testing.T) {
	event := webhookEvent("checkout.session.completed", testNow, map[string]interface{}{
		"id":                  "cs_1",
		"client_reference_id": "not-a-number",
	})
	h, st, _ := newWebhookFixture(event, nil)

	rec := postWebhook(h, true)

	// Malformed events are acknowledged so Stripe stops retrying.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, st.subs)
}

func TestWebhookRenewalSetsPeriodEnd(t *testing.T) {
	periodEnd := testNow.Add(61 * 24 * time.Hour)
	event := webhookEvent("invoice.payment_succeeded", testNow, map[string]interface{}{
		"subscription": map[string]interface{}{"id": "sub_1"},
		"lines": map[string]interface{}{
			"data": []map[string]interface{}{
				{"period": map[string]interface{}{"end": periodEnd.Unix()}},
			},
		},
	})
	h, st, _ := newWebhookFixture(event, nil)
	st.subs[1] = &models.SubscriptionRecord{
		TelegramID: 1, Plan: models.PlanBasic,
		ExpiresAt: testNow.Add(24 * time.Hour), SubscriptionRef: "sub_1",
	}

	rec := postWebhook(h, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, periodEnd, st.subs[1].ExpiresAt.UTC())
}

func TestWebhookCancellationExpiresNow(t *testing.T) {
	event := webhookEvent("customer.subscription.deleted", testNow, map[string]interface{}{
		"id": "sub_1",
	})
	h, st, _ := newWebhookFixture(event, nil)
	st.subs[1] = &models.SubscriptionRecord{
		TelegramID: 1, Plan: models.PlanBasic,
		ExpiresAt: testNow.Add(20 * 24 * time.Hour), SubscriptionRef: "sub_1",
	}

	rec := postWebhook(h, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	sub := st.subs[1]
	require.NotNil(t, sub, "the record is kept, not deleted")
	assert.Equal(t, models.PlanCancelled, sub.Plan)
	assert.Equal(t, testNow, sub.ExpiresAt)
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	event := webhookEvent("customer.updated", testNow, map[string]interface{}{"id": fmt.Sprintf("cus_%d", 1)})
	h, st, _ := newWebhookFixture(event, nil)

	rec := postWebhook(h, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, st.subs)
}
