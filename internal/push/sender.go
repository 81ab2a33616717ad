package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/stockpulse/stockpulse/internal/model"
	"gorm.io/gorm"
)

// Payload is the JSON document delivered to the service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender broadcasts alert payloads to a tenant's push subscriptions.
type Sender struct {
	db         *gorm.DB
	subscriber string
	publicKey  string
	privateKey string
	log        *slog.Logger
}

// NewSender creates a Sender. Returns nil when VAPID keys are not
// configured; callers treat a nil Sender as "push delivery disabled".
func NewSender(db *gorm.DB, subscriber, publicKey, privateKey string, log *slog.Logger) *Sender {
	if publicKey == "" || privateKey == "" {
		return nil
	}
	return &Sender{
		db:         db,
		subscriber: subscriber,
		publicKey:  publicKey,
		privateKey: privateKey,
		log:        log,
	}
}

// Broadcast sends payload to every subscription of the company. Delivery
// is best-effort per subscription: individual failures are logged and do
// not stop the rest. Endpoints the push service reports as gone are
// pruned. Returns the number of successful deliveries.
func (s *Sender) Broadcast(ctx context.Context, companyID string, payload Payload) int {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&subs).Error; err != nil {
		s.log.Error("push broadcast: load subscriptions failed", "company_id", companyID, "err", err)
		return 0
	}
	if len(subs) == 0 {
		return 0
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("push broadcast: encode payload failed", "err", err)
		return 0
	}

	sent := 0
	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, &webpush.Options{
			Subscriber:      s.subscriber,
			VAPIDPublicKey:  s.publicKey,
			VAPIDPrivateKey: s.privateKey,
			TTL:             3600,
		})
		if err != nil {
			s.log.Warn("push delivery failed", "endpoint", sub.Endpoint, "err", err)
			continue
		}
		code := resp.StatusCode
		_ = resp.Body.Close()
		switch {
		case code == http.StatusNotFound || code == http.StatusGone:
			// Subscription is dead at the push service; drop our copy.
			if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "id = ?", sub.ID).Error; err != nil {
				s.log.Warn("prune dead subscription failed", "id", sub.ID, "err", err)
			}
		case code >= 200 && code < 300:
			sent++
		default:
			s.log.Warn("push service rejected delivery", "endpoint", sub.Endpoint, "status", code)
		}
	}
	return sent
}
