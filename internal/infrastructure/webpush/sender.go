package webpush

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"drivecash/internal/domain/entity"
)

// Payload is the JSON body delivered to the browser's service worker.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Sender pushes notifications to browser endpoints using VAPID keys.
type Sender struct {
	vapidPublicKey  string
	vapidPrivateKey string
	subject         string
}

func NewSender(vapidPublicKey, vapidPrivateKey, subject string) *Sender {
	return &Sender{
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subject:         subject,
	}
}

// Enabled reports whether VAPID keys are configured. Without keys the
// sender is a no-op and Send logs and returns nil.
func (s *Sender) Enabled() bool {
	return s.vapidPublicKey != "" && s.vapidPrivateKey != ""
}

// Send pushes a payload to one subscription. A 404 or 410 response means
// the endpoint is gone; the caller should drop the subscription.
func (s *Sender) Send(sub *entity.PushSubscription, payload Payload) error {
	if !s.Enabled() {
		log.Printf("WebPush: VAPID keys not configured, skipping push to %s", sub.Endpoint)
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	resp, err := webpush.SendNotification(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		TTL:             60,
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
	})
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrSubscriptionGone
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service responded with status %d", resp.StatusCode)
	}
	return nil
}

// ErrSubscriptionGone marks an endpoint the push service no longer serves.
var ErrSubscriptionGone = fmt.Errorf("push subscription no longer valid")
