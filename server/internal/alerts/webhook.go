package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/alertcore/alertcore/server/internal/config"
)

const webhookTimeout = 10 * time.Second

// Webhooks is a notify.Receiver that posts the pending alert count to every
// configured target. Delivery errors are logged and never returned.
type Webhooks struct {
	targets []webhookTarget
	client  *http.Client
	log     zerolog.Logger
}

type webhookTarget struct {
	kind    string
	url     string
	limiter *rate.Limiter // nil means unlimited
}

// NewWebhooks resolves target URLs from the environment. Targets whose URL
// variable is empty are skipped.
func NewWebhooks(cfgs []config.WebhookConfig, logger zerolog.Logger) *Webhooks {
	w := &Webhooks{
		client: &http.Client{Timeout: webhookTimeout},
		log:    logger.With().Str("component", "webhooks").Logger(),
	}
	for _, c := range cfgs {
		url := c.URL()
		if url == "" {
			w.log.Warn().Str("type", c.Type).Str("url_env", c.URLEnv).Msg("webhook url not set, skipping")
			continue
		}
		t := webhookTarget{kind: c.Type, url: url}
		if c.RatePerSec > 0 {
			burst := c.Burst
			if burst <= 0 {
				burst = 1
			}
			t.limiter = rate.NewLimiter(rate.Limit(c.RatePerSec), burst)
		}
		w.targets = append(w.targets, t)
	}
	return w
}

// Len returns the number of active targets.
func (w *Webhooks) Len() int { return len(w.targets) }

// AlertsAvailable delivers count to every target in turn.
func (w *Webhooks) AlertsAvailable(count int) {
	for _, t := range w.targets {
		ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
		err := w.deliver(ctx, t, count)
		cancel()

		if err != nil {
			w.log.Error().Err(err).Str("type", t.kind).Int("count", count).Msg("webhook delivery failed")
		} else {
			w.log.Debug().Str("type", t.kind).Int("count", count).Msg("webhook delivered")
		}
	}
}

func (w *Webhooks) deliver(ctx context.Context, t webhookTarget, count int) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	var body []byte
	switch t.kind {
	case "slack":
		body, _ = json.Marshal(map[string]string{
			"text": fmt.Sprintf("*%s* %s", countLabel(count), summaryText(count)),
		})
	case "teams":
		body, _ = json.Marshal(map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": countColor(count),
			"summary":    summaryText(count),
			"title":      "Alerts awaiting attention",
			"text":       summaryText(count),
		})
	case "pagerduty", "http":
		body, _ = json.Marshal(map[string]interface{}{
			"event": "alerts_available",
			"count": count,
		})
	default:
		return fmt.Errorf("unknown webhook type %q", t.kind)
	}
	return w.post(ctx, t.url, body)
}

func (w *Webhooks) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func summaryText(count int) string {
	switch count {
	case 0:
		return "No alerts awaiting attention"
	case 1:
		return "1 alert awaiting attention"
	default:
		return fmt.Sprintf("%d alerts awaiting attention", count)
	}
}

func countLabel(count int) string {
	if count == 0 {
		return "[OK]"
	}
	return "[ALERT]"
}

func countColor(count int) string {
	if count == 0 {
		return "00D4FF"
	}
	return "FFAB40"
}
