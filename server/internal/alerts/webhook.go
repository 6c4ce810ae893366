package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// deliver pushes a to every configured webhook target. Failures are logged
// per target; one broken target never blocks the others or the caller.
func (e *Engine) deliver(a *Alert) {
	for _, wh := range e.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		body, ok := payloadFor(wh.Type, a)
		if !ok {
			slog.Warn("alerts: unknown webhook type — skipping", "type", wh.Type)
			continue
		}

		if err := e.post(url, body); err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type, "rule", a.RuleName, "err", err)
			continue
		}
		slog.Debug("alerts: webhook delivered",
			"type", wh.Type, "rule", a.RuleName, "state", a.State)
	}
}

// payloadFor renders a into the provider-specific JSON body. The second
// return is false for an unrecognized provider.
func payloadFor(kind string, a *Alert) ([]byte, bool) {
	label, color := severityTheme(a.Severity)

	var v interface{}
	switch kind {
	case "slack":
		v = map[string]string{
			"text": fmt.Sprintf("*%s* %s", label, a.Message),
		}
	case "teams":
		v = map[string]interface{}{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": color,
			"summary":    a.RuleName,
			"title":      fmt.Sprintf("Quietmark Alert: %s", a.RuleName),
			"text":       a.Message,
		}
	case "http":
		// Generic consumers get the alert as-is.
		v = map[string]interface{}{"alert": a}
	default:
		return nil, false
	}

	body, _ := json.Marshal(v)
	return body, true
}

func (e *Engine) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// severityTheme maps a rule severity to the badge text and accent color
// used in rendered notifications.
func severityTheme(s string) (label, color string) {
	switch s {
	case "critical":
		return "[CRITICAL]", "FF4F6A"
	case "warning":
		return "[WARNING]", "FFAB40"
	default:
		return "[INFO]", "00D4FF"
	}
}
