package alerts

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/quietmark/quietmark/pkg/types"
	"github.com/quietmark/quietmark/server/internal/config"
)

const (
	defaultCooldown = 15 * time.Minute
	maxHistoryLen   = 200
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	RuleName   string     `json:"rule_name"`
	PageURL    string     `json:"page_url"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates alert rules against incoming audit records and delivers
// webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	rules    []config.AlertRule
	webhooks []config.WebhookConfig

	mu       sync.Mutex
	active   map[string]*Alert    // key: "ruleName:pageURL"
	lastFire map[string]time.Time // last fire time per key (for cooldown)
	history  []*Alert             // recently resolved alerts, newest last
	client   *http.Client
	now      func() time.Time // injectable for deterministic tests
}

// New creates an Engine from the server alert configuration.
// An Engine with empty rules is valid — Evaluate becomes a no-op.
func New(cfg config.AlertsConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Evaluate tests all configured rules against rec.
// Alerts that fire are stored and webhook delivery is triggered
// asynchronously. Alerts that were firing but whose condition is now false
// are resolved.
func (e *Engine) Evaluate(rec *types.AuditRecord) {
	if len(e.rules) == 0 {
		return
	}

	now := e.now()
	for _, rule := range e.rules {
		key := rule.Name + ":" + rec.PageURL
		fires, value := evalCondition(rule.Condition, rec)

		e.mu.Lock()
		switch {
		case fires && e.active[key] == nil:
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if now.Sub(e.lastFire[key]) <= cooldown {
				e.mu.Unlock()
				continue
			}

			a := &Alert{
				RuleName: rule.Name,
				PageURL:  rec.PageURL,
				Severity: rule.Severity,
				Message: fmt.Sprintf("%s: %s (condition %q, value %.1f)",
					rec.PageURL, rule.Name, rule.Condition, value),
				Value:   value,
				FiredAt: now,
				State:   "firing",
			}
			e.active[key] = a
			e.lastFire[key] = now
			e.mu.Unlock()

			slog.Warn("alerts: rule fired",
				"rule", rule.Name, "page", rec.PageURL, "value", value)
			go e.deliver(a)

		case !fires && e.active[key] != nil:
			a := e.active[key]
			delete(e.active, key)
			resolved := now
			a.ResolvedAt = &resolved
			a.State = "resolved"
			e.history = append(e.history, a)
			if len(e.history) > maxHistoryLen {
				e.history = e.history[len(e.history)-maxHistoryLen:]
			}
			e.mu.Unlock()

			slog.Info("alerts: rule resolved", "rule", rule.Name, "page", rec.PageURL)
			go e.deliver(a)

		default:
			e.mu.Unlock()
		}
	}
}

// Active returns all currently firing alerts.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, a)
	}
	return out
}

// History returns recently resolved alerts, newest last.
func (e *Engine) History() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Alert, len(e.history))
	copy(out, e.history)
	return out
}
