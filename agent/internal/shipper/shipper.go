package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/quietmark/quietmark/agent/internal/config"
	"github.com/quietmark/quietmark/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second
)

// Shipper buffers audit records and ships them to quietmark-server.
// Ship() is non-blocking; when the buffer is full the oldest record is
// evicted. Run() must be called in a goroutine to drain the buffer.
type Shipper struct {
	cfg    config.AgentConfig
	buf    chan types.AuditRecord
	client *http.Client
}

// New creates a Shipper using the given agent config.
func New(cfg config.AgentConfig) *Shipper {
	return &Shipper{
		cfg:    cfg,
		buf:    make(chan types.AuditRecord, cfg.BufferSize),
		client: &http.Client{Timeout: sendTimeout},
	}
}

// Ship enqueues a record for delivery.
// If the buffer is full the oldest entry is evicted to make room.
func (s *Shipper) Ship(rec types.AuditRecord) {
	select {
	case s.buf <- rec:
	default:
		// Buffer full — drop the oldest record, keep the newest.
		select {
		case <-s.buf:
			slog.Warn("shipper: buffer full, evicted oldest record",
				"page", rec.PageURL, "buffer_cap", cap(s.buf))
		default:
		}
		s.buf <- rec
	}
}

// Run drains the buffer, delivering records to the server.
// Transient failures re-queue the record and back off exponentially;
// permanent rejections are logged and the record discarded.
// Run blocks until ctx is cancelled.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()

	for {
		select {
		case <-ctx.Done():
			return

		case rec := <-s.buf:
			err := s.send(ctx, rec)
			if err == nil {
				bo.reset()
				slog.Debug("shipper: record delivered", "page", rec.PageURL, "id", rec.ID)
				continue
			}

			if isPermanentError(err) {
				slog.Error("shipper: server rejected record, discarding",
					"page", rec.PageURL, "err", err)
				continue
			}

			// Put the record back if there's room; otherwise it is lost,
			// which is acceptable since newer audits supersede it.
			select {
			case s.buf <- rec:
			default:
			}

			wait := bo.next()
			slog.Warn("shipper: delivery failed, backing off",
				"endpoint", s.cfg.ServerEndpoint, "err", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

// send POSTs one record to the server's ingest endpoint.
func (s *Shipper) send(ctx context.Context, rec types.AuditRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return &statusError{code: http.StatusBadRequest, msg: fmt.Sprintf("marshal record: %v", err)}
	}

	url := strings.TrimRight(s.cfg.ServerEndpoint, "/") + "/api/v1/audits"
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.ServerAuth.Mode == "apikey" {
		req.Header.Set(s.cfg.ServerAuth.EffectiveHeader(), s.cfg.ServerAuth.Key())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{code: resp.StatusCode, msg: strings.TrimSpace(string(msg))}
	}
	return nil
}

// statusError is a non-2xx server response.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned HTTP %d: %s", e.code, e.msg)
}

// isPermanentError reports whether the record itself was rejected and
// retrying it cannot succeed. Overload responses (408, 429) and server
// errors are transient.
func isPermanentError(err error) bool {
	se, ok := err.(*statusError)
	if !ok {
		return false
	}
	switch se.code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.code >= 400 && se.code < 500
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
