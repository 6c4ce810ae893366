package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Registry collects named counters and gauge callbacks and serves them as a
// Prometheus text exposition. All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*counterEntry
	gauges   map[string]*gaugeEntry
}

type counterEntry struct {
	help  string
	value float64
}

type gaugeEntry struct {
	help string
	fn   func() float64
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		counters: make(map[string]*counterEntry),
		gauges:   make(map[string]*gaugeEntry),
	}
}

// RegisterCounter declares a monotonically increasing counter.
// Registering an existing name replaces its help text and resets the value.
func (r *Registry) RegisterCounter(name, help string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] = &counterEntry{help: help}
}

// Inc adds 1 to the named counter. Unknown names are ignored so callers
// never have to check registration state.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add adds delta to the named counter.
func (r *Registry) Add(name string, delta float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		c.value += delta
	}
}

// RegisterGaugeFunc declares a gauge whose value is read from fn at scrape
// time. fn must be safe to call from any goroutine.
func (r *Registry) RegisterGaugeFunc(name, help string, fn func() float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = &gaugeEntry{help: help, fn: fn}
}

// Handler returns the HTTP handler for GET /metrics.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))

		enc := expfmt.NewEncoder(w, format)
		for _, mf := range r.families() {
			if err := enc.Encode(mf); err != nil {
				slog.Error("metrics: encode family failed",
					"family", mf.GetName(), "err", err)
				return
			}
		}
	})
}

// families snapshots the registry into client_model protos, sorted by name
// so the exposition is stable across scrapes.
func (r *Registry) families() []*dto.MetricFamily {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*dto.MetricFamily, 0, len(r.counters)+len(r.gauges))
	for name, c := range r.counters {
		out = append(out, &dto.MetricFamily{
			Name: proto.String(name),
			Help: proto.String(c.help),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{
				Counter: &dto.Counter{Value: proto.Float64(c.value)},
			}},
		})
	}
	for name, g := range r.gauges {
		out = append(out, &dto.MetricFamily{
			Name: proto.String(name),
			Help: proto.String(g.help),
			Type: dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{
				Gauge: &dto.Gauge{Value: proto.Float64(g.fn())},
			}},
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}
