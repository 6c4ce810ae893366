package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	return rr.Body.String()
}

func TestCounter(t *testing.T) {
	r := New()
	r.RegisterCounter("quietmark_audits_received_total", "Audit records accepted by the ingest endpoint.")
	r.Inc("quietmark_audits_received_total")
	r.Inc("quietmark_audits_received_total")

	body := scrape(t, r)

	if !strings.Contains(body, "# TYPE quietmark_audits_received_total counter") {
		t.Errorf("missing TYPE line, body:\n%s", body)
	}
	if !strings.Contains(body, "quietmark_audits_received_total 2") {
		t.Errorf("missing counter sample, body:\n%s", body)
	}
}

func TestGaugeFunc(t *testing.T) {
	r := New()
	pages := 3.0
	r.RegisterGaugeFunc("quietmark_store_pages", "Pages currently held in the store.",
		func() float64 { return pages })

	body := scrape(t, r)
	if !strings.Contains(body, "quietmark_store_pages 3") {
		t.Errorf("missing gauge sample, body:\n%s", body)
	}

	// Gauges re-read their callback on every scrape.
	pages = 7
	body = scrape(t, r)
	if !strings.Contains(body, "quietmark_store_pages 7") {
		t.Errorf("gauge did not track callback, body:\n%s", body)
	}
}

func TestInc_UnknownNameIsNoop(t *testing.T) {
	r := New()
	r.Inc("never_registered_total")
	if body := scrape(t, r); strings.Contains(body, "never_registered_total") {
		t.Errorf("unregistered counter appeared in exposition:\n%s", body)
	}
}

func TestFamiliesSortedByName(t *testing.T) {
	r := New()
	r.RegisterCounter("zzz_total", "z")
	r.RegisterCounter("aaa_total", "a")

	body := scrape(t, r)
	if strings.Index(body, "aaa_total") > strings.Index(body, "zzz_total") {
		t.Errorf("families not sorted:\n%s", body)
	}
}
