package store

import (
	"testing"
	"time"

	"github.com/quietmark/quietmark/pkg/types"
)

func rec(page string) types.AuditRecord {
	return types.AuditRecord{ID: "id-" + page, PageURL: page, Score: 75}
}

// fixedClock returns a func() time.Time that always returns t.
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestPutAndGet(t *testing.T) {
	st := New(time.Hour)
	st.Put(rec("https://example.com/"))

	e, ok := st.Get("https://example.com/")
	if !ok {
		t.Fatal("Get: expected entry, got none")
	}
	if e.Record.ID != "id-https://example.com/" {
		t.Errorf("ID: got %q", e.Record.ID)
	}
}

func TestGet_Missing(t *testing.T) {
	st := New(time.Hour)
	if _, ok := st.Get("https://unknown/"); ok {
		t.Fatal("Get on empty store: expected false, got true")
	}
}

func TestPut_ReplacesLatestPerPage(t *testing.T) {
	st := New(time.Hour)
	a := rec("https://example.com/")
	a.Score = 40
	b := rec("https://example.com/")
	b.Score = 90

	st.Put(a)
	st.Put(b)

	e, _ := st.Get("https://example.com/")
	if e.Record.Score != 90 {
		t.Errorf("Score after overwrite: got %d, want 90", e.Record.Score)
	}
	if st.Count() != 1 {
		t.Errorf("Count: got %d, want 1", st.Count())
	}
}

func TestList_ExcludesStale(t *testing.T) {
	base := time.Now()
	st := New(time.Hour)

	st.now = fixedClock(base.Add(-2 * time.Hour)) // stale
	st.Put(rec("https://old/"))

	st.now = fixedClock(base) // live
	st.Put(rec("https://new/"))

	st.now = fixedClock(base)
	entries := st.List()

	if len(entries) != 1 {
		t.Fatalf("List: got %d entries, want 1", len(entries))
	}
	if entries[0].Record.PageURL != "https://new/" {
		t.Errorf("List[0].PageURL: got %q", entries[0].Record.PageURL)
	}
}

func TestEvict(t *testing.T) {
	base := time.Now()
	st := New(time.Hour)

	st.now = fixedClock(base.Add(-2 * time.Hour))
	st.Put(rec("https://old/"))
	st.now = fixedClock(base)
	st.Put(rec("https://new/"))

	if n := st.Evict(base); n != 1 {
		t.Errorf("Evict: removed %d, want 1", n)
	}
	if st.Count() != 1 {
		t.Errorf("Count after evict: got %d, want 1", st.Count())
	}
	if _, ok := st.Get("https://old/"); ok {
		t.Error("stale entry still present after Evict")
	}
}
