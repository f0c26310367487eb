package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	appLog "uaoagenda/internal/log"
)

func TestMain(m *testing.M) {
	appLog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

const goodDoc = `[
  {"id":"e1","titulo":"Rock Fest","categoria":"CONCIERTO","fecha":"2025-03-10T19:00:00-05:00","lugar":"Coliseo","precioCOP":0,"precioPts":120},
  {"id":"e2","titulo":"Expo Arte","categoria":"CULTURA","fecha":"2025-03-11T10:00:00-05:00","lugar":"Galería","imagen":"/img/expo.jpg","tipoMultimedia":"imagen","extra":"ignored"}
]`

func TestDecodeKeepsValidRecords(t *testing.T) {
	events, dropped := Decode([]byte(goodDoc))
	if dropped != 0 || len(events) != 2 {
		t.Fatalf("expected 2 events and 0 dropped, got %d/%d", len(events), dropped)
	}
	if !events[0].IsFree() || events[0].PointsCost() != 120 {
		t.Fatalf("prices not decoded: %+v", events[0])
	}
	if events[1].PrecioCOP != nil {
		t.Fatalf("absent price should stay nil")
	}
}

func TestDecodeDropsOnlyBadRecords(t *testing.T) {
	cases := map[string]string{
		"missing id":        `{"titulo":"x","categoria":"CULTURA","fecha":"2025-01-01T00:00:00Z","lugar":"y"}`,
		"bad category":      `{"id":"b","titulo":"x","categoria":"TEATRO","fecha":"2025-01-01T00:00:00Z","lugar":"y"}`,
		"lowercase cat":     `{"id":"c","titulo":"x","categoria":"cultura","fecha":"2025-01-01T00:00:00Z","lugar":"y"}`,
		"bad fecha":         `{"id":"d","titulo":"x","categoria":"CULTURA","fecha":"mañana","lugar":"y"}`,
		"quoted price":      `{"id":"e","titulo":"x","categoria":"CULTURA","fecha":"2025-01-01T00:00:00Z","lugar":"y","precioCOP":"5000"}`,
		"negative price":    `{"id":"f","titulo":"x","categoria":"CULTURA","fecha":"2025-01-01T00:00:00Z","lugar":"y","precioPts":-1}`,
		"relative media":    `{"id":"g","titulo":"x","categoria":"CULTURA","fecha":"2025-01-01T00:00:00Z","lugar":"y","imagen":"img.jpg"}`,
		"titulo not string": `{"id":"h","titulo":5,"categoria":"CULTURA","fecha":"2025-01-01T00:00:00Z","lugar":"y"}`,
		"bad media type":    `{"id":"i","titulo":"x","categoria":"CULTURA","fecha":"2025-01-01T00:00:00Z","lugar":"y","tipoMultimedia":"gif"}`,
	}
	good := `{"id":"ok","titulo":"x","categoria":"ACADEMICO","fecha":"2025-01-01T00:00:00Z","lugar":"y","video":"https://youtu.be/abc"}`

	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			events, dropped := Decode([]byte("[" + bad + "," + good + "]"))
			if dropped != 1 || len(events) != 1 || events[0].ID != "ok" {
				t.Fatalf("expected only the good record, got %d events, %d dropped", len(events), dropped)
			}
		})
	}
}

func TestDecodeDropsDuplicateIDs(t *testing.T) {
	rec := `{"id":"e1","titulo":"x","categoria":"CULTURA","fecha":"2025-01-01T00:00:00Z","lugar":"y"}`
	events, dropped := Decode([]byte("[" + rec + "," + rec + "]"))
	if len(events) != 1 || dropped != 1 {
		t.Fatalf("expected duplicate dropped, got %d/%d", len(events), dropped)
	}
}

func TestDecodeMalformedDocumentIsEmpty(t *testing.T) {
	for _, body := range []string{"", "{}", `{"events":[]}`, "not json"} {
		events, _ := Decode([]byte(body))
		if events == nil || len(events) != 0 {
			t.Fatalf("body %q: expected empty non-nil list, got %v", body, events)
		}
	}
}

func TestFetcherUsesETagCache(t *testing.T) {
	var hits, notModified int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			atomic.AddInt32(&notModified, 1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(goodDoc))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 5*time.Second)
	ctx := context.Background()

	first, err := f.Fetch(ctx, Source{URL: srv.URL + "/data/events.json"})
	if err != nil || first.FromCache {
		t.Fatalf("first fetch: err=%v fromCache=%v", err, first.FromCache)
	}
	second, err := f.Fetch(ctx, Source{URL: srv.URL + "/data/events.json"})
	if err != nil || !second.FromCache {
		t.Fatalf("second fetch should reuse cache: err=%v fromCache=%v", err, second.FromCache)
	}
	if string(second.Body) != goodDoc {
		t.Fatalf("cached body mismatch")
	}
	if atomic.LoadInt32(&notModified) != 1 {
		t.Fatalf("expected one conditional request, got %d", notModified)
	}
}

func TestFetcherFallsBackToCacheOnServerError(t *testing.T) {
	fail := int32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&fail) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(goodDoc))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 5*time.Second)
	ctx := context.Background()
	if _, err := f.Fetch(ctx, Source{URL: srv.URL}); err != nil {
		t.Fatalf("warm fetch: %v", err)
	}
	atomic.StoreInt32(&fail, 1)
	res, err := f.Fetch(ctx, Source{URL: srv.URL})
	if err != nil || !res.FromCache {
		t.Fatalf("expected cached fallback, err=%v fromCache=%v", err, res.FromCache)
	}
}

func TestFetcherFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte(goodDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := NewFetcher("", 0).Fetch(context.Background(), Source{File: path})
	if err != nil || string(res.Body) != goodDoc {
		t.Fatalf("file fetch failed: %v", err)
	}
	if _, err := NewFetcher("", 0).Fetch(context.Background(), Source{}); err != ErrNoSource {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}

type countingObserver struct{ ok, failed int }

func (o *countingObserver) CatalogRefreshed(int, int, bool) { o.ok++ }
func (o *countingObserver) CatalogFailed()                  { o.failed++ }

func TestRefreshKeepsPreviousSnapshotOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte(goodDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	obs := &countingObserver{}
	c := New(NewFetcher("", 0), Source{File: path}, obs)
	ctx := context.Background()

	if len(c.ListEvents()) != 0 {
		t.Fatalf("catalog must start empty")
	}
	if n := c.Refresh(ctx); n != 2 {
		t.Fatalf("expected 2 events, got %d", n)
	}
	v := c.Version()

	_ = os.Remove(path)
	if n := c.Refresh(ctx); n != 2 {
		t.Fatalf("failed refresh should keep 2 events, got %d", n)
	}
	if c.Version() != v {
		t.Fatalf("failed refresh must not bump version")
	}
	events, sv := c.Snapshot()
	if len(events) != 2 || sv != v {
		t.Fatalf("snapshot: %d events at version %d, want 2 at %d", len(events), sv, v)
	}
	if obs.ok != 1 || obs.failed != 1 {
		t.Fatalf("unexpected observer counts %+v", obs)
	}
}

func TestFirstRefreshFailureServesEmpty(t *testing.T) {
	c := New(NewFetcher("", 0), Source{File: filepath.Join(t.TempDir(), "missing.json")}, nil)
	if n := c.Refresh(context.Background()); n != 0 {
		t.Fatalf("expected empty list, got %d", n)
	}
	if c.ListEvents() == nil {
		t.Fatalf("list must be empty, not nil")
	}
}

func TestStartRefresherRejectsBadSpec(t *testing.T) {
	if _, err := StartRefresher(context.Background(), NewStatic(nil), "every now and then"); err == nil {
		t.Fatalf("expected cron parse error")
	}
	stop, err := StartRefresher(context.Background(), NewStatic(nil), "*/15 * * * *")
	if err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
	stop()
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cdn.example.com/data/events.json?token=abc"); got != "https://cdn.example.com/...(redacted)" {
		t.Fatalf("unexpected redaction %q", got)
	}
}
