package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterRender(t *testing.T) {
	r := New()
	c := r.Counter("requests_total", "Total requests.")
	c.Inc()
	c.Add(2)

	out := r.Render()
	for _, want := range []string{
		"# HELP requests_total Total requests.",
		"# TYPE requests_total counter",
		"requests_total 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestCounterReturnsSameInstance(t *testing.T) {
	r := New()
	a := r.Counter("x", "")
	b := r.Counter("x", "")
	if a != b {
		t.Fatal("same name returned distinct counters")
	}
}

func TestGauge(t *testing.T) {
	r := New()
	g := r.Gauge("queue_depth", "Queue depth.")
	g.Set(5)
	g.Inc()
	g.Dec()
	if g.Value() != 5 {
		t.Fatalf("gauge = %d, want 5", g.Value())
	}
	if !strings.Contains(r.Render(), "queue_depth 5") {
		t.Fatalf("render missing gauge:\n%s", r.Render())
	}
}

func TestLabeledSeries(t *testing.T) {
	r := New()
	r.Counter(WithLabels("hits_total", "route", "/a"), "Hits.").Inc()
	r.Counter(WithLabels("hits_total", "route", "/b"), "Hits.").Add(2)

	out := r.Render()
	if !strings.Contains(out, `hits_total{route="/a"} 1`) {
		t.Fatalf("missing /a series:\n%s", out)
	}
	if !strings.Contains(out, `hits_total{route="/b"} 2`) {
		t.Fatalf("missing /b series:\n%s", out)
	}
	if strings.Count(out, "# TYPE hits_total counter") != 1 {
		t.Fatalf("TYPE line should appear once:\n%s", out)
	}
}

func TestWithLabels(t *testing.T) {
	if got := WithLabels("m", "k", "v", "k2", "v2"); got != `m{k="v",k2="v2"}` {
		t.Fatalf("WithLabels = %q", got)
	}
	if got := WithLabels("m"); got != "m" {
		t.Fatalf("WithLabels no pairs = %q", got)
	}
	if got := WithLabels("m", "dangling"); got != "m" {
		t.Fatalf("WithLabels odd pairs = %q", got)
	}
}

func TestHistogramRender(t *testing.T) {
	r := New()
	h := r.Histogram("latency_seconds", "Latency.", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(10)

	out := r.Render()
	for _, want := range []string{
		`latency_seconds_bucket{le="0.1"} 1`,
		`latency_seconds_bucket{le="1"} 2`,
		`latency_seconds_bucket{le="+Inf"} 3`,
		"latency_seconds_count 3",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("up", "").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "up 1") {
		t.Fatalf("body = %q", w.Body.String())
	}
}
