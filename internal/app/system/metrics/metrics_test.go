package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/tanvirrrhasan/namajtracker/internal/domain/models"
)

func TestObserveWrite(t *testing.T) {
	c := New()
	c.ObserveWrite(models.Fajr, OutcomeLocked, time.Millisecond)
	c.ObserveWrite(models.Fajr, OutcomeLocked, time.Millisecond)
	c.ObserveWrite(models.Isha, OutcomeDeniedLocked, time.Millisecond)

	if got := testutil.ToFloat64(c.writes.WithLabelValues("fajr", OutcomeLocked)); got != 2 {
		t.Errorf("fajr locked = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.writes.WithLabelValues("isha", OutcomeDeniedLocked)); got != 1 {
		t.Errorf("isha denied = %v, want 1", got)
	}
}

func TestCountRetry_SkipsLatency(t *testing.T) {
	c := New()
	c.CountRetry(models.Maghrib)
	c.CountRetry(models.Maghrib)

	if got := testutil.ToFloat64(c.writes.WithLabelValues("maghrib", OutcomeConflictRetried)); got != 2 {
		t.Errorf("maghrib retried = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.latency); got != 0 {
		t.Errorf("latency series = %d, want 0", got)
	}

	c.ObserveWrite(models.Maghrib, OutcomeLocked, time.Millisecond)
	if got := testutil.CollectAndCount(c.latency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObserveWrite(models.Asr, OutcomeLocked, time.Second) // must not panic
	c.CountRetry(models.Asr)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandler(t *testing.T) {
	c := New()
	c.ObserveWrite(models.Dhuhr, OutcomeUnlocked, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `namajtracker_prayer_writes_total{outcome="unlocked",prayer="dhuhr"} 1`) {
		t.Errorf("metrics output missing write counter:\n%s", rec.Body.String())
	}
}
