package scraper

import (
	"testing"

	"ticketwatch/internal/pkg/models"
)

func TestCaptureStoreCompletes(t *testing.T) {
	s := newCaptureStore(defaultEndpoints())

	s.record("https://host/api/inventory/event/1/sections", []byte(`{"sections":[]}`))
	s.record("https://host/api/inventory/event/1/offer-search?x=1", []byte(`{"offers":[]}`))
	if s.complete() {
		t.Fatal("store completed before all targets were seen")
	}

	s.record("https://host/api/inventory/event/1/prices", []byte(`{"priceLevels":[]}`))
	if !s.complete() {
		t.Fatal("store did not complete after all targets were seen")
	}

	select {
	case <-s.done:
	default:
		t.Error("done channel not closed on completion")
	}

	result := s.snapshot()
	for _, key := range []string{models.TargetSections, models.TargetOffers, models.TargetPrices} {
		if len(result[key]) == 0 {
			t.Errorf("capture result missing non-empty payload for %q", key)
		}
	}
}

func TestCaptureStoreLastWriteWins(t *testing.T) {
	s := newCaptureStore(defaultEndpoints())

	url := "https://host/api/inventory/event/1/sections"
	s.record(url, []byte(`{"sections":[{"id":"old"}]}`))
	// both channels race on the same response; the second write replaces the
	// first wholesale
	s.record(url, []byte(`{"sections":[{"id":"new"}]}`))

	got := string(s.snapshot()[models.TargetSections])
	if got != `{"sections":[{"id":"new"}]}` {
		t.Errorf("expected last write to win, got %s", got)
	}
}

func TestCaptureStoreIgnoresEmptyBodies(t *testing.T) {
	s := newCaptureStore(defaultEndpoints())
	s.record("https://host/api/inventory/event/1/sections", nil)
	if len(s.snapshot()) != 0 {
		t.Error("empty body must not fill a target")
	}
}

func TestCaptureStoreRecovery(t *testing.T) {
	endpoints := defaultEndpoints()
	s := newCaptureStore(endpoints)

	// a response seen before the match loop was wired lands in raw only
	s.mu.Lock()
	s.raw["https://host/api/inventory/event/1/prices?early=1"] = []byte(`{"priceLevels":[]}`)
	s.mu.Unlock()

	s.record("https://host/api/inventory/event/1/sections", []byte(`{"sections":[]}`))
	s.record("https://host/api/inventory/event/1/offer-search", []byte(`{"offers":[]}`))

	if s.complete() {
		t.Fatal("store must not be complete before the recovery pass")
	}
	missing := s.missingKeys()
	if len(missing) != 1 || missing[0] != models.TargetPrices {
		t.Fatalf("expected only prices missing, got %v", missing)
	}

	s.recover()
	if !s.complete() {
		t.Error("recovery pass did not fill the missing target from raw responses")
	}
}
