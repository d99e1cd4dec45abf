package scraper

import "testing"

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		url     string
		want    bool
	}{
		{"/a/*/b", "/a/123/b", true},
		{"/a/*/b", "/a/b", false},
		{"/a/b", "https://host/a/b?x=1", true},
		{"/a/b", "https://host/a/c", false},
		{"*/api/inventory/event/*/sections*", "https://tickets.example.com/api/inventory/event/99/sections?lang=en", true},
		{"*/api/inventory/event/*/sections*", "https://tickets.example.com/api/inventory/event/99/prices", false},
		{"*/offer-search*", "https://host/api/inventory/event/1/offer-search?q=2", true},
		{"", "anything", true},
		{"*", "anything", true},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.url); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.url, got, tt.want)
		}
	}
}

func TestMatchPatternSegmentsInOrder(t *testing.T) {
	// literal segments must appear in pattern order, not just anywhere
	if matchPattern("/b/*/a", "/a/123/b") {
		t.Error("segments matched out of order")
	}
}

func TestDefaultEndpointsAreFresh(t *testing.T) {
	a := defaultEndpoints()
	a[0].Found = true
	b := defaultEndpoints()
	if b[0].Found {
		t.Error("endpoint sets must not share Found state between sessions")
	}
	if len(b) != 3 {
		t.Fatalf("expected 3 capture targets, got %d", len(b))
	}
}
