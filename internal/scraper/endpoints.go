package scraper

import (
	"strings"

	"ticketwatch/internal/pkg/models"
)

// TargetEndpoint is one of the three vendor API responses a session must
// observe before the capture completes.
type TargetEndpoint struct {
	Pattern string
	Key     string
	Found   bool
}

// defaultEndpoints returns a fresh endpoint set for one session. The Found
// flags are per-session state, so the set is never shared.
func defaultEndpoints() []*TargetEndpoint {
	return []*TargetEndpoint{
		{Pattern: "*/api/inventory/event/*/sections*", Key: models.TargetSections},
		{Pattern: "*/api/inventory/event/*/offer-search*", Key: models.TargetOffers},
		{Pattern: "*/api/inventory/event/*/prices*", Key: models.TargetPrices},
	}
}

// matchPattern matches a URL against a wildcard pattern: the pattern is split
// on '*' and every literal segment must appear, in order, as a substring of
// the URL. A pattern without '*' is a plain substring requirement.
func matchPattern(pattern, url string) bool {
	rest := url
	for _, part := range strings.Split(pattern, "*") {
		if part == "" {
			continue
		}
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
	}
	return true
}
