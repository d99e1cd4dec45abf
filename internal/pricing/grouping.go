package pricing

import (
	"sort"

	"ticketwatch/internal/pkg/models"
)

// Sellable group sizes. Singles and runs of five or more are never offered.
const (
	minGroupSize = 2
	maxGroupSize = 4
)

// bestRun finds the best contiguous run of 2-4 seats in a list sorted by seat
// number. A run breaks when numbering skips or the run is already full; a
// longer run beats the best seen so far. Returns nil when no run of at least
// two seats exists.
func bestRun(seats []models.Seat) []models.Seat {
	var best, cur []models.Seat
	for _, s := range seats {
		if len(cur) > 0 && len(cur) < maxGroupSize && s.SeatNumber == cur[len(cur)-1].SeatNumber+1 {
			cur = append(cur, s)
			continue
		}
		if len(cur) >= minGroupSize && len(cur) > len(best) {
			best = cur
		}
		cur = []models.Seat{s}
	}
	if len(cur) >= minGroupSize && len(cur) > len(best) {
		best = cur
	}
	return best
}

// selectLevelSeats picks which price level to group over when a section/row
// holds seats from several levels: most seats wins, ties go to the lower mean
// display price. Returns that level's seats sorted by seat number.
func selectLevelSeats(seats []models.Seat, idx *priceLevelIndex) (PriceLevel, []models.Seat, bool) {
	byLevel := make(map[string][]models.Seat)
	for _, s := range seats {
		if _, ok := idx.level(s.PriceLevelID); !ok {
			continue
		}
		byLevel[s.PriceLevelID] = append(byLevel[s.PriceLevelID], s)
	}
	if len(byLevel) == 0 {
		return PriceLevel{}, nil, false
	}

	var bestID string
	for id, levelSeats := range byLevel {
		if bestID == "" {
			bestID = id
			continue
		}
		bestSeats := byLevel[bestID]
		switch {
		case len(levelSeats) > len(bestSeats):
			bestID = id
		case len(levelSeats) == len(bestSeats) && meanDisplay(id, idx) < meanDisplay(bestID, idx):
			bestID = id
		case len(levelSeats) == len(bestSeats) && meanDisplay(id, idx) == meanDisplay(bestID, idx) && id < bestID:
			// full tie: keep the selection deterministic across map iteration order
			bestID = id
		}
	}

	selected := byLevel[bestID]
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].SeatNumber < selected[j].SeatNumber
	})
	level, _ := idx.level(bestID)
	return level, selected, true
}

// meanDisplay is the mean computed display price of a level. Seats of one
// level share a display price, so the mean is the level's display price; kept
// as a helper so the tie-break reads like the selection rule.
func meanDisplay(levelID string, idx *priceLevelIndex) int64 {
	level, ok := idx.level(levelID)
	if !ok {
		return 0
	}
	return level.Display
}
