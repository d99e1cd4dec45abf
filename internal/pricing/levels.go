package pricing

import (
	"strings"

	"ticketwatch/internal/pkg/models"
)

// PriceLevel is a fully resolved pricing tier: every amount is in cents and
// already includes the per-item fee and tax schedule for the owning offer.
type PriceLevel struct {
	ID          string
	Label       string
	PriceTypeID string
	Base        int64 // base component amount
	FacilityFee int64
	PerItemFees int64
	Tax         int64
	Display     int64 // base + facility fee + per-item fees + tax
}

// priceLevelIndex maps price-level ids to resolved levels, with a per-seat
// dynamic-price override table keyed by (price type, section, row, seat).
type priceLevelIndex struct {
	levels    map[string]PriceLevel
	overrides map[string]int64
}

// buildPriceLevelIndex resolves every usable price level in the dataset. A
// level is usable only once its first price entry exists; levels without one
// are skipped. The designated tax id is the first entry of the tax table.
func buildPriceLevelIndex(ds *models.PriceResponse) *priceLevelIndex {
	idx := &priceLevelIndex{
		levels:    make(map[string]PriceLevel),
		overrides: make(map[string]int64),
	}

	var taxID string
	var taxRate float64
	if len(ds.Taxes) > 0 {
		taxID = ds.Taxes[0].ID
		taxRate = ds.Taxes[0].Rate
	}

	for _, level := range ds.PriceLevels {
		if len(level.Prices) == 0 {
			continue
		}

		var base, facility, taxable int64
		for _, c := range level.Prices[0].Components {
			if isFacilityComponent(c.Name) {
				facility += c.Amount
			} else {
				base += c.Amount
			}
			if hasTaxID(c.TaxIDs, taxID) {
				taxable += c.Amount
			}
		}

		fees, taxableFees := resolvePerItemFees(ds.Fees, level.OfferID, taxID, base)
		taxable += taxableFees
		tax := taxAmount(taxable, taxRate)

		idx.levels[level.ID] = PriceLevel{
			ID:          level.ID,
			Label:       level.Name,
			PriceTypeID: level.PriceTypeID,
			Base:        base,
			FacilityFee: facility,
			PerItemFees: fees,
			Tax:         tax,
			Display:     base + facility + fees + tax,
		}
	}

	for _, dp := range ds.DynamicPrices {
		idx.overrides[overrideKey(dp.PriceTypeID, dp.SectionID, dp.RowID, dp.SeatID)] = dp.Amount
	}

	return idx
}

func (idx *priceLevelIndex) level(id string) (PriceLevel, bool) {
	level, ok := idx.levels[id]
	return level, ok
}

// faceCents returns the base-plus-facility-fee amount for one seat. A dynamic
// override replaces the static amount for that specific seat only; fees and
// tax always come from the level's precomputed totals.
func (idx *priceLevelIndex) faceCents(level PriceLevel, seat models.Seat) (cents int64, dynamic bool) {
	key := overrideKey(level.PriceTypeID, seat.SectionID, seat.RowID, seat.SeatID)
	if amount, ok := idx.overrides[key]; ok {
		return amount, true
	}
	return level.Base + level.FacilityFee, false
}

func overrideKey(priceTypeID, sectionID, rowID, seatID string) string {
	return priceTypeID + "|" + sectionID + "|" + rowID + "|" + seatID
}

func isFacilityComponent(name string) bool {
	return strings.Contains(strings.ToLower(name), "facility")
}
