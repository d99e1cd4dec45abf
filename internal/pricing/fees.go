package pricing

import (
	"math"
	"strings"

	"ticketwatch/internal/pkg/models"
)

// Fee component calculation methods and the per-item application mode, as they
// appear in the vendor price schedule.
const (
	feeMethodLookup     = "lookup"
	feeMethodPercentage = "percentage"
	feeMethodFixed      = "fixed"

	feeApplicationPerItem = "per_item"
)

// resolveFeeComponent evaluates one fee component against a base amount in
// cents and returns the fee amount in cents.
func resolveFeeComponent(c models.FeeComponent, base int64) int64 {
	switch strings.ToLower(c.Method) {
	case feeMethodLookup:
		// Lookup tables are keyed in whole currency units, [start, end) with
		// end 0 meaning unbounded.
		units := base / 100
		for _, r := range c.Ranges {
			if units >= r.Start && (r.End == 0 || units < r.End) {
				return r.Amount
			}
		}
		return 0
	case feeMethodPercentage:
		amount := float64(base) * c.Rate / 100
		if c.RoundOff > 0 {
			amount = math.Round(amount/float64(c.RoundOff)) * float64(c.RoundOff)
		}
		return int64(math.Round(amount))
	case feeMethodFixed:
		return c.Amount
	}
	return 0
}

// resolvePerItemFees evaluates every per-item fee assigned to the given offer
// against the base amount. It returns the total fee amount and the portion of
// it that feeds the taxable base (components tagged with taxID).
func resolvePerItemFees(fees []models.FeeData, offerID, taxID string, base int64) (total, taxable int64) {
	for _, fee := range fees {
		if !feeAppliesToOffer(fee, offerID) {
			continue
		}
		if strings.ToLower(fee.Application) != feeApplicationPerItem {
			continue
		}
		for _, c := range fee.Components {
			amount := resolveFeeComponent(c, base)
			total += amount
			if hasTaxID(c.TaxIDs, taxID) {
				taxable += amount
			}
		}
	}
	return total, taxable
}

func feeAppliesToOffer(fee models.FeeData, offerID string) bool {
	if len(fee.OfferIDs) == 0 {
		return true
	}
	for _, id := range fee.OfferIDs {
		if id == offerID {
			return true
		}
	}
	return false
}

func hasTaxID(taxIDs []string, taxID string) bool {
	if taxID == "" {
		return false
	}
	for _, id := range taxIDs {
		if id == taxID {
			return true
		}
	}
	return false
}

// taxAmount computes the tax in cents on a taxable base for a percent rate,
// rounded to the nearest cent.
func taxAmount(taxable int64, rate float64) int64 {
	return int64(math.Round(float64(taxable) * rate / 100))
}
