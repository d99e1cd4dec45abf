package pricing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"ticketwatch/internal/pkg/models"
)

// Engine turns a completed capture into priced, grouped ticket offers.
type Engine struct {
	log *slog.Logger
}

func NewEngine(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// Price resolves the three captured datasets into tickets: one per section/row
// with a sellable contiguous run of seats. Resale-type offers and seats with
// exclusion attributes are filtered before grouping.
//
// Cost formula: total_cost is the sum of face_price and taxed_cost, each
// rounded to two decimals independently, not the level's display price.
func (e *Engine) Price(capture models.CaptureResult) ([]models.Ticket, error) {
	var sections models.SectionsResponse
	if err := unmarshalTarget(capture, models.TargetSections, &sections); err != nil {
		return nil, err
	}
	var offers models.OfferSearchResponse
	if err := unmarshalTarget(capture, models.TargetOffers, &offers); err != nil {
		return nil, err
	}
	var prices models.PriceResponse
	if err := unmarshalTarget(capture, models.TargetPrices, &prices); err != nil {
		return nil, err
	}

	idx := buildPriceLevelIndex(&prices)
	sectionNames := make(map[string]string, len(sections.Sections))
	for _, s := range sections.Sections {
		sectionNames[s.ID] = s.Name
	}

	// section|row -> eligible seats
	rows := make(map[string][]models.Seat)
	for _, offer := range offers.Offers {
		if isResaleOffer(offer.Type) {
			continue
		}
		for _, seat := range offer.Items {
			if !seat.Available || hasExcludedAttribute(seat.Attributes) {
				continue
			}
			key := seat.SectionID + "|" + seat.RowID
			rows[key] = append(rows[key], seat)
		}
	}

	var tickets []models.Ticket
	for _, seats := range rows {
		level, levelSeats, ok := selectLevelSeats(seats, idx)
		if !ok {
			continue
		}
		run := bestRun(levelSeats)
		if len(run) == 0 {
			continue
		}

		// A single displayed price has to cover every seat in the group, so a
		// mixed-override run is priced at its highest per-seat face amount.
		var faceCents int64
		dynamic := false
		for _, seat := range run {
			cents, overridden := idx.faceCents(level, seat)
			if cents > faceCents {
				faceCents = cents
			}
			dynamic = dynamic || overridden
		}

		face := toMajorUnits(faceCents)
		taxed := toMajorUnits(level.PerItemFees + level.Tax)

		tickets = append(tickets, models.Ticket{
			Section:        sectionLabel(sectionNames, run[0]),
			Row:            rowLabel(run[0]),
			Seats:          joinSeatNumbers(run),
			Quantity:       len(run),
			FacePrice:      face,
			TaxedCost:      taxed,
			TotalCost:      face + taxed,
			DynamicPricing: dynamic,
		})
	}

	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].Section != tickets[j].Section {
			return tickets[i].Section < tickets[j].Section
		}
		return tickets[i].Row < tickets[j].Row
	})

	e.log.Info("priced capture", "rows", len(rows), "tickets", len(tickets))
	return tickets, nil
}

func unmarshalTarget(capture models.CaptureResult, key string, out any) error {
	body, ok := capture[key]
	if !ok || len(body) == 0 {
		return fmt.Errorf("capture is missing the %s dataset", key)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse the %s dataset: %w", key, err)
	}
	return nil
}

// isResaleOffer reports whether an offer is of a resale/secondary type; such
// offers are excluded entirely.
func isResaleOffer(offerType string) bool {
	t := strings.ToLower(offerType)
	return strings.Contains(t, "resale") || strings.Contains(t, "secondary")
}

// hasExcludedAttribute filters seats that cannot be sold as regular inventory.
func hasExcludedAttribute(attributes []string) bool {
	for _, a := range attributes {
		switch strings.ToLower(a) {
		case "restricted", "accessible":
			return true
		}
	}
	return false
}

func sectionLabel(names map[string]string, seat models.Seat) string {
	if name, ok := names[seat.SectionID]; ok && name != "" {
		return name
	}
	if seat.SectionName != "" {
		return seat.SectionName
	}
	return seat.SectionID
}

func rowLabel(seat models.Seat) string {
	if seat.RowName != "" {
		return seat.RowName
	}
	return seat.RowID
}

func joinSeatNumbers(run []models.Seat) string {
	numbers := make([]string, len(run))
	for i, seat := range run {
		numbers[i] = strconv.Itoa(seat.SeatNumber)
	}
	return strings.Join(numbers, ",")
}

// toMajorUnits converts integral cents to a two-decimal currency value.
func toMajorUnits(cents int64) float64 {
	return float64(cents) / 100
}
