package pricing

import (
	"encoding/json"
	"testing"

	"ticketwatch/internal/pkg/models"
)

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return data
}

// syntheticCapture builds the fixture from the end-to-end property: one price
// level (base $20, facility fee $2, $3 fixed taxable per-item fee, 10% tax)
// and one section/row with seats 10-13 available.
func syntheticCapture(t *testing.T) models.CaptureResult {
	t.Helper()

	sections := models.SectionsResponse{
		Sections: []models.Section{{ID: "s1", Name: "Floor A"}},
	}

	seats := make([]models.Seat, 0, 4)
	for n := 10; n <= 13; n++ {
		seats = append(seats, models.Seat{
			SectionID: "s1", RowID: "r1", RowName: "B",
			SeatNumber: n, SeatID: "seat-" + string(rune('a'+n-10)),
			PriceLevelID: "pl1", Available: true,
		})
	}
	offers := models.OfferSearchResponse{
		Offers: []models.Offer{{ID: "offer-a", Type: "standard", Items: seats}},
	}

	prices := models.PriceResponse{
		Taxes: []models.TaxData{{ID: "tax1", Rate: 10}},
		Fees: []models.FeeData{{
			ID: "svc", OfferIDs: []string{"offer-a"}, Application: "per_item",
			Components: []models.FeeComponent{{Method: "fixed", Amount: 300, TaxIDs: []string{"tax1"}}},
		}},
		PriceLevels: []models.PriceLevelData{{
			ID: "pl1", Name: "Floor A", OfferID: "offer-a", PriceTypeID: "pt1",
			Prices: []models.PriceEntry{{Components: []models.PriceComponent{
				{Name: "base", Amount: 2000, TaxIDs: []string{"tax1"}},
				{Name: "facility_fee", Amount: 200, TaxIDs: []string{"tax1"}},
			}}},
		}},
	}

	return models.CaptureResult{
		models.TargetSections: mustJSON(t, sections),
		models.TargetOffers:   mustJSON(t, offers),
		models.TargetPrices:   mustJSON(t, prices),
	}
}

func TestEngineEndToEnd(t *testing.T) {
	engine := NewEngine(nil)
	tickets, err := engine.Price(syntheticCapture(t))
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected exactly one ticket, got %d", len(tickets))
	}

	ticket := tickets[0]
	if ticket.Section != "Floor A" || ticket.Row != "B" {
		t.Errorf("section/row = %q/%q, want Floor A/B", ticket.Section, ticket.Row)
	}
	if ticket.Seats != "10,11,12,13" || ticket.Quantity != 4 {
		t.Errorf("seats/quantity = %q/%d, want 10,11,12,13 and 4", ticket.Seats, ticket.Quantity)
	}
	if ticket.FacePrice != 22.00 {
		t.Errorf("face price = %.2f, want 22.00", ticket.FacePrice)
	}
	// fee $3 + 10% tax on the taxable base (22 + 3) = 3 + 2.50
	if ticket.TaxedCost != 5.50 {
		t.Errorf("taxed cost = %.2f, want 5.50", ticket.TaxedCost)
	}
	if ticket.TotalCost != 27.50 {
		t.Errorf("total cost = %.2f, want 27.50", ticket.TotalCost)
	}
	if ticket.DynamicPricing {
		t.Error("no override exists, dynamic flag must be false")
	}

	// same fixtures, same result
	again, err := engine.Price(syntheticCapture(t))
	if err != nil || len(again) != 1 || again[0] != ticket {
		t.Errorf("pricing is not deterministic: %v vs %v", again, ticket)
	}
}

func TestEngineFiltersResaleOffersAndExcludedSeats(t *testing.T) {
	capture := syntheticCapture(t)

	var offers models.OfferSearchResponse
	if err := json.Unmarshal(capture[models.TargetOffers], &offers); err != nil {
		t.Fatal(err)
	}
	// resale offers are dropped entirely even with perfect runs
	offers.Offers[0].Type = "resale"
	offers.Offers = append(offers.Offers, models.Offer{
		ID: "offer-a", Type: "standard",
		Items: []models.Seat{
			{SectionID: "s1", RowID: "r2", SeatNumber: 1, PriceLevelID: "pl1", Available: true, Attributes: []string{"restricted"}},
			{SectionID: "s1", RowID: "r2", SeatNumber: 2, PriceLevelID: "pl1", Available: true},
			{SectionID: "s1", RowID: "r2", SeatNumber: 3, PriceLevelID: "pl1", Available: false},
		},
	})
	capture[models.TargetOffers] = mustJSON(t, offers)

	tickets, err := NewEngine(nil).Price(capture)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if len(tickets) != 0 {
		t.Errorf("expected no tickets after filtering, got %v", tickets)
	}
}

func TestEngineDynamicOverrideRaisesFacePrice(t *testing.T) {
	capture := syntheticCapture(t)

	var prices models.PriceResponse
	if err := json.Unmarshal(capture[models.TargetPrices], &prices); err != nil {
		t.Fatal(err)
	}
	prices.DynamicPrices = []models.DynamicPrice{
		{PriceTypeID: "pt1", SectionID: "s1", RowID: "r1", SeatID: "seat-b", Amount: 3000},
	}
	capture[models.TargetPrices] = mustJSON(t, prices)

	tickets, err := NewEngine(nil).Price(capture)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected one ticket, got %d", len(tickets))
	}
	ticket := tickets[0]
	if !ticket.DynamicPricing {
		t.Error("dynamic flag must be set when any seat in the run is overridden")
	}
	// the group price covers every seat, so the highest per-seat face wins
	if ticket.FacePrice != 30.00 {
		t.Errorf("face price = %.2f, want 30.00", ticket.FacePrice)
	}
	if ticket.TaxedCost != 5.50 {
		t.Errorf("taxed cost = %.2f, want 5.50 (overrides never touch the fee/tax schedule)", ticket.TaxedCost)
	}
}

func TestEngineRejectsIncompleteCapture(t *testing.T) {
	capture := syntheticCapture(t)
	delete(capture, models.TargetPrices)
	if _, err := NewEngine(nil).Price(capture); err == nil {
		t.Error("expected an error for a capture missing the prices dataset")
	}
}
