package models

// Vendor API payload shapes. These mirror an external, versioned schema the
// service does not control: optional fields default to zero values and unknown
// fields are ignored. All amounts are integral minor units (cents); fee lookup
// ranges are in whole currency units.

// SectionsResponse is the seat/section inventory payload.
type SectionsResponse struct {
	Sections []Section `json:"sections"`
}

type Section struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OfferSearchResponse is the offer-search payload with seat-level items.
type OfferSearchResponse struct {
	Offers []Offer `json:"offers"`
}

type Offer struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	FeeIDs []string `json:"feeIds"`
	Items  []Seat   `json:"items"`
}

type Seat struct {
	SectionID    string   `json:"sectionId"`
	SectionName  string   `json:"sectionName"`
	RowID        string   `json:"rowId"`
	RowName      string   `json:"rowName"`
	SeatNumber   int      `json:"seatNumber"`
	SeatID       string   `json:"seatId"`
	PriceLevelID string   `json:"priceLevelId"`
	Available    bool     `json:"available"`
	Attributes   []string `json:"attributes"`
}

// PriceResponse is the price schedule payload: price levels with their
// component lists plus the fee and tax definitions they reference.
type PriceResponse struct {
	PriceLevels   []PriceLevelData `json:"priceLevels"`
	Fees          []FeeData        `json:"fees"`
	Taxes         []TaxData        `json:"taxes"`
	DynamicPrices []DynamicPrice   `json:"dynamicPrices"`
}

type PriceLevelData struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	OfferID     string       `json:"offerId"`
	PriceTypeID string       `json:"priceTypeId"`
	Prices      []PriceEntry `json:"prices"`
}

type PriceEntry struct {
	Components []PriceComponent `json:"components"`
}

type PriceComponent struct {
	Name   string   `json:"name"`
	Amount int64    `json:"amount"`
	TaxIDs []string `json:"taxIds"`
}

type FeeData struct {
	ID          string         `json:"id"`
	OfferIDs    []string       `json:"offerIds"`
	Application string         `json:"application"`
	Components  []FeeComponent `json:"components"`
}

type FeeComponent struct {
	Method   string     `json:"method"`
	Amount   int64      `json:"amount"`
	Rate     float64    `json:"rate"`
	RoundOff int64      `json:"roundOff"`
	TaxIDs   []string   `json:"taxIds"`
	Ranges   []FeeRange `json:"ranges"`
}

// FeeRange is one row of a lookup fee table. End of 0 means unbounded.
type FeeRange struct {
	Start  int64 `json:"start"`
	End    int64 `json:"end"`
	Amount int64 `json:"amount"`
}

type TaxData struct {
	ID   string  `json:"id"`
	Rate float64 `json:"rate"`
}

// DynamicPrice is a seat-specific base-price override keyed by
// (price type, section, row, seat identifier).
type DynamicPrice struct {
	PriceTypeID string `json:"priceTypeId"`
	SectionID   string `json:"sectionId"`
	RowID       string `json:"rowId"`
	SeatID      string `json:"seatId"`
	Amount      int64  `json:"amount"`
}
