package models

// Capture target keys. Every completed capture maps each key to a non-empty
// response body.
const (
	TargetSections = "sections"
	TargetOffers   = "offers"
	TargetPrices   = "prices"
)

// CaptureResult maps a capture target key to the raw response body observed on
// the wire. It is immutable once the capture completes.
type CaptureResult map[string][]byte

// Ticket is one priced, groupable offer returned to the caller.
// Monetary fields are in major currency units rounded to two decimals;
// FacePrice and TaxedCost are per seat.
type Ticket struct {
	Section        string  `json:"section"`
	Row            string  `json:"row"`
	Seats          string  `json:"seats"`
	Quantity       int     `json:"quantity"`
	FacePrice      float64 `json:"face_price"`
	TaxedCost      float64 `json:"taxed_cost"`
	TotalCost      float64 `json:"total_cost"`
	DynamicPricing bool    `json:"dynamic_pricing"`
}
