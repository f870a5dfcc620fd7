package model

import "time"

// Change types carried by an availability delta.
const (
	ChangeBookingCreated   = "booking_created"
	ChangeBookingCancelled = "booking_cancelled"
	ChangeSync             = "sync"
)

// Delta sources. Internal deltas originate from other travellers on this
// platform; external deltas come from the operator feed.
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// Cabin types that are seating rather than bookable cabin inventory.
// They are never depleted or restored by cabin bookings.
var nonQuotaCabinTypes = map[string]bool{
	"deck":           true,
	"seat":           true,
	"reclining_seat": true,
}

// IsQuotaCabinType reports whether a cabin type carries limited inventory.
func IsQuotaCabinType(cabinType string) bool {
	return !nonQuotaCabinTypes[cabinType]
}

type AvailableSpaces struct {
	Passengers int `json:"passengers"`
	Vehicles   int `json:"vehicles"`
	Cabins     int `json:"cabins"`
}

// CabinBucket is one cabin category on a sailing with its remaining count.
// Order matters: the reconciler walks buckets in list order when depleting.
type CabinBucket struct {
	Type      string  `json:"type"`
	Available int     `json:"available"`
	Price     float64 `json:"price"`
}

// SailingResult is one scheduled departure as cached from a search response.
// Instances are mutated in place by the reconciler until a new search
// discards them.
type SailingResult struct {
	ID              string             `json:"ferryId"`
	Route           string             `json:"route"`
	Operator        string             `json:"operator"`
	DeparturePort   string             `json:"departurePort"`
	ArrivalPort     string             `json:"arrivalPort"`
	DepartureTime   time.Time          `json:"departureTime"`
	ArrivalTime     time.Time          `json:"arrivalTime"`
	Prices          map[string]float64 `json:"prices"`
	VehiclePrice    float64            `json:"vehiclePrice"`
	AvailableSpaces AvailableSpaces    `json:"availableSpaces"`
	CabinTypes      []CabinBucket      `json:"cabinTypes"`
}

// PriceFor returns the per-person price for a passenger type, falling back
// to the adult tariff when the type has no entry.
func (s *SailingResult) PriceFor(passengerType string) float64 {
	if p, ok := s.Prices[passengerType]; ok {
		return p
	}
	return s.Prices[PassengerAdult]
}

// AvailabilityDelta is a relative inventory change, never an absolute
// snapshot. Booked quantities subtract, freed quantities add.
type AvailabilityDelta struct {
	ChangeType       string `json:"changeType"`
	PassengersBooked int    `json:"passengersBooked,omitempty"`
	PassengersFreed  int    `json:"passengersFreed,omitempty"`
	VehiclesBooked   int    `json:"vehiclesBooked,omitempty"`
	VehiclesFreed    int    `json:"vehiclesFreed,omitempty"`
	CabinQuantity    int    `json:"cabinQuantity,omitempty"`
	CabinsFreed      int    `json:"cabinsFreed,omitempty"`
	Source           string `json:"source"`
	BookingReference string `json:"bookingReference,omitempty"`
}

type SearchParams struct {
	Route          string    `json:"route" validate:"required"`
	ReturnRoute    string    `json:"returnRoute,omitempty"`
	DepartureDate  time.Time `json:"departureDate" validate:"required"`
	ReturnDate     time.Time `json:"returnDate,omitempty"`
	Adults         int       `json:"adults" validate:"min=0,max=50"`
	Children       int       `json:"children" validate:"min=0,max=50"`
	Infants        int       `json:"infants" validate:"min=0,max=50"`
	Vehicles       int       `json:"vehicles" validate:"min=0,max=10"`
	RoundTrip      bool      `json:"roundTrip"`
	OperatorFilter string    `json:"operatorFilter,omitempty"`
}
