package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "ferryline/pkg/errors"
	"ferryline/pkg/logger"
	"ferryline/pkg/model"
	"ferryline/pkg/sanitizer"
)

// PromoRequest is sent to the promo-validation collaborator.
type PromoRequest struct {
	Code          string  `json:"code"`
	BookingAmount float64 `json:"bookingAmount"`
	Email         string  `json:"email"`
	Operator      string  `json:"operator"`
}

// PromoResult is the collaborator's verdict.
type PromoResult struct {
	IsValid        bool    `json:"isValid"`
	Code           string  `json:"code"`
	DiscountAmount float64 `json:"discountAmount"`
	Message        string  `json:"message"`
}

// PromoValidator is the external promo-validation collaborator. The cart
// never decides validity itself.
type PromoValidator interface {
	Validate(ctx context.Context, req PromoRequest) (PromoResult, error)
}

// Cart holds every selection of the in-progress reservation. It is owned by
// the flow controller, which serializes all mutation; the cart itself does
// no locking.
//
// The cart only sums already-priced line items. Authoritative pricing is
// owned by the booking-creation collaborator; the locally summed total is
// provisional until that response arrives.
type Cart struct {
	log           *logger.Logger
	promo         PromoValidator
	protectionFee float64

	searchParams   model.SearchParams
	roundTrip      bool
	outbound       *model.SailingResult
	returnSailing  *model.SailingResult
	cabins         map[string][]model.CabinSelection
	meals          []model.MealSelection
	promoState     *model.PromoState
	contact        *model.ContactInfo
	passengers     []model.Passenger
	vehicles       []model.Vehicle
	protection     bool
	booking        *model.BookingRecord
}

func New(log *logger.Logger, promo PromoValidator, protectionFee float64) *Cart {
	return &Cart{
		log:           log.WithComponent("cart"),
		promo:         promo,
		protectionFee: protectionFee,
		cabins:        make(map[string][]model.CabinSelection),
	}
}

func (c *Cart) SetSearchParams(params model.SearchParams) {
	c.searchParams = params
	c.roundTrip = params.RoundTrip
}

func (c *Cart) SearchParams() model.SearchParams { return c.searchParams }
func (c *Cart) RoundTrip() bool                  { return c.roundTrip }

// SelectSailing records the chosen sailing for a leg. Selecting a new
// sailing supersedes any in-flight booking: the stale reference is
// detached so payment cannot run against old selections.
func (c *Cart) SelectSailing(leg string, sailing *model.SailingResult) error {
	switch leg {
	case model.LegOutbound:
		c.outbound = sailing
	case model.LegReturn:
		c.returnSailing = sailing
	default:
		return apperrors.InvalidInput(fmt.Sprintf("unknown leg: %s", leg))
	}
	c.detachBookingAfterEdit("sailing selection changed")
	return nil
}

func (c *Cart) Outbound() *model.SailingResult      { return c.outbound }
func (c *Cart) ReturnSailing() *model.SailingResult { return c.returnSailing }

// SetCabinSelections replaces the cabin line items for one leg. Each
// selection carries its own quantity and already-known unit price.
func (c *Cart) SetCabinSelections(leg string, selections []model.CabinSelection) error {
	if leg != model.LegOutbound && leg != model.LegReturn {
		return apperrors.InvalidInput(fmt.Sprintf("unknown leg: %s", leg))
	}
	for i := range selections {
		selections[i].Leg = leg
	}
	c.cabins[leg] = selections
	c.detachBookingAfterEdit("cabin selections changed")
	return nil
}

func (c *Cart) CabinSelections(leg string) []model.CabinSelection {
	return c.cabins[leg]
}

func (c *Cart) SetMeals(items []model.MealSelection) {
	c.meals = items
	c.detachBookingAfterEdit("meal selections changed")
}

func (c *Cart) Meals() []model.MealSelection { return c.meals }

// ApplyPromoCode delegates validation to the promo collaborator. On success
// the code, discount and message are stored; on any failure a previously
// applied discount is cleared rather than left stale.
func (c *Cart) ApplyPromoCode(ctx context.Context, code string) error {
	req := PromoRequest{
		Code:          code,
		BookingAmount: c.ProvisionalTotal(),
	}
	if c.contact != nil {
		req.Email = c.contact.Email
	}
	if c.outbound != nil {
		req.Operator = c.outbound.Operator
	}

	result, err := c.promo.Validate(ctx, req)
	if err != nil {
		c.promoState = nil
		return apperrors.Wrap(err, apperrors.CodeUnavailable, "promo validation unavailable", 503)
	}
	if !result.IsValid {
		c.promoState = nil
		return apperrors.Validation(result.Message, map[string]any{"code": code})
	}

	c.promoState = &model.PromoState{
		Code:     result.Code,
		Discount: result.DiscountAmount,
		Message:  result.Message,
	}
	c.log.Info("promo code applied", "code", result.Code, "discount", result.DiscountAmount)
	return nil
}

func (c *Cart) Promo() *model.PromoState { return c.promoState }

// AddPassenger upserts a passenger. A missing id is assigned; an existing
// id replaces the earlier entry in place.
func (c *Cart) AddPassenger(p model.Passenger) string {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.FirstName = sanitizer.NormalizeName(p.FirstName)
	p.LastName = sanitizer.NormalizeName(p.LastName)
	for i := range c.passengers {
		if c.passengers[i].ID == p.ID {
			c.passengers[i] = p
			c.detachBookingAfterEdit("passenger changed")
			return p.ID
		}
	}
	c.passengers = append(c.passengers, p)
	c.detachBookingAfterEdit("passenger added")
	return p.ID
}

// PassengerPatch carries the fields of an update; nil fields are untouched.
type PassengerPatch struct {
	Type         *string    `json:"type,omitempty"`
	FirstName    *string    `json:"first_name,omitempty"`
	LastName     *string    `json:"last_name,omitempty"`
	DateOfBirth  *string    `json:"date_of_birth,omitempty"`
	Nationality  *string    `json:"nationality,omitempty"`
	PassportNo   *string    `json:"passport_no,omitempty"`
	SpecialNeeds *string    `json:"special_needs,omitempty"`
	Pet          *model.Pet `json:"pet,omitempty"`
}

func (c *Cart) UpdatePassenger(id string, patch PassengerPatch) error {
	for i := range c.passengers {
		if c.passengers[i].ID != id {
			continue
		}
		p := &c.passengers[i]
		applyString(&p.Type, patch.Type)
		applyString(&p.FirstName, patch.FirstName)
		applyString(&p.LastName, patch.LastName)
		applyString(&p.DateOfBirth, patch.DateOfBirth)
		applyString(&p.Nationality, patch.Nationality)
		applyString(&p.PassportNo, patch.PassportNo)
		applyString(&p.SpecialNeeds, patch.SpecialNeeds)
		if patch.Pet != nil {
			p.Pet = patch.Pet
		}
		c.detachBookingAfterEdit("passenger updated")
		return nil
	}
	return apperrors.NotFoundWithID("passenger", id)
}

func (c *Cart) RemovePassenger(id string) error {
	for i := range c.passengers {
		if c.passengers[i].ID == id {
			c.passengers = append(c.passengers[:i], c.passengers[i+1:]...)
			c.detachBookingAfterEdit("passenger removed")
			return nil
		}
	}
	return apperrors.NotFoundWithID("passenger", id)
}

func (c *Cart) Passengers() []model.Passenger { return c.passengers }

// AddVehicle upserts a vehicle by id, mirroring the passenger commands.
func (c *Cart) AddVehicle(v model.Vehicle) string {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.Registration = sanitizer.NormalizeRegistration(v.Registration)
	for i := range c.vehicles {
		if c.vehicles[i].ID == v.ID {
			c.vehicles[i] = v
			c.detachBookingAfterEdit("vehicle changed")
			return v.ID
		}
	}
	c.vehicles = append(c.vehicles, v)
	c.detachBookingAfterEdit("vehicle added")
	return v.ID
}

// VehiclePatch carries the fields of a vehicle update; nil fields are untouched.
type VehiclePatch struct {
	Type         *string  `json:"type,omitempty"`
	Length       *float64 `json:"length,omitempty"`
	Width        *float64 `json:"width,omitempty"`
	Height       *float64 `json:"height,omitempty"`
	Registration *string  `json:"registration,omitempty"`
	RoofBox      *bool    `json:"roof_box,omitempty"`
	BikeRack     *bool    `json:"bike_rack,omitempty"`
	Trailer      *bool    `json:"trailer,omitempty"`
}

func (c *Cart) UpdateVehicle(id string, patch VehiclePatch) error {
	for i := range c.vehicles {
		if c.vehicles[i].ID != id {
			continue
		}
		v := &c.vehicles[i]
		applyString(&v.Type, patch.Type)
		applyString(&v.Registration, patch.Registration)
		if patch.Length != nil {
			v.Length = *patch.Length
		}
		if patch.Width != nil {
			v.Width = *patch.Width
		}
		if patch.Height != nil {
			v.Height = *patch.Height
		}
		if patch.RoofBox != nil {
			v.RoofBox = *patch.RoofBox
		}
		if patch.BikeRack != nil {
			v.BikeRack = *patch.BikeRack
		}
		if patch.Trailer != nil {
			v.Trailer = *patch.Trailer
		}
		c.detachBookingAfterEdit("vehicle updated")
		return nil
	}
	return apperrors.NotFoundWithID("vehicle", id)
}

func (c *Cart) RemoveVehicle(id string) error {
	for i := range c.vehicles {
		if c.vehicles[i].ID == id {
			c.vehicles = append(c.vehicles[:i], c.vehicles[i+1:]...)
			c.detachBookingAfterEdit("vehicle removed")
			return nil
		}
	}
	return apperrors.NotFoundWithID("vehicle", id)
}

func (c *Cart) Vehicles() []model.Vehicle { return c.vehicles }

func (c *Cart) SetContactInfo(info model.ContactInfo) {
	info.FirstName = sanitizer.NormalizeName(info.FirstName)
	info.LastName = sanitizer.NormalizeName(info.LastName)
	info.Email = sanitizer.NormalizeEmail(info.Email)
	c.contact = &info
}

func (c *Cart) Contact() *model.ContactInfo { return c.contact }

func (c *Cart) SetCancellationProtection(enabled bool) {
	c.protection = enabled
	c.detachBookingAfterEdit("cancellation protection changed")
}

func (c *Cart) CancellationProtection() bool { return c.protection }

// SetBooking stores the server-assigned booking reference and its expiry.
// The server's total supersedes the provisional one from now on.
func (c *Cart) SetBooking(record *model.BookingRecord) {
	c.booking = record
}

func (c *Cart) Booking() *model.BookingRecord { return c.booking }

// ClearCurrentBooking detaches the in-flight booking reference so any later
// payment runs against a freshly created booking instead of stale selections.
func (c *Cart) ClearCurrentBooking() {
	if c.booking != nil {
		c.log.Info("in-flight booking detached", "reference", c.booking.Reference)
	}
	c.booking = nil
}

// Reset wipes the cart for a fresh search or logout: selections, meals,
// promo state, contact info, passengers, vehicles and the in-flight booking
// are all discarded.
func (c *Cart) Reset() {
	c.outbound = nil
	c.returnSailing = nil
	c.cabins = make(map[string][]model.CabinSelection)
	c.meals = nil
	c.promoState = nil
	c.contact = nil
	c.passengers = nil
	c.vehicles = nil
	c.protection = false
	c.booking = nil
	c.log.Info("cart reset")
}

// detachBookingAfterEdit drops a stale in-flight booking whenever a
// priced selection changes underneath it.
func (c *Cart) detachBookingAfterEdit(reason string) {
	if c.booking == nil {
		return
	}
	c.log.Info("selection edit invalidates in-flight booking", "reason", reason)
	c.booking = nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
