package model

// Trip legs.
const (
	LegOutbound = "outbound"
	LegReturn   = "return"
)

// Passenger types.
const (
	PassengerAdult  = "adult"
	PassengerChild  = "child"
	PassengerInfant = "infant"
)

type Passenger struct {
	ID           string `json:"id" validate:"required,uuid4"`
	Type         string `json:"type" validate:"required,oneof=adult child infant"`
	FirstName    string `json:"first_name" validate:"required,min=1,max=100"`
	LastName     string `json:"last_name" validate:"required,min=1,max=100"`
	DateOfBirth  string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Nationality  string `json:"nationality,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	PassportNo   string `json:"passport_no,omitempty" validate:"omitempty,min=5,max=20"`
	SpecialNeeds string `json:"special_needs,omitempty" validate:"omitempty,max=500"`
	Pet          *Pet   `json:"pet,omitempty"`
}

type Pet struct {
	Species string `json:"species" validate:"required,max=50"`
	Name    string `json:"name,omitempty" validate:"omitempty,max=50"`
	Carrier bool   `json:"carrier"`
}

type Vehicle struct {
	ID           string  `json:"id" validate:"required,uuid4"`
	Type         string  `json:"type" validate:"required,oneof=car van motorcycle bicycle camper trailer"`
	Length       float64 `json:"length" validate:"required,gt=0,lte=30"`
	Width        float64 `json:"width" validate:"required,gt=0,lte=5"`
	Height       float64 `json:"height" validate:"required,gt=0,lte=6"`
	Registration string  `json:"registration" validate:"required,min=2,max=16"`
	RoofBox      bool    `json:"roof_box"`
	BikeRack     bool    `json:"bike_rack"`
	Trailer      bool    `json:"trailer"`
}

// CabinSelection is one priced cabin line item. The unit price is already
// known when the selection is made; the cart only sums line items.
type CabinSelection struct {
	CabinID   string  `json:"cabin_id" validate:"required"`
	CabinType string  `json:"cabin_type,omitempty"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=10"`
	UnitPrice float64 `json:"unit_price" validate:"min=0"`
	Leg       string  `json:"leg" validate:"required,oneof=outbound return"`
}

type MealSelection struct {
	MealID    string  `json:"meal_id" validate:"required"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity" validate:"required,min=1,max=20"`
	UnitPrice float64 `json:"unit_price" validate:"min=0"`
	Leg       string  `json:"leg,omitempty" validate:"omitempty,oneof=outbound return"`
}

type ContactInfo struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,e164"`
	Address   string `json:"address,omitempty" validate:"omitempty,max=300"`
	City      string `json:"city,omitempty" validate:"omitempty,max=100"`
	Country   string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}

// PromoState holds the result of a successful promo-code validation.
type PromoState struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Message  string  `json:"message"`
}
