package search

import (
	"fmt"
	"time"

	"ferryline/pkg/model"
)

// sailingWire mirrors the search collaborator's record shape. The sailing
// identifier arrives under either of two spellings depending on which
// upstream produced it; normalize maps both onto the canonical schema so
// nothing past ingestion ever sees the wire names.
type sailingWire struct {
	FerryID       string             `json:"ferryId"`
	FerryIDSnake  string             `json:"ferry_id"`
	Route         string             `json:"route"`
	Operator      string             `json:"operator"`
	DeparturePort string             `json:"departurePort"`
	ArrivalPort   string             `json:"arrivalPort"`
	DepartureTime time.Time          `json:"departureTime"`
	ArrivalTime   time.Time          `json:"arrivalTime"`
	Prices        map[string]float64 `json:"prices"`
	VehiclePrice  float64            `json:"vehiclePrice"`
	Availability  struct {
		Passengers int `json:"passengers"`
		Vehicles   int `json:"vehicles"`
		Cabins     int `json:"cabins"`
	} `json:"availableSpaces"`
	CabinTypes []struct {
		Type      string  `json:"type"`
		Available int     `json:"available"`
		Price     float64 `json:"price"`
	} `json:"cabinTypes"`
}

func (w *sailingWire) id() string {
	if w.FerryID != "" {
		return w.FerryID
	}
	return w.FerryIDSnake
}

func (w *sailingWire) normalize() (*model.SailingResult, error) {
	id := w.id()
	if id == "" {
		return nil, fmt.Errorf("sailing record without an identifier")
	}

	result := &model.SailingResult{
		ID:            id,
		Route:         w.Route,
		Operator:      w.Operator,
		DeparturePort: w.DeparturePort,
		ArrivalPort:   w.ArrivalPort,
		DepartureTime: w.DepartureTime,
		ArrivalTime:   w.ArrivalTime,
		Prices:        w.Prices,
		VehiclePrice:  w.VehiclePrice,
		AvailableSpaces: model.AvailableSpaces{
			Passengers: w.Availability.Passengers,
			Vehicles:   w.Availability.Vehicles,
			Cabins:     w.Availability.Cabins,
		},
	}
	for _, ct := range w.CabinTypes {
		result.CabinTypes = append(result.CabinTypes, model.CabinBucket{
			Type:      ct.Type,
			Available: ct.Available,
			Price:     ct.Price,
		})
	}
	return result, nil
}
