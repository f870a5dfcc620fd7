package cart

import (
	"ferryline/pkg/model"
)

// LegTotal sums the charges of one leg at that leg's own tariff:
// per-passenger-type fares, vehicle fares, cabin line items and meals.
// A leg with no sailing selected costs nothing.
func (c *Cart) LegTotal(leg string) float64 {
	sailing := c.sailingFor(leg)
	if sailing == nil {
		return 0
	}

	var total float64
	for _, p := range c.passengers {
		total += sailing.PriceFor(p.Type)
	}
	total += float64(len(c.vehicles)) * sailing.VehiclePrice

	for _, sel := range c.cabins[leg] {
		total += float64(sel.Quantity) * sel.UnitPrice
	}
	for _, meal := range c.meals {
		if mealLeg(meal) == leg {
			total += float64(meal.Quantity) * meal.UnitPrice
		}
	}
	return total
}

// ProvisionalTotal is the cart's locally summed total: both legs plus the
// cancellation-protection fee, minus any applied discount, never negative.
// It is superseded by the server's total once a booking is created.
func (c *Cart) ProvisionalTotal() float64 {
	total := c.LegTotal(model.LegOutbound) + c.LegTotal(model.LegReturn)
	if c.protection {
		total += c.protectionFee
	}
	if c.promoState != nil {
		total -= c.promoState.Discount
	}
	if total < 0 {
		total = 0
	}
	return total
}

// Total prefers the authoritative server amount when a booking exists.
func (c *Cart) Total() float64 {
	if c.booking != nil {
		return c.booking.TotalAmount
	}
	return c.ProvisionalTotal()
}

func (c *Cart) sailingFor(leg string) *model.SailingResult {
	if leg == model.LegReturn {
		return c.returnSailing
	}
	return c.outbound
}

// mealLeg buckets meals without an explicit leg into the outbound total.
func mealLeg(meal model.MealSelection) string {
	if meal.Leg == "" {
		return model.LegOutbound
	}
	return meal.Leg
}
