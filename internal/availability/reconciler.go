package availability

import (
	"ferryline/pkg/model"
)

// ApplyDelta applies one relative inventory delta to the cached results and
// returns the same slice. The matched record is updated in place; a delta for
// an unknown sailing id leaves everything unchanged.
//
// Replaying the same delta twice double-applies it. Deltas carry no identity,
// so the reconciler cannot deduplicate them; convergence relies on the
// upstream delivering each event once.
func ApplyDelta(results []*model.SailingResult, sailingID string, delta model.AvailabilityDelta) []*model.SailingResult {
	sailing := findSailing(results, sailingID)
	if sailing == nil {
		return results
	}

	spaces := &sailing.AvailableSpaces
	spaces.Passengers = clampZero(spaces.Passengers - delta.PassengersBooked + delta.PassengersFreed)
	spaces.Vehicles = clampZero(spaces.Vehicles - delta.VehiclesBooked + delta.VehiclesFreed)

	if delta.CabinQuantity > 0 {
		spaces.Cabins = clampZero(spaces.Cabins - delta.CabinQuantity)
		depleteCabinBuckets(sailing.CabinTypes, delta.CabinQuantity)
	}
	if delta.CabinsFreed > 0 {
		spaces.Cabins += delta.CabinsFreed
		restoreCabinBuckets(sailing.CabinTypes, delta.CabinsFreed)
	}

	return results
}

func findSailing(results []*model.SailingResult, id string) *model.SailingResult {
	for _, r := range results {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// depleteCabinBuckets walks the buckets in list order, skipping seating
// types, and subtracts from each bucket up to its current count until the
// requested quantity is exhausted.
func depleteCabinBuckets(buckets []model.CabinBucket, quantity int) {
	remaining := quantity
	for i := range buckets {
		if remaining == 0 {
			return
		}
		if !model.IsQuotaCabinType(buckets[i].Type) {
			continue
		}
		take := min(remaining, buckets[i].Available)
		buckets[i].Available -= take
		remaining -= take
	}
}

// restoreCabinBuckets credits the entire freed quantity to the first quota
// bucket. The delta does not say which bucket the cancellation came from,
// so bucket-level accuracy is not attempted.
func restoreCabinBuckets(buckets []model.CabinBucket, freed int) {
	for i := range buckets {
		if !model.IsQuotaCabinType(buckets[i].Type) {
			continue
		}
		buckets[i].Available += freed
		return
	}
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
