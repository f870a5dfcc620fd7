package availability

import (
	"ferryline/pkg/model"
)

// SearchCache holds the sailing records of the most recent search. Records
// are mutated in place by the reconciler until the next Seed discards them.
//
// The cache itself does no locking: the flow controller serializes every
// mutation (user commands, push deltas, feed deltas) behind its own mutex,
// so each transformation is applied atomically before the next is considered.
type SearchCache struct {
	params  model.SearchParams
	results []*model.SailingResult
}

func NewSearchCache() *SearchCache {
	return &SearchCache{}
}

// Seed replaces the cached records with a fresh search response.
func (c *SearchCache) Seed(params model.SearchParams, results []*model.SailingResult) {
	c.params = params
	c.results = results
}

func (c *SearchCache) Params() model.SearchParams {
	return c.params
}

func (c *SearchCache) Results() []*model.SailingResult {
	return c.results
}

func (c *SearchCache) Find(sailingID string) *model.SailingResult {
	return findSailing(c.results, sailingID)
}

// Apply reconciles one delta into the cached records. Unknown sailing ids
// are ignored.
func (c *SearchCache) Apply(sailingID string, delta model.AvailabilityDelta) {
	c.results = ApplyDelta(c.results, sailingID, delta)
}

// Replace swaps in fresh records for the sailings present in the given
// slice, leaving other cached records untouched. Used when authoritative
// availability is re-fetched after a failed booking creation.
func (c *SearchCache) Replace(fresh []*model.SailingResult) {
	for _, f := range fresh {
		for i, r := range c.results {
			if r.ID == f.ID {
				c.results[i] = f
				break
			}
		}
	}
}

func (c *SearchCache) Clear() {
	c.params = model.SearchParams{}
	c.results = nil
}

func (c *SearchCache) Len() int {
	return len(c.results)
}
