package engine

import "github.com/splitkit/splitkit/internal/store"

// SelectVariant picks the variant whose cumulative weight range covers the
// user's bucket, walking variants in their stored order. Variant order is
// part of the experiment's frozen configuration: reordering a live
// experiment's variants moves users near bucket boundaries.
func SelectVariant(userID string, exp *store.Experiment) store.Variant {
	bucket := Bucket(userID, exp.ID)

	cumulative := 0
	for _, v := range exp.Variants {
		cumulative += v.Weight
		if bucket < cumulative {
			return v
		}
	}

	// Weights summing to 100 make this unreachable; fall back to the
	// first variant if the stored data is inconsistent.
	return exp.Variants[0]
}
