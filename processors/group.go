// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package processors

// GroupBy partitions items by the key returned by key. Groups are returned
// in order of their first item, items keep their relative order.
func GroupBy[T any, K comparable](items []T, key func(T) K) [][]T {
	idx := make(map[K]int)
	ret := make([][]T, 0)

	for _, it := range items {
		k := key(it)
		i, ok := idx[k]
		if !ok {
			i = len(ret)
			idx[k] = i
			ret = append(ret, nil)
		}
		ret[i] = append(ret[i], it)
	}

	return ret
}

// DistinctBy returns the first item for every key, in input order, and the
// items that were dropped as duplicates of an earlier one
func DistinctBy[T any, K comparable](items []T, key func(T) K) ([]T, []T) {
	seen := make(map[K]bool)
	kept := make([]T, 0, len(items))
	dropped := make([]T, 0)

	for _, it := range items {
		k := key(it)
		if seen[k] {
			dropped = append(dropped, it)
			continue
		}
		seen[k] = true
		kept = append(kept, it)
	}

	return kept, dropped
}
