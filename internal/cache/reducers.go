package cache

import "slices"

// InsertSorted returns a copy of list with item added, ordered by cmp.
func InsertSorted[T any](list []T, item T, cmp func(a, b T) int) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, item)
	slices.SortStableFunc(out, cmp)
	return out
}

// ReplaceSorted returns a copy of list with every element matching item
// swapped for item, then reordered. A list without a match is returned as is.
func ReplaceSorted[T any](list []T, item T, same func(a, b T) bool, cmp func(a, b T) int) []T {
	i := slices.IndexFunc(list, func(x T) bool { return same(x, item) })
	if i < 0 {
		return list
	}
	out := slices.Clone(list)
	for j := range out {
		if same(out[j], item) {
			out[j] = item
		}
	}
	slices.SortStableFunc(out, cmp)
	return out
}

// Remove returns a copy of list without the elements drop matches.
func Remove[T any](list []T, drop func(T) bool) []T {
	out := make([]T, 0, len(list))
	for _, x := range list {
		if !drop(x) {
			out = append(out, x)
		}
	}
	return out
}
