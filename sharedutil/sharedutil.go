package sharedutil

import "maps"

func FilterMapSlice[T any, U any](ts []T, f func(T) (U, bool)) []U {
	if ts == nil {
		return nil
	}
	result := make([]U, 0)
	for _, t := range ts {
		if u, ok := f(t); ok {
			result = append(result, u)
		}
	}
	return result
}

func ToSet[T comparable](ts []T) map[T]struct{} {
	set := make(map[T]struct{}, len(ts))
	for _, t := range ts {
		set[t] = struct{}{}
	}
	return set
}

// MergeMaps returns a new map holding every key of base,
// overlaid with every key of update. Keys of update win.
func MergeMaps[K comparable, V any](base, update map[K]V) map[K]V {
	result := make(map[K]V, len(base)+len(update))
	maps.Copy(result, base)
	maps.Copy(result, update)
	return result
}

// CopyMap returns a shallow copy of m, or nil if m is nil.
func CopyMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
