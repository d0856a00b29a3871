package helpers

import "cmp"

// Clamp bounds val to [lo, hi].
func Clamp[T cmp.Ordered](val, lo, hi T) T {
	return min(max(val, lo), hi)
}
