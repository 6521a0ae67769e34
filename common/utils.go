package common

// Coalesce returns the first value that is not the zero value of T. Builder options use it so that an empty
// label or name keeps the current default.
//
// Parameters:
//   - candidates: values in order of preference
//
// Returns:
//   - T: the first non-zero candidate, or the zero value when every candidate is zero
func Coalesce[T comparable](candidates ...T) T {
	var zero T
	for _, c := range candidates {
		if c != zero {
			return c
		}
	}
	return zero
}
