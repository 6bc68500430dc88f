package utils

// Value dereferences v, returning the zero value for a nil pointer.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v. Useful for building partial-update payloads
// whose optional fields are pointers.
func Ptr[T any](v T) *T {
	return &v
}
