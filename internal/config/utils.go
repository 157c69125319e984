package config

// withDefault returns def when v is the zero value of its type.
func withDefault[T comparable](v, def T) T {
	var zero T
	if v != zero {
		return v
	}
	return def
}
