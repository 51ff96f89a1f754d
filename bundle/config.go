package bundle

// Configuration selects how strictly a load validates templates.
type Configuration struct {
	// IgnoreMissing renders an operation without template as its own name.
	IgnoreMissing bool
	// IgnoreExtra accepts template keys that match no operation.
	IgnoreExtra bool
	// IgnoreArityMismatch skips comparing declared and used argument counts.
	IgnoreArityMismatch bool
	// AllowFallback merges the locale chain instead of requiring the exact locale.
	AllowFallback bool
}

// DefaultConfiguration validates everything and allows locale fallback.
func DefaultConfiguration() Configuration {
	return Configuration{AllowFallback: true}
}

// LenientConfiguration ignores every validation failure and allows fallback.
func LenientConfiguration() Configuration {
	return Configuration{
		IgnoreMissing:       true,
		IgnoreExtra:         true,
		IgnoreArityMismatch: true,
		AllowFallback:       true,
	}
}
