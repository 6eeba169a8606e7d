package snapshot

// ignoredProperties never make it into generated rules: they describe
// behavior over time or interaction rather than presentation.
var ignoredProperties = func() map[string]bool {
	names := []string{
		"animation",
		"animation-delay",
		"animation-direction",
		"animation-duration",
		"animation-fill-mode",
		"animation-iteration-count",
		"animation-name",
		"animation-play-state",
		"animation-timing-function",
		"cursor",
		"transition",
		"transition-delay",
		"transition-duration",
		"transition-property",
		"transition-timing-function",
	}
	m := make(map[string]bool, 2*len(names))
	for _, n := range names {
		m[n] = true
		m["-webkit-"+n] = true
	}
	return m
}()

// Ignored reports whether property is excluded from capture.
func Ignored(property string) bool {
	return ignoredProperties[property]
}
