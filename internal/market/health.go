package market

import "strings"

// badMarkers are data-health values that make a feed untradeable.
var badMarkers = map[string]bool{
	"stale":   true,
	"missing": true,
	"suspect": true,
	"flat":    true,
}

// statusKeys are the keys whose values carry data-health flags. Nested
// containers under any key are still descended so flags buried in
// quotes.state / quotes.health payloads are found.
var statusKeys = map[string]bool{
	"data_status": true,
	"data_flags":  true,
	"state":       true,
	"health":      true,
	"status":      true,
}

// CollectStatusFlags walks a status payload and returns every flag string
// found under a recognized status key, descending into nested maps and lists.
func CollectStatusFlags(status map[string]any) []string {
	var flags []string
	for k, v := range status {
		collect(k, v, false, &flags)
	}
	return flags
}

func collect(key string, v any, underStatusKey bool, out *[]string) {
	relevant := underStatusKey || statusKeys[strings.ToLower(key)]
	switch val := v.(type) {
	case string:
		if relevant {
			*out = append(*out, strings.ToLower(strings.TrimSpace(val)))
		}
	case map[string]any:
		for k, nested := range val {
			collect(k, nested, relevant, out)
		}
	case []any:
		for _, nested := range val {
			collect(key, nested, relevant, out)
		}
	case []string:
		for _, s := range val {
			collect(key, s, relevant, out)
		}
	}
}

// BadStatusFlags returns the subset of collected flags that match the
// bad-marker set. Empty result means the data gate passes.
func BadStatusFlags(status map[string]any) []string {
	var bad []string
	for _, f := range CollectStatusFlags(status) {
		if badMarkers[f] {
			bad = append(bad, f)
		}
	}
	return bad
}
