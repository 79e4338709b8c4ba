package adapter

// Options carries per-call sampling parameters as a loose mapping so that
// facade callers can pass options through untyped. Canonical keys are
// "temperature" and "max_tokens"; providers that spell a key differently are
// handled by the rename table below.
type Options map[string]any

// Canonical option keys.
const (
	OptTemperature = "temperature"
	OptMaxTokens   = "max_tokens"
)

// optionRenames maps provider -> canonical key -> provider-specific key.
// Applied once in MultiClient.Complete; backends only ever see their own
// spelling.
var optionRenames = map[string]map[string]string{
	"openai": {
		OptMaxTokens: "max_completion_tokens",
	},
}

func translateOptions(provider string, opts Options) Options {
	renames, ok := optionRenames[provider]
	if !ok || len(opts) == 0 {
		return opts
	}
	out := make(Options, len(opts))
	for key, value := range opts {
		if renamed, ok := renames[key]; ok {
			key = renamed
		}
		out[key] = value
	}
	return out
}

// Float reads a float option, accepting ints for convenience since JSON
// bodies and YAML both produce mixed numeric types.
func (o Options) Float(key string) (float64, bool) {
	v, ok := o[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Int reads an integer option, accepting float64 since decoded JSON numbers
// arrive that way.
func (o Options) Int(key string) (int, bool) {
	v, ok := o[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	}
	return 0, false
}
