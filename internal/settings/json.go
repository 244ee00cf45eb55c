package settings

import "encoding/json"

// EncodeEffective renders a (possibly partial) Layer as the JSON object
// shape used by every admin endpoint: kebab-case keys, numeric keys as
// JSON numbers, string/regex keys as JSON strings, and an absent
// destination-url as JSON null. Keys outside the recognized set are
// never present in a Layer, so this always emits exactly the keys
// passed in, plus destination-url — callers that want the "every key,
// absent shown as null" shape should pass a Layer merged with
// Defaults() first.
func EncodeEffective(l Layer) ([]byte, error) {
	out := make(map[string]interface{}, len(AllKeys))
	for _, k := range AllKeys {
		v, ok := l[k]
		if !ok {
			if k == DestinationURL {
				out[string(k)] = nil
			}
			continue
		}
		switch v.Kind() {
		case KindInt:
			out[string(k)] = v.Int()
		default:
			out[string(k)] = v.Str()
		}
	}
	return json.Marshal(out)
}
