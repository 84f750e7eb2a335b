package redact

import "strings"

// maxPayloadDepth bounds recursion into tool arguments and results. Deeper
// values are replaced with depthPlaceholder instead of passing through
// unscanned.
const maxPayloadDepth = 16

const depthPlaceholder = "[REDACTED:depth]"

// credentialKeys are argument name suffixes whose string values are secrets
// whatever they look like: {"headers":{"Authorization":"..."}} or
// {"client_secret":"..."}. Names are compared lower-cased with '-' and '_'
// removed, so "max_tokens" does not match "token".
var credentialKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"apikey",
	"authorization",
	"cookie",
	"privatekey",
}

var keyNormalizer = strings.NewReplacer("_", "", "-", "")

func isCredentialKey(key string) bool {
	n := keyNormalizer.Replace(strings.ToLower(key))
	for _, suffix := range credentialKeys {
		if strings.HasSuffix(n, suffix) {
			return true
		}
	}
	return false
}

// payload returns a redacted copy of a decoded tool payload. Maps and
// slices are copied, never modified in place.
func (r *Redactor) payload(v any, depth int) any {
	if depth > maxPayloadDepth {
		return depthPlaceholder
	}
	switch val := v.(type) {
	case string:
		return r.String(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if s, ok := child.(string); ok && r.secrets && s != "" && isCredentialKey(k) && !r.allowed(s) {
				out[k] = "[REDACTED:" + k + "]"
				continue
			}
			out[k] = r.payload(child, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = r.payload(child, depth+1)
		}
		return out
	default:
		return v
	}
}
