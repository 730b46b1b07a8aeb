package policy

import (
	"encoding/json"
	"slices"
)

// Well-known field names present on every policy.
const (
	FieldID          = "id"
	FieldODataType   = "@odata.type"
	FieldDisplayName = "displayName"
	FieldDescription = "description"
)

// RawPolicy is a policy object as decoded from Graph JSON. Fields the engine
// does not know about are carried but never compared.
type RawPolicy map[string]any

// ID returns the server-assigned identifier, empty before creation.
func (p RawPolicy) ID() string {
	return p.str(FieldID)
}

// DisplayName returns the human readable name.
func (p RawPolicy) DisplayName() string {
	return p.str(FieldDisplayName)
}

// ODataType returns the subtype discriminator.
func (p RawPolicy) ODataType() string {
	return p.str(FieldODataType)
}

// Clone returns a deep copy of the policy.
func (p RawPolicy) Clone() RawPolicy {
	if p == nil {
		return nil
	}
	out, _ := DeepCopy(map[string]any(p)).(map[string]any)
	return out
}

func (p RawPolicy) str(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Patch is a partial write payload keyed by top-level field name.
type Patch map[string]any

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return len(p) == 0
}

// Keys returns the patch keys in sorted order.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// DeepCopy copies JSON-shaped values: maps, slices and scalars.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case RawPolicy:
		return RawPolicy(DeepCopy(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	case json.RawMessage:
		return append(json.RawMessage(nil), t...)
	default:
		return v
	}
}
