// Package headers resolves message header values by logical name.
//
// Header keys on audited messages are case-insensitive and may carry the
// "NServiceBus." namespace prefix. A Headers value folds both away so that
// Get("RelatedTo"), Get("relatedto") and Get("NServiceBus.RelatedTo") all
// find a pair stored under any of those spellings.
//
// When two pairs normalize to the same key the first one in input order
// wins. Later duplicates remain visible through Pairs and Keys.
package headers

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Prefix is the namespace token stripped from keys before comparison.
const Prefix = "NServiceBus."

// KeyValue is a single header pair as delivered by the monitoring service.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Headers is an immutable, normalized view over an ordered header list.
// The zero value is an empty header set.
type Headers struct {
	pairs []KeyValue
	index map[string]int // normalized key -> position of first pair
}

// New builds the lookup index once. The input slice is copied.
func New(pairs []KeyValue) Headers {
	h := Headers{
		pairs: append([]KeyValue(nil), pairs...),
		index: make(map[string]int, len(pairs)),
	}
	for i, p := range h.pairs {
		k := normalize(p.Key)
		if _, seen := h.index[k]; seen {
			continue
		}
		h.index[k] = i
	}
	return h
}

// FromMap builds headers from a map. Pair order follows sorted keys so the
// result is deterministic.
func FromMap(m map[string]string) Headers {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]KeyValue, 0, len(m))
	for _, k := range keys {
		pairs = append(pairs, KeyValue{Key: k, Value: m[k]})
	}
	return New(pairs)
}

// Lookup returns the value for key and whether it was present.
func (h Headers) Lookup(key string) (string, bool) {
	if len(h.index) == 0 {
		return "", false
	}
	i, ok := h.index[normalize(key)]
	if !ok {
		return "", false
	}
	return h.pairs[i].Value, true
}

// Get returns the value for key, or def when the key is absent.
func (h Headers) Get(key, def string) string {
	if v, ok := h.Lookup(key); ok {
		return v
	}
	return def
}

// Has reports whether key is present under any accepted spelling.
func (h Headers) Has(key string) bool {
	_, ok := h.Lookup(key)
	return ok
}

// Bool reports whether key holds the exact text "true".
// Absent keys and any other text are false.
func (h Headers) Bool(key string) bool {
	v, ok := h.Lookup(key)
	return ok && v == "true"
}

// Keys returns the raw keys in input order, duplicates included.
func (h Headers) Keys() []string {
	keys := make([]string, len(h.pairs))
	for i, p := range h.pairs {
		keys[i] = p.Key
	}
	return keys
}

// Pairs returns a copy of the raw pairs in input order.
func (h Headers) Pairs() []KeyValue {
	return append([]KeyValue(nil), h.pairs...)
}

// Len returns the number of raw pairs.
func (h Headers) Len() int {
	return len(h.pairs)
}

// Resolve returns every Known header that is present, keyed by its
// logical name.
func (h Headers) Resolve() map[string]string {
	out := make(map[string]string)
	for _, k := range Known {
		if v, ok := h.Lookup(k); ok {
			out[k] = v
		}
	}
	return out
}

// MarshalJSON encodes the raw pairs in input order.
func (h Headers) MarshalJSON() ([]byte, error) {
	if h.pairs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h.pairs)
}

// UnmarshalJSON decodes a list of key/value pairs.
func (h *Headers) UnmarshalJSON(data []byte) error {
	var pairs []KeyValue
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	*h = New(pairs)
	return nil
}

// normalize folds case and drops the namespace prefix.
// A fresh Caser is used per call; Casers are stateful.
func normalize(key string) string {
	folded := cases.Fold().String(key)
	prefix := cases.Fold().String(Prefix)
	return strings.TrimPrefix(folded, prefix)
}
