package zotero

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Params is a decoded --filter mapping. Keys and values are passed
// through to the API as query parameters unmodified.
type Params map[string]any

// ParseFilter decodes a --filter JSON string into Params.
// An empty string yields nil Params (the zero-parameter call form).
func ParseFilter(s string) (Params, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var p Params
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("parsing --filter JSON: %w", err)
	}
	return p, nil
}

// Values encodes the params as URL query values. Arrays are joined
// with "||", Zotero's OR syntax for multi-value parameters.
func (p Params) Values() url.Values {
	v := url.Values{}
	for key, val := range p {
		v.Set(key, stringifyParam(val))
	}
	return v
}

// Set assigns a parameter, allocating the map if needed, and returns
// the (possibly new) Params.
func (p Params) Set(key string, val any) Params {
	if p == nil {
		p = Params{}
	}
	p[key] = val
	return p
}

// Has reports whether the key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// TakeString removes the named key and returns its value as a string.
// Used for selector keys (collection, item) that address the request
// path rather than the query.
func (p Params) TakeString(key string) (string, bool) {
	val, ok := p[key]
	if !ok {
		return "", false
	}
	delete(p, key)
	s := stringifyParam(val)
	return s, s != ""
}

func stringifyParam(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		// JSON numbers decode as float64; render integers without a
		// fractional part.
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			parts[i] = stringifyParam(elem)
		}
		return strings.Join(parts, "||")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
