package track

import (
	"encoding/json"
	"strconv"
	"strings"
)

// keyAliases are the upstream field names that may carry the order key,
// tried in order.
var keyAliases = []string{"task_id", "reference", "order_id", "job_id", "tracking_code"}

// statusAliases are the upstream field names that may carry raw status text.
var statusAliases = []string{"status", "task_status", "order_status"}

// fieldRule declares where a canonical patch field may live in an upstream
// payload. Paths are tried in order and the first present value wins; a
// dotted path descends into a nested object. Supporting a new upstream alias
// is a data change here, not new code.
type fieldRule struct {
	paths  []string
	assign func(p *Patch, v any)
}

var fieldRules = []fieldRule{
	{
		paths: []string{"driver.name", "driver_name", "fleet_name"},
		assign: func(p *Patch, v any) {
			if s, ok := asString(v); ok {
				p.DriverName = &s
			}
		},
	},
	{
		paths: []string{"driver.phone", "driver_phone", "fleet_phone"},
		assign: func(p *Patch, v any) {
			if s, ok := asString(v); ok {
				p.DriverPhone = &s
			}
		},
	},
	{
		paths: []string{"location.lat", "lat", "latitude"},
		assign: func(p *Patch, v any) {
			if f, ok := asFloat(v); ok {
				p.Lat = &f
			}
		},
	},
	{
		paths: []string{"location.lng", "lng", "longitude"},
		assign: func(p *Patch, v any) {
			if f, ok := asFloat(v); ok {
				p.Lng = &f
			}
		},
	},
	{
		paths: []string{"eta_minutes", "eta", "eta_min"},
		assign: func(p *Patch, v any) {
			if n, ok := asInt(v); ok {
				p.ETAMinutes = &n
			}
		},
	},
}

// Normalize translates one upstream webhook payload into the order key it
// targets, the canonical patch to merge and the timeline label the status
// transition earns ("" when none). ok is false when the payload names no
// order; an unrecognized raw status only means the patch carries no status.
// Normalize is pure and tolerates any payload shape.
func Normalize(payload map[string]any) (key string, patch Patch, label string, ok bool) {
	key, ok = ExtractKey(payload)
	if !ok {
		return "", Patch{}, "", false
	}

	for _, rule := range fieldRules {
		if v, found := lookup(payload, rule.paths); found {
			rule.assign(&patch, v)
		}
	}

	if v, found := lookup(payload, statusAliases); found {
		if raw, sok := asString(v); sok {
			if st, cok := Classify(raw); cok {
				patch.Status = &st
				label = Label(st)
			}
		}
	}

	return key, patch, label, true
}

// ExtractKey returns the order key named by the payload, trying each known
// alias in order. ok is false when every alias is absent or blank after
// trimming.
func ExtractKey(payload map[string]any) (string, bool) {
	for _, alias := range keyAliases {
		v, present := payload[alias]
		if !present {
			continue
		}
		if s, ok := keyString(v); ok {
			return s, true
		}
	}
	return "", false
}

// lookup returns the first present value among the candidate paths.
func lookup(payload map[string]any, paths []string) (any, bool) {
	for _, path := range paths {
		if v, ok := dig(payload, path); ok {
			return v, true
		}
	}
	return nil, false
}

// dig resolves a possibly dotted path against nested string-keyed maps.
func dig(payload map[string]any, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")
	v, ok := payload[head]
	if !ok || v == nil {
		return nil, false
	}
	if !nested {
		return v, true
	}
	child, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return dig(child, rest)
}

// keyString renders an order key value as a string. Upstreams disagree on
// whether identifiers are strings or JSON numbers, so both are accepted.
func keyString(v any) (string, bool) {
	if s, ok := asString(v); ok {
		return s, true
	}
	if f, ok := asFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
