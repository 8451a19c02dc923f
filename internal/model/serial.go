package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// SerialList is a set of card serial numbers stored as a jsonb column.
type SerialList []string

func (l SerialList) Value() (driver.Value, error) {
	if l == nil {
		l = SerialList{}
	}
	return json.Marshal(l)
}

func (l *SerialList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("cannot scan %T into SerialList", src)
}

// NormalizeSerials trims whitespace, drops empties and deduplicates while
// preserving input order.
func NormalizeSerials(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SerialDiff returns the serials present in a but not in b, in a's order.
func SerialDiff(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := inB[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// SerialIntersect returns the serials present in both a and b, in a's order.
func SerialIntersect(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, s := range b {
		inB[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := inB[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
