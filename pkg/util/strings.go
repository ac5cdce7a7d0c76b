package util

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitList splits a comma separated list, trimming blanks and dropping empty items.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseFloatList parses "0.01, -0.02,0.015" into floats.
func ParseFloatList(s string) ([]float64, error) {
	items := SplitList(s)
	out := make([]float64, 0, len(items))
	for i, it := range items {
		v, err := strconv.ParseFloat(it, 64)
		if err != nil {
			return nil, fmt.Errorf("item %d %q: %w", i, it, err)
		}
		out = append(out, v)
	}
	return out, nil
}
