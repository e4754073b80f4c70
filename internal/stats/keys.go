package stats

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
)

// Kind is the family a summary statistic belongs to.
type Kind int

const (
	KindAvg Kind = iota
	KindMin
	KindMed
	KindMax
	KindCount
	KindPercentile
)

// Key names one requested summary statistic, e.g. "avg" or "p(95)".
type Key struct {
	Kind Kind
	// P is the percentile in (0, 100). Only set for KindPercentile; med carries 50.
	P    float64
	name string
}

// DefaultKeys mirrors the trend stats a k6 summary prints when none are requested.
var DefaultKeys = []string{"avg", "min", "med", "max", "p(90)", "p(95)"}

var percentileKey = regexp.MustCompile(`^p\(([0-9]+(?:\.[0-9]+)?)\)$`)

// ParseKey parses a single statistic key.
func ParseKey(s string) (Key, error) {
	switch s {
	case "avg":
		return Key{Kind: KindAvg, name: s}, nil
	case "min":
		return Key{Kind: KindMin, name: s}, nil
	case "med":
		return Key{Kind: KindMed, P: 50, name: s}, nil
	case "max":
		return Key{Kind: KindMax, name: s}, nil
	case "count":
		return Key{Kind: KindCount, name: s}, nil
	}

	m := percentileKey.FindStringSubmatch(s)
	if m == nil {
		return Key{}, errors.Errorf("unknown statistic %q", s)
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Key{}, errors.Wrapf(err, "parsing percentile %q", s)
	}
	if p <= 0 || p >= 100 {
		return Key{}, errors.Errorf("percentile %q out of range (0, 100)", s)
	}
	return Key{Kind: KindPercentile, P: p, name: s}, nil
}

// ParseKeys parses an ordered list of keys, dropping duplicates but keeping first-seen order.
// An empty list yields DefaultKeys.
func ParseKeys(raw []string) ([]Key, error) {
	if len(raw) == 0 {
		raw = DefaultKeys
	}
	seen := make(map[string]bool, len(raw))
	keys := make([]Key, 0, len(raw))
	for _, s := range raw {
		if seen[s] {
			continue
		}
		seen[s] = true
		k, err := ParseKey(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (k Key) String() string {
	if k.name != "" {
		return k.name
	}
	switch k.Kind {
	case KindAvg:
		return "avg"
	case KindMin:
		return "min"
	case KindMed:
		return "med"
	case KindMax:
		return "max"
	case KindCount:
		return "count"
	default:
		return fmt.Sprintf("p(%s)", strconv.FormatFloat(k.P, 'f', -1, 64))
	}
}
