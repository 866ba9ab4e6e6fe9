package distance

import (
	"fmt"
	"strings"
)

// Metric represents the distance metric used for vector comparison.
type Metric uint8

const (
	Euclidean Metric = iota
	Cosine
	DotProduct
	Hamming
	Jaccard
)

func (m Metric) String() string {
	switch m {
	case Euclidean:
		return "euclidean"
	case Cosine:
		return "cosine"
	case DotProduct:
		return "dot"
	case Hamming:
		return "hamming"
	case Jaccard:
		return "jaccard"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m <= Jaccard
}

// ParseMetric parses a metric name. Common aliases are accepted.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "euclidean", "l2":
		return Euclidean, nil
	case "cosine":
		return Cosine, nil
	case "dot", "dotproduct", "dot_product", "ip":
		return DotProduct, nil
	case "hamming":
		return Hamming, nil
	case "jaccard":
		return Jaccard, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unknown metric %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	v, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
