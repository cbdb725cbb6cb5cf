package enums

import (
	"fmt"
	"strings"
)

// SourceType names the backing table of a unified delivery request.
type SourceType string

const (
	SourceArtworkOrder      SourceType = "artwork_order"
	SourceCommissionRequest SourceType = "commission_request"
)

var validSourceTypes = []SourceType{
	SourceArtworkOrder,
	SourceCommissionRequest,
}

var sourceTypeAliases = map[string]SourceType{
	"artwork":    SourceArtworkOrder,
	"order":      SourceArtworkOrder,
	"commission": SourceCommissionRequest,
}

// AllSourceTypes returns every source in listing precedence order.
func AllSourceTypes() []SourceType {
	out := make([]SourceType, len(validSourceTypes))
	copy(out, validSourceTypes)
	return out
}

// String implements fmt.Stringer.
func (s SourceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SourceType.
func (s SourceType) IsValid() bool {
	for _, candidate := range validSourceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSourceType converts raw input into a SourceType.
func ParseSourceType(value string) (SourceType, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSourceTypes {
		if string(candidate) == trimmed {
			return candidate, nil
		}
	}
	if alias, ok := sourceTypeAliases[trimmed]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("invalid source type %q", value)
}
