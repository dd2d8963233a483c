package model

import (
	"errors"
	"fmt"
	"strings"
)

// TeeShirtSize is the closed set of shirt sizes a profile can select.
type TeeShirtSize string

// TeeShirtSize values; _M and _W are the men's and women's cuts.
const (
	TeeShirtNotSpecified TeeShirtSize = "NOT_SPECIFIED"
	TeeShirtXSM          TeeShirtSize = "XS_M"
	TeeShirtXSW          TeeShirtSize = "XS_W"
	TeeShirtSM           TeeShirtSize = "S_M"
	TeeShirtSW           TeeShirtSize = "S_W"
	TeeShirtMM           TeeShirtSize = "M_M"
	TeeShirtMW           TeeShirtSize = "M_W"
	TeeShirtLM           TeeShirtSize = "L_M"
	TeeShirtLW           TeeShirtSize = "L_W"
	TeeShirtXLM          TeeShirtSize = "XL_M"
	TeeShirtXLW          TeeShirtSize = "XL_W"
	TeeShirtXXLM         TeeShirtSize = "XXL_M"
	TeeShirtXXLW         TeeShirtSize = "XXL_W"
	TeeShirtXXXLM        TeeShirtSize = "XXXL_M"
	TeeShirtXXXLW        TeeShirtSize = "XXXL_W"
)

// TeeShirtSizes lists every valid size in display order.
var TeeShirtSizes = []TeeShirtSize{
	TeeShirtNotSpecified,
	TeeShirtXSM, TeeShirtXSW,
	TeeShirtSM, TeeShirtSW,
	TeeShirtMM, TeeShirtMW,
	TeeShirtLM, TeeShirtLW,
	TeeShirtXLM, TeeShirtXLW,
	TeeShirtXXLM, TeeShirtXXLW,
	TeeShirtXXXLM, TeeShirtXXXLW,
}

// ErrInvalidTeeShirtSize indicates a size name outside the enumeration.
var ErrInvalidTeeShirtSize = errors.New("invalid tee shirt size")

// ParseTeeShirtSize maps a symbolic name to a TeeShirtSize.
func ParseTeeShirtSize(name string) (TeeShirtSize, error) {
	candidate := TeeShirtSize(strings.TrimSpace(name))
	for _, size := range TeeShirtSizes {
		if size == candidate {
			return size, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTeeShirtSize, name)
}

// IsValid reports whether s is one of the enumerated sizes.
func (s TeeShirtSize) IsValid() bool {
	_, err := ParseTeeShirtSize(string(s))
	return err == nil
}

// MarshalText encodes the size by its symbolic name.
func (s TeeShirtSize) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(TeeShirtNotSpecified), nil
	}
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTeeShirtSize, string(s))
	}
	return []byte(s), nil
}

// UnmarshalText decodes a symbolic name, rejecting unknown sizes.
func (s *TeeShirtSize) UnmarshalText(text []byte) error {
	size, err := ParseTeeShirtSize(string(text))
	if err != nil {
		return err
	}
	*s = size
	return nil
}
