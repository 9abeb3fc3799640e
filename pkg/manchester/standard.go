package manchester

import (
	"fmt"
	"strings"
)

// Standard selects the polarity convention.
type Standard int

const (
	// IEEE is the IEEE 802.3 convention: 1 is a low-to-high transition.
	IEEE Standard = iota
	// Thomas is G.E. Thomas' convention: 1 is a high-to-low transition.
	Thomas
)

const invalidSymbol byte = 0xff

// table is the explicit mapping of a standard in both directions.
type table struct {
	symbol [2]byte // indexed by bit value
	bit    [4]byte // indexed by symbol, invalidSymbol for 00 and 11
}

var tables = [...]table{
	IEEE: {
		symbol: [2]byte{0: 0x2, 1: 0x1},
		bit:    [4]byte{0x0: invalidSymbol, 0x1: 1, 0x2: 0, 0x3: invalidSymbol},
	},
	Thomas: {
		symbol: [2]byte{0: 0x1, 1: 0x2},
		bit:    [4]byte{0x0: invalidSymbol, 0x1: 0, 0x2: 1, 0x3: invalidSymbol},
	},
}

// IsValid checks if it's a recognized standard.
func (s Standard) IsValid() bool {
	return s >= 0 && int(s) < len(tables)
}

// String implements fmt.Stringer.
func (s Standard) String() string {
	switch s {
	case IEEE:
		return "ieee"
	case Thomas:
		return "thomas"
	}
	return fmt.Sprintf("standard(%d)", int(s))
}

// ParseStandard parses the name of a standard, case-insensitive.
func ParseStandard(name string) (Standard, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ieee", "ieee802.3", "802.3":
		return IEEE, nil
	case "thomas", "ge":
		return Thomas, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrStandard, name)
}

func (s Standard) table() (*table, error) {
	if !s.IsValid() {
		return nil, ErrStandard
	}
	return &tables[s], nil
}
