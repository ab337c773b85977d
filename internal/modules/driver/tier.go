// README: Driver tier classification derived from the numeric suffix of the driver ID.
package driver

import (
	"sort"
	"strings"
)

const driverIDPrefix = "7B"

type TierInfo struct {
	Tier     int    `json:"tier"`
	TierName string `json:"tier_name"`
	Color    string `json:"color"`
}

var unknownTier = TierInfo{Tier: 0, TierName: "Unknown", Color: "gray"}

// ClassifyTier maps 7B001-7B099 to tier 1 and 7B100-7B199 to tier 2.
// Anything else is tier 0.
func ClassifyTier(driverID string) TierInfo {
	if !strings.HasPrefix(driverID, driverIDPrefix) {
		return unknownTier
	}
	n, ok := leadingNumber(driverID[len(driverIDPrefix):])
	if !ok {
		return unknownTier
	}
	switch {
	case n >= 1 && n <= 99:
		return TierInfo{Tier: 1, TierName: "Tier 1", Color: "blue"}
	case n >= 100 && n <= 199:
		return TierInfo{Tier: 2, TierName: "Tier 2", Color: "green"}
	default:
		return unknownTier
	}
}

// leadingNumber parses the run of ASCII digits at the start of s, ignoring
// whatever follows it ("050A" is 50). Signs and spaces are not digits.
// Values are capped at tierNumberCap.
func leadingNumber(s string) (int, bool) {
	n, i := 0, 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if n < tierNumberCap {
			n = n*10 + int(s[i]-'0')
		}
	}
	return n, i > 0
}

const tierNumberCap = 1000

type TierOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

func AllTiers() []TierOption {
	return []TierOption{
		{Value: 1, Label: "Tier 1 (7B001-7B099)"},
		{Value: 2, Label: "Tier 2 (7B100-7B199)"},
	}
}

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortByTier orders by tier and then by driver ID. The input is not modified.
func SortByTier(drivers []Driver, order SortOrder) []Driver {
	out := append([]Driver(nil), drivers...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ta, tb := ClassifyTier(a.DriverID).Tier, ClassifyTier(b.DriverID).Tier
		if order == SortDesc {
			a, b = b, a
			ta, tb = tb, ta
		}
		if ta != tb {
			return ta < tb
		}
		return a.DriverID < b.DriverID
	})
	return out
}

// FilterByTier keeps drivers of the given tier; tier 0 keeps everyone.
func FilterByTier(drivers []Driver, tier int) []Driver {
	if tier == 0 {
		return drivers
	}
	out := make([]Driver, 0, len(drivers))
	for _, d := range drivers {
		if ClassifyTier(d.DriverID).Tier == tier {
			out = append(out, d)
		}
	}
	return out
}
