// README: Live fee computation: applicable surcharge, boundary matching and crossing detection.
package pricing

import "kiloadmin/internal/types"

// Contains reports whether at lies inside the slot. A slot with an unset
// edge or Start == End never contains anything.
func (s TimeSlot) Contains(at Clock) bool {
	if !s.Start.Valid() || !s.End.Valid() {
		return false
	}
	if s.Start <= s.End {
		return at >= s.Start && at < s.End
	}
	return at >= s.Start || at < s.End
}

// ApplicableSurcharge returns the fee of the first slot, in list order,
// containing at. No match yields 0.
func ApplicableSurcharge(slots []TimeSlot, at Clock) types.Money {
	for _, s := range slots {
		if s.Contains(at) {
			return s.Fee
		}
	}
	return 0
}

// ActiveSlots returns every slot containing at, in list order.
func ActiveSlots(slots []TimeSlot, at Clock) []TimeSlot {
	out := []TimeSlot{}
	for _, s := range slots {
		if s.Contains(at) {
			out = append(out, s)
		}
	}
	return out
}

func LiveFee(base types.Money, slots []TimeSlot, at Clock) types.Money {
	return base + ApplicableSurcharge(slots, at)
}

// MatchStart returns the slots whose start minute equals at.
func MatchStart(slots []TimeSlot, at Clock) []TimeSlot {
	var out []TimeSlot
	for _, s := range slots {
		if s.Start.Valid() && s.Start == at {
			out = append(out, s)
		}
	}
	return out
}

// MatchEnd returns the slots whose end minute equals at.
func MatchEnd(slots []TimeSlot, at Clock) []TimeSlot {
	var out []TimeSlot
	for _, s := range slots {
		if s.End.Valid() && s.End == at {
			out = append(out, s)
		}
	}
	return out
}

// Crossing is a slot edge passed between two ticks.
type Crossing struct {
	Slot     TimeSlot
	Boundary Boundary
	At       Clock
}

// inWindow reports whether m lies in (prev, now] on the 24h dial. prev == now
// degenerates to an exact match on now.
func inWindow(m, prev, now Clock) bool {
	switch {
	case prev == now:
		return m == now
	case prev < now:
		return m > prev && m <= now
	default:
		return m > prev || m <= now
	}
}

// Crossings lists the slot edges that fall in (prev, now]. Start edges come
// before end edges for the same slot.
func Crossings(slots []TimeSlot, prev, now Clock) []Crossing {
	var out []Crossing
	for _, s := range slots {
		if !s.Start.Valid() || !s.End.Valid() || s.Start == s.End {
			continue
		}
		if inWindow(s.Start, prev, now) {
			out = append(out, Crossing{Slot: s, Boundary: BoundaryStart, At: s.Start})
		}
		if inWindow(s.End, prev, now) {
			out = append(out, Crossing{Slot: s, Boundary: BoundaryEnd, At: s.End})
		}
	}
	return out
}
