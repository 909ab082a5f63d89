package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SpecialCode is one delivery requirement attached to a parcel. The concrete
// variants are TruckRestricted, DelayedUntil, BatchWith and Invalid.
type SpecialCode interface {
	// String renders the canonical text form, e.g. "TRUCK[1,2]".
	String() string
	specialCode()
}

// TruckRestricted limits a parcel to the listed vehicles.
type TruckRestricted struct{ VehicleIDs []int }

// DelayedUntil keeps a parcel out of the hub until At.
type DelayedUntil struct{ At Clock }

// BatchWith requires a parcel to ride with the listed parcels.
type BatchWith struct{ ParcelIDs []int }

// Invalid marks an unconfirmed address.
type Invalid struct{}

func (TruckRestricted) specialCode() {}
func (DelayedUntil) specialCode() {}
func (BatchWith) specialCode() {}
func (Invalid) specialCode() {}

func (c TruckRestricted) String() string { return "TRUCK[" + joinInts(c.VehicleIDs) + "]" }
func (c DelayedUntil) String() string { return "DELAY[" + c.At.HMS() + "]" }
func (c BatchWith) String() string { return "BATCH[" + joinInts(c.ParcelIDs) + "]" }
func (Invalid) String() string { return "INVALID" }

// Allows reports whether the restriction admits vehicle id.
func (c TruckRestricted) Allows(id int) bool {
	for _, v := range c.VehicleIDs {
		if v == id {
			return true
		}
	}
	return false
}

// ParseSpecialCode parses one code in its canonical text form.
func ParseSpecialCode(s string) (SpecialCode, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "INVALID":
		return Invalid{}, nil
	case strings.HasPrefix(s, "TRUCK[") && strings.HasSuffix(s, "]"):
		ids, err := parseInts(s[len("TRUCK[") : len(s)-1])
		if err != nil {
			return nil, fmt.Errorf("parse special code %q: %w", s, err)
		}
		return TruckRestricted{VehicleIDs: ids}, nil
	case strings.HasPrefix(s, "BATCH[") && strings.HasSuffix(s, "]"):
		ids, err := parseInts(s[len("BATCH[") : len(s)-1])
		if err != nil {
			return nil, fmt.Errorf("parse special code %q: %w", s, err)
		}
		return BatchWith{ParcelIDs: ids}, nil
	case strings.HasPrefix(s, "DELAY[") && strings.HasSuffix(s, "]"):
		at, err := ParseClock24(s[len("DELAY[") : len(s)-1])
		if err != nil {
			return nil, fmt.Errorf("parse special code %q: %w", s, err)
		}
		return DelayedUntil{At: at}, nil
	}
	return nil, fmt.Errorf("parse special code %q: %w", s, ErrUnknownSpecialCode)
}

// ParseSpecialCodes parses a list of codes, skipping blanks.
func ParseSpecialCodes(raw []string) ([]SpecialCode, error) {
	codes := make([]SpecialCode, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		c, err := ParseSpecialCode(s)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}

// FormatSpecialCodes renders codes back to their text form.
func FormatSpecialCodes(codes []SpecialCode) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, c.String())
	}
	return out
}

const (
	truckNote   = "Can only be on truck "
	delayNote   = "Delayed on flight---will not arrive to depot until "
	invalidNote = "Wrong address listed"
	batchNote   = "Must be delivered with "
)

// TranslateNotes converts a free-text "special notes" column into codes.
// An empty note yields no codes; a non-empty note that matches no known
// phrase is an error.
func TranslateNotes(notes string) ([]SpecialCode, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, nil
	}

	var codes []SpecialCode

	if i := strings.Index(notes, truckNote); i >= 0 {
		ids := leadingInts(notes[i+len(truckNote):])
		if len(ids) == 0 {
			return nil, fmt.Errorf("translate notes %q: no vehicle ids after %q: %w", notes, truckNote, ErrUnknownSpecialCode)
		}
		codes = append(codes, TruckRestricted{VehicleIDs: ids})
	}

	if i := strings.Index(notes, delayNote); i >= 0 {
		at, err := parseNoteTime(notes[i+len(delayNote):])
		if err != nil {
			return nil, fmt.Errorf("translate notes %q: %w", notes, err)
		}
		codes = append(codes, DelayedUntil{At: at})
	}

	if strings.Contains(notes, invalidNote) {
		codes = append(codes, Invalid{})
	}

	if i := strings.Index(notes, batchNote); i >= 0 {
		ids := leadingInts(notes[i+len(batchNote):])
		if len(ids) == 0 {
			return nil, fmt.Errorf("translate notes %q: no parcel ids after %q: %w", notes, batchNote, ErrUnknownSpecialCode)
		}
		codes = append(codes, BatchWith{ParcelIDs: ids})
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("translate notes %q: %w", notes, ErrUnknownSpecialCode)
	}
	return codes, nil
}

// parseNoteTime reads "9:05 am" style times at the start of s.
func parseNoteTime(s string) (Clock, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, fmt.Errorf("delay time %q: %w", s, ErrBadClock)
	}
	t, err := time.Parse("3:04 PM", fields[0]+" "+strings.ToUpper(strings.Trim(fields[1], ".,;")))
	if err != nil {
		return 0, fmt.Errorf("delay time %q: %w", s, ErrBadClock)
	}
	return NewClock(t.Hour(), t.Minute(), 0), nil
}

// leadingInts collects the run of integers at the start of s, separated by
// commas, spaces or "and".
func leadingInts(s string) []int {
	var ids []int
	for _, f := range strings.Fields(strings.ReplaceAll(s, ",", " ")) {
		if f == "and" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		ids = append(ids, n)
	}
	return ids
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("id list %q: %w", s, ErrUnknownSpecialCode)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty id list: %w", ErrUnknownSpecialCode)
	}
	return out, nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
