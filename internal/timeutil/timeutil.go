// Package timeutil canonicalizes GTFS-style wall-clock strings into a
// comparable minutes-since-midnight value for one service day.
//
// Hours may exceed 23: trips departing after midnight still belong to the
// previous service day, so "25:10:00" must sort after "23:50:00". The
// canonical Minutes value is therefore unbounded above and never wrapped;
// Clock() derives a wrapped 24h string for display only.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Minutes is a point in time within one service day, counted from midnight.
// Values of 1440 and above denote post-midnight continuation of the same
// service day and compare correctly with ordinary < / <= operators.
type Minutes int

// MalformedTimeError reports a time string the parser could not accept.
type MalformedTimeError struct {
	Input  string
	Reason string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time %q: %s", e.Input, e.Reason)
}

// ParseTime parses an "HH:MM:SS" departure string into Minutes.
// Exactly three colon-separated integer fields are required; anything
// else fails with *MalformedTimeError. Seconds are validated but do not
// shift the minute value.
func ParseTime(s string) (Minutes, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, &MalformedTimeError{Input: s, Reason: fmt.Sprintf("expected 3 fields, got %d", len(parts))}
	}
	var fields [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, &MalformedTimeError{Input: s, Reason: fmt.Sprintf("field %d is not numeric", i+1)}
		}
		if v < 0 {
			return 0, &MalformedTimeError{Input: s, Reason: fmt.Sprintf("field %d is negative", i+1)}
		}
		fields[i] = v
	}
	return Minutes(fields[0]*60 + fields[1]), nil
}

// Clock renders a display-only "HH:MM" string with hours wrapped to a 24h
// clock. The result must never feed back into comparisons or interpolation.
func (m Minutes) Clock() string {
	h := (int(m) / 60) % 24
	return fmt.Sprintf("%02d:%02d", h, int(m)%60)
}
