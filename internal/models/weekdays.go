package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// WeekDays is a set of weekday codes, 0=Sunday..6=Saturday.
// A nil or empty set means the task is not restricted by weekday.
type WeekDays []int

// Contains reports whether d is one of the codes.
func (w WeekDays) Contains(d time.Weekday) bool {
	for _, code := range w {
		if code == int(d) {
			return true
		}
	}
	return false
}

// Restricted reports whether the set narrows the schedule at all.
func (w WeekDays) Restricted() bool {
	return len(w) > 0
}

// Normalized returns a sorted copy, nil when empty.
func (w WeekDays) Normalized() WeekDays {
	if len(w) == 0 {
		return nil
	}
	out := append(WeekDays(nil), w...)
	sort.Ints(out)
	return out
}

// UnmarshalJSON accepts an array ([1,3,5]), the same array encoded as a
// string ("[1,3,5]" or "1,3,5"), or null. Older clients send the string form.
func (w *WeekDays) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*w = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return w.parseString(s)
	}
	var codes []int
	if err := json.Unmarshal(data, &codes); err != nil {
		return fmt.Errorf("week_days: %w", err)
	}
	*w = codes
	return nil
}

func (w *WeekDays) parseString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "[]" {
		*w = nil
		return nil
	}
	if !strings.HasPrefix(s, "[") {
		s = "[" + s + "]"
	}
	var codes []int
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return fmt.Errorf("week_days: %w", err)
	}
	*w = codes
	return nil
}
