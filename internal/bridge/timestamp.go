package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// millisThreshold separates Unix seconds from Unix milliseconds. Seconds do
// not reach 1e12 until the year 33658.
const millisThreshold = 1_000_000_000_000

// ErrNoTimestamp is returned when a payload carries no usable time.
var ErrNoTimestamp = errors.New("timestamp missing")

// UnixSeconds normalises a numeric epoch that may be in seconds or milliseconds.
func UnixSeconds(v int64) int64 {
	if v >= millisThreshold || v <= -millisThreshold {
		return v / 1000
	}
	return v
}

// ParseTimestamp accepts Unix seconds, Unix milliseconds (as numbers or
// numeric strings) and RFC3339 strings, returning Unix seconds.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrNoTimestamp
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n == 0 {
			return 0, ErrNoTimestamp
		}
		return UnixSeconds(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f == 0 {
			return 0, ErrNoTimestamp
		}
		return UnixSeconds(int64(f)), nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Unix(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised timestamp %q", s)
}

// FlexTime decodes a JSON timestamp given as a number or a string.
type FlexTime struct {
	Raw string
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		f.Raw = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f.Raw = s
		return nil
	}
	f.Raw = string(b)
	return nil
}

// Unix converts the decoded value to Unix seconds.
func (f FlexTime) Unix() (int64, error) {
	return ParseTimestamp(f.Raw)
}

// IsZero reports whether no value was decoded.
func (f FlexTime) IsZero() bool {
	return strings.TrimSpace(f.Raw) == ""
}
