package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDuration is returned for strings ParseTimeSpan cannot read.
var ErrInvalidDuration = errors.New("config: invalid duration")

// Duration is a time.Duration that binds from time-span strings.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := ParseTimeSpan(n.Value)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := ParseTimeSpan(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ParseTimeSpan parses "[-][d.]hh:mm[:ss[.fffffff]]" time spans. Strings
// without a colon are read as a whole number of days ("2") or as a Go
// duration ("150ms", "1m30s").
func ParseTimeSpan(s string) (time.Duration, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidDuration)
	}
	if !strings.Contains(s, ":") {
		if days, err := strconv.Atoi(s); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
		}
		return d, nil
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
	}

	var days int
	first := parts[0]
	if i := strings.IndexByte(first, '.'); i >= 0 {
		n, err := component(first[:i], -1)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
		}
		days = n
		first = first[i+1:]
	}
	hours, err := component(first, 23)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
	}
	minutes, err := component(parts[1], 59)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
	}

	var seconds int
	var frac time.Duration
	if len(parts) == 3 {
		sec := parts[2]
		if i := strings.IndexByte(sec, '.'); i >= 0 {
			digits := sec[i+1:]
			sec = sec[:i]
			if digits == "" || len(digits) > 9 {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
			}
			n, err := component(digits+strings.Repeat("0", 9-len(digits)), -1)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
			}
			frac = time.Duration(n)
		}
		seconds, err = component(sec, 59)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, raw)
		}
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		frac
	if neg {
		d = -d
	}
	return d, nil
}

// component parses a non-negative decimal no greater than max (max < 0 means
// unbounded).
func component(s string, max int) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if max >= 0 && n > max {
		return 0, strconv.ErrRange
	}
	return n, nil
}
