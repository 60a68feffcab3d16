package site

import (
	"fmt"
	"time"
)

// Duration is a non-negative time.Duration written in configuration files
// as text such as "90s" or "1h". An empty string is zero.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText writes the duration in time.Duration notation.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a duration, refusing negative values.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = 0
		return nil
	}
	p, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	if p < 0 {
		return fmt.Errorf("duration %s is negative", p)
	}
	*d = Duration(p)
	return nil
}
