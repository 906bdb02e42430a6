package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// optString registers a flag that sets *dst only when given.
func optString(fs *flag.FlagSet, dst **string, name, usage string) {
	fs.Func(name, usage, func(v string) error {
		*dst = &v
		return nil
	})
}

// optFloat registers a float flag that sets *dst only when given.
func optFloat(fs *flag.FlagSet, dst **float64, name, usage string) {
	fs.Func(name, usage, func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = &f
		return nil
	})
}

// optBool registers a boolean flag that sets *dst only when given.
func optBool(fs *flag.FlagSet, dst **bool, name, usage string) {
	fs.Var(&optionalBool{dst: dst}, name, usage)
}

type optionalBool struct{ dst **bool }

func (b *optionalBool) String() string {
	if b.dst == nil || *b.dst == nil {
		return ""
	}
	return strconv.FormatBool(**b.dst)
}

func (b *optionalBool) Set(v string) error {
	p, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*b.dst = &p
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime accepts RFC 3339 or a local "YYYY-MM-DD[ HH:MM]".
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for i, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q: want RFC 3339 or YYYY-MM-DD HH:MM", s)
}

// validDate checks a YYYY-MM-DD filter value.
func validDate(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
