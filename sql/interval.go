// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const day = 24 * time.Hour

var intervalUnits = map[string]time.Duration{
	"microsecond":  time.Microsecond,
	"microseconds": time.Microsecond,
	"us":           time.Microsecond,
	"millisecond":  time.Millisecond,
	"milliseconds": time.Millisecond,
	"ms":           time.Millisecond,
	"second":       time.Second,
	"seconds":      time.Second,
	"sec":          time.Second,
	"secs":         time.Second,
	"s":            time.Second,
	"minute":       time.Minute,
	"minutes":      time.Minute,
	"min":          time.Minute,
	"mins":         time.Minute,
	"m":            time.Minute,
	"hour":         time.Hour,
	"hours":        time.Hour,
	"hr":           time.Hour,
	"hrs":          time.Hour,
	"h":            time.Hour,
	"day":          day,
	"days":         day,
	"d":            day,
	"week":         7 * day,
	"weeks":        7 * day,
	"w":            7 * day,
}

var variableUnits = map[string]bool{
	"month": true, "months": true, "mon": true, "mons": true,
	"year": true, "years": true, "y": true, "yr": true, "yrs": true,
	"decade": true, "decades": true, "century": true, "centuries": true,
}

// ParseInterval parses an interval literal such as '1 hour', '1 day 2
// hours', '01:30:00' or a Go duration like '90m'. Intervals with month or
// year components have no fixed length and are rejected.
func ParseInterval(s string) (time.Duration, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, ErrInvalidInterval.New(s)
	}

	if secs, err := strconv.ParseFloat(in, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	if d, err := cast.ToDurationE(in); err == nil && !strings.Contains(in, " ") && !strings.Contains(in, ":") {
		return d, nil
	}

	fields := strings.Fields(strings.TrimPrefix(in, "@"))
	var total time.Duration
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if strings.Contains(f, ":") {
			d, err := parseClock(f)
			if err != nil {
				return 0, ErrInvalidInterval.New(s)
			}
			total += d
			continue
		}

		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, ErrInvalidInterval.New(s)
		}
		if i+1 >= len(fields) {
			total += time.Duration(n * float64(time.Second))
			continue
		}
		i++
		unit := fields[i]
		if variableUnits[unit] {
			return 0, ErrInvalidInterval.New(s + " (month and year units are not supported)")
		}
		mult, ok := intervalUnits[unit]
		if !ok {
			return 0, ErrInvalidInterval.New(s)
		}
		total += time.Duration(n * float64(mult))
	}

	return total, nil
}

func parseClock(s string) (time.Duration, error) {
	neg := strings.HasPrefix(s, "-")
	parts := strings.Split(strings.TrimPrefix(s, "-"), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad clock value %q", s)
	}

	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		n, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		d += time.Duration(n * float64(units[i]))
	}
	if neg {
		d = -d
	}
	return d, nil
}

// FormatInterval renders a duration the way interval values are printed.
func FormatInterval(d time.Duration) string {
	if d == 0 {
		return "00:00:00"
	}

	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}

	var parts []string
	if days := d / day; days > 0 {
		if days == 1 {
			parts = append(parts, sign+"1 day")
		} else {
			parts = append(parts, fmt.Sprintf("%s%d days", sign, days))
		}
		d -= days * day
	}

	if d > 0 {
		h := d / time.Hour
		d -= h * time.Hour
		m := d / time.Minute
		d -= m * time.Minute
		sec := d / time.Second
		d -= sec * time.Second
		clock := fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, sec)
		if d > 0 {
			clock += strings.TrimRight(fmt.Sprintf(".%06d", d/time.Microsecond), "0")
		}
		parts = append(parts, clock)
	}

	return strings.Join(parts, " ")
}
