package runtime

import (
	"fmt"
	"strconv"
	"strings"
)

// Time program registers store times of day as quarter hours, 0 is
// 00:00 and 95 is 23:45. QuarterUnset marks an empty program slot.
const (
	QuarterUnset byte = 0x80

	maxQuarter = 95

	unsetTime = "--:--"
)

// QuarterToTime renders a quarter hour count as HH:MM. Unset and out of
// range values render as the empty slot marker.
func QuarterToTime(quarter byte) string {
	if quarter > maxQuarter {
		return unsetTime
	}
	return fmt.Sprintf("%02d:%02d", quarter/4, quarter%4*15)
}

// TimeToQuarter parses HH:MM into a quarter hour count, rounding down
// to the previous quarter. The empty slot marker parses to QuarterUnset.
func TimeToQuarter(value string) (byte, error) {
	if value == "" || value == unsetTime {
		return QuarterUnset, nil
	}
	hh, mm, found := strings.Cut(value, ":")
	if !found {
		return 0, ErrInvalidTime
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, ErrInvalidTime
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, ErrInvalidTime
	}
	return byte(hour*4 + minute/15), nil
}

// ScheduleWindow is one start and end pair of a time program slot.
type ScheduleWindow struct {
	Start byte
	End   byte
}

func (w ScheduleWindow) String() string {
	if w.Start > maxQuarter && w.End > maxQuarter {
		return unsetTime
	}
	return QuarterToTime(w.Start) + "-" + QuarterToTime(w.End)
}

func (w ScheduleWindow) Bytes() []byte {
	return []byte{w.Start, w.End}
}

// DecodeScheduleWindows splits a slot payload into start and end pairs.
// A trailing odd byte is dropped.
func DecodeScheduleWindows(raw []byte) []ScheduleWindow {
	windows := make([]ScheduleWindow, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		windows = append(windows, ScheduleWindow{Start: raw[i], End: raw[i+1]})
	}
	return windows
}

// ParseScheduleWindow parses "HH:MM-HH:MM" or the empty slot marker.
func ParseScheduleWindow(value string) (ScheduleWindow, error) {
	if value == "" || value == unsetTime {
		return ScheduleWindow{Start: QuarterUnset, End: QuarterUnset}, nil
	}
	from, to, found := strings.Cut(value, "-")
	if !found {
		return ScheduleWindow{}, ErrInvalidTime
	}
	start, err := TimeToQuarter(strings.TrimSpace(from))
	if err != nil {
		return ScheduleWindow{}, err
	}
	end, err := TimeToQuarter(strings.TrimSpace(to))
	if err != nil {
		return ScheduleWindow{}, err
	}
	return ScheduleWindow{Start: start, End: end}, nil
}
