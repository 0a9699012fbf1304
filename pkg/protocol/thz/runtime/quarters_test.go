package runtime

import (
	"errors"
	"testing"
)

func TestQuarterToTime(t *testing.T) {
	tests := []struct {
		quarter byte
		expect  string
	}{
		{quarter: 0, expect: "00:00"},
		{quarter: 26, expect: "06:30"},
		{quarter: 95, expect: "23:45"},
		{quarter: QuarterUnset, expect: "--:--"},
		{quarter: 96, expect: "--:--"},
	}
	for _, tt := range tests {
		actual := QuarterToTime(tt.quarter)
		if actual != tt.expect {
			t.Errorf("quarter %d: actual %v, expect %v", tt.quarter, actual, tt.expect)
		}
	}
}

func TestTimeToQuarter(t *testing.T) {
	tests := []struct {
		value  string
		expect byte
	}{
		{value: "00:00", expect: 0},
		{value: "06:30", expect: 26},
		{value: "23:45", expect: 95},
		{value: "22:10", expect: 88},
		{value: "--:--", expect: QuarterUnset},
		{value: "", expect: QuarterUnset},
	}
	for _, tt := range tests {
		actual, err := TimeToQuarter(tt.value)
		if err != nil {
			t.Fatalf("TimeToQuarter(%q) err=%v", tt.value, err)
		}
		if actual != tt.expect {
			t.Errorf("%q: actual %v, expect %v", tt.value, actual, tt.expect)
		}
	}
}

func TestTimeToQuarterInvalid(t *testing.T) {
	for _, value := range []string{"24:00", "06:75", "0630", "ab:cd", "-1:00"} {
		if _, err := TimeToQuarter(value); !errors.Is(err, ErrInvalidTime) {
			t.Errorf("%q: actual %v, expect %v", value, err, ErrInvalidTime)
		}
	}
}

func TestQuarterRoundTrip(t *testing.T) {
	for quarter := byte(0); quarter <= maxQuarter; quarter++ {
		actual, err := TimeToQuarter(QuarterToTime(quarter))
		if err != nil {
			t.Fatalf("quarter %d: err=%v", quarter, err)
		}
		if actual != quarter {
			t.Errorf("actual %v, expect %v", actual, quarter)
		}
	}
}

func TestScheduleWindow(t *testing.T) {
	window := ScheduleWindow{Start: 24, End: 88}
	if window.String() != "06:00-22:00" {
		t.Errorf("actual %v, expect 06:00-22:00", window.String())
	}
	unset := ScheduleWindow{Start: QuarterUnset, End: QuarterUnset}
	if unset.String() != "--:--" {
		t.Errorf("actual %v, expect --:--", unset.String())
	}
}

func TestDecodeScheduleWindows(t *testing.T) {
	windows := DecodeScheduleWindows([]byte{24, 88, QuarterUnset, QuarterUnset, 0x05})
	if len(windows) != 2 {
		t.Fatalf("actual %v windows, expect 2", len(windows))
	}
	if windows[0] != (ScheduleWindow{Start: 24, End: 88}) {
		t.Errorf("actual %+v, expect 06:00-22:00", windows[0])
	}
	if windows[1].Start != QuarterUnset || windows[1].End != QuarterUnset {
		t.Errorf("actual %+v, expect unset", windows[1])
	}
}

func TestParseScheduleWindow(t *testing.T) {
	window, err := ParseScheduleWindow("06:00-22:00")
	if err != nil {
		t.Fatalf("ParseScheduleWindow() err=%v", err)
	}
	if window != (ScheduleWindow{Start: 24, End: 88}) {
		t.Errorf("actual %+v, expect start 24 end 88", window)
	}

	unset, err := ParseScheduleWindow("--:--")
	if err != nil {
		t.Fatalf("ParseScheduleWindow() err=%v", err)
	}
	if unset.Start != QuarterUnset || unset.End != QuarterUnset {
		t.Errorf("actual %+v, expect unset", unset)
	}

	if _, err := ParseScheduleWindow("0600"); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("actual %v, expect %v", err, ErrInvalidTime)
	}
}
