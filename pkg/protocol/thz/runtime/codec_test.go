package runtime

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestChecksum(t *testing.T) {
	// Get telegram for the global block: 01 00 <chk> FB.
	actual := Checksum([]byte{0x01, 0x00, 0x00, 0xFB})
	if actual != 0xFC {
		t.Errorf("actual %#x, expect %#x", actual, 0xFC)
	}
}

func TestChecksumSkipsOwnPosition(t *testing.T) {
	expect := Checksum([]byte{0x01, 0x00, 0x00, 0xFB})
	actual := Checksum([]byte{0x01, 0x00, 0xFF, 0xFB})
	if actual != expect {
		t.Errorf("actual %#x, expect %#x", actual, expect)
	}
}

func TestChecksumOverflowWraps(t *testing.T) {
	actual := Checksum([]byte{0xFF, 0xFF, 0x00, 0x02})
	if actual != 0x00 {
		t.Errorf("actual %#x, expect %#x", actual, 0x00)
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		expect []byte
	}{
		{
			name:   "plain bytes untouched",
			data:   []byte{0x01, 0x00, 0xFC, 0xFB},
			expect: []byte{0x01, 0x00, 0xFC, 0xFB},
		},
		{
			name:   "DLE doubled",
			data:   []byte{0x01, 0x10, 0x02},
			expect: []byte{0x01, 0x10, 0x10, 0x02},
		},
		{
			name:   "plus marked",
			data:   []byte{0x2B},
			expect: []byte{0x2B, 0x18},
		},
		{
			name:   "bare 0x18 untouched",
			data:   []byte{0x18},
			expect: []byte{0x18},
		},
		{
			name:   "DLE then plus",
			data:   []byte{0x10, 0x2B},
			expect: []byte{0x10, 0x10, 0x2B, 0x18},
		},
		{
			name:   "plus already followed by 0x18",
			data:   []byte{0x2B, 0x18},
			expect: []byte{0x2B, 0x18, 0x18},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := Escape(tt.data)
			if !bytes.Equal(actual, tt.expect) {
				t.Errorf("actual % x, expect % x", actual, tt.expect)
			}
		})
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		expect []byte
	}{
		{
			name:   "doubled DLE collapsed",
			data:   []byte{0x01, 0x10, 0x10, 0x02},
			expect: []byte{0x01, 0x10, 0x02},
		},
		{
			name:   "plus marker stripped",
			data:   []byte{0x2B, 0x18, 0x04},
			expect: []byte{0x2B, 0x04},
		},
		{
			name:   "footer DLE ETX survives",
			data:   []byte{0x01, 0x00, 0xFC, 0xFB, 0x10, 0x03},
			expect: []byte{0x01, 0x00, 0xFC, 0xFB, 0x10, 0x03},
		},
		{
			name:   "four DLE collapse pairwise",
			data:   []byte{0x10, 0x10, 0x10, 0x10},
			expect: []byte{0x10, 0x10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := Unescape(tt.data)
			if !bytes.Equal(actual, tt.expect) {
				t.Errorf("actual % x, expect % x", actual, tt.expect)
			}
		})
	}
}

// TestEscapeRoundTrip hammers Escape and Unescape with byte strings
// biased toward the escape-relevant values.
func TestEscapeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	special := []byte{DLE, PlusByte, EscapedPlus, ETX, STX}
	for round := 0; round < 512; round++ {
		data := make([]byte, rng.Intn(32))
		for i := range data {
			if rng.Intn(2) == 0 {
				data[i] = special[rng.Intn(len(special))]
			} else {
				data[i] = byte(rng.Intn(256))
			}
		}
		actual := Unescape(Escape(data))
		if !bytes.Equal(actual, data) {
			t.Fatalf("round %d: actual % x, expect % x", round, actual, data)
		}
	}
}

func FuzzEscapeRoundTrip(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{DLE})
	f.Add([]byte{DLE, DLE})
	f.Add([]byte{PlusByte})
	f.Add([]byte{PlusByte, EscapedPlus})
	f.Add([]byte{DLE, PlusByte, EscapedPlus, DLE})
	f.Add([]byte{0x01, 0x00, 0xFD, 0x01, 0xA3})
	f.Fuzz(func(t *testing.T, data []byte) {
		actual := Unescape(Escape(data))
		if !bytes.Equal(actual, data) {
			t.Errorf("actual % x, expect % x", actual, data)
		}
	})
}

func valuesEqual(expect, actual interface{}) bool {
	switch e := expect.(type) {
	case float64:
		a, ok := actual.(float64)
		return ok && math.Abs(e-a) < 0.001
	default:
		return expect == actual
	}
}

func TestDecoderDecode(t *testing.T) {
	tests := []struct {
		name   string
		tag    string
		factor float64
		raw    []byte
		expect interface{}
	}{
		{
			name:   "signed positive with factor",
			tag:    "hex2int",
			factor: 10,
			raw:    []byte{0x00, 0x64},
			expect: 10.0,
		},
		{
			name:   "signed negative with factor",
			tag:    "hex2int",
			factor: 10,
			raw:    []byte{0xFF, 0x9C},
			expect: -10.0,
		},
		{
			name:   "signed without factor",
			tag:    "hex2int",
			raw:    []byte{0x00, 0x2A},
			expect: 42.0,
		},
		{
			name:   "unsigned single byte",
			tag:    "hex",
			raw:    []byte{0xFF},
			expect: uint64(255),
		},
		{
			name:   "unsigned two bytes",
			tag:    "hex",
			raw:    []byte{0x01, 0xA3},
			expect: uint64(419),
		},
		{
			name:   "bit set",
			tag:    "bit3",
			raw:    []byte{0x08},
			expect: true,
		},
		{
			name:   "bit clear",
			tag:    "bit2",
			raw:    []byte{0x08},
			expect: false,
		},
		{
			name:   "negated bit",
			tag:    "nbit3",
			raw:    []byte{0x08},
			expect: false,
		},
		{
			name:   "float big endian",
			tag:    "esp_mant",
			raw:    []byte{0x41, 0xBC, 0x00, 0x00},
			expect: 23.5,
		},
		{
			name:   "clean first byte only",
			tag:    "0clean",
			raw:    []byte{0x05, 0x99},
			expect: uint64(5),
		},
		{
			name:   "unknown tag falls back to hex string",
			tag:    "foobar",
			raw:    []byte{0xAB, 0xCD},
			expect: "abcd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := ParseDecoder(tt.tag, tt.factor)
			actual, err := decoder.Decode(tt.raw)
			if err != nil {
				t.Fatalf("Decode() err=%v", err)
			}
			if !valuesEqual(tt.expect, actual) {
				t.Errorf("actual %v, expect %v", actual, tt.expect)
			}
		})
	}
}

func TestDecoderDecodeTooShort(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		raw  []byte
	}{
		{name: "signed empty", tag: "hex2int", raw: nil},
		{name: "bit empty", tag: "bit0", raw: []byte{}},
		{name: "float truncated", tag: "esp_mant", raw: []byte{0x41, 0xBC, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDecoder(tt.tag, 0).Decode(tt.raw)
			if !errors.Is(err, ErrValueTooShort) {
				t.Errorf("actual %v, expect %v", err, ErrValueTooShort)
			}
		})
	}
}

func TestDecoderEncode(t *testing.T) {
	tests := []struct {
		name   string
		tag    string
		value  float64
		step   float64
		expect []byte
	}{
		{
			name:   "clean single byte",
			tag:    "0clean",
			value:  3,
			step:   1,
			expect: []byte{0x03},
		},
		{
			name:   "step units big endian",
			tag:    "hex2int",
			value:  22.5,
			step:   0.5,
			expect: []byte{0x00, 0x2D},
		},
		{
			name:   "negative step units",
			tag:    "hex2int",
			value:  -10,
			step:   0.1,
			expect: []byte{0xFF, 0x9C},
		},
		{
			name:   "zero step treated as one",
			tag:    "hex2int",
			value:  7,
			expect: []byte{0x00, 0x07},
		},
		{
			name:   "switch on",
			tag:    "hex2int",
			value:  1,
			step:   1,
			expect: []byte{0x00, 0x01},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := ParseDecoder(tt.tag, 0).Encode(tt.value, tt.step)
			if !bytes.Equal(actual, tt.expect) {
				t.Errorf("actual % x, expect % x", actual, tt.expect)
			}
		})
	}
}

func TestParseDecoderTag(t *testing.T) {
	for _, tag := range []string{"hex2int", "hex", "esp_mant", "0clean", "bit0", "bit7", "nbit3"} {
		actual := ParseDecoder(tag, 10).Tag()
		if actual != tag {
			t.Errorf("actual %v, expect %v", actual, tag)
		}
	}
	for _, tag := range []string{"bogus", "bit9", "nbit-1", "bit"} {
		actual := ParseDecoder(tag, 0).Tag()
		if actual != "raw" {
			t.Errorf("tag %q: actual %v, expect raw", tag, actual)
		}
	}
}
