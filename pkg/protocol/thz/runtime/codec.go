package runtime

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"thzgateway/pkg/utils/binutil"
)

// Checksum sums every byte except the one at ChecksumIndex, modulo 256.
// That position holds the checksum itself inside a frame, so callers zero
// it before calling.
func Checksum(data []byte) byte {
	var sum byte
	for i, b := range data {
		if i == ChecksumIndex {
			continue
		}
		sum += b
	}
	return sum
}

// Escape doubles every DLE first, then marks every literal 0x2B with a
// trailing 0x18. The order matters: doubling DLE cannot produce a false
// 0x2B, so the second pass stays sound.
func Escape(data []byte) []byte {
	doubled := make([]byte, 0, len(data)+2)
	for _, b := range data {
		doubled = append(doubled, b)
		if b == DLE {
			doubled = append(doubled, DLE)
		}
	}
	out := make([]byte, 0, len(doubled)+2)
	for _, b := range doubled {
		out = append(out, b)
		if b == PlusByte {
			out = append(out, EscapedPlus)
		}
	}
	return out
}

// Unescape is the inverse of Escape: collapse DLE DLE pairs, then strip
// the 0x18 after every 0x2B.
func Unescape(data []byte) []byte {
	collapsed := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		collapsed = append(collapsed, data[i])
		if data[i] == DLE && i+1 < len(data) && data[i+1] == DLE {
			i++
		}
	}
	out := make([]byte, 0, len(collapsed))
	for i := 0; i < len(collapsed); i++ {
		out = append(out, collapsed[i])
		if collapsed[i] == PlusByte && i+1 < len(collapsed) && collapsed[i+1] == EscapedPlus {
			i++
		}
	}
	return out
}

type DecodeKind int8

const (
	// DecodeRaw renders the bytes as a lowercase hex string. Unknown table
	// tags land here, never in an error.
	DecodeRaw DecodeKind = iota
	DecodeSigned
	DecodeUnsigned
	DecodeBit
	DecodeNegatedBit
	DecodeFloat
	DecodeClean
)

// Decoder is the parsed form of a register table decode tag. Tables carry
// tags like "hex2int", "bit3" or "nbit6"; they are parsed exactly once at
// profile build time, never per decode call.
type Decoder struct {
	Kind   DecodeKind
	Bit    uint8
	Factor float64
}

// ParseDecoder turns a table tag plus factor into a Decoder. Tags that do
// not match a known shape fall back to DecodeRaw.
func ParseDecoder(tag string, factor float64) Decoder {
	switch {
	case tag == "hex2int":
		return Decoder{Kind: DecodeSigned, Factor: factor}
	case tag == "hex":
		return Decoder{Kind: DecodeUnsigned}
	case tag == "esp_mant":
		return Decoder{Kind: DecodeFloat}
	case tag == "0clean":
		return Decoder{Kind: DecodeClean}
	case strings.HasPrefix(tag, "nbit"):
		if bit, ok := parseBitIndex(tag[4:]); ok {
			return Decoder{Kind: DecodeNegatedBit, Bit: bit}
		}
	case strings.HasPrefix(tag, "bit"):
		if bit, ok := parseBitIndex(tag[3:]); ok {
			return Decoder{Kind: DecodeBit, Bit: bit}
		}
	}
	return Decoder{Kind: DecodeRaw}
}

func parseBitIndex(s string) (uint8, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 7 {
		return 0, false
	}
	return uint8(n), true
}

// Tag renders the decoder back into its table tag form.
func (d Decoder) Tag() string {
	switch d.Kind {
	case DecodeSigned:
		return "hex2int"
	case DecodeUnsigned:
		return "hex"
	case DecodeBit:
		return "bit" + strconv.Itoa(int(d.Bit))
	case DecodeNegatedBit:
		return "nbit" + strconv.Itoa(int(d.Bit))
	case DecodeFloat:
		return "esp_mant"
	case DecodeClean:
		return "0clean"
	default:
		return "raw"
	}
}

// Decode interprets raw register bytes.
//
// Signed and unsigned kinds read a big-endian integer over however many
// bytes arrive; bit kinds only ever look at the first byte, so truncated
// input beyond byte 0 is tolerated. Float reads exactly 4 bytes as a
// big-endian IEEE-754 float32 rounded to 3 decimals. Raw returns the
// lowercase hex string of the input.
func (d Decoder) Decode(raw []byte) (interface{}, error) {
	switch d.Kind {
	case DecodeSigned:
		if len(raw) == 0 {
			return nil, ErrValueTooShort
		}
		factor := d.Factor
		if factor == 0 {
			factor = 1
		}
		return float64(binutil.ParseIntVarBigEndian(raw)) / factor, nil
	case DecodeUnsigned:
		if len(raw) == 0 {
			return nil, ErrValueTooShort
		}
		return binutil.ParseUintVarBigEndian(raw), nil
	case DecodeBit:
		if len(raw) == 0 {
			return nil, ErrValueTooShort
		}
		return raw[0]&(1<<d.Bit) != 0, nil
	case DecodeNegatedBit:
		if len(raw) == 0 {
			return nil, ErrValueTooShort
		}
		return raw[0]&(1<<d.Bit) == 0, nil
	case DecodeFloat:
		if len(raw) < 4 {
			return nil, ErrValueTooShort
		}
		f := float64(binutil.ParseFloat32BigEndian(raw[:4]))
		return math.Round(f*1000) / 1000, nil
	case DecodeClean:
		if len(raw) == 0 {
			return nil, ErrValueTooShort
		}
		return uint64(raw[0]), nil
	default:
		return hex.EncodeToString(raw), nil
	}
}

// Encode renders a write value in the device representation: clean writes
// are a single raw byte, everything else a 2-byte big-endian signed count
// of step units.
func (d Decoder) Encode(value float64, step float64) []byte {
	if d.Kind == DecodeClean {
		return []byte{byte(int64(value))}
	}
	if step == 0 {
		step = 1
	}
	return binutil.Int16ToBytes(int16(math.Round(value / step)))
}

type decoderJSON struct {
	Type   string  `json:"type"`
	Factor float64 `json:"factor,omitempty"`
}

func (d Decoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(decoderJSON{Type: d.Tag(), Factor: d.Factor})
}

func (d *Decoder) UnmarshalJSON(bytes []byte) error {
	var dj decoderJSON
	if err := json.Unmarshal(bytes, &dj); err != nil {
		return err
	}
	*d = ParseDecoder(dj.Type, dj.Factor)
	return nil
}

func (d Decoder) String() string {
	if d.Factor != 0 && d.Factor != 1 {
		return fmt.Sprintf("%s/%v", d.Tag(), d.Factor)
	}
	return d.Tag()
}
