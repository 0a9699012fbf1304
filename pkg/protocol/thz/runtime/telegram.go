package runtime

import (
	"encoding/json"
	"fmt"
)

type Direction int8

const (
	Get Direction = iota
	Set
)

var DirectionToString = map[Direction]string{
	Get: "get",
	Set: "set",
}

var StringToDirection = map[string]Direction{
	"get": Get,
	"set": Set,
}

func (d Direction) MarshalJSON() ([]byte, error) {
	if s, ok := DirectionToString[d]; ok {
		return json.Marshal(s)
	}
	return nil, fmt.Errorf("unknown direction %d", d)
}

func (d *Direction) UnmarshalJSON(bytes []byte) error {
	var s string
	if err := json.Unmarshal(bytes, &s); err != nil {
		return err
	}
	v, ok := StringToDirection[s]
	if !ok {
		return fmt.Errorf("unknown direction %s", s)
	}
	*d = v
	return nil
}

func (d Direction) header() []byte {
	if d == Set {
		return setHeader
	}
	return getHeader
}

// NewTelegram frames one request: header, then the escaped checksum +
// address + payload, then the DLE ETX footer. The checksum is computed
// over header + zero placeholder + address + payload, matching the
// ChecksumIndex exclusion. Telegrams are built fresh per request.
func NewTelegram(direction Direction, address []byte, payload []byte) []byte {
	header := direction.header()

	sum := make([]byte, 0, len(header)+1+len(address)+len(payload))
	sum = append(sum, header...)
	sum = append(sum, 0x00)
	sum = append(sum, address...)
	sum = append(sum, payload...)
	chk := Checksum(sum)

	body := make([]byte, 0, 1+len(address)+len(payload))
	body = append(body, chk)
	body = append(body, address...)
	body = append(body, payload...)
	body = Escape(body)

	telegram := make([]byte, 0, len(header)+len(body)+len(footer))
	telegram = append(telegram, header...)
	telegram = append(telegram, body...)
	telegram = append(telegram, footer...)
	return telegram
}

// DecodeResponse validates and unwraps a raw response stream.
//
// The returned payload keeps the verified checksum byte at position 0, so
// table offsets apply unchanged to the result. Device status headers map
// to their sentinel errors; everything unknown is ErrUnrecognizedHeader.
func DecodeResponse(raw []byte) ([]byte, error) {
	if len(raw) < MinResponseLength {
		return nil, ErrResponseTooShort
	}

	data := Unescape(raw)
	if len(data) < MinResponseLength {
		return nil, ErrResponseTooShort
	}

	if data[0] == 0x01 {
		switch data[1] {
		case 0x00, 0x80:
			crc := data[2]
			payload := data[3 : len(data)-2]

			sum := make([]byte, 0, 3+len(payload))
			sum = append(sum, data[0], data[1], 0x00)
			sum = append(sum, payload...)
			chk := Checksum(sum)
			if chk != crc {
				return nil, ErrChecksumMismatch
			}

			out := make([]byte, 0, 1+len(payload))
			out = append(out, chk)
			out = append(out, payload...)
			return out, nil
		case statusTimingIssue, statusRequestChecksum, statusUnknownCommand, statusUnknownRegister:
			return nil, statusErrors[data[1]]
		}
	}
	return nil, ErrUnrecognizedHeader
}
