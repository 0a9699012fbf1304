package runtime

import (
	"errors"
	"time"
)

const (
	// Control bytes of the THZ link layer. DLE doubles as the escape
	// marker and the handshake acknowledge token.
	STX byte = 0x02
	ETX byte = 0x03
	DLE byte = 0x10

	// EscapedPlus is the second byte the device substitutes after a
	// literal 0x2B on the wire.
	PlusByte    byte = 0x2B
	EscapedPlus byte = 0x18

	// ChecksumIndex is the position of the checksum byte inside a frame.
	// Checksum calculation skips this index.
	ChecksumIndex = 2

	// MinResponseLength is the smallest raw frame DecodeResponse accepts:
	// header(2) + checksum(1) + payload(>=1) + footer(2).
	MinResponseLength = 6

	// minGetStreamLength is the smallest get-response byte stream that may
	// carry the trailing DLE+ETX terminator.
	minGetStreamLength = 8
)

// TCP keepalive tuning for the ethernet service adapter. The heat pump
// drops idle links silently, so dead peers must be detected in bounded
// time.
const (
	keepAliveIdle     = 60 * time.Second
	keepAliveInterval = 10 * time.Second
	keepAliveCount    = 6
)

// DefaultExchangeTimeout bounds one full handshake-to-response sequence.
const DefaultExchangeTimeout = 1 * time.Second

// DefaultCacheAge is how long a cached block read stays fresh. The
// controller refreshes its pages roughly once a minute, polling faster
// only returns identical bytes.
const DefaultCacheAge = 60 * time.Second

var (
	getHeader = []byte{0x01, 0x00}
	setHeader = []byte{0x01, 0x80}
	footer    = []byte{DLE, ETX}

	// FirmwareRegister is the fixed register holding the firmware version.
	FirmwareRegister = []byte{0xFD}
)

// Device status codes reported in the second header byte of a response.
const (
	statusTimingIssue     byte = 0x01
	statusRequestChecksum byte = 0x02
	statusUnknownCommand  byte = 0x03
	statusUnknownRegister byte = 0x04
)

var (
	ErrBadConn            = errors.New("thz bad connection")
	ErrClosed             = errors.New("thz connection closed")
	ErrHandshake          = errors.New("thz handshake unexpected byte")
	ErrResponseTimeout    = errors.New("thz response timeout")
	ErrResponseTooShort   = errors.New("thz response too short")
	ErrChecksumMismatch   = errors.New("thz response checksum mismatch")
	ErrUnrecognizedHeader = errors.New("thz unrecognized response header")
	ErrDeviceTimingIssue  = errors.New("thz device reported timing issue")
	ErrRequestChecksum    = errors.New("thz device rejected request checksum")
	ErrUnknownCommand     = errors.New("thz device unknown command")
	ErrUnknownRegister    = errors.New("thz device unknown register")
	ErrValueTooShort      = errors.New("thz value bytes too short for decode")
	ErrInvalidTime        = errors.New("thz time not HH:MM")
	ErrSessionNotReady    = errors.New("thz session not initialized")
	ErrManyRetry          = errors.New("thz connect retry more than two times")
)

// statusErrors maps device status codes to their sentinel errors.
var statusErrors = map[byte]error{
	statusTimingIssue:     ErrDeviceTimingIssue,
	statusRequestChecksum: ErrRequestChecksum,
	statusUnknownCommand:  ErrUnknownCommand,
	statusUnknownRegister: ErrUnknownRegister,
}
