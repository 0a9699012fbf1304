package runtime

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
	"k8s.io/klog/v2"

	"thzgateway/pkg/utils/binutil"
)

// maxExchangeAttempts bounds the reconnect loop. A dead link gets one
// fresh connection and one retry, never more.
const maxExchangeAttempts = 2

type blockCacheEntry struct {
	readAt time.Time
	data   []byte
}

// Session drives the request half of the THZ service link. The
// controller serves exactly one exchange at a time, so every operation
// runs under the session mutex.
type Session struct {
	connector  Connector
	timeout    time.Duration
	technician bool

	mu        sync.Mutex
	messenger Messenger
	ready     *atomic.Bool
	firmware  string
	profile   *FirmwareProfile
	cache     map[string]blockCacheEntry
}

type SessionOption func(*Session)

// WithTimeout overrides the per-exchange deadline.
func WithTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithTechnician selects the technician parameter set of the resolved
// firmware profile.
func WithTechnician(technician bool) SessionOption {
	return func(s *Session) {
		s.technician = technician
	}
}

func NewSession(connector Connector, opts ...SessionOption) *Session {
	s := &Session{
		connector: connector,
		timeout:   DefaultExchangeTimeout,
		ready:     atomic.NewBool(false),
		cache:     map[string]blockCacheEntry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize connects, probes the firmware version register and
// resolves the matching firmware profile. It must succeed before any
// read or write operation.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messenger == nil {
		if err := s.reconnect(); err != nil {
			return err
		}
	}
	payload, err := s.readBlockLocked(ctx, FirmwareRegister)
	if err != nil {
		klog.V(2).InfoS("Failed to probe firmware register", "err", err)
		return err
	}
	if len(payload) < 4 {
		return ErrValueTooShort
	}
	s.firmware = strconv.FormatUint(uint64(binutil.ParseUint16(payload[2:4])), 10)
	key := s.firmware
	if s.technician {
		key += technicianSuffix
	}
	s.profile = ResolveProfile(key)
	s.ready.Store(true)
	klog.V(1).InfoS("Initialized heat pump session", "firmware", s.firmware, "profile", s.profile.FirmwareVersion())
	return nil
}

// Firmware returns the probed firmware version in decimal notation,
// "419" for payload 0x01a3.
func (s *Session) Firmware() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firmware
}

// Profile returns the resolved firmware profile, nil before Initialize.
func (s *Session) Profile() *FirmwareProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) Available() bool {
	return s.ready.Load()
}

// ReadBlock fetches a register block from the device and refreshes the
// block cache. The returned payload starts with the response checksum
// byte, register data begins at offset 2.
func (s *Session) ReadBlock(ctx context.Context, command Command) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready.Load() {
		return nil, ErrSessionNotReady
	}
	return s.readBlockFresh(ctx, command)
}

// ReadBlockCached returns the cached payload when younger than maxAge
// and reads the device otherwise. maxAge zero or below selects
// DefaultCacheAge.
func (s *Session) ReadBlockCached(ctx context.Context, command Command, maxAge time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready.Load() {
		return nil, ErrSessionNotReady
	}
	if maxAge <= 0 {
		maxAge = DefaultCacheAge
	}
	if entry, ok := s.cache[command.String()]; ok && time.Since(entry.readAt) < maxAge {
		return append([]byte(nil), entry.data...), nil
	}
	return s.readBlockFresh(ctx, command)
}

// ReadValue reads a block and slices one register out of it.
func (s *Session) ReadValue(ctx context.Context, command Command, offset int, length int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready.Load() {
		return nil, ErrSessionNotReady
	}
	payload, err := s.readBlockFresh(ctx, command)
	if err != nil {
		return nil, err
	}
	if offset < 0 || length <= 0 || offset+length > len(payload) {
		return nil, ErrValueTooShort
	}
	return payload[offset : offset+length], nil
}

// WriteValue sends a set telegram carrying the encoded payload. Set
// exchanges return no data, the device acknowledge is the confirmation.
func (s *Session) WriteValue(ctx context.Context, command Command, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready.Load() {
		return ErrSessionNotReady
	}
	request := NewTelegram(Set, command, payload)
	if _, err := s.exchange(ctx, request, Set); err != nil {
		return err
	}
	delete(s.cache, command.String())
	return nil
}

func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready.Store(false)
	if s.messenger != nil {
		s.messenger.Close()
		s.messenger = nil
	}
}

func (s *Session) readBlockFresh(ctx context.Context, command Command) ([]byte, error) {
	payload, err := s.readBlockLocked(ctx, command)
	if err != nil {
		return nil, err
	}
	s.cache[command.String()] = blockCacheEntry{
		readAt: time.Now(),
		data:   append([]byte(nil), payload...),
	}
	return payload, nil
}

func (s *Session) readBlockLocked(ctx context.Context, command Command) ([]byte, error) {
	request := NewTelegram(Get, command, nil)
	data, err := s.exchange(ctx, request, Get)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(data)
}

// exchange runs one request with at most one reconnect. Only connection
// level failures are retried, handshake and timeout failures surface
// immediately so a stuck controller is not hammered.
func (s *Session) exchange(ctx context.Context, request []byte, direction Direction) ([]byte, error) {
	for attempt := 0; attempt < maxExchangeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 || s.messenger == nil || !s.messenger.Alive() {
			if err := s.reconnect(); err != nil {
				klog.V(2).InfoS("Failed to reconnect heat pump", "attempt", attempt+1, "err", err)
				continue
			}
		}
		data, err := s.exchangeOnce(ctx, request, direction)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrBadConn) {
			return nil, err
		}
		klog.V(2).InfoS("Failed to exchange telegram", "attempt", attempt+1, "err", err)
	}
	return nil, ErrManyRetry
}

// exchangeOnce walks the handshake state machine:
//
//	host STX, device DLE, host telegram, device DLE STX,
//	get: host DLE, device data stream ending DLE ETX, host STX
//	set: host STX
//
// Two firmware quirks are tolerated in the acknowledge pair: the 2xx
// generation emits DLE and STX with a gap, and some units skip the DLE
// entirely.
func (s *Session) exchangeOnce(ctx context.Context, request []byte, direction Direction) ([]byte, error) {
	deadline := s.deadline(ctx)
	if err := s.messenger.Send([]byte{STX}); err != nil {
		return nil, err
	}
	b, err := s.readByte(deadline)
	if err != nil {
		return nil, err
	}
	if b != DLE {
		klog.V(2).InfoS("Failed to open heat pump exchange", "got", b)
		return nil, ErrHandshake
	}
	s.messenger.DiscardInput()
	if err := s.messenger.Send(request); err != nil {
		return nil, err
	}
	if err := s.readAcknowledge(deadline); err != nil {
		return nil, err
	}
	if direction == Set {
		return nil, s.messenger.Send([]byte{STX})
	}
	if err := s.messenger.Send([]byte{DLE}); err != nil {
		return nil, err
	}
	data := make([]byte, 0, 64)
	chunk := make([]byte, 128)
	for {
		n, err := s.messenger.ReceiveAtLeast(chunk, 1, deadline)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk[:n]...)
		if len(data) >= minGetStreamLength && data[len(data)-2] == DLE && data[len(data)-1] == ETX {
			break
		}
	}
	// The stream is complete, a failed close must not discard it.
	if err := s.messenger.Send([]byte{STX}); err != nil {
		klog.V(2).InfoS("Failed to close heat pump exchange", "err", err)
	}
	return data, nil
}

// readAcknowledge consumes the DLE STX pair confirming the telegram.
func (s *Session) readAcknowledge(deadline time.Time) error {
	b, err := s.readByte(deadline)
	if err != nil {
		return err
	}
	switch b {
	case DLE:
		if delay := s.ackDelay(); delay > 0 {
			time.Sleep(delay)
		}
		b, err = s.readByte(deadline)
		if err != nil {
			return err
		}
		if b != STX {
			klog.V(2).InfoS("Failed to read acknowledge pair", "got", b)
			return ErrHandshake
		}
		return nil
	case STX:
		// Older firmware answers with a bare STX.
		return nil
	default:
		klog.V(2).InfoS("Failed to read acknowledge pair", "got", b)
		return ErrHandshake
	}
}

func (s *Session) readByte(deadline time.Time) (byte, error) {
	var buf [1]byte
	if _, err := s.messenger.ReceiveAtLeast(buf[:], 1, deadline); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (s *Session) ackDelay() time.Duration {
	if s.profile == nil {
		return 0
	}
	return s.profile.AckDelay()
}

func (s *Session) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

func (s *Session) reconnect() error {
	if s.messenger != nil {
		s.messenger.Close()
		s.messenger = nil
	}
	messenger, err := s.connector()
	if err != nil {
		return err
	}
	s.messenger = messenger
	return nil
}
