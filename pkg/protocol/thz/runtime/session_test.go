package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readStep struct {
	data []byte
	err  error
}

// fakeMessenger serves scripted read chunks and records everything the
// session sends. An exhausted script answers like a silent device.
type fakeMessenger struct {
	sent     [][]byte
	reads    []readStep
	sendErrs []error
	alive    bool
	closed   bool
	discards int
}

func newFakeMessenger(reads ...[]readStep) *fakeMessenger {
	f := &fakeMessenger{alive: true}
	for _, r := range reads {
		f.reads = append(f.reads, r...)
	}
	return f
}

func (f *fakeMessenger) Send(request []byte) error {
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, append([]byte(nil), request...))
	return nil
}

func (f *fakeMessenger) ReceiveAtLeast(response []byte, min int, deadline time.Time) (int, error) {
	if len(f.reads) == 0 {
		return 0, ErrResponseTimeout
	}
	step := f.reads[0]
	f.reads = f.reads[1:]
	if step.err != nil {
		return 0, step.err
	}
	return copy(response, step.data), nil
}

func (f *fakeMessenger) Alive() bool {
	return f.alive
}

func (f *fakeMessenger) DiscardInput() {
	f.discards++
}

func (f *fakeMessenger) Available() bool {
	return f.alive && !f.closed
}

func (f *fakeMessenger) Close() {
	f.closed = true
}

func fakeConnector(calls *int, fakes ...*fakeMessenger) Connector {
	return func() (Messenger, error) {
		if *calls >= len(fakes) {
			return nil, ErrBadConn
		}
		m := fakes[*calls]
		*calls++
		return m, nil
	}
}

// buildResponse frames a device answer around the given payload.
func buildResponse(payload []byte) []byte {
	sum := append([]byte{0x01, 0x00, 0x00}, payload...)
	raw := append([]byte{0x01, 0x00, Checksum(sum)}, Escape(payload)...)
	return append(raw, DLE, ETX)
}

func getExchange(payload []byte) []readStep {
	return []readStep{
		{data: []byte{DLE}},
		{data: []byte{DLE}},
		{data: []byte{STX}},
		{data: buildResponse(payload)},
	}
}

func setExchange() []readStep {
	return []readStep{
		{data: []byte{DLE}},
		{data: []byte{DLE}},
		{data: []byte{STX}},
	}
}

// Version register answer for firmware 4.19.
var firmwarePayload = []byte{0xFD, 0x01, 0xA3}

func TestSessionInitialize(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(getExchange(firmwarePayload))
	session := NewSession(fakeConnector(&calls, fake))

	require.NoError(t, session.Initialize(context.Background()))

	assert.Equal(t, "419", session.Firmware())
	assert.True(t, session.Available())
	require.NotNil(t, session.Profile())
	assert.Equal(t, "419", session.Profile().FirmwareVersion())

	// Host side of the handshake: STX, telegram, DLE go-ahead, STX close.
	require.Len(t, fake.sent, 4)
	assert.Equal(t, []byte{STX}, fake.sent[0])
	assert.Equal(t, NewTelegram(Get, FirmwareRegister, nil), fake.sent[1])
	assert.Equal(t, []byte{DLE}, fake.sent[2])
	assert.Equal(t, []byte{STX}, fake.sent[3])
	assert.Equal(t, 1, fake.discards)
	assert.Equal(t, 1, calls)
}

func TestSessionTechnicianProfile(t *testing.T) {
	calls := 0
	// Version register answer for firmware 5.39.
	fake := newFakeMessenger(getExchange([]byte{0xFD, 0x02, 0x1B}))
	session := NewSession(fakeConnector(&calls, fake), WithTechnician(true))

	require.NoError(t, session.Initialize(context.Background()))

	assert.Equal(t, "539", session.Firmware())
	_, ok := session.Profile().Parameter("pCompressorLockTime")
	assert.True(t, ok, "technician parameter set expected")
}

func TestSessionNotReady(t *testing.T) {
	session := NewSession(fakeConnector(new(int)))

	_, err := session.ReadBlock(context.Background(), Command{0xFB})
	assert.ErrorIs(t, err, ErrSessionNotReady)
	_, err = session.ReadValue(context.Background(), Command{0xFB}, 2, 2)
	assert.ErrorIs(t, err, ErrSessionNotReady)
	err = session.WriteValue(context.Background(), Command{0x0B, 0x00, 0x05}, []byte{0x00, 0xDC})
	assert.ErrorIs(t, err, ErrSessionNotReady)
}

func TestSessionReadValue(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(
		getExchange(firmwarePayload),
		getExchange([]byte{0xFB, 0x00, 0x64}),
	)
	session := NewSession(fakeConnector(&calls, fake))
	require.NoError(t, session.Initialize(context.Background()))

	actual, err := session.ReadValue(context.Background(), Command{0xFB}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x64}, actual)

	_, err = session.ReadValue(context.Background(), Command{0xFB}, 2, 16)
	assert.ErrorIs(t, err, ErrValueTooShort)
}

func TestSessionBareSTXAcknowledge(t *testing.T) {
	calls := 0
	fake := newFakeMessenger([]readStep{
		{data: []byte{DLE}},
		{data: []byte{STX}},
		{data: buildResponse(firmwarePayload)},
	})
	session := NewSession(fakeConnector(&calls, fake))

	require.NoError(t, session.Initialize(context.Background()))
	assert.Equal(t, "419", session.Firmware())
}

func TestSessionWriteValue(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(getExchange(firmwarePayload), setExchange())
	session := NewSession(fakeConnector(&calls, fake))
	require.NoError(t, session.Initialize(context.Background()))

	command := Command{0x0B, 0x00, 0x05}
	require.NoError(t, session.WriteValue(context.Background(), command, []byte{0x00, 0xDC}))

	// Host side of a set: STX, telegram, STX close, no data phase.
	sent := fake.sent[4:]
	require.Len(t, sent, 3)
	assert.Equal(t, []byte{STX}, sent[0])
	assert.Equal(t, NewTelegram(Set, command, []byte{0x00, 0xDC}), sent[1])
	assert.Equal(t, []byte{STX}, sent[2])
}

func TestSessionReadBlockCached(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(
		getExchange(firmwarePayload),
		getExchange([]byte{0xFB, 0x00, 0x64}),
	)
	session := NewSession(fakeConnector(&calls, fake))
	require.NoError(t, session.Initialize(context.Background()))

	first, err := session.ReadBlockCached(context.Background(), Command{0xFB}, 0)
	require.NoError(t, err)

	// The script is exhausted, only the cache can answer now.
	second, err := session.ReadBlockCached(context.Background(), Command{0xFB}, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A write to the register drops the cached block.
	fake.reads = setExchange()
	require.NoError(t, session.WriteValue(context.Background(), Command{0xFB}, []byte{0x00, 0x01}))
	_, err = session.ReadBlockCached(context.Background(), Command{0xFB}, 0)
	assert.ErrorIs(t, err, ErrResponseTimeout)
}

func TestSessionReconnectOnDeadConnection(t *testing.T) {
	calls := 0
	fake1 := newFakeMessenger(getExchange(firmwarePayload))
	fake2 := newFakeMessenger(getExchange([]byte{0xFB, 0x00, 0x64}))
	session := NewSession(fakeConnector(&calls, fake1, fake2))
	require.NoError(t, session.Initialize(context.Background()))

	fake1.alive = false
	_, err := session.ReadBlock(context.Background(), Command{0xFB})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.True(t, fake1.closed)
}

func TestSessionRetriesOnceOnBadConn(t *testing.T) {
	calls := 0
	fake1 := newFakeMessenger(getExchange(firmwarePayload))
	fake2 := newFakeMessenger(getExchange([]byte{0xFB, 0x00, 0x64}))
	session := NewSession(fakeConnector(&calls, fake1, fake2))
	require.NoError(t, session.Initialize(context.Background()))

	fake1.sendErrs = []error{ErrBadConn}
	actual, err := session.ReadBlock(context.Background(), Command{0xFB})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFB, 0x00, 0x64}, actual[1:])

	assert.Equal(t, 2, calls)
	assert.True(t, fake1.closed)
}

func TestSessionGivesUpAfterTwoAttempts(t *testing.T) {
	calls := 0
	fake1 := newFakeMessenger(getExchange(firmwarePayload))
	fake2 := newFakeMessenger()
	session := NewSession(fakeConnector(&calls, fake1, fake2))
	require.NoError(t, session.Initialize(context.Background()))

	fake1.sendErrs = []error{ErrBadConn}
	fake2.sendErrs = []error{ErrBadConn}
	_, err := session.ReadBlock(context.Background(), Command{0xFB})
	assert.ErrorIs(t, err, ErrManyRetry)
	assert.Equal(t, 2, calls)
}

func TestSessionHandshakeFailureNotRetried(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(
		getExchange(firmwarePayload),
		[]readStep{{data: []byte{0x42}}},
	)
	session := NewSession(fakeConnector(&calls, fake))
	require.NoError(t, session.Initialize(context.Background()))

	_, err := session.ReadBlock(context.Background(), Command{0xFB})
	assert.ErrorIs(t, err, ErrHandshake)
	assert.Equal(t, 1, calls)
	assert.False(t, fake.closed)
}

func TestSessionTimeoutNotRetried(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(getExchange(firmwarePayload))
	session := NewSession(fakeConnector(&calls, fake))
	require.NoError(t, session.Initialize(context.Background()))

	_, err := session.ReadBlock(context.Background(), Command{0xFB})
	assert.ErrorIs(t, err, ErrResponseTimeout)
	assert.Equal(t, 1, calls)
}

func TestSessionContextCancel(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(getExchange(firmwarePayload))
	session := NewSession(fakeConnector(&calls, fake))
	require.NoError(t, session.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := session.ReadBlock(ctx, Command{0xFB})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionClose(t *testing.T) {
	calls := 0
	fake := newFakeMessenger(getExchange(firmwarePayload))
	session := NewSession(fakeConnector(&calls, fake))
	require.NoError(t, session.Initialize(context.Background()))

	session.Close()
	assert.True(t, fake.closed)
	assert.False(t, session.Available())
	_, err := session.ReadBlock(context.Background(), Command{0xFB})
	assert.ErrorIs(t, err, ErrSessionNotReady)
}
