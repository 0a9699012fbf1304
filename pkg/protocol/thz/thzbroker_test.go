package thz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"thzgateway/pkg/apis/response"
	thz "thzgateway/pkg/protocol/thz/runtime"
	"thzgateway/pkg/runtime"
	"thzgateway/pkg/runtime/constant"
)

// scriptMessenger plays pre-cut read chunks and records everything the
// session sends. An exhausted script answers like a silent device.
type scriptMessenger struct {
	sent   [][]byte
	chunks [][]byte
}

func (m *scriptMessenger) Send(request []byte) error {
	m.sent = append(m.sent, append([]byte(nil), request...))
	return nil
}

func (m *scriptMessenger) ReceiveAtLeast(response []byte, min int, deadline time.Time) (int, error) {
	if len(m.chunks) == 0 {
		return 0, thz.ErrResponseTimeout
	}
	chunk := m.chunks[0]
	m.chunks = m.chunks[1:]
	return copy(response, chunk), nil
}

func (m *scriptMessenger) Alive() bool     { return true }
func (m *scriptMessenger) DiscardInput()   {}
func (m *scriptMessenger) Available() bool { return true }
func (m *scriptMessenger) Close()          {}

// deviceFrame frames a device answer around the data area.
func deviceFrame(data []byte) []byte {
	sum := append([]byte{0x01, 0x00, 0x00}, data...)
	raw := append([]byte{0x01, 0x00, thz.Checksum(sum)}, thz.Escape(data)...)
	return append(raw, thz.DLE, thz.ETX)
}

func getScript(data []byte) [][]byte {
	return [][]byte{{thz.DLE}, {thz.DLE}, {thz.STX}, deviceFrame(data)}
}

func setScript() [][]byte {
	return [][]byte{{thz.DLE}, {thz.DLE}, {thz.STX}}
}

// Version register answer for firmware 4.19, which resolves the default
// register layout.
var firmware419 = []byte{0xFD, 0x01, 0xA3}

func testBroker(t *testing.T, scripts ...[][]byte) (*THZBroker, *scriptMessenger) {
	t.Helper()
	m := &scriptMessenger{}
	for _, s := range scripts {
		m.chunks = append(m.chunks, s...)
	}
	session := thz.NewSession(func() (thz.Messenger, error) { return m, nil })
	require.NoError(t, session.Initialize(context.Background()))

	device := &thz.THZDevice{
		DeviceMeta: runtime.DeviceMeta{
			ObjectMeta: runtime.ObjectMeta{Name: "heat pump", ID: "thz-1"},
			DeviceType: "thzTcp",
		},
		CollectorCycle:  60,
		FirmwareVersion: session.Firmware(),
	}
	device.IndexDevice()
	broker := &THZBroker{Device: device, Session: session, Profile: session.Profile()}
	return broker, m
}

func writeParameter(t *testing.T, name string) *thz.WriteParameter {
	t.Helper()
	parameter, ok := thz.ResolveProfile("439").Parameter(name)
	require.True(t, ok, "parameter %s missing", name)
	return parameter
}

func assertErrCode(t *testing.T, err error, code response.ErrCode) {
	t.Helper()
	var coded interface{ GetCode() response.ErrCode }
	require.True(t, errors.As(err, &coded), "expected coded response error, got %v", err)
	assert.Equal(t, code, coded.GetCode())
}

func TestEncodeParameterNumber(t *testing.T) {
	parameter := writeParameter(t, "p01RoomTempDay")

	payload, err := encodeParameter(parameter, 22.5)
	require.NoError(t, err)
	// 22.5 °C in 0.1 steps is 225 as a big-endian int16.
	assert.Equal(t, []byte{0x00, 0xE1}, payload)

	_, err = encodeParameter(parameter, 35.0)
	assertErrCode(t, err, response.ErrCodeNumberOutOfRange)
	_, err = encodeParameter(parameter, 5.0)
	assertErrCode(t, err, response.ErrCodeNumberOutOfRange)
	_, err = encodeParameter(parameter, "warm")
	assertErrCode(t, err, response.ErrCodeNumberInvalid)
}

func TestEncodeParameterNumberWithoutRange(t *testing.T) {
	// Min and max both zero means the table declares no range, negative
	// setpoints must pass through.
	parameter := &thz.WriteParameter{
		Name:    "pHeatingCurve",
		Command: thz.Command{0x0B, 0x01, 0x10},
		Kind:    thz.ParameterNumber,
		Step:    0.5,
		Decoder: thz.ParseDecoder("hex2int", 10),
	}

	payload, err := encodeParameter(parameter, -2.5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFB}, payload)
}

func TestEncodeParameterSwitch(t *testing.T) {
	parameter := writeParameter(t, "p83DHWBooster")

	payload, err := encodeParameter(parameter, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, payload)

	payload, err = encodeParameter(parameter, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, payload)

	// MQTT and the patch API deliver booleans as strings as well.
	payload, err = encodeParameter(parameter, "true")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, payload)

	_, err = encodeParameter(parameter, "sometimes")
	assertErrCode(t, err, response.ErrCodeBooleanInvalid)
	_, err = encodeParameter(parameter, 1.0)
	assertErrCode(t, err, response.ErrCodeBooleanInvalid)
}

func TestEncodeParameterSelect(t *testing.T) {
	parameter := writeParameter(t, "p99OperatingMode")

	payload, err := encodeParameter(parameter, "auto")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x06}, payload)

	payload, err = encodeParameter(parameter, "emergency")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, payload)

	_, err = encodeParameter(parameter, "party")
	assertErrCode(t, err, response.ErrCodeOptionInvalid)
	_, err = encodeParameter(parameter, 3.0)
	assertErrCode(t, err, response.ErrCodeOptionInvalid)
}

func TestEncodeParameterTime(t *testing.T) {
	parameter := writeParameter(t, "p05DHWStartTime")

	payload, err := encodeParameter(parameter, "06:30")
	require.NoError(t, err)
	assert.Equal(t, []byte{26}, payload)

	// The empty slot marker clears the start time.
	payload, err = encodeParameter(parameter, "--:--")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80}, payload)

	_, err = encodeParameter(parameter, "25:00")
	assertErrCode(t, err, response.ErrCodeTimeInvalid)
	_, err = encodeParameter(parameter, 630.0)
	assertErrCode(t, err, response.ErrCodeTimeInvalid)
}

func TestEncodeParameterSchedule(t *testing.T) {
	parameter := writeParameter(t, "progHC1Mon1")

	payload, err := encodeParameter(parameter, "06:00-22:00")
	require.NoError(t, err)
	assert.Equal(t, []byte{24, 88}, payload)

	payload, err = encodeParameter(parameter, "--:--")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80, 0x80}, payload)

	_, err = encodeParameter(parameter, "06:00")
	assertErrCode(t, err, response.ErrCodeScheduleInvalid)
	_, err = encodeParameter(parameter, true)
	assertErrCode(t, err, response.ErrCodeScheduleInvalid)
}

func TestEncodeParameterUnknownKind(t *testing.T) {
	parameter := &thz.WriteParameter{Name: "pMystery", Kind: thz.ParameterKind(9)}

	_, err := encodeParameter(parameter, 1.0)
	assertErrCode(t, err, response.ErrCodeResourceNotWritable)
}

func TestSerialModeDefaults(t *testing.T) {
	mode := serialMode(nil)

	assert.Equal(t, 115200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.NoParity, mode.Parity)
	assert.Equal(t, serial.OneStopBit, mode.StopBits)
}

func TestSerialModeOption(t *testing.T) {
	mode := serialMode(&thz.Option{
		BaudRate: 9600,
		DataBits: 7,
		Parity:   constant.EvenParity,
		StopBits: constant.TwoStopBits,
	})

	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
}

func TestNewConnector(t *testing.T) {
	device := &thz.THZDevice{
		DeviceMeta: runtime.DeviceMeta{DeviceType: "thzTcp"},
		Address:    &thz.Address{Location: "192.168.1.50", Option: &thz.Option{Port: 2008}},
	}
	connector, err := newConnector(device)
	require.NoError(t, err)
	assert.NotNil(t, connector)

	device.DeviceType = "thzSerial"
	device.Address = &thz.Address{Location: "/dev/ttyUSB0"}
	connector, err = newConnector(device)
	require.NoError(t, err)
	assert.NotNil(t, connector)

	device.DeviceType = "thzUdp"
	_, err = newConnector(device)
	assert.ErrorIs(t, err, constant.ErrDeviceType)
}

func TestBrokerFetchVariablesBlock(t *testing.T) {
	broker, _ := testBroker(t, getScript(firmware419), getScript(firmware419))

	variables, err := broker.FetchVariables(context.Background(), "sFirmware")
	require.NoError(t, err)
	require.Len(t, variables, 1)

	assert.Equal(t, "version", variables[0].GetVariableName())
	assert.Equal(t, uint64(419), variables[0].GetValue())
}

func TestBrokerFetchVariablesUnknownBlock(t *testing.T) {
	broker, _ := testBroker(t, getScript(firmware419))

	_, err := broker.FetchVariables(context.Background(), "sUnknown")
	assertErrCode(t, err, response.ErrCodeResourceNotFound)
}

func TestBrokerFetchVariablesShortPayload(t *testing.T) {
	// A 4-byte time block only carries weekday, hour and minute; the
	// registers beyond the payload are skipped, not an error.
	broker, _ := testBroker(t,
		getScript(firmware419),
		getScript([]byte{0xFC, 0x07, 0x0C, 0x1E}),
	)

	variables, err := broker.FetchVariables(context.Background(), "sTimedate")
	require.NoError(t, err)
	require.Len(t, variables, 3)

	byName := map[string]interface{}{}
	for _, v := range variables {
		byName[v.GetVariableName()] = v.GetValue()
	}
	assert.Equal(t, uint64(7), byName["weekday"])
	assert.Equal(t, uint64(12), byName["hour"])
	assert.Equal(t, uint64(30), byName["minute"])
}

func TestBrokerDeliverAction(t *testing.T) {
	broker, m := testBroker(t,
		getScript(firmware419),
		setScript(),
		// Readback confirming the value the pump accepted.
		getScript([]byte{0x0B, 0x00, 0x05, 0x00, 0xE1}),
	)

	err := broker.DeliverAction(context.Background(), map[string]interface{}{
		"p01RoomTempDay": 22.5,
	})
	require.NoError(t, err)

	// Initialize sends 4 frames, the set exchange follows with STX,
	// telegram, STX close.
	require.Greater(t, len(m.sent), 5)
	command := thz.Command{0x0B, 0x00, 0x05}
	assert.Equal(t, thz.NewTelegram(thz.Set, command, []byte{0x00, 0xE1}), m.sent[5])
}

func TestBrokerDeliverActionUnknownParameter(t *testing.T) {
	broker, m := testBroker(t, getScript(firmware419))

	err := broker.DeliverAction(context.Background(), map[string]interface{}{
		"pUnknown": 1.0,
	})
	assertErrCode(t, err, response.ErrCodeResourceNotFound)
	assert.Len(t, m.sent, 4)
}

func TestBrokerDeliverActionValidatesBeforeWriting(t *testing.T) {
	broker, m := testBroker(t, getScript(firmware419))

	// One bad value rejects the whole action, nothing reaches the bus.
	err := broker.DeliverAction(context.Background(), map[string]interface{}{
		"p01RoomTempDay": 22.5,
		"p83DHWBooster":  "sometimes",
	})
	assertErrCode(t, err, response.ErrCodeBooleanInvalid)
	assert.Len(t, m.sent, 4)
}
