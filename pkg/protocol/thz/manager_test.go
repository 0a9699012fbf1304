package thz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thzgateway/pkg/apis"
	thz "thzgateway/pkg/protocol/thz/runtime"
	"thzgateway/pkg/runtime"
	"thzgateway/pkg/runtime/constant"
	v1 "thzgateway/pkg/v1"
)

func apiDevice() *v1.THZDevice {
	return &v1.THZDevice{
		DeviceMeta: v1.DeviceMeta{
			Name:        "cellar heat pump",
			DeviceCode:  "thz-504-01",
			DeviceType:  "thzTcp",
			DeviceModel: "THZ 504",
		},
		Address: &v1.THZAddress{
			Location: "192.168.1.50",
			Option:   &v1.THZAddressOption{Port: 2008},
		},
	}
}

func TestCreateDevice(t *testing.T) {
	manager := &THZDeviceManager{}

	created, err := manager.CreateDevice(apiDevice())
	require.NoError(t, err)
	device, ok := created.(*thz.THZDevice)
	require.True(t, ok)

	assert.NotEmpty(t, device.ID)
	assert.NotEmpty(t, device.Version)
	assert.Equal(t, "cellar heat pump", device.Name)
	assert.Equal(t, "thzTcp", device.DeviceType)
	assert.Equal(t, runtime.CollectStatusToString[runtime.Stopped], device.CollectStatus)
	// Omitted cycle falls back to one minute.
	assert.Equal(t, uint(60), device.CollectorCycle)
	require.NotNil(t, device.Address)
	assert.Equal(t, "192.168.1.50", device.Address.Location)
	assert.Equal(t, 2008, device.Address.Option.Port)

	// Before the firmware probe the default register layout applies.
	variable, ok := device.GetVariable("version")
	require.True(t, ok)
	assert.Equal(t, constant.AccessModeReadOnly, variable.GetVariableAccessMode())
	variable, ok = device.GetVariable("p01RoomTempDay")
	require.True(t, ok)
	assert.Equal(t, constant.AccessModeReadWrite, variable.GetVariableAccessMode())
	_, ok = device.GetVariable("pCompressorLockTime")
	assert.False(t, ok, "technician parameter without technician flag")
}

func TestCreateDeviceKeepsExplicitCycle(t *testing.T) {
	manager := &THZDeviceManager{}
	object := apiDevice()
	object.CollectorCycle = 30

	created, err := manager.CreateDevice(object)
	require.NoError(t, err)
	assert.Equal(t, uint(30), created.(*thz.THZDevice).CollectorCycle)
}

func TestCreateDeviceSerialAddress(t *testing.T) {
	manager := &THZDeviceManager{}
	object := apiDevice()
	object.DeviceType = "thzSerial"
	object.Address = &v1.THZAddress{
		Location: "/dev/ttyUSB0",
		Option: &v1.THZAddressOption{
			BaudRate: 9600,
			DataBits: 7,
			Parity:   "evenParity",
			StopBits: "2",
		},
	}

	created, err := manager.CreateDevice(object)
	require.NoError(t, err)
	device := created.(*thz.THZDevice)

	assert.Equal(t, "/dev/ttyUSB0", device.Address.Location)
	assert.Equal(t, 9600, device.Address.Option.BaudRate)
	assert.Equal(t, 7, device.Address.Option.DataBits)
	assert.Equal(t, constant.EvenParity, device.Address.Option.Parity)
	assert.Equal(t, constant.TwoStopBits, device.Address.Option.StopBits)
}

type notTHZ struct {
	v1.DeviceMeta
}

func TestCreateDeviceWrongType(t *testing.T) {
	manager := &THZDeviceManager{}

	_, err := manager.CreateDevice(&notTHZ{})
	assert.ErrorIs(t, err, constant.ErrDeviceType)
}

func TestUpdateValidation(t *testing.T) {
	manager := &THZDeviceManager{}
	created, err := manager.CreateDevice(apiDevice())
	require.NoError(t, err)

	object := apiDevice()
	assert.NoError(t, manager.UpdateValidation(object, created))

	object.DeviceType = "thzSerial"
	assert.ErrorIs(t, manager.UpdateValidation(object, created), apis.ErrImmutable)
	assert.ErrorIs(t, manager.UpdateValidation(&notTHZ{}, created), constant.ErrDeviceType)
}

func TestUpdateDevice(t *testing.T) {
	manager := &THZDeviceManager{}
	created, err := manager.CreateDevice(apiDevice())
	require.NoError(t, err)
	device := created.(*thz.THZDevice)
	// Probed by the session once the broker connected.
	device.FirmwareVersion = "539"

	object := apiDevice()
	object.Name = "attic heat pump"
	object.Technician = true
	object.CollectorCycle = 0

	updated, err := manager.UpdateDevice(device.ID, object, device)
	require.NoError(t, err)
	actual := updated.(*thz.THZDevice)

	assert.Equal(t, "attic heat pump", actual.Name)
	assert.Equal(t, uint(60), actual.CollectorCycle)
	assert.True(t, actual.Technician)

	// The technician flag widens the 539 register view.
	variable, ok := actual.GetVariable("pCompressorLockTime")
	require.True(t, ok)
	assert.Equal(t, constant.AccessModeReadWrite, variable.GetVariableAccessMode())
}
