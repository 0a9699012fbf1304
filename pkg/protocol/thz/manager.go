package thz

import (
	"strconv"
	"thzgateway/pkg/apis"
	thz "thzgateway/pkg/protocol/thz/runtime"
	"thzgateway/pkg/runtime"
	"thzgateway/pkg/runtime/constant"
	"thzgateway/pkg/utils/randutil"
	"thzgateway/pkg/utils/uuidutil"
	v1 "thzgateway/pkg/v1"
	"time"

	"k8s.io/klog/v2"
)

// defaultCollectorCycle is the poll interval in seconds when the API
// object does not carry one.
const defaultCollectorCycle uint = 60

type THZDeviceManager struct {
}

func (m *THZDeviceManager) CreateDevice(deviceType v1.DeviceType) (runtime.Device, error) {
	thzDevice, ok := deviceType.(*v1.THZDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not THZ")
		return nil, constant.ErrDeviceType
	}

	cycle := thzDevice.CollectorCycle
	if cycle == 0 {
		cycle = defaultCollectorCycle
	}

	d := &thz.THZDevice{
		DeviceMeta: runtime.DeviceMeta{
			PublishMeta: runtime.PublishMeta{Topic: thzDevice.Topic},
			ObjectMeta: runtime.ObjectMeta{
				Name:    thzDevice.Name,
				ID:      uuidutil.UUID(),
				Version: strconv.FormatUint(randutil.Uint64n(), 10),
				ModTime: time.Now(),
			},
			DeviceCode:    thzDevice.DeviceCode,
			DeviceType:    thzDevice.DeviceType,
			DeviceModel:   thzDevice.DeviceModel,
			CollectStatus: runtime.CollectStatusToString[runtime.Stopped],
		},
		CollectorCycle: cycle,
		Technician:     thzDevice.Technician,
		Address:        toDeviceAddress(thzDevice.Address),
	}
	d.IndexDevice()
	return d, nil
}

func (m *THZDeviceManager) DeleteDevice(device runtime.Device) (runtime.Device, error) {
	return &thz.THZDevice{DeviceMeta: runtime.DeviceMeta{
		ObjectMeta:  runtime.ObjectMeta{ID: device.GetID(), Version: device.GetVersion()},
		DeviceType:  device.GetDeviceType(),
		DeviceCode:  device.GetDeviceCode(),
		DeviceModel: device.GetDeviceModel(),
	}}, nil
}

func (m *THZDeviceManager) UpdateValidation(deviceType v1.DeviceType, device runtime.Device) error {
	thzDevice, ok := deviceType.(*v1.THZDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not THZ")
		return constant.ErrDeviceType
	}
	// Moving a device between transports changes the address scheme, treat
	// the type as immutable.
	if thzDevice.DeviceType != device.GetDeviceType() {
		return apis.ErrImmutable
	}
	return nil
}

func (m *THZDeviceManager) UpdateDevice(id string, deviceType v1.DeviceType, device runtime.Device) (runtime.Device, error) {
	thzDevice, ok := deviceType.(*v1.THZDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not THZ")
		return nil, constant.ErrDeviceType
	}

	copyDevice, _ := device.(*thz.THZDevice)
	copyDevice.DeviceMeta.PublishMeta.Topic = thzDevice.Topic
	copyDevice.DeviceMeta.ObjectMeta.Name = thzDevice.Name
	copyDevice.DeviceMeta.DeviceCode = thzDevice.DeviceCode
	copyDevice.DeviceMeta.DeviceType = thzDevice.DeviceType
	copyDevice.DeviceMeta.DeviceModel = thzDevice.DeviceModel

	cycle := thzDevice.CollectorCycle
	if cycle == 0 {
		cycle = defaultCollectorCycle
	}
	copyDevice.CollectorCycle = cycle
	copyDevice.Technician = thzDevice.Technician
	copyDevice.Address = toDeviceAddress(thzDevice.Address)
	// The technician flag widens the register tables, refresh the index.
	copyDevice.IndexDevice()

	return copyDevice, nil
}

func toDeviceAddress(address *v1.THZAddress) *thz.Address {
	a := &thz.Address{
		Location: address.Location,
		Option:   &thz.Option{},
	}
	if address.Option != nil {
		a.Option = &thz.Option{
			Port:     address.Option.Port,
			BaudRate: address.Option.BaudRate,
			DataBits: address.Option.DataBits,
			Parity:   constant.StringToParity[address.Option.Parity],
			StopBits: constant.StringToStopBits[address.Option.StopBits],
		}
	}
	return a
}
