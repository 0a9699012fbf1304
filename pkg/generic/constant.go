package generic

import (
	"thzgateway/pkg/protocol/thz"
	thzruntime "thzgateway/pkg/protocol/thz/runtime"
	"thzgateway/pkg/runtime"
	v1 "thzgateway/pkg/v1"
)

// The THZ service interface speaks the same telegram protocol over the
// ethernet adapter and the RS232 port, both types share one broker.
var DeviceTypeMap = map[string]func() v1.DeviceType{
	"thzTcp":    func() v1.DeviceType { return &v1.THZDevice{} },
	"thzSerial": func() v1.DeviceType { return &v1.THZDevice{} },
}

var DeviceTypeObjectMap = map[string]runtime.Device{
	"thzTcp":    &thzruntime.THZDevice{},
	"thzSerial": &thzruntime.THZDevice{},
}

type NewBroker func(object runtime.Device) (runtime.Broker, chan *runtime.ParseVariableResult, error)

var DeviceTypeBrokerMap = map[string]NewBroker{
	"thzTcp":    thz.NewBroker,
	"thzSerial": thz.NewBroker,
}
