package v1

var DeviceTypeMap = map[string]func() DeviceType{
	"thzTcp":    func() DeviceType { return &THZDevice{} },
	"thzSerial": func() DeviceType { return &THZDevice{} },
}
