package runtime

// ETagMaxInitialValue just a value, meaningless
const ETagMaxInitialValue int64 = 3294967296

type CollectStatus byte

const (
	Stopped CollectStatus = iota
	Collecting
	CollectingError
	Error
	Unconnected
	EmptyVariable
)

var CollectStatusToString = map[CollectStatus]string{
	Stopped:         "stopped",
	Collecting:      "collecting",
	CollectingError: "collectingError",
	Error:           "error",
	Unconnected:     "unconnected",
	EmptyVariable:   "emptyVariable",
}

var StringToCollectStatus = map[string]CollectStatus{
	"stopped":         Stopped,
	"collecting":      Collecting,
	"collectingError": CollectingError,
	"error":           Error,
	"unconnected":     Unconnected,
	"emptyVariable":   EmptyVariable,
}

type DeviceStatusCh byte

const (
	Start DeviceStatusCh = iota
	Stop
	Restart
)

var DeviceStatusChToString = map[DeviceStatusCh]string{
	Start:   "start",
	Stop:    "stop",
	Restart: "restart",
}

var StringToDeviceStatusCh = map[string]DeviceStatusCh{
	"start":   Start,
	"stop":    Stop,
	"restart": Restart,
}
