package device

import (
	"thzgateway/pkg/protocol/thz"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
	"time"
)

var DeviceManagers = map[string]DeviceManager{
	"thzTcp":    &thz.THZDeviceManager{},
	"thzSerial": &thz.THZDeviceManager{},
}

var patchTypes = sets.NewString(string(types.JSONPatchType), string(types.MergePatchType))

const (
	maxJSONPatchOperations = 1000
	mqttTimeout            = 1 * time.Second
	heartBeatTimeInterval  = 15 * time.Second
)
