package runtime

import (
	"thzgateway/pkg/runtime"
	"thzgateway/pkg/runtime/constant"
)

var _ runtime.Device = (*THZDevice)(nil)

type THZDevice struct {
	runtime.DeviceMeta
	CollectorCycle  uint                 `json:"collectorCycle"`             // 采集周期
	Technician      bool                 `json:"technician"`                 // 技术员参数集
	FirmwareVersion string               `json:"firmwareVersion,omitempty"`  // 探测到的固件版本
	Address         *Address             `json:"address" binding:"required"` // IP地址\串口地址
	VariablesMap    map[string]*Variable `json:"-"`                          // 固件寄存器表变量Map
}

// IndexDevice derives the variable lookup from the firmware register
// tables. Before the firmware version is probed the default profile
// applies; the broker re-indexes once the session knows better.
func (t *THZDevice) IndexDevice() {
	profile := ResolveProfile(t.FirmwareKey())
	t.VariablesMap = make(map[string]*Variable)
	for _, name := range profile.AllReadBlocks() {
		block, _ := profile.Block(name)
		for _, entry := range block.Entries {
			t.VariablesMap[entry.Name] = &Variable{
				Name:       entry.Name,
				Block:      name,
				Unit:       entry.Unit,
				AccessMode: constant.AccessModeReadOnly,
			}
		}
	}
	for _, param := range profile.AllWriteParameters() {
		t.VariablesMap[param.Name] = &Variable{
			Name:       param.Name,
			Unit:       param.Unit,
			AccessMode: constant.AccessModeReadWrite,
		}
	}
}

func (t *THZDevice) GetVariable(key string) (runtime.VariableValue, bool) {
	if v, ok := t.VariablesMap[key]; ok {
		return v, true
	}
	return nil, false
}

func (t *THZDevice) GetVariablesMap() map[string]runtime.VariableValue {
	vm := make(map[string]runtime.VariableValue)
	for k, variable := range t.VariablesMap {
		vm[k] = variable
	}
	return vm
}

// FirmwareKey is the register table lookup key: the probed firmware
// version, widened with the technician suffix when the device exposes
// the installer parameter set.
func (t *THZDevice) FirmwareKey() string {
	key := t.FirmwareVersion
	if len(key) == 0 {
		key = defaultFirmware
	}
	if t.Technician {
		key += technicianSuffix
	}
	return key
}

type Address struct {
	Location string  `json:"location"` // 地址路径
	Option   *Option `json:"option"`   // 地址其他参数
}

type Option struct {
	Port     int               `json:"port,omitempty"`     // 端口号
	BaudRate int               `json:"baudRate,omitempty"` // 波特率
	DataBits int               `json:"dataBits,omitempty"` // 数据位
	Parity   constant.Parity   `json:"parity,omitempty"`   // 校验位
	StopBits constant.StopBits `json:"stopBits,omitempty"` // 停止位
}

var _ runtime.VariableValue = (*Variable)(nil)

// Variable is one named device value: a register entry of a read block
// or a settable parameter.
type Variable struct {
	Name       string              `json:"name"`            // 变量名称
	Block      string              `json:"block,omitempty"` // 所属读块
	Unit       string              `json:"unit,omitempty"`  // 单位
	AccessMode constant.AccessMode `json:"accessMode"`      // 读写属性
	Value      interface{}         `json:"value,omitempty"` // 值
}

func (v *Variable) SetValue(value interface{}) {
	v.Value = value
}

func (v *Variable) GetValue() interface{} {
	return v.Value
}

func (v *Variable) GetVariableName() string {
	return v.Name
}

func (v *Variable) SetVariableName(name string) {
	v.Name = name
}

func (v *Variable) GetVariableAccessMode() constant.AccessMode {
	return v.AccessMode
}

type VariableSlice []*Variable

func (vs VariableSlice) Len() int {
	return len(vs)
}

func (vs VariableSlice) Less(i, j int) bool {
	return vs[i].Name < vs[j].Name
}

func (vs VariableSlice) Swap(i, j int) {
	vs[i], vs[j] = vs[j], vs[i]
}
