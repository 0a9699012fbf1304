package runtime

import (
	"context"
	"fmt"
	"net/url"
	"thzgateway/pkg/runtime/constant"
	"time"
)

var (
	ErrNotObject = fmt.Errorf("object does not implement the Object interfaces")
)

type RunObject interface {
	DeepCopyObject() RunObject
}

type ObjectMetaAccessor interface {
	GetObjectMeta() Object
}

type Collector interface {
	Collect(ctx context.Context)
	Destroy(ctx context.Context)
}

// Broker drives one device: the background collect loop plus the
// on-demand surfaces the REST layer calls into.
type Broker interface {
	Collector
	// DeliverAction writes the named variables. Values arrive as decoded
	// JSON, validation is the broker's job.
	DeliverAction(ctx context.Context, actions map[string]interface{}) error
	// FetchVariables reads the named block on demand. An empty name
	// fetches every block the device exposes.
	FetchVariables(ctx context.Context, block string) ([]VariableValue, error)
}

type VariableValue interface {
	SetValue(value interface{})
	GetValue() interface{}
	GetVariableName() string
	SetVariableName(name string)
	GetVariableAccessMode() constant.AccessMode
}

type Object interface {
	GetName() string
	SetName(string)
	GetID() string
	SetID(string)
	GetVersion() string
	SetVersion(string)
	GetModTime() time.Time
	SetModTime(time.Time)
}

type Device interface {
	Object
	RunObject
	GetDeviceCode() string
	SetDeviceCode(string)
	GetDeviceType() string
	SetDeviceType(string)
	GetDeviceModel() string
	SetDeviceModel(string)
	GetCollectStatus() string
	SetCollectStatus(string)
	GetTopic() string
	SetTopic(string)
	// IndexDevice rebuilds the derived lookup structures after the device
	// is loaded from the store or mutated.
	IndexDevice()
	GetVariable(key string) (VariableValue, bool)
}

type ObjectMeta struct {
	Name    string    `json:"name"`
	ID      string    `json:"id"`
	Version string    `json:"eTag"`
	ModTime time.Time `json:"modTime"`
}

type PublishMeta struct {
	Topic string `json:"topic,omitempty"`
}

type DeviceMeta struct {
	ObjectMeta
	PublishMeta
	DeviceCode    string `json:"deviceCode"`
	DeviceType    string `json:"deviceType"`
	DeviceModel   string `json:"deviceModel"`
	CollectStatus string `json:"collectStatus"`
}

type CreateOptions struct {
	Query url.Values
}

type GetOptions struct {
	Version string
	Query   url.Values
}

type ListOptions struct {
	Filter map[string]interface{}
	Query  url.Values
}

type UpdateOptions struct {
	Version string
	Query   url.Values
}

type DeleteOptions struct {
	Version string
	Query   url.Values
}

type Time time.Time

type TimeZone time.Location

type Predicate func(value interface{}) bool

func (meta *ObjectMeta) GetName() string              { return meta.Name }
func (meta *ObjectMeta) SetName(name string)          { meta.Name = name }
func (meta *ObjectMeta) GetID() string                { return meta.ID }
func (meta *ObjectMeta) SetID(id string)              { meta.ID = id }
func (meta *ObjectMeta) GetVersion() string           { return meta.Version }
func (meta *ObjectMeta) SetVersion(version string)    { meta.Version = version }
func (meta *ObjectMeta) GetModTime() time.Time        { return meta.ModTime }
func (meta *ObjectMeta) SetModTime(modTime time.Time) { meta.ModTime = modTime }

func (p *PublishMeta) GetTopic() string {
	return p.Topic
}

func (p *PublishMeta) SetTopic(topic string) {
	p.Topic = topic
}

func (d *DeviceMeta) GetDeviceCode() string {
	return d.DeviceCode
}

func (d *DeviceMeta) SetDeviceCode(s string) {
	d.DeviceCode = s
}

func (d *DeviceMeta) GetDeviceType() string {
	return d.DeviceType
}

func (d *DeviceMeta) SetDeviceType(s string) {
	d.DeviceType = s
}

func (d *DeviceMeta) GetDeviceModel() string {
	return d.DeviceModel
}

func (d *DeviceMeta) SetDeviceModel(model string) {
	d.DeviceModel = model
}

func (d *DeviceMeta) GetCollectStatus() string {
	return d.CollectStatus
}

func (d *DeviceMeta) SetCollectStatus(status string) {
	d.CollectStatus = status
}

// IndexDevice on the bare meta is a no-op. Folded devices carry no
// variables to index.
func (d *DeviceMeta) IndexDevice() {}

func (d *DeviceMeta) GetVariable(key string) (VariableValue, bool) {
	return nil, false
}

func (d *DeviceMeta) DeepCopyObject() RunObject {
	out := *d
	return &out
}

func Accessor(obj interface{}) (Object, error) {
	switch t := obj.(type) {
	case Object:
		return t, nil
	case ObjectMetaAccessor:
		if m := t.GetObjectMeta(); m != nil {
			return m, nil
		}
		return nil, ErrNotObject
	default:
		return nil, ErrNotObject
	}
}

func AccessorDevice(obj interface{}) (Device, error) {
	switch t := obj.(type) {
	case Device:
		return t, nil
	default:
		return nil, ErrNotObject
	}
}
