package options

import (
	"github.com/spf13/pflag"
	"thzgateway/cmd/gateway/config"
	"thzgateway/pkg/broker"
	"thzgateway/pkg/device"
	"thzgateway/pkg/gateway"
	"thzgateway/pkg/generic"
	baseoptions "thzgateway/pkg/generic/options"
	"thzgateway/pkg/storage"
	"time"
)

type Options struct {
	Port         string        `json:"port"`
	Wait         time.Duration `json:"graceful-timeout"`
	MqttBroker   string        `json:"mqtt-broker"`
	MqttUsername string        `json:"mqtt-username"`
	MqttPassword string        `json:"mqtt-password"`
	baseoptions.BaseOptions
}

const (
	_defaultPort       = "32200"
	_defaultWait       = 15 * time.Second
	_defaultMqttBroker = "tcp://127.0.0.1:1883"
)

func NewDefaultOptions() *Options {
	return &Options{
		Port:        _defaultPort,
		Wait:        _defaultWait,
		MqttBroker:  _defaultMqttBroker,
		BaseOptions: baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	// refer to node port assignment https://rancher.com/docs/rancher/v2.x/en/installation/requirements/ports/#commonly-used-ports
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port exposed")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.MqttBroker, "mqtt-broker", o.MqttBroker, "The MQTT broker url collected data is published to - e.g. tcp://127.0.0.1:1883")
	fs.StringVar(&o.MqttUsername, "mqtt-username", o.MqttUsername, "The MQTT broker username")
	fs.StringVar(&o.MqttPassword, "mqtt-password", o.MqttPassword, "The MQTT broker password")
}

func (o *Options) Config(stopCh <-chan struct{}) (*config.Config, error) {
	c := &config.Config{}

	gatewayMgr := gateway.NewGatewayManager(stopCh)
	gatewayMgr.Init()
	gatewayMeta, _ := gatewayMgr.GetGatewayMeta()

	mqttClient := broker.NewMqttClient(o.MqttBroker, gatewayMeta.ID, o.MqttUsername, o.MqttPassword)

	store, _ := generic.NewStore(storage.StoreGroupToString[storage.StoreGroupDevice], storage.Devices, generic.DeviceTypeObjectMap)
	deviceMgr := device.NewManager(store, mqttClient, gatewayMeta, stopCh)
	deviceMgr.Init()

	c.DeviceMgr = deviceMgr
	c.GatewayMgr = gatewayMgr

	return c, nil
}
