package broker

import (
	"fmt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k8s.io/klog/v2"
	"time"
)

const connectTimeout = 3 * time.Second

// NewMqttClient connects to the broker carrying the collected data.
// A broker that is down at boot or drops later is retried by paho in the
// background, publishing resumes once the connection is back.
func NewMqttClient(brokerUrl string, clientId string, username string, password string) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerUrl)
	opts.SetClientID(fmt.Sprintf("thzgateway-%s", clientId))
	if len(username) > 0 {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		klog.V(2).InfoS("Connected to MQTT broker", "broker", brokerUrl)
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		klog.V(1).InfoS("Lost MQTT broker connection", "broker", brokerUrl, "err", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(connectTimeout) && token.Error() != nil {
		klog.V(1).InfoS("Failed to connect MQTT broker,retrying in background", "broker", brokerUrl, "err", token.Error())
	}
	return client
}
