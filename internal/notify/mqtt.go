package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/smokyabdulrahman/prayer-countdown/internal/prayer"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// DialMQTT connects to broker (e.g. "tcp://localhost:1883") and keeps the
// connection alive with automatic reconnects.
func DialMQTT(broker, clientID string, log *logrus.Entry) (mqtt.Client, error) {
	log = log.WithField("broker", broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

// mqttPayload is the retained message on the topic.
type mqttPayload struct {
	prayer.Display
	State string     `json:"state"`
	At    *time.Time `json:"at,omitempty"`
}

// MQTT publishes the countdown to a topic whenever it changes.
type MQTT struct {
	client Publisher
	topic  string

	mu   sync.Mutex
	last []byte
}

// NewMQTT returns a sink publishing to topic.
func NewMQTT(client Publisher, topic string) *MQTT {
	return &MQTT{client: client, topic: topic}
}

// Notify publishes r as a retained QoS 0 message unless it equals the last one.
func (m *MQTT) Notify(_ context.Context, r prayer.Resolution) error {
	msg := mqttPayload{Display: r.Display(), State: r.State.String()}
	if r.State != prayer.Undetermined {
		at := r.At
		msg.At = &at
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal MQTT payload: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if bytes.Equal(payload, m.last) {
		return nil
	}

	token := m.client.Publish(m.topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}

	m.last = payload
	return nil
}
