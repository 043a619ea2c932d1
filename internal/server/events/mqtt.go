package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/KyooRuss/Parking-Management/pkg/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	eventQoS       = 1
)

var (
	ErrNotConnected  = errors.New("mqtt: client not connected")
	ErrPublishFailed = errors.New("mqtt: publish failed")
)

// mqttClient is the subset of pahomqtt.Client used here.
type mqttClient interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events under a topic prefix:
//
//	{prefix}/slots/{slotId}/events    committed slot transitions
//	{prefix}/settings/events          capacity changes
//	{prefix}/occupancy/{category}     retained occupancy counts
type MQTTPublisher struct {
	client mqttClient
	prefix string
}

// NewMQTTPublisher connects to brokerURL (tcp://host:1883).
func NewMQTTPublisher(brokerURL, clientID, prefix string) (*MQTTPublisher, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Printf("Warning: MQTT connection lost: %v", err)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connection to %s timed out after %v", brokerURL, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connection to %s failed: %w", brokerURL, err)
	}

	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

// TopicFor returns the topic an event is published on.
func (p *MQTTPublisher) TopicFor(ev Event) string {
	if ev.SlotID == "" {
		return p.prefix + "/settings/events"
	}
	return p.prefix + "/slots/" + ev.SlotID + "/events"
}

func (p *MQTTPublisher) OccupancyTopic(category models.Category) string {
	return p.prefix + "/occupancy/" + strings.ToLower(string(category))
}

func (p *MQTTPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return p.publish(p.TopicFor(ev), payload, false)
}

// PublishOccupancy publishes a retained message so that a board that
// connects later still sees the current count.
func (p *MQTTPublisher) PublishOccupancy(_ context.Context, occ models.Occupancy) error {
	payload, err := json.Marshal(occ)
	if err != nil {
		return fmt.Errorf("failed to encode occupancy: %w", err)
	}
	return p.publish(p.OccupancyTopic(occ.Category), payload, true)
}

func (p *MQTTPublisher) publish(topic string, payload []byte, retained bool) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	token := p.client.Publish(topic, eventQoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}
