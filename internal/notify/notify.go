// Package notify publishes appointment lifecycle events.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type Kind string

const (
	AppointmentCreated Kind = "appointment.created"
	AppointmentUpdated Kind = "appointment.updated"
	AppointmentDeleted Kind = "appointment.deleted"
	FollowUpScheduled  Kind = "appointment.follow_up"
	PatientDeleted     Kind = "patient.deleted"
)

type Event struct {
	Kind          Kind      `json:"kind"`
	AppointmentID string    `json:"appointmentId,omitempty"`
	PatientID     string    `json:"patientId,omitempty"`
	PreviousID    string    `json:"previousAppointmentId,omitempty"`
	At            time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// MQTTPublisher sends each event as JSON to <topic>/<kind>.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
}

func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, timeout: 5 * time.Second}
}

// DialMQTT connects to the broker and returns a publisher over it.
func DialMQTT(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	c := mqtt.NewClient(opts)
	if tok := c.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", tok.Error())
	}
	return NewMQTTPublisher(c, cfg.Topic), nil
}

func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	topic := p.topic + "/" + string(e.Kind)
	tok := p.client.Publish(topic, 1, false, b)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("publish to %s: timed out", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Logged wraps a publisher so failures are logged and swallowed.
type Logged struct {
	next Publisher
	log  *zap.Logger
}

func NewLogged(next Publisher, log *zap.Logger) *Logged {
	if next == nil {
		next = Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Logged{next: next, log: log}
}

func (l *Logged) Publish(ctx context.Context, e Event) error {
	if err := l.next.Publish(ctx, e); err != nil {
		l.log.Warn("event not published", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
	return nil
}
