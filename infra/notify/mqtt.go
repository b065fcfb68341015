// Package notify implements notification delivery over MQTT using the
// Eclipse Paho client. Notifications are published as JSON to
// <prefix>/<recipient_type>/<recipient_id> so downstream consumers
// (SMS gateway, parent app, admin dashboard) can subscribe per audience.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Alnumo/therapy-engine/core/model"
	corenotify "github.com/Alnumo/therapy-engine/core/notify"
	"github.com/Alnumo/therapy-engine/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
	TimeoutMS   int    `json:"timeout_ms"`
}

// SetDefaults fills unset fields with sensible values.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "therapy-engine"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "clinic/notifications"
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
	if c.QoS > 2 {
		c.QoS = 1
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTDispatcher publishes notifications to an MQTT broker.
type MQTTDispatcher struct {
	cli     pahoClient
	prefix  string
	qos     byte
	timeout time.Duration
	log     logger.Logger
}

// NewMQTTDispatcher connects to the broker described by cfg.
func NewMQTTDispatcher(cfg Config) (*MQTTDispatcher, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	log := logger.New("mqtt-dispatcher")
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTDispatcher{
		cli:     c,
		prefix:  cfg.TopicPrefix,
		qos:     cfg.QoS,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:     log,
	}, nil
}

type wirePayload struct {
	ID                   string              `json:"id"`
	RecipientType        string              `json:"recipient_type"`
	RecipientID          string              `json:"recipient_id"`
	Channel              string              `json:"channel"`
	Priority             string              `json:"priority"`
	Message              model.BilingualText `json:"message"`
	RequiresConfirmation bool                `json:"requires_confirmation"`
	SendTime             time.Time           `json:"send_time"`
}

// Dispatch publishes each notification and waits for broker confirmation.
// Delivery stops at the first publish failure so callers can report how
// many notifications actually went out.
func (d *MQTTDispatcher) Dispatch(ctx context.Context, notifications []model.Notification) error {
	for _, n := range notifications {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(wirePayload{
			ID:                   n.ID,
			RecipientType:        n.RecipientType.String(),
			RecipientID:          n.RecipientID,
			Channel:              n.Channel,
			Priority:             n.Priority.String(),
			Message:              n.Template,
			RequiresConfirmation: n.RequiresConfirmation,
			SendTime:             n.SendTime,
		})
		if err != nil {
			return fmt.Errorf("encode notification %s: %w", n.ID, err)
		}
		topic := fmt.Sprintf("%s/%s/%s", d.prefix, n.RecipientType, n.RecipientID)
		token := d.cli.Publish(topic, d.qos, false, payload)
		if !token.WaitTimeout(d.timeout) {
			return fmt.Errorf("publish notification %s: timeout after %s", n.ID, d.timeout)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish notification %s: %w", n.ID, err)
		}
		d.log.Debugf("published notification %s to %s", n.ID, topic)
	}
	return nil
}

// Close disconnects from the broker.
func (d *MQTTDispatcher) Close() {
	d.cli.Disconnect(250)
}

var _ corenotify.Dispatcher = (*MQTTDispatcher)(nil)
