// Package mqtt publishes ledger changes to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"milkledger/internal/core"
	"milkledger/internal/ledger"
	"milkledger/internal/log"
)

const (
	defaultTopicPrefix = "milkledger"
	publishTimeout     = 5 * time.Second
)

var _ ledger.Notifier = (*Notifier)(nil)

type Config struct {
	Broker      string
	TopicPrefix string
	Username    string
	Password    string
	ClientID    string
}

// Notifier sends each change to <prefix>/<slot>/changes and keeps a retained
// summary at <prefix>/<slot>/state so late subscribers see the current
// count and version.
type Notifier struct {
	client paho.Client
	prefix string
	slot   string
}

// statePayload is the retained summary message.
type statePayload struct {
	Count     int       `json:"count"`
	Version   string    `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func New(cfg Config, slot string) (*Notifier, error) {
	if cfg.Broker == "" {
		return nil, errors.New("MQTT broker address is required")
	}

	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "milkledger"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	return NewWithClient(client, cfg.TopicPrefix, slot), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client paho.Client, prefix, slot string) *Notifier {
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &Notifier{client: client, prefix: strings.TrimSuffix(prefix, "/"), slot: slot}
}

func (n *Notifier) ChangesTopic() string { return n.prefix + "/" + n.slot + "/changes" }
func (n *Notifier) StateTopic() string   { return n.prefix + "/" + n.slot + "/state" }

// Notify implements ledger.Notifier.
func (n *Notifier) Notify(ctx context.Context, change core.Change) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	if err := n.publish(ctx, n.ChangesTopic(), false, body); err != nil {
		return err
	}

	state, err := json.Marshal(statePayload{Count: change.Count, Version: change.Version, UpdatedAt: change.Timestamp})
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := n.publish(ctx, n.StateTopic(), true, state); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Published ledger change to MQTT",
		"topic", n.ChangesTopic(),
		"op", change.Op,
		log.FieldVersion, change.Version)
	return nil
}

func (n *Notifier) publish(ctx context.Context, topic string, retained bool, body []byte) error {
	token := n.client.Publish(topic, 1, retained, body)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publishing to %s: timed out after %s", topic, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the MQTT broker
func (n *Notifier) Close() {
	if n.client != nil && n.client.IsConnected() {
		n.client.Disconnect(250)
	}
}
