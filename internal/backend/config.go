package backend

import (
	"fmt"

	"milkledger/internal/config"
	"milkledger/internal/core"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	notifyType := NotifyType(appConfig.NotifyBackend)
	if !notifyType.IsValid() {
		return Config{}, fmt.Errorf("invalid notify backend in config: %s", appConfig.NotifyBackend)
	}

	return Config{
		Type: backendType,
		Slot: appConfig.LedgerSlot,
		Defaults: core.Rates{
			Cow:     appConfig.DefaultCowRate,
			Buffalo: appConfig.DefaultBuffaloRate,
		},

		DataDirectory: appConfig.LedgerFilePath,
		SQLiteDBPath:  appConfig.SQLiteDBPath,

		Notify:       notifyType,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		MQTTBroker:      appConfig.MQTTBroker,
		MQTTTopicPrefix: appConfig.MQTTTopicPrefix,
		MQTTUsername:    appConfig.MQTTUsername,
		MQTTPassword:    appConfig.MQTTPassword,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Slot == "" {
		return fmt.Errorf("slot name is required")
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case FileBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for file backend")
		}
	case MemoryBackend:
		// DataDirectory is optional and only used to seed the slot.
	}

	switch c.Notify {
	case NotifyAMQP:
		if c.AMQPURL == "" || c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP URL, exchange and queue are required for amqp notifications")
		}
	case NotifyMQTT:
		if c.MQTTBroker == "" {
			return fmt.Errorf("MQTT broker is required for mqtt notifications")
		}
	case NotifyNone, "":
	default:
		return fmt.Errorf("invalid notify backend: %s", c.Notify)
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), FileBackend.String(), SQLiteBackend.String()}
}
