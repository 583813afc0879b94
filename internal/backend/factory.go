package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"milkledger/internal/amqp"
	"milkledger/internal/ledger"
	"milkledger/internal/log"
	"milkledger/internal/mqtt"
	"milkledger/internal/slots/file"
	"milkledger/internal/slots/memory"
	"milkledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend builds the slot, the optional notifier and the store on top
// of them. A notifier that cannot connect is logged and skipped; the ledger
// works without it.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	slot, closeSlot, err := f.createSlot(config)
	if err != nil {
		return nil, err
	}

	notifier, closeNotifier := f.createNotifier(ctx, config)

	opts := []ledger.Option{ledger.WithDefaultRates(config.Defaults)}
	if notifier != nil {
		opts = append(opts, ledger.WithNotifier(notifier))
	}

	return &Result{
		Store:    ledger.NewStore(slot, opts...),
		Slot:     slot,
		Notifier: notifier,
		Cleanup: func() error {
			var errs []error
			if closeNotifier != nil {
				errs = append(errs, closeNotifier())
			}
			if closeSlot != nil {
				errs = append(errs, closeSlot())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSlot(config Config) (ledger.Slot, CleanupFunc, error) {
	switch config.Type {
	case SQLiteBackend:
		slot, err := storage.NewSQLiteSlot(config.SQLiteDBPath, config.Slot)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite slot: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, log.FieldSlot, config.Slot)
		return slot, slot.Close, nil

	case FileBackend:
		slot, err := file.New(config.DataDirectory, config.Slot)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file slot: %w", err)
		}
		f.logger.Info("Initialized file backend", "path", slot.Path(), log.FieldSlot, config.Slot)
		return slot, nil, nil

	case MemoryBackend:
		var slot *memory.Slot
		if config.DataDirectory != "" {
			slot = memory.NewFromFile(config.DataDirectory, config.Slot)
		} else {
			slot = memory.New(config.Slot)
		}
		f.logger.Info("Initialized memory backend", "seed_directory", config.DataDirectory, log.FieldSlot, config.Slot)
		return slot, nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}

func (f *DefaultFactory) createNotifier(ctx context.Context, config Config) (ledger.Notifier, CleanupFunc) {
	switch config.Notify {
	case NotifyAMQP:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, config.Slot)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", "error", err)
			return nil, nil
		}
		f.logger.InfoContext(ctx, "Initialized AMQP notifier",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return client, client.Close

	case NotifyMQTT:
		n, err := mqtt.New(mqtt.Config{
			Broker:      config.MQTTBroker,
			TopicPrefix: config.MQTTTopicPrefix,
			Username:    config.MQTTUsername,
			Password:    config.MQTTPassword,
		}, config.Slot)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize MQTT client, continuing without notifications", "error", err)
			return nil, nil
		}
		f.logger.InfoContext(ctx, "Initialized MQTT notifier", "topic", n.ChangesTopic())
		return n, func() error { n.Close(); return nil }
	}
	return nil, nil
}
