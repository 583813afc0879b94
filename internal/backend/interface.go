package backend

import (
	"context"

	"milkledger/internal/core"
	"milkledger/internal/ledger"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready-to-use ledger store plus what it was built from.
type Result struct {
	Store    *ledger.Store
	Slot     ledger.Slot
	Notifier ledger.Notifier
	Cleanup  CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type     BackendType
	Slot     string
	Defaults core.Rates

	// File backend; memory uses it as an optional seed directory
	DataDirectory string

	// SQLite backend
	SQLiteDBPath string

	// Notifications
	Notify       NotifyType
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	MQTTBroker      string
	MQTTTopicPrefix string
	MQTTUsername    string
	MQTTPassword    string
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

type NotifyType string

const (
	NotifyNone NotifyType = "none"
	NotifyAMQP NotifyType = "amqp"
	NotifyMQTT NotifyType = "mqtt"
)

func (nt NotifyType) IsValid() bool {
	switch nt {
	case NotifyNone, NotifyAMQP, NotifyMQTT, "":
		return true
	default:
		return false
	}
}
