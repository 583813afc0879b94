package core

import "time"

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

type ChangeOp string

// Change describes a successful ledger mutation.
type Change struct {
	Op        ChangeOp  `json:"op"`
	Index     int       `json:"index"`
	Count     int       `json:"count"`   // ledger length after the change
	Version   string    `json:"version"` // content version after the change
	Timestamp time.Time `json:"timestamp"`
}
