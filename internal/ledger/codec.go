package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"milkledger/internal/core"
)

// storedRecord mirrors core.Record but keeps rates optional so that records
// written without one pick up the default. Any stored price is ignored.
type storedRecord struct {
	Date          core.Date      `json:"date"`
	TimeOfDay     core.TimeOfDay `json:"timeOfDay"`
	VendorName    string         `json:"vendorName"`
	LitreQuantity float64        `json:"litreQuantity"`
	MilkType      core.MilkType  `json:"milkType"`
	Fat           float64        `json:"fat"`
	SNF           float64        `json:"snf"`
	CowRate       *float64       `json:"cowRate"`
	BuffaloRate   *float64       `json:"buffaloRate"`
}

// decode parses a slot payload and re-derives every price. An empty payload
// is an empty ledger.
func decode(payload []byte, defaults core.Rates) ([]core.Record, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return []core.Record{}, nil
	}
	var stored []storedRecord
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	records := make([]core.Record, len(stored))
	for i, s := range stored {
		in := core.RecordInput{
			Date:          s.Date,
			TimeOfDay:     s.TimeOfDay,
			VendorName:    s.VendorName,
			LitreQuantity: s.LitreQuantity,
			MilkType:      s.MilkType,
			Fat:           s.Fat,
			SNF:           s.SNF,
			CowRate:       defaults.Cow,
			BuffaloRate:   defaults.Buffalo,
		}
		if s.CowRate != nil {
			in.CowRate = *s.CowRate
		}
		if s.BuffaloRate != nil {
			in.BuffaloRate = *s.BuffaloRate
		}
		records[i] = in.Record()
	}
	return records, nil
}

func encode(records []core.Record) ([]byte, error) {
	if records == nil {
		records = []core.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return b, nil
}

// version fingerprints an encoded ledger.
func version(encoded []byte) string {
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:8])
}
