package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Cow     MilkType = "cow"
	Buffalo MilkType = "buffalo"

	Morning TimeOfDay = "morning"
	Evening TimeOfDay = "evening"
)

// DateLayout is the calendar date format used in storage and on the wire.
const DateLayout = "2006-01-02"

type (
	MilkType  string
	TimeOfDay string

	Date struct {
		time.Time
	}

	// Rates holds the fat rate for each milk type. Only the rate matching
	// the record's milk type is used for pricing.
	Rates struct {
		Cow     float64
		Buffalo float64
	}

	// RecordInput is a candidate record as submitted by a form, without price.
	RecordInput struct {
		Date          Date      `json:"date"`
		TimeOfDay     TimeOfDay `json:"timeOfDay"`
		VendorName    string    `json:"vendorName"`
		LitreQuantity float64   `json:"litreQuantity"`
		MilkType      MilkType  `json:"milkType"`
		Fat           float64   `json:"fat"`
		SNF           float64   `json:"snf"`
		CowRate       float64   `json:"cowRate"`
		BuffaloRate   float64   `json:"buffaloRate"`
	}

	// Record is a single milk purchase. Price is derived from the other fields.
	Record struct {
		Date          Date      `json:"date"`
		TimeOfDay     TimeOfDay `json:"timeOfDay"`
		VendorName    string    `json:"vendorName"`
		LitreQuantity float64   `json:"litreQuantity"`
		MilkType      MilkType  `json:"milkType"`
		Fat           float64   `json:"fat"`
		SNF           float64   `json:"snf"`
		CowRate       float64   `json:"cowRate"`
		BuffaloRate   float64   `json:"buffaloRate"`
		Price         float64   `json:"price"`
	}
)

// DefaultRates are the form defaults for a fresh ledger.
var DefaultRates = Rates{Cow: 9, Buffalo: 9.5}

var (
	ErrValidation       = errors.New("validation error")
	ErrEmptyDate        = fmt.Errorf("%w: date is required", ErrValidation)
	ErrEmptyVendor      = fmt.Errorf("%w: vendor name is required", ErrValidation)
	ErrInvalidMilkType  = fmt.Errorf("%w: milk type must be cow or buffalo", ErrValidation)
	ErrInvalidTimeOfDay = fmt.Errorf("%w: time of day must be morning or evening", ErrValidation)
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (no date given)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Before and After compare calendar days, ignoring any time component.
func (d Date) Before(o Date) bool { return d.day() < o.day() }
func (d Date) After(o Date) bool  { return d.day() > o.day() }

func (d Date) day() int {
	y, m, dd := d.Time.Date()
	return y*10000 + int(m)*100 + dd
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m MilkType) Valid() bool {
	return m == Cow || m == Buffalo
}

// Label returns the capitalized display word.
func (m MilkType) Label() string {
	switch m {
	case Cow:
		return "Cow"
	case Buffalo:
		return "Buffalo"
	}
	return string(m)
}

func (t TimeOfDay) Valid() bool {
	return t == Morning || t == Evening
}

// Label returns the capitalized display word.
func (t TimeOfDay) Label() string {
	switch t {
	case Morning:
		return "Morning"
	case Evening:
		return "Evening"
	}
	return string(t)
}

// Rate returns the rate that applies to the given milk type.
func (r Rates) Rate(m MilkType) float64 {
	if m == Cow {
		return r.Cow
	}
	return r.Buffalo
}

// Validate checks the required fields only. Numeric ranges are the form's job.
func (in RecordInput) Validate() error {
	if in.Date.IsEmpty() {
		return ErrEmptyDate
	}
	if strings.TrimSpace(in.VendorName) == "" {
		return ErrEmptyVendor
	}
	if !in.MilkType.Valid() {
		return ErrInvalidMilkType
	}
	if !in.TimeOfDay.Valid() {
		return ErrInvalidTimeOfDay
	}
	return nil
}

func (in RecordInput) Rates() Rates {
	return Rates{Cow: in.CowRate, Buffalo: in.BuffaloRate}
}

// Price computes the price the record built from this input would carry.
func (in RecordInput) Price() float64 {
	return CalculatePrice(in.Fat, in.SNF, in.MilkType, in.LitreQuantity, in.CowRate, in.BuffaloRate)
}

// Record builds the priced record for this input.
func (in RecordInput) Record() Record {
	return Record{
		Date:          in.Date,
		TimeOfDay:     in.TimeOfDay,
		VendorName:    in.VendorName,
		LitreQuantity: in.LitreQuantity,
		MilkType:      in.MilkType,
		Fat:           in.Fat,
		SNF:           in.SNF,
		CowRate:       in.CowRate,
		BuffaloRate:   in.BuffaloRate,
		Price:         in.Price(),
	}
}

// Input strips the derived price.
func (r Record) Input() RecordInput {
	return RecordInput{
		Date:          r.Date,
		TimeOfDay:     r.TimeOfDay,
		VendorName:    r.VendorName,
		LitreQuantity: r.LitreQuantity,
		MilkType:      r.MilkType,
		Fat:           r.Fat,
		SNF:           r.SNF,
		CowRate:       r.CowRate,
		BuffaloRate:   r.BuffaloRate,
	}
}

// Reprice returns a copy of r whose price is recomputed from its own fields.
func (r Record) Reprice() Record {
	r.Price = r.Input().Price()
	return r
}

// ActiveRate is the rate selected by the record's milk type.
func (r Record) ActiveRate() float64 {
	return Rates{Cow: r.CowRate, Buffalo: r.BuffaloRate}.Rate(r.MilkType)
}
