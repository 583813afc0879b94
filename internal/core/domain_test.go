package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validInput() RecordInput {
	return RecordInput{
		Date:          NewDate(2024, 1, 15),
		TimeOfDay:     Morning,
		VendorName:    "Ramesh",
		LitreQuantity: 10,
		MilkType:      Cow,
		Fat:           4.0,
		SNF:           8.0,
		CowRate:       9,
		BuffaloRate:   9.5,
	}
}

func TestRecordInputValidate(t *testing.T) {
	if err := validInput().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*RecordInput)
		want   error
	}{
		{"zero date", func(in *RecordInput) { in.Date = Date{} }, ErrEmptyDate},
		{"blank vendor", func(in *RecordInput) { in.VendorName = "  " }, ErrEmptyVendor},
		{"missing milk type", func(in *RecordInput) { in.MilkType = "" }, ErrInvalidMilkType},
		{"unknown milk type", func(in *RecordInput) { in.MilkType = "goat" }, ErrInvalidMilkType},
		{"missing time of day", func(in *RecordInput) { in.TimeOfDay = "" }, ErrInvalidTimeOfDay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			err := in.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected error to wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestRecordInputRecordPricesFromInputs(t *testing.T) {
	rec := validInput().Record()
	if rec.Price != 355.0 {
		t.Fatalf("price = %v, want 355", rec.Price)
	}
	if rec.Input() != validInput() {
		t.Fatalf("input round trip changed fields: %+v", rec.Input())
	}
}

func TestRecordRepriceIgnoresStoredPrice(t *testing.T) {
	rec := validInput().Record()
	rec.Price = 1
	if got := rec.Reprice().Price; got != 355.0 {
		t.Fatalf("reprice = %v, want 355", got)
	}
}

func TestRecordActiveRate(t *testing.T) {
	rec := validInput().Record()
	if rec.ActiveRate() != 9 {
		t.Fatalf("cow active rate = %v", rec.ActiveRate())
	}
	rec.MilkType = Buffalo
	if rec.ActiveRate() != 9.5 {
		t.Fatalf("buffalo active rate = %v", rec.ActiveRate())
	}
}

func TestDateJSON(t *testing.T) {
	rec := validInput().Record()
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["date"] != "2024-01-15" {
		t.Fatalf("date encoded as %v", raw["date"])
	}
	for _, key := range []string{"timeOfDay", "vendorName", "litreQuantity", "milkType", "fat", "snf", "cowRate", "buffaloRate", "price"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing field %q in %s", key, b)
		}
	}

	var back Record
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Date.String() != "2024-01-15" {
		t.Fatalf("date decoded as %q", back.Date.String())
	}

	var bad Record
	if err := json.Unmarshal([]byte(`{"date":"15/01/2024"}`), &bad); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestDateCompareIgnoresTime(t *testing.T) {
	a := NewDate(2024, 1, 31)
	b := Date{Time: a.Add(23 * time.Hour)}
	if a.Before(b) || a.After(b) {
		t.Fatalf("same calendar day compared unequal")
	}
	if !a.Before(NewDate(2024, 2, 1)) {
		t.Fatalf("expected Jan 31 before Feb 1")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("")
	if err != nil || !d.IsEmpty() {
		t.Fatalf("empty string should give zero date, got %v %v", d, err)
	}
	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Fatalf("expected error for month 13")
	}
	d, err = ParseDate(" 2024-02-29 ")
	if err != nil || d.String() != "2024-02-29" {
		t.Fatalf("unexpected parse result %v %v", d, err)
	}
}

func TestLabels(t *testing.T) {
	if Morning.Label() != "Morning" || Evening.Label() != "Evening" {
		t.Fatalf("time of day labels wrong")
	}
	if Cow.Label() != "Cow" || Buffalo.Label() != "Buffalo" {
		t.Fatalf("milk type labels wrong")
	}
}
