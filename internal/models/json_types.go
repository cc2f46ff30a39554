package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// The aggregate columns (seat matrix, stops, schedules, fares, assigned
// buses, booking seats, payment info) are stored as JSONB so each aggregate
// is written atomically with its owning row.

func jsonValue(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	return b, nil
}

func jsonScan(src, dest interface{}) error {
	if src == nil {
		return nil
	}
	var data []byte
	switch s := src.(type) {
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return errors.New("incompatible type for jsonb column")
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// Value implements driver.Valuer
func (m SeatMatrix) Value() (driver.Value, error) {
	if m == nil {
		return jsonValue(SeatMatrix{})
	}
	return jsonValue(map[string]map[string]Seat(m))
}

// Scan implements sql.Scanner
func (m *SeatMatrix) Scan(src interface{}) error {
	*m = make(SeatMatrix)
	return jsonScan(src, m)
}

// Value implements driver.Valuer
func (s StopList) Value() (driver.Value, error) { return jsonValue([]Stop(s)) }

// Scan implements sql.Scanner
func (s *StopList) Scan(src interface{}) error { return jsonScan(src, s) }

// Value implements driver.Valuer
func (s ScheduleList) Value() (driver.Value, error) { return jsonValue([]Schedule(s)) }

// Scan implements sql.Scanner
func (s *ScheduleList) Scan(src interface{}) error { return jsonScan(src, s) }

// Value implements driver.Valuer
func (f FareList) Value() (driver.Value, error) { return jsonValue([]Fare(f)) }

// Scan implements sql.Scanner
func (f *FareList) Scan(src interface{}) error { return jsonScan(src, f) }

// Value implements driver.Valuer
func (a AssignedBusList) Value() (driver.Value, error) { return jsonValue([]AssignedBus(a)) }

// Scan implements sql.Scanner
func (a *AssignedBusList) Scan(src interface{}) error { return jsonScan(src, a) }

// Value implements driver.Valuer
func (s BookingSeatList) Value() (driver.Value, error) { return jsonValue([]BookingSeat(s)) }

// Scan implements sql.Scanner
func (s *BookingSeatList) Scan(src interface{}) error { return jsonScan(src, s) }

// Value implements driver.Valuer
func (p PaymentInfo) Value() (driver.Value, error) { return jsonValue(paymentInfoAlias(p)) }

// Scan implements sql.Scanner
func (p *PaymentInfo) Scan(src interface{}) error { return jsonScan(src, (*paymentInfoAlias)(p)) }

// paymentInfoAlias avoids recursing into PaymentInfo.Value during marshal
type paymentInfoAlias PaymentInfo
