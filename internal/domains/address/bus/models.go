package bus

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of validFrom.
const DateLayout = "2006-01-02"

// AddressType is the kind of an address, one user can hold versions of both.
type AddressType string

const (
	TypeHome AddressType = "HOME"
	TypeWork AddressType = "WORK"
)

// ParseAddressType is case insensitive.
func ParseAddressType(val string) (AddressType, error) {
	switch t := AddressType(strings.ToUpper(val)); t {
	case TypeHome, TypeWork:
		return t, nil
	default:
		return "", fmt.Errorf("invalid address type: %q", val)
	}
}

func (t AddressType) String() string {
	return string(t)
}

// DateOf drops the time of day, validFrom is a calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(val string) (time.Time, error) {
	t, err := time.Parse(DateLayout, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", val)
	}
	return t, nil
}

// Key identifies exactly one address version.
type Key struct {
	UserID      int64
	AddressType AddressType
	ValidFrom   time.Time
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s", k.UserID, k.AddressType, k.ValidFrom.Format(DateLayout))
}

type Address struct {
	UserID         int64
	AddressType    AddressType
	ValidFrom      time.Time
	PostCode       string
	City           string
	CountryCode    string
	Street         string
	BuildingNumber string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a Address) Key() Key {
	return Key{UserID: a.UserID, AddressType: a.AddressType, ValidFrom: a.ValidFrom}
}

// Preview renders the address the way it is printed on an envelope:
//
//	Main 5
//	12-345 Lodz
//	POL
func (a Address) Preview() string {
	return a.Street + " " + a.BuildingNumber + "\n" +
		a.PostCode + " " + a.City + "\n" +
		a.CountryCode
}

type NewAddress struct {
	UserID         int64       `validate:"required"`
	AddressType    AddressType `validate:"required,oneof=HOME WORK"`
	ValidFrom      time.Time   `validate:"required"`
	PostCode       string      `validate:"required,postcode"`
	City           string      `validate:"required,max=60"`
	CountryCode    string      `validate:"required,len=3"`
	Street         string      `validate:"required,max=100"`
	BuildingNumber string      `validate:"required,max=60"`
}

// UpdateAddress carries the fields to change, nil fields are left alone.
// A non nil ValidFrom moves the version to another date.
type UpdateAddress struct {
	ValidFrom      *time.Time `validate:"-"`
	PostCode       *string    `validate:"omitempty,postcode"`
	City           *string    `validate:"omitempty,min=1,max=60"`
	CountryCode    *string    `validate:"omitempty,len=3"`
	Street         *string    `validate:"omitempty,min=1,max=100"`
	BuildingNumber *string    `validate:"omitempty,min=1,max=60"`
}
