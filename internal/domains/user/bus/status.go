package bus

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

var (
	StatusActive   = newStatus("ACTIVE")
	StatusInactive = newStatus("INACTIVE")
)

// Status represents the lifecycle state of a user, a custom type so only the
// known values can ever be constructed.
type Status struct {
	value string
}

var validStatuses = make(map[string]Status)

func newStatus(val string) Status {
	s := Status{value: val}
	validStatuses[val] = s
	return s
}

// ParseStatus is case insensitive.
func ParseStatus(val string) (Status, error) {
	s, ok := validStatuses[strings.ToUpper(val)]
	if !ok {
		return Status{}, fmt.Errorf("invalid status: %q", val)
	}
	return s, nil
}

func (s Status) String() string {
	return s.value
}

func (s Status) IsZero() bool {
	return s.value == ""
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

func (s *Status) UnmarshalText(data []byte) error {
	parsed, err := ParseStatus(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(val any) error {
	switch v := val.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("unsupported type for status: %T", v)
	}
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if s.IsZero() {
		return nil, fmt.Errorf("status is not set")
	}
	return s.value, nil
}
