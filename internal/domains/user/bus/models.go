package bus

import (
	"net/mail"
	"time"
)

type User struct {
	ID        int64
	FirstName string
	LastName  string
	Email     mail.Address
	Initials  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName is "first last", used as the display name of the email address.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type NewUser struct {
	FirstName string       `validate:"required,max=60"`
	LastName  string       `validate:"required,max=100"`
	Email     mail.Address `validate:"required,email,max=100"`
	Initials  string       `validate:"max=30"`
}

type UpdateUser struct {
	FirstName *string       `validate:"omitempty,min=1,max=60"`
	LastName  *string       `validate:"omitempty,min=1,max=100"`
	Email     *mail.Address `validate:"omitempty,email,max=100"`
	Initials  *string       `validate:"omitempty,max=30"`
	Status    *Status       `validate:"-"`
}
