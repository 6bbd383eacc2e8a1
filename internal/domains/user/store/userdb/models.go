package userdb

import (
	"database/sql"
	"net/mail"
	"time"

	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
)

type user struct {
	ID        int64          `db:"id"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Email     string         `db:"email"`
	Initials  sql.NullString `db:"initials"`
	Status    usrbus.Status  `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func fromBusUser(usr usrbus.User) user {
	return user{
		ID:        usr.ID,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Email:     usr.Email.Address,
		Initials: sql.NullString{
			String: usr.Initials,
			//empty initials are stored as NULL.
			Valid: usr.Initials != "",
		},
		Status:    usr.Status,
		CreatedAt: usr.CreatedAt.UTC(),
		UpdatedAt: usr.UpdatedAt.UTC(),
	}
}

func toBusUser(usr user) usrbus.User {
	bus := usrbus.User{
		ID:        usr.ID,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Initials:  usr.Initials.String,
		Status:    usr.Status,
		CreatedAt: usr.CreatedAt.UTC(),
		UpdatedAt: usr.UpdatedAt.UTC(),
	}

	bus.Email = mail.Address{
		Name:    bus.FullName(),
		Address: usr.Email,
	}

	return bus
}

func toBusUsers(dbUsers []user) []usrbus.User {
	usrs := make([]usrbus.User, len(dbUsers))
	for i, usr := range dbUsers {
		usrs[i] = toBusUser(usr)
	}
	return usrs
}
