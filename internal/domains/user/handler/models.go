package handler

import (
	"net/mail"
	"time"

	"github.com/hamidoujand/usersadmin/internal/domains/user/bus"
)

type user struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Initials  string `json:"initials,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toAppUser(usr bus.User) user {
	return user{
		ID:        usr.ID,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Email:     usr.Email.Address,
		Initials:  usr.Initials,
		Status:    usr.Status.String(),
		CreatedAt: usr.CreatedAt.Format(time.RFC3339),
		UpdatedAt: usr.UpdatedAt.Format(time.RFC3339),
	}
}

func toAppUsers(usrs []bus.User) []user {
	out := make([]user, len(usrs))
	for i, usr := range usrs {
		out[i] = toAppUser(usr)
	}
	return out
}

// ==============================================================================

type queryResult struct {
	Items    []user `json:"items"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// ==============================================================================

type newUser struct {
	FirstName string `json:"firstName" binding:"required,max=60"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=100"`
	Initials  string `json:"initials" binding:"max=30"`
}

func toBusNewUser(nu newUser) bus.NewUser {
	return bus.NewUser{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Email:     mail.Address{Address: nu.Email},
		Initials:  nu.Initials,
	}
}

// ==============================================================================

type updateUser struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=60"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=100"`
	Initials  *string `json:"initials" binding:"omitempty,max=30"`
	Status    *string `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

func toBusUpdateUser(uu updateUser) (bus.UpdateUser, error) {
	upd := bus.UpdateUser{
		FirstName: uu.FirstName,
		LastName:  uu.LastName,
		Initials:  uu.Initials,
	}

	if uu.Email != nil {
		upd.Email = &mail.Address{Address: *uu.Email}
	}

	if uu.Status != nil {
		status, err := bus.ParseStatus(*uu.Status)
		if err != nil {
			return bus.UpdateUser{}, err
		}
		upd.Status = &status
	}

	return upd, nil
}

// ==============================================================================

type filters struct {
	Name   *string `form:"name" binding:"omitempty,min=1,max=100"`
	Email  *string `form:"email" binding:"omitempty,min=1,max=100"`
	Status *string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (f filters) toBusQueryFilter() (bus.QueryFilter, error) {
	qf := bus.QueryFilter{
		Name:  f.Name,
		Email: f.Email,
	}

	if f.Status != nil {
		status, err := bus.ParseStatus(*f.Status)
		if err != nil {
			return bus.QueryFilter{}, err
		}
		qf.Status = &status
	}

	return qf, nil
}
