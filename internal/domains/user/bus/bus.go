// Package bus provides the business rules for managing users.
package bus

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/notify"
	"github.com/hamidoujand/usersadmin/internal/order"
	"github.com/hamidoujand/usersadmin/internal/page"
)

var ErrUserNotFound = fmt.Errorf("user %w", errs.ErrNotFound)

type store interface {
	Create(ctx context.Context, usr User) (User, error)
	Update(ctx context.Context, usr User) error
	Delete(ctx context.Context, usr User) error
	QueryByID(ctx context.Context, userID int64) (User, error)
	Query(ctx context.Context, filter QueryFilter, orderBy order.Field, page page.Page) ([]User, error)
	Count(ctx context.Context, filter QueryFilter) (int, error)
}

type Bus struct {
	store    store
	notifier notify.Publisher
}

func New(store store, notifier notify.Publisher) *Bus {
	return &Bus{store: store, notifier: notifier}
}

// Create validates nu, stores it as an ACTIVE user and returns it with the
// id assigned by the store.
func (b *Bus) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := errs.Check(nu); err != nil {
		return User{}, err
	}

	//postgres keeps microseconds, monotonic clock reading dropped.
	now := time.Now().UTC().Truncate(time.Microsecond)

	usr := User{
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Initials:  nu.Initials,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.Email = mail.Address{Name: usr.FullName(), Address: nu.Email.Address}

	usr, err := b.store.Create(ctx, usr)
	if err != nil {
		return User{}, fmt.Errorf("create: %w", err)
	}

	b.notifier.Publish(ctx, notify.NewEvent(notify.EntityUser, notify.ActionCreated, usr.ID))
	return usr, nil
}

func (b *Bus) Update(ctx context.Context, usr User, updates UpdateUser) (User, error) {
	if err := errs.Check(updates); err != nil {
		return User{}, err
	}

	if updates.FirstName != nil {
		usr.FirstName = *updates.FirstName
	}

	if updates.LastName != nil {
		usr.LastName = *updates.LastName
	}

	if updates.Email != nil {
		usr.Email.Address = updates.Email.Address
	}

	if updates.Initials != nil {
		usr.Initials = *updates.Initials
	}

	if updates.Status != nil && !updates.Status.IsZero() {
		usr.Status = *updates.Status
	}

	usr.Email.Name = usr.FullName()
	usr.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := b.store.Update(ctx, usr); err != nil {
		return User{}, fmt.Errorf("update: %w", err)
	}

	b.notifier.Publish(ctx, notify.NewEvent(notify.EntityUser, notify.ActionUpdated, usr.ID))
	return usr, nil
}

// Delete removes the user together with all of its addresses.
func (b *Bus) Delete(ctx context.Context, usr User) error {
	if err := b.store.Delete(ctx, usr); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	b.notifier.Publish(ctx, notify.NewEvent(notify.EntityUser, notify.ActionDeleted, usr.ID))
	return nil
}

func (b *Bus) QueryByID(ctx context.Context, id int64) (User, error) {
	usr, err := b.store.QueryByID(ctx, id)
	if err != nil {
		return User{}, fmt.Errorf("queryByID: %w", err)
	}

	return usr, nil
}

// Exists reports whether a user with the given id is stored.
func (b *Bus) Exists(ctx context.Context, id int64) error {
	if _, err := b.store.QueryByID(ctx, id); err != nil {
		return fmt.Errorf("queryByID: %w", err)
	}
	return nil
}

func (b *Bus) Count(ctx context.Context, filter QueryFilter) (int, error) {
	n, err := b.store.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (b *Bus) Query(ctx context.Context, filter QueryFilter, orderBy order.Field, page page.Page) ([]User, error) {
	usrs, err := b.store.Query(ctx, filter, orderBy, page)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	return usrs, nil
}
