// Package bus provides the business rules for dated user addresses.
//
// Every (user, address type) pair holds a history of versions keyed by the
// date they take effect. A new version is only accepted when it takes effect
// strictly after every version already stored for the pair.
package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/notify"
)

var (
	ErrAddressNotFound = fmt.Errorf("address %w", errs.ErrNotFound)
	ErrAddressConflict = fmt.Errorf("an address of this type already exists for this date: %w", errs.ErrConflict)
)

// Storer is the persistence the bus needs. InTx runs fn against a store bound
// to a single transaction.
type Storer interface {
	InTx(ctx context.Context, fn func(s Storer) error) error
	LockVersions(ctx context.Context, userID int64, addrType AddressType) error
	Create(ctx context.Context, addr Address) error
	Update(ctx context.Context, key Key, addr Address) error
	Delete(ctx context.Context, key Key) error
	QueryByKey(ctx context.Context, key Key) (Address, error)
	QueryByUser(ctx context.Context, userID int64) ([]Address, error)
	QueryLatest(ctx context.Context, userID int64, addrType AddressType) (Address, error)
	QueryLatestBefore(ctx context.Context, userID int64, addrType AddressType, date time.Time) (Address, error)
}

type users interface {
	Exists(ctx context.Context, userID int64) error
}

type Bus struct {
	store    Storer
	users    users
	notifier notify.Publisher
}

func New(store Storer, users users, notifier notify.Publisher) *Bus {
	return &Bus{
		store:    store,
		users:    users,
		notifier: notifier,
	}
}

// Create stores a new version. It fails with ErrAddressConflict when a version
// of the same type already takes effect on or after na.ValidFrom.
func (b *Bus) Create(ctx context.Context, na NewAddress) (Address, error) {
	if err := errs.Check(na); err != nil {
		return Address{}, err
	}

	if err := b.users.Exists(ctx, na.UserID); err != nil {
		return Address{}, fmt.Errorf("exists: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)

	addr := Address{
		UserID:         na.UserID,
		AddressType:    na.AddressType,
		ValidFrom:      DateOf(na.ValidFrom),
		PostCode:       na.PostCode,
		City:           na.City,
		CountryCode:    na.CountryCode,
		Street:         na.Street,
		BuildingNumber: na.BuildingNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := b.store.InTx(ctx, func(s Storer) error {
		if err := s.LockVersions(ctx, addr.UserID, addr.AddressType); err != nil {
			return fmt.Errorf("lockVersions: %w", err)
		}

		latest, err := s.QueryLatest(ctx, addr.UserID, addr.AddressType)
		switch {
		case err == nil:
			if !addr.ValidFrom.After(latest.ValidFrom) {
				return ErrAddressConflict
			}
		case !errors.Is(err, ErrAddressNotFound):
			return fmt.Errorf("queryLatest: %w", err)
		}

		if err := s.Create(ctx, addr); err != nil {
			return fmt.Errorf("create: %w", err)
		}

		return nil
	})

	if err != nil {
		return Address{}, err
	}

	b.publish(ctx, notify.ActionCreated, addr.Key())
	return addr, nil
}

// Update applies ua to the version identified by key. Field changes never
// re-run the creation rule. Moving ValidFrom onto a date already used by
// another version of the same type fails with ErrAddressConflict.
func (b *Bus) Update(ctx context.Context, key Key, ua UpdateAddress) (Address, error) {
	if err := errs.Check(ua); err != nil {
		return Address{}, err
	}

	key.ValidFrom = DateOf(key.ValidFrom)

	var addr Address
	err := b.store.InTx(ctx, func(s Storer) error {
		if err := s.LockVersions(ctx, key.UserID, key.AddressType); err != nil {
			return fmt.Errorf("lockVersions: %w", err)
		}

		var err error
		addr, err = s.QueryByKey(ctx, key)
		if err != nil {
			return fmt.Errorf("queryByKey: %w", err)
		}

		if ua.ValidFrom != nil {
			validFrom := DateOf(*ua.ValidFrom)
			if !validFrom.Equal(addr.ValidFrom) {
				taken := Key{UserID: key.UserID, AddressType: key.AddressType, ValidFrom: validFrom}
				_, err := s.QueryByKey(ctx, taken)
				switch {
				case err == nil:
					return ErrAddressConflict
				case !errors.Is(err, ErrAddressNotFound):
					return fmt.Errorf("queryByKey: %w", err)
				}
				addr.ValidFrom = validFrom
			}
		}

		if ua.PostCode != nil {
			addr.PostCode = *ua.PostCode
		}

		if ua.City != nil {
			addr.City = *ua.City
		}

		if ua.CountryCode != nil {
			addr.CountryCode = *ua.CountryCode
		}

		if ua.Street != nil {
			addr.Street = *ua.Street
		}

		if ua.BuildingNumber != nil {
			addr.BuildingNumber = *ua.BuildingNumber
		}

		addr.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

		if err := s.Update(ctx, key, addr); err != nil {
			return fmt.Errorf("update: %w", err)
		}

		return nil
	})

	if err != nil {
		return Address{}, err
	}

	b.publish(ctx, notify.ActionUpdated, addr.Key())
	return addr, nil
}

// Delete removes exactly the version identified by key.
func (b *Bus) Delete(ctx context.Context, key Key) error {
	key.ValidFrom = DateOf(key.ValidFrom)

	if err := b.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	b.publish(ctx, notify.ActionDeleted, key)
	return nil
}

// QueryByUser returns every version of the user's addresses, by type and then
// most recent first.
func (b *Bus) QueryByUser(ctx context.Context, userID int64) ([]Address, error) {
	if err := b.users.Exists(ctx, userID); err != nil {
		return nil, fmt.Errorf("exists: %w", err)
	}

	addrs, err := b.store.QueryByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("queryByUser: %w", err)
	}

	return addrs, nil
}

func (b *Bus) QueryByKey(ctx context.Context, key Key) (Address, error) {
	key.ValidFrom = DateOf(key.ValidFrom)

	addr, err := b.store.QueryByKey(ctx, key)
	if err != nil {
		return Address{}, fmt.Errorf("queryByKey: %w", err)
	}

	return addr, nil
}

// QueryCurrent returns the version of the given type in effect on asOf.
func (b *Bus) QueryCurrent(ctx context.Context, userID int64, addrType AddressType, asOf time.Time) (Address, error) {
	addr, err := b.store.QueryLatestBefore(ctx, userID, addrType, DateOf(asOf))
	if err != nil {
		return Address{}, fmt.Errorf("queryLatestBefore: %w", err)
	}

	return addr, nil
}

func (b *Bus) publish(ctx context.Context, action string, key Key) {
	e := notify.NewEvent(notify.EntityAddress, action, key.UserID)
	e.AddressType = key.AddressType.String()
	e.ValidFrom = key.ValidFrom.Format(DateLayout)
	b.notifier.Publish(ctx, e)
}
