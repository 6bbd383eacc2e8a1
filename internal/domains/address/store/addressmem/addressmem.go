// Package addressmem provides an in memory address store used for testing.
package addressmem

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	addrbus "github.com/hamidoujand/usersadmin/internal/domains/address/bus"
)

// Store keeps addresses in a map. Transactions are serialised by txMu and
// work on a copy that replaces the map only when fn succeeds.
type Store struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	addrs map[string]addrbus.Address
}

func NewStore() *Store {
	return &Store{addrs: make(map[string]addrbus.Address)}
}

func (s *Store) InTx(ctx context.Context, fn func(s addrbus.Storer) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	tx := &Store{addrs: maps.Clone(s.addrs)}
	s.mu.Unlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.addrs = tx.addrs
	s.mu.Unlock()
	return nil
}

// LockVersions is a no-op, InTx already holds the only writer lock.
func (s *Store) LockVersions(ctx context.Context, userID int64, addrType addrbus.AddressType) error {
	return nil
}

func (s *Store) Create(ctx context.Context, addr addrbus.Address) error {
	return s.write(func(addrs map[string]addrbus.Address) error {
		k := addr.Key().String()
		if _, ok := addrs[k]; ok {
			return addrbus.ErrAddressConflict
		}
		addrs[k] = addr
		return nil
	})
}

func (s *Store) Update(ctx context.Context, key addrbus.Key, addr addrbus.Address) error {
	return s.write(func(addrs map[string]addrbus.Address) error {
		old := key.String()
		if _, ok := addrs[old]; !ok {
			return addrbus.ErrAddressNotFound
		}

		k := addr.Key().String()
		if _, ok := addrs[k]; ok && k != old {
			return addrbus.ErrAddressConflict
		}

		delete(addrs, old)
		addrs[k] = addr
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, key addrbus.Key) error {
	return s.write(func(addrs map[string]addrbus.Address) error {
		k := key.String()
		if _, ok := addrs[k]; !ok {
			return addrbus.ErrAddressNotFound
		}
		delete(addrs, k)
		return nil
	})
}

// DeleteByUser drops every version owned by userID, mirroring the foreign key
// cascade of the database store.
func (s *Store) DeleteByUser(userID int64) {
	_ = s.write(func(addrs map[string]addrbus.Address) error {
		maps.DeleteFunc(addrs, func(_ string, addr addrbus.Address) bool {
			return addr.UserID == userID
		})
		return nil
	})
}

func (s *Store) QueryByKey(ctx context.Context, key addrbus.Key) (addrbus.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr, ok := s.addrs[key.String()]
	if !ok {
		return addrbus.Address{}, addrbus.ErrAddressNotFound
	}
	return addr, nil
}

func (s *Store) QueryByUser(ctx context.Context, userID int64) ([]addrbus.Address, error) {
	addrs := s.versions(userID, func(addrbus.Address) bool { return true })

	slices.SortFunc(addrs, func(a, b addrbus.Address) int {
		if c := cmp.Compare(a.AddressType, b.AddressType); c != 0 {
			return c
		}
		return b.ValidFrom.Compare(a.ValidFrom)
	})

	return addrs, nil
}

func (s *Store) QueryLatest(ctx context.Context, userID int64, addrType addrbus.AddressType) (addrbus.Address, error) {
	return s.latest(s.versions(userID, func(addr addrbus.Address) bool {
		return addr.AddressType == addrType
	}))
}

func (s *Store) QueryLatestBefore(ctx context.Context, userID int64, addrType addrbus.AddressType, date time.Time) (addrbus.Address, error) {
	return s.latest(s.versions(userID, func(addr addrbus.Address) bool {
		return addr.AddressType == addrType && !addr.ValidFrom.After(date)
	}))
}

func (s *Store) latest(addrs []addrbus.Address) (addrbus.Address, error) {
	if len(addrs) == 0 {
		return addrbus.Address{}, addrbus.ErrAddressNotFound
	}

	return slices.MaxFunc(addrs, func(a, b addrbus.Address) int {
		return a.ValidFrom.Compare(b.ValidFrom)
	}), nil
}

func (s *Store) versions(userID int64, keep func(addrbus.Address) bool) []addrbus.Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	var addrs []addrbus.Address
	for _, addr := range s.addrs {
		if addr.UserID == userID && keep(addr) {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// write applies fn to the map. Writes outside InTx wait for running
// transactions so they are not lost when a transaction commits.
func (s *Store) write(fn func(addrs map[string]addrbus.Address) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.addrs)
}
