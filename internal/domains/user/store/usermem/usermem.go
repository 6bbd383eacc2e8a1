// Package usermem provides an in memory user store used for testing.
package usermem

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/order"
	"github.com/hamidoujand/usersadmin/internal/page"
)

type Store struct {
	mu     sync.Mutex
	users  map[int64]usrbus.User
	lastID int64

	// OnDelete, when set, is called with the id of every deleted user so
	// dependent stores can cascade.
	OnDelete func(userID int64)
}

func NewStore() *Store {
	return &Store{users: make(map[int64]usrbus.User)}
}

// Create assigns the next id to usr and stores it.
func (s *Store) Create(ctx context.Context, usr usrbus.User) (usrbus.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	usr.ID = s.lastID
	s.users[usr.ID] = usr
	return usr, nil
}

func (s *Store) Update(ctx context.Context, usr usrbus.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[usr.ID]; !ok {
		return usrbus.ErrUserNotFound
	}

	s.users[usr.ID] = usr
	return nil
}

func (s *Store) Delete(ctx context.Context, usr usrbus.User) error {
	s.mu.Lock()
	if _, ok := s.users[usr.ID]; !ok {
		s.mu.Unlock()
		return usrbus.ErrUserNotFound
	}
	delete(s.users, usr.ID)
	s.mu.Unlock()

	if s.OnDelete != nil {
		s.OnDelete(usr.ID)
	}
	return nil
}

func (s *Store) QueryByID(ctx context.Context, userID int64) (usrbus.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usr, ok := s.users[userID]
	if !ok {
		return usrbus.User{}, usrbus.ErrUserNotFound
	}
	return usr, nil
}

func (s *Store) Query(ctx context.Context, filter usrbus.QueryFilter, orderBy order.Field, pg page.Page) ([]usrbus.User, error) {
	usrs := s.filtered(filter)

	slices.SortStableFunc(usrs, func(a, b usrbus.User) int {
		c := compareBy(orderBy.Val, a, b)
		if orderBy.Direction == order.DESC {
			c = -c
		}
		if c == 0 {
			return cmp.Compare(a.ID, b.ID)
		}
		return c
	})

	start := min(pg.Offset(), len(usrs))
	end := min(start+pg.Rows, len(usrs))
	return usrs[start:end], nil
}

func (s *Store) Count(ctx context.Context, filter usrbus.QueryFilter) (int, error) {
	return len(s.filtered(filter)), nil
}

func (s *Store) filtered(filter usrbus.QueryFilter) []usrbus.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	usrs := make([]usrbus.User, 0, len(s.users))
	for _, usr := range s.users {
		if filter.Name != nil {
			name := strings.ToLower(*filter.Name)
			if !strings.Contains(strings.ToLower(usr.FirstName), name) &&
				!strings.Contains(strings.ToLower(usr.LastName), name) {
				continue
			}
		}

		if filter.Email != nil && !strings.Contains(strings.ToLower(usr.Email.Address), strings.ToLower(*filter.Email)) {
			continue
		}

		if filter.Status != nil && usr.Status != *filter.Status {
			continue
		}

		usrs = append(usrs, usr)
	}

	return usrs
}

func compareBy(field string, a, b usrbus.User) int {
	switch field {
	case usrbus.OrderByFirstName:
		return strings.Compare(a.FirstName, b.FirstName)
	case usrbus.OrderByLastName:
		return strings.Compare(a.LastName, b.LastName)
	case usrbus.OrderByEmail:
		return strings.Compare(a.Email.Address, b.Email.Address)
	case usrbus.OrderByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}
