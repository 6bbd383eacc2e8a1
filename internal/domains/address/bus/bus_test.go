package bus_test

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hamidoujand/usersadmin/internal/domains/address/bus"
	"github.com/hamidoujand/usersadmin/internal/domains/address/store/addressmem"
	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/domains/user/store/usermem"
	"github.com/hamidoujand/usersadmin/internal/errs"
	"github.com/hamidoujand/usersadmin/internal/notify"
)

type fixture struct {
	users  *usrbus.Bus
	addrs  *bus.Bus
	events <-chan notify.Event
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	hub := notify.NewHub()
	events, cancel := hub.Subscribe(100)
	t.Cleanup(cancel)

	addrStore := addressmem.NewStore()
	usrStore := usermem.NewStore()
	usrStore.OnDelete = addrStore.DeleteByUser

	users := usrbus.New(usrStore, hub)
	return fixture{
		users:  users,
		addrs:  bus.New(addrStore, users, hub),
		events: events,
	}
}

func (f fixture) createUser(t *testing.T) usrbus.User {
	t.Helper()

	usr, err := f.users.Create(context.Background(), usrbus.NewUser{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     mail.Address{Address: "a@x.com"},
	})
	if err != nil {
		t.Fatalf("failed to create user: %s", err)
	}
	return usr
}

func date(t *testing.T, s string) time.Time {
	t.Helper()

	d, err := bus.ParseDate(s)
	if err != nil {
		t.Fatalf("parseDate: %s", err)
	}
	return d
}

func newAddress(userID int64, typ bus.AddressType, validFrom time.Time) bus.NewAddress {
	return bus.NewAddress{
		UserID:         userID,
		AddressType:    typ,
		ValidFrom:      validFrom,
		PostCode:       "12-345",
		City:           "Lodz",
		CountryCode:    "POL",
		Street:         "Main",
		BuildingNumber: "5",
	}
}

func Test_CreateConflicts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	usr := f.createUser(t)
	if usr.Status != usrbus.StatusActive {
		t.Fatalf("status=%s, got=%s", usrbus.StatusActive, usr.Status)
	}

	addr, err := f.addrs.Create(ctx, newAddress(usr.ID, bus.TypeHome, date(t, "2024-01-01")))
	if err != nil {
		t.Fatalf("expected first home address to be created: %s", err)
	}

	if got := addr.Preview(); got != "Main 5\n12-345 Lodz\nPOL" {
		t.Errorf("preview=%q, got=%q", "Main 5\n12-345 Lodz\nPOL", got)
	}

	tests := map[string]struct {
		typ       bus.AddressType
		validFrom string
		conflict  bool
	}{
		"earlier home":        {typ: bus.TypeHome, validFrom: "2023-06-01", conflict: true},
		"same day home":       {typ: bus.TypeHome, validFrom: "2024-01-01", conflict: true},
		"earlier work":        {typ: bus.TypeWork, validFrom: "2023-06-01"},
		"strictly later home": {typ: bus.TypeHome, validFrom: "2024-01-02"},
	}

	for _, name := range []string{"earlier home", "same day home", "earlier work", "strictly later home"} {
		tt := tests[name]
		_, err := f.addrs.Create(ctx, newAddress(usr.ID, tt.typ, date(t, tt.validFrom)))

		if tt.conflict {
			if !errors.Is(err, bus.ErrAddressConflict) {
				t.Errorf("%s: err=%s, got=%v", name, bus.ErrAddressConflict, err)
			}
			if !errors.Is(err, errs.ErrConflict) {
				t.Errorf("%s: expected a conflict classification, got=%v", name, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("%s: expected success, got=%s", name, err)
		}
	}
}

func Test_CreateValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	usr := f.createUser(t)

	tests := map[string]struct {
		mutate func(na *bus.NewAddress)
		field  string
	}{
		"post code without dash": {mutate: func(na *bus.NewAddress) { na.PostCode = "12345" }, field: "postCode"},
		"post code letters":      {mutate: func(na *bus.NewAddress) { na.PostCode = "ab-cde" }, field: "postCode"},
		"short country":          {mutate: func(na *bus.NewAddress) { na.CountryCode = "PL" }, field: "countryCode"},
		"empty city":             {mutate: func(na *bus.NewAddress) { na.City = "" }, field: "city"},
		"unknown type":           {mutate: func(na *bus.NewAddress) { na.AddressType = "HOLIDAY" }, field: "addressType"},
		"missing date":           {mutate: func(na *bus.NewAddress) { na.ValidFrom = time.Time{} }, field: "validFrom"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			na := newAddress(usr.ID, bus.TypeHome, date(t, "2024-01-01"))
			tt.mutate(&na)

			_, err := f.addrs.Create(context.Background(), na)

			var fe errs.FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("expected field errors, got %v", err)
			}

			if _, ok := fe[tt.field]; !ok {
				t.Errorf("expected an error for %q, got %v", tt.field, fe)
			}
		})
	}
}

func Test_CreateUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.addrs.Create(context.Background(), newAddress(99, bus.TypeHome, date(t, "2024-01-01")))
	if !errors.Is(err, usrbus.ErrUserNotFound) {
		t.Errorf("err=%s, got=%v", usrbus.ErrUserNotFound, err)
	}
}

func Test_QueryByUserUnknownUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.addrs.QueryByUser(context.Background(), 99)
	if !errors.Is(err, usrbus.ErrUserNotFound) {
		t.Errorf("err=%s, got=%v", usrbus.ErrUserNotFound, err)
	}
}

func Test_QueryByUserOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	usr := f.createUser(t)

	creates := []struct {
		typ       bus.AddressType
		validFrom string
	}{
		{bus.TypeWork, "2022-01-01"},
		{bus.TypeHome, "2021-01-01"},
		{bus.TypeWork, "2023-01-01"},
		{bus.TypeHome, "2024-05-01"},
	}

	for _, c := range creates {
		if _, err := f.addrs.Create(context.Background(), newAddress(usr.ID, c.typ, date(t, c.validFrom))); err != nil {
			t.Fatalf("create %s %s: %s", c.typ, c.validFrom, err)
		}
	}

	addrs, err := f.addrs.QueryByUser(context.Background(), usr.ID)
	if err != nil {
		t.Fatalf("queryByUser: %s", err)
	}

	var got []string
	for _, addr := range addrs {
		got = append(got, addr.Key().String())
	}

	want := []string{
		"1/HOME/2024-05-01",
		"1/HOME/2021-01-01",
		"1/WORK/2023-01-01",
		"1/WORK/2022-01-01",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func Test_Delete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	usr := f.createUser(t)

	first, err := f.addrs.Create(ctx, newAddress(usr.ID, bus.TypeHome, date(t, "2020-01-01")))
	if err != nil {
		t.Fatalf("create: %s", err)
	}

	second, err := f.addrs.Create(ctx, newAddress(usr.ID, bus.TypeHome, date(t, "2021-01-01")))
	if err != nil {
		t.Fatalf("create: %s", err)
	}

	missing := bus.Key{UserID: usr.ID, AddressType: bus.TypeHome, ValidFrom: date(t, "2019-01-01")}
	if err := f.addrs.Delete(ctx, missing); !errors.Is(err, bus.ErrAddressNotFound) {
		t.Errorf("err=%s, got=%v", bus.ErrAddressNotFound, err)
	}

	if err := f.addrs.Delete(ctx, first.Key()); err != nil {
		t.Fatalf("delete: %s", err)
	}

	addrs, err := f.addrs.QueryByUser(ctx, usr.ID)
	if err != nil {
		t.Fatalf("queryByUser: %s", err)
	}

	if len(addrs) != 1 || addrs[0].Key().String() != second.Key().String() {
		t.Errorf("expected only %s to remain, got %v", second.Key(), addrs)
	}

	if err := f.addrs.Delete(ctx, first.Key()); !errors.Is(err, bus.ErrAddressNotFound) {
		t.Errorf("deleting twice: err=%s, got=%v", bus.ErrAddressNotFound, err)
	}
}

func Test_Update(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	usr := f.createUser(t)

	older, err := f.addrs.Create(ctx, newAddress(usr.ID, bus.TypeHome, date(t, "2020-01-01")))
	if err != nil {
		t.Fatalf("create: %s", err)
	}

	newer, err := f.addrs.Create(ctx, newAddress(usr.ID, bus.TypeHome, date(t, "2022-01-01")))
	if err != nil {
		t.Fatalf("create: %s", err)
	}

	//field changes on an older version are not checked against newer ones.
	city := "Krakow"
	updated, err := f.addrs.Update(ctx, older.Key(), bus.UpdateAddress{City: &city})
	if err != nil {
		t.Fatalf("update: %s", err)
	}

	if updated.City != city || updated.Street != older.Street {
		t.Errorf("unexpected update result: %+v", updated)
	}

	//an older version may be moved to another free date.
	moved := date(t, "2019-06-01")
	updated, err = f.addrs.Update(ctx, older.Key(), bus.UpdateAddress{ValidFrom: &moved})
	if err != nil {
		t.Fatalf("moving validFrom: %s", err)
	}

	if !updated.ValidFrom.Equal(moved) {
		t.Errorf("validFrom=%s, got=%s", moved, updated.ValidFrom)
	}

	if _, err := f.addrs.QueryByKey(ctx, older.Key()); !errors.Is(err, bus.ErrAddressNotFound) {
		t.Errorf("expected the old key to be gone, got=%v", err)
	}

	//moving onto a date used by another version is a conflict.
	taken := newer.ValidFrom
	_, err = f.addrs.Update(ctx, updated.Key(), bus.UpdateAddress{ValidFrom: &taken})
	if !errors.Is(err, bus.ErrAddressConflict) {
		t.Errorf("err=%s, got=%v", bus.ErrAddressConflict, err)
	}

	missing := bus.Key{UserID: usr.ID, AddressType: bus.TypeWork, ValidFrom: moved}
	if _, err := f.addrs.Update(ctx, missing, bus.UpdateAddress{City: &city}); !errors.Is(err, bus.ErrAddressNotFound) {
		t.Errorf("err=%s, got=%v", bus.ErrAddressNotFound, err)
	}

	bad := "12345"
	_, err = f.addrs.Update(ctx, newer.Key(), bus.UpdateAddress{PostCode: &bad})
	var fe errs.FieldErrors
	if !errors.As(err, &fe) {
		t.Errorf("expected field errors, got %v", err)
	}
}

func Test_QueryCurrent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	usr := f.createUser(t)

	for _, d := range []string{"2020-01-01", "2022-01-01"} {
		if _, err := f.addrs.Create(ctx, newAddress(usr.ID, bus.TypeWork, date(t, d))); err != nil {
			t.Fatalf("create: %s", err)
		}
	}

	tests := map[string]string{
		"2021-12-31": "2020-01-01",
		"2022-01-01": "2022-01-01",
		"2030-01-01": "2022-01-01",
	}

	for asOf, want := range tests {
		addr, err := f.addrs.QueryCurrent(ctx, usr.ID, bus.TypeWork, date(t, asOf))
		if err != nil {
			t.Errorf("asOf %s: %s", asOf, err)
			continue
		}

		if got := addr.ValidFrom.Format(bus.DateLayout); got != want {
			t.Errorf("asOf %s: validFrom=%s, got=%s", asOf, want, got)
		}
	}

	_, err := f.addrs.QueryCurrent(ctx, usr.ID, bus.TypeWork, date(t, "2019-12-31"))
	if !errors.Is(err, bus.ErrAddressNotFound) {
		t.Errorf("err=%s, got=%v", bus.ErrAddressNotFound, err)
	}
}

func Test_ConcurrentCreates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	usr := f.createUser(t)

	const workers = 10
	na := newAddress(usr.ID, bus.TypeHome, date(t, "2024-01-01"))

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.addrs.Create(context.Background(), na)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var created, conflicts int
	for err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, bus.ErrAddressConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %s", err)
		}
	}

	if created != 1 || conflicts != workers-1 {
		t.Errorf("created=%d conflicts=%d, want 1 and %d", created, conflicts, workers-1)
	}
}

func Test_EventsAndCascade(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	usr := f.createUser(t)
	<-f.events

	addr, err := f.addrs.Create(ctx, newAddress(usr.ID, bus.TypeHome, date(t, "2024-01-01")))
	if err != nil {
		t.Fatalf("create: %s", err)
	}

	select {
	case e := <-f.events:
		if e.Name() != "address.created" || e.AddressType != "HOME" || e.ValidFrom != "2024-01-01" || e.UserID != usr.ID {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an address.created event")
	}

	if err := f.users.Delete(ctx, usr); err != nil {
		t.Fatalf("delete user: %s", err)
	}

	if _, err := f.addrs.QueryByKey(ctx, addr.Key()); !errors.Is(err, bus.ErrAddressNotFound) {
		t.Errorf("expected addresses to be removed with the user, got=%v", err)
	}

	if _, err := f.addrs.QueryByUser(ctx, usr.ID); !errors.Is(err, usrbus.ErrUserNotFound) {
		t.Errorf("err=%s, got=%v", usrbus.ErrUserNotFound, err)
	}
}
