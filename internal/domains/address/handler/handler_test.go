package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hamidoujand/usersadmin/internal/apitest"
	"github.com/hamidoujand/usersadmin/internal/auth"
	"github.com/hamidoujand/usersadmin/internal/domains/address/handler"
	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/errs"
)

type address struct {
	UserID         int64  `json:"userId"`
	AddressType    string `json:"addressType"`
	ValidFrom      string `json:"validFrom"`
	PostCode       string `json:"postCode"`
	City           string `json:"city"`
	CountryCode    string `json:"countryCode"`
	Street         string `json:"street"`
	BuildingNumber string `json:"buildingNumber"`
	Preview        string `json:"preview"`
}

type setup struct {
	*apitest.Test
	admin string
	base  string
}

func newSetup(t *testing.T) setup {
	t.Helper()

	at := apitest.New(t)
	handler.RegisterRoutes(handler.Conf{
		Router:  at.Router,
		AddrBus: at.Addresses,
		Auth:    at.Auth,
		Tracer:  at.Tracer,
	})

	usr, err := at.Users.Create(context.Background(), usrbus.NewUser{
		FirstName: "Ann",
		LastName:  "Lee",
		Email:     mail.Address{Address: "a@x.com"},
	})
	if err != nil {
		t.Fatalf("failed to create user: %s", err)
	}

	return setup{
		Test:  at,
		admin: at.Token(t, auth.RoleAdmin),
		base:  fmt.Sprintf("/v1/users/%d/addresses", usr.ID),
	}
}

func body(typ string, validFrom string) map[string]any {
	return map[string]any{
		"addressType":    typ,
		"validFrom":      validFrom,
		"postCode":       "12-345",
		"city":           "Lodz",
		"countryCode":    "POL",
		"street":         "Main",
		"buildingNumber": "5",
	}
}

func Test_CreateAddress(t *testing.T) {
	t.Parallel()

	s := newSetup(t)

	rec := s.Do(t, http.MethodPost, s.base, s.admin, body("HOME", "2024-01-01"))
	apitest.ExpectStatus(t, rec, http.StatusCreated)

	var got address
	apitest.Decode(t, rec, &got)

	want := address{
		UserID:         1,
		AddressType:    "HOME",
		ValidFrom:      "2024-01-01",
		PostCode:       "12-345",
		City:           "Lodz",
		CountryCode:    "POL",
		Street:         "Main",
		BuildingNumber: "5",
		Preview:        "Main 5\n12-345 Lodz\nPOL",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{name: "earlier_same_type", body: body("HOME", "2023-06-01"), status: http.StatusConflict},
		{name: "same_date_same_type", body: body("HOME", "2024-01-01"), status: http.StatusConflict},
		{name: "earlier_other_type", body: body("WORK", "2023-06-01"), status: http.StatusCreated},
		{name: "later_same_type", body: body("HOME", "2024-01-02"), status: http.StatusCreated},
	}

	for _, tt := range tests {
		rec := s.Do(t, http.MethodPost, s.base, s.admin, tt.body)
		if rec.Code != tt.status {
			t.Errorf("%s: status=%d, got=%d body=%s", tt.name, tt.status, rec.Code, rec.Body.String())
		}
	}
}

func Test_CreateAddressValidation(t *testing.T) {
	t.Parallel()

	s := newSetup(t)

	tests := []struct {
		name  string
		field string
		value string
	}{
		{name: "post_code", field: "postCode", value: "12345"},
		{name: "valid_from", field: "validFrom", value: "01/01/2024"},
		{name: "address_type", field: "addressType", value: "HOLIDAY"},
		{name: "country_code", field: "countryCode", value: "PL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := body("HOME", "2024-01-01")
			b[tt.field] = tt.value

			rec := s.Do(t, http.MethodPost, s.base, s.admin, b)
			apitest.ExpectStatus(t, rec, http.StatusBadRequest)

			var appErr errs.Error
			apitest.Decode(t, rec, &appErr)

			if _, ok := appErr.Fields[tt.field]; !ok {
				t.Errorf("expected a message for %q, got=%v", tt.field, appErr.Fields)
			}
		})
	}

	rec := s.Do(t, http.MethodPost, "/v1/users/99/addresses", s.admin, body("HOME", "2024-01-01"))
	apitest.ExpectStatus(t, rec, http.StatusNotFound)

	viewer := s.Token(t, auth.RoleViewer)
	rec = s.Do(t, http.MethodPost, s.base, viewer, body("HOME", "2024-01-01"))
	apitest.ExpectStatus(t, rec, http.StatusForbidden)
}

func Test_QueryAddresses(t *testing.T) {
	t.Parallel()

	s := newSetup(t)

	for _, b := range []map[string]any{
		body("WORK", "2022-01-01"),
		body("HOME", "2024-01-01"),
		body("WORK", "2023-01-01"),
		body("HOME", "2025-01-01"),
	} {
		rec := s.Do(t, http.MethodPost, s.base, s.admin, b)
		apitest.ExpectStatus(t, rec, http.StatusCreated)
	}

	viewer := s.Token(t, auth.RoleViewer)

	rec := s.Do(t, http.MethodGet, s.base, viewer, nil)
	apitest.ExpectStatus(t, rec, http.StatusOK)

	var addrs []address
	apitest.Decode(t, rec, &addrs)

	var got []string
	for _, addr := range addrs {
		got = append(got, addr.AddressType+" "+addr.ValidFrom)
	}

	want := []string{"HOME 2025-01-01", "HOME 2024-01-01", "WORK 2023-01-01", "WORK 2022-01-01"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	rec = s.Do(t, http.MethodGet, s.base+"/current?type=home&asOf=2024-12-31", viewer, nil)
	apitest.ExpectStatus(t, rec, http.StatusOK)

	var current address
	apitest.Decode(t, rec, &current)

	if current.ValidFrom != "2024-01-01" {
		t.Errorf("current=%s, got=%s", "2024-01-01", current.ValidFrom)
	}

	rec = s.Do(t, http.MethodGet, s.base+"/current?type=HOME&asOf=2000-01-01", viewer, nil)
	apitest.ExpectStatus(t, rec, http.StatusNotFound)

	rec = s.Do(t, http.MethodGet, s.base+"/current", viewer, nil)
	apitest.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = s.Do(t, http.MethodGet, "/v1/users/99/addresses", viewer, nil)
	apitest.ExpectStatus(t, rec, http.StatusNotFound)
}

func Test_UpdateAndDeleteAddress(t *testing.T) {
	t.Parallel()

	s := newSetup(t)

	for _, b := range []map[string]any{body("HOME", "2020-01-01"), body("HOME", "2021-01-01")} {
		rec := s.Do(t, http.MethodPost, s.base, s.admin, b)
		apitest.ExpectStatus(t, rec, http.StatusCreated)
	}

	older := s.base + "/HOME/2020-01-01"

	rec := s.Do(t, http.MethodPut, older, s.admin, map[string]any{"street": "Side", "buildingNumber": "7"})
	apitest.ExpectStatus(t, rec, http.StatusOK)

	var updated address
	apitest.Decode(t, rec, &updated)

	if updated.Preview != "Side 7\n12-345 Lodz\nPOL" {
		t.Errorf("preview not updated, got=%q", updated.Preview)
	}

	rec = s.Do(t, http.MethodPut, older, s.admin, map[string]any{"validFrom": "2021-01-01"})
	apitest.ExpectStatus(t, rec, http.StatusConflict)

	rec = s.Do(t, http.MethodPut, older, s.admin, map[string]any{"postCode": "123-45"})
	apitest.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = s.Do(t, http.MethodPut, s.base+"/HOME/1999-01-01", s.admin, map[string]any{"street": "Side"})
	apitest.ExpectStatus(t, rec, http.StatusNotFound)

	rec = s.Do(t, http.MethodPut, s.base+"/HOME/yesterday", s.admin, map[string]any{"street": "Side"})
	apitest.ExpectStatus(t, rec, http.StatusBadRequest)

	rec = s.Do(t, http.MethodDelete, older, s.admin, nil)
	apitest.ExpectStatus(t, rec, http.StatusNoContent)

	rec = s.Do(t, http.MethodDelete, older, s.admin, nil)
	apitest.ExpectStatus(t, rec, http.StatusNotFound)

	rec = s.Do(t, http.MethodGet, s.base, s.admin, nil)
	apitest.ExpectStatus(t, rec, http.StatusOK)

	var addrs []address
	apitest.Decode(t, rec, &addrs)

	if len(addrs) != 1 || addrs[0].ValidFrom != "2021-01-01" {
		t.Errorf("expected only 2021-01-01 to remain, got=%+v", addrs)
	}
}
