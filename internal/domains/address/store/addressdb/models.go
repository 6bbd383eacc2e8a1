package addressdb

import (
	"time"

	addrbus "github.com/hamidoujand/usersadmin/internal/domains/address/bus"
)

type address struct {
	UserID         int64     `db:"user_id"`
	AddressType    string    `db:"address_type"`
	ValidFrom      time.Time `db:"valid_from"`
	PostCode       string    `db:"post_code"`
	City           string    `db:"city"`
	CountryCode    string    `db:"country_code"`
	Street         string    `db:"street"`
	BuildingNumber string    `db:"building_number"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// key holds the current identity of a row next to its new values on update.
type key struct {
	KeyUserID      int64     `db:"key_user_id"`
	KeyAddressType string    `db:"key_address_type"`
	KeyValidFrom   time.Time `db:"key_valid_from"`
}

func fromBusKey(k addrbus.Key) key {
	return key{
		KeyUserID:      k.UserID,
		KeyAddressType: k.AddressType.String(),
		KeyValidFrom:   addrbus.DateOf(k.ValidFrom),
	}
}

func fromBusAddress(addr addrbus.Address) address {
	return address{
		UserID:         addr.UserID,
		AddressType:    addr.AddressType.String(),
		ValidFrom:      addrbus.DateOf(addr.ValidFrom),
		PostCode:       addr.PostCode,
		City:           addr.City,
		CountryCode:    addr.CountryCode,
		Street:         addr.Street,
		BuildingNumber: addr.BuildingNumber,
		CreatedAt:      addr.CreatedAt.UTC(),
		UpdatedAt:      addr.UpdatedAt.UTC(),
	}
}

func toBusAddress(addr address) addrbus.Address {
	return addrbus.Address{
		UserID:         addr.UserID,
		AddressType:    addrbus.AddressType(addr.AddressType),
		ValidFrom:      addrbus.DateOf(addr.ValidFrom),
		PostCode:       addr.PostCode,
		City:           addr.City,
		CountryCode:    addr.CountryCode,
		Street:         addr.Street,
		BuildingNumber: addr.BuildingNumber,
		CreatedAt:      addr.CreatedAt.UTC(),
		UpdatedAt:      addr.UpdatedAt.UTC(),
	}
}
