package handler

import (
	"time"

	"github.com/hamidoujand/usersadmin/internal/domains/address/bus"
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
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

func toAppAddress(addr bus.Address) address {
	return address{
		UserID:         addr.UserID,
		AddressType:    addr.AddressType.String(),
		ValidFrom:      addr.ValidFrom.Format(bus.DateLayout),
		PostCode:       addr.PostCode,
		City:           addr.City,
		CountryCode:    addr.CountryCode,
		Street:         addr.Street,
		BuildingNumber: addr.BuildingNumber,
		Preview:        addr.Preview(),
		CreatedAt:      addr.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      addr.UpdatedAt.Format(time.RFC3339),
	}
}

func toAppAddresses(addrs []bus.Address) []address {
	out := make([]address, len(addrs))
	for i, addr := range addrs {
		out[i] = toAppAddress(addr)
	}
	return out
}

// ==============================================================================

type newAddress struct {
	AddressType    string `json:"addressType" binding:"required,oneof=HOME WORK"`
	ValidFrom      string `json:"validFrom" binding:"required,datetime=2006-01-02"`
	PostCode       string `json:"postCode" binding:"required,postcode"`
	City           string `json:"city" binding:"required,max=60"`
	CountryCode    string `json:"countryCode" binding:"required,len=3"`
	Street         string `json:"street" binding:"required,max=100"`
	BuildingNumber string `json:"buildingNumber" binding:"required,max=60"`
}

func toBusNewAddress(userID int64, na newAddress) (bus.NewAddress, error) {
	typ, err := bus.ParseAddressType(na.AddressType)
	if err != nil {
		return bus.NewAddress{}, err
	}

	validFrom, err := bus.ParseDate(na.ValidFrom)
	if err != nil {
		return bus.NewAddress{}, err
	}

	return bus.NewAddress{
		UserID:         userID,
		AddressType:    typ,
		ValidFrom:      validFrom,
		PostCode:       na.PostCode,
		City:           na.City,
		CountryCode:    na.CountryCode,
		Street:         na.Street,
		BuildingNumber: na.BuildingNumber,
	}, nil
}

// ==============================================================================

type updateAddress struct {
	ValidFrom      *string `json:"validFrom" binding:"omitempty,datetime=2006-01-02"`
	PostCode       *string `json:"postCode" binding:"omitempty,postcode"`
	City           *string `json:"city" binding:"omitempty,min=1,max=60"`
	CountryCode    *string `json:"countryCode" binding:"omitempty,len=3"`
	Street         *string `json:"street" binding:"omitempty,min=1,max=100"`
	BuildingNumber *string `json:"buildingNumber" binding:"omitempty,min=1,max=60"`
}

func toBusUpdateAddress(ua updateAddress) (bus.UpdateAddress, error) {
	upd := bus.UpdateAddress{
		PostCode:       ua.PostCode,
		City:           ua.City,
		CountryCode:    ua.CountryCode,
		Street:         ua.Street,
		BuildingNumber: ua.BuildingNumber,
	}

	if ua.ValidFrom != nil {
		validFrom, err := bus.ParseDate(*ua.ValidFrom)
		if err != nil {
			return bus.UpdateAddress{}, err
		}
		upd.ValidFrom = &validFrom
	}

	return upd, nil
}
