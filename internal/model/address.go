package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AddressType string

const (
	AddressHome   AddressType = "HOME"
	AddressOffice AddressType = "OFFICE"
	AddressOther  AddressType = "OTHER"
)

const DefaultCountry = "India"

type Address struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	AddressType  AddressType
	FullName     string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Pincode      string
	Country      string
	IsDefault    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullAddress joins the non-empty address parts.
func (a *Address) FullAddress() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.AddressLine1, a.AddressLine2, a.City, a.State, a.Pincode, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
