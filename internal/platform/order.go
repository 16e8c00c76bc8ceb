// Package platform holds the read-only order shape delivered by the hosting
// order-management platform, plus the thin collaborator interfaces back into it.
package platform

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order item types as delivered by the host platform.
const (
	ItemTypeVariation         = 1
	ItemTypePromotionalCoupon = 4
	ItemTypeShippingCosts     = 6
)

// Order date types.
const (
	DateTypeOrderEntry = 2
)

// Order property types.
const (
	PropertyTypeExternalOrderID = 7
)

// Address is a delivery or billing address attached to an order.
type Address struct {
	Name1       string `json:"name1"`
	Name2       string `json:"name2"`
	Name3       string `json:"name3"`
	Name4       string `json:"name4"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2"`
	Town        string `json:"town"`
	PostalCode  string `json:"postalCode"`
	CountryISO  string `json:"countryIso"`
	Phone       string `json:"phone"`
	TaxIDNumber string `json:"taxIdNumber"`
}

// OrderDate is a typed timestamp on the order.
type OrderDate struct {
	TypeID int       `json:"typeId"`
	Date   time.Time `json:"date"`
}

// OrderProperty is a typed string property on the order.
type OrderProperty struct {
	TypeID int    `json:"typeId"`
	Value  string `json:"value"`
}

// OrderItem is one order line.
type OrderItem struct {
	TypeID            int             `json:"typeId"`
	Quantity          float64         `json:"quantity"`
	GrossPrice        decimal.Decimal `json:"grossPrice"`
	NetPrice          decimal.Decimal `json:"netPrice"`
	VariationNumber   string          `json:"variationNumber"`
	ShippingProfileID int64           `json:"shippingProfileId"`
}

// Order is the inbound order record. It is treated as read-only input; the
// export pipeline never mutates it.
type Order struct {
	ID                int64           `json:"id"`
	ReferrerID        string          `json:"referrerId"`
	ReferrerName      string          `json:"referrerName"`
	Currency          string          `json:"currency"`
	ShippingProfileID int64           `json:"shippingProfileId"`
	DeliveryAddress   Address         `json:"deliveryAddress"`
	BillingAddress    Address         `json:"billingAddress"`
	Dates             []OrderDate     `json:"dates"`
	Properties        []OrderProperty `json:"properties"`
	Items             []OrderItem     `json:"items"`
}

// PropertyValue returns the first property value of the given type, or "".
func (o *Order) PropertyValue(typeID int) string {
	for _, p := range o.Properties {
		if p.TypeID == typeID {
			return p.Value
		}
	}
	return ""
}

// DateOfType returns the first date of the given type.
func (o *Order) DateOfType(typeID int) (time.Time, bool) {
	for _, d := range o.Dates {
		if d.TypeID == typeID {
			return d.Date, true
		}
	}
	return time.Time{}, false
}

// ExternalOrderID returns the marketplace order number property.
func (o *Order) ExternalOrderID() string {
	return o.PropertyValue(PropertyTypeExternalOrderID)
}
