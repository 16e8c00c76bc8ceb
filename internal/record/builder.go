// Package record builds the ERP-shaped export record for one order. The
// segment layout and literal codes follow the ORDERS05 IDoc variant consumed
// by the receiving SAP system.
package record

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mct-integration/orderbridge/internal/config"
	"github.com/mct-integration/orderbridge/internal/idoc"
	"github.com/mct-integration/orderbridge/internal/mapping"
	"github.com/mct-integration/orderbridge/internal/platform"
)

const (
	dateLayout         = "20060102"
	externalIDWidth    = 18
	taxTextPrefix      = "Ihre UST-ID. Nr.: "
	shippingCostsLabel = "Versandkosten"
)

// Builder turns platform orders into export records.
type Builder struct {
	homeCountry      string
	freightProfileID int64
	shippingLeadDays int
}

// NewBuilder constructs a Builder from the export configuration.
func NewBuilder(cfg config.Config) *Builder {
	return &Builder{
		homeCountry:      cfg.Export.HomeCountry,
		freightProfileID: cfg.Export.FreightProfileID,
		shippingLeadDays: cfg.Export.ShippingLeadDays,
	}
}

// Build constructs the nested export record for one order. A returned
// *ValidationFault means the order is rejected for good; the caller decides
// whether to flag it in the host system.
func (b *Builder) Build(order *platform.Order) (*idoc.Node, error) {
	entry, ok := order.DateOfType(platform.DateTypeOrderEntry)
	if !ok {
		return nil, &ValidationFault{OrderID: order.ID, Reason: FaultMissingEntryDate}
	}
	entryDate := entry.Format(dateLayout)
	shippingToDate := entry.AddDate(0, 0, b.shippingLeadDays).Format(dateLayout)

	partner := mapping.Partner(order.ReferrerID)
	taxID := b.taxID(order, partner)

	deliveryPostal, ok := normalizePostalCode(order.DeliveryAddress.CountryISO, order.DeliveryAddress.PostalCode)
	if !ok {
		return nil, postalFault(order, RoleDelivery, order.DeliveryAddress)
	}
	billingPostal, ok := normalizePostalCode(order.BillingAddress.CountryISO, order.BillingAddress.PostalCode)
	if !ok {
		return nil, postalFault(order, RoleBilling, order.BillingAddress)
	}

	deliveryName1, deliveryName2, ok := composeNameLines(order.DeliveryAddress)
	if !ok {
		return nil, namesFault(order, RoleDelivery, order.DeliveryAddress)
	}
	if b.isFreightOrder(order) {
		deliveryName2 += " " + order.DeliveryAddress.Phone
	}
	billingName1, billingName2, ok := composeNameLines(order.BillingAddress)
	if !ok {
		return nil, namesFault(order, RoleBilling, order.BillingAddress)
	}

	record := idoc.Section()

	record.Set("EDI_DC40", idoc.Section().
		SetString("IDOCTYP", "ORDERS05").
		SetString("MESTYP", "ORDERS").
		SetString("MESCOD", "AFT").
		SetString("SNDPOR", "BIZP_TRFC").
		SetString("SNDPRT", "KU").
		SetString("SNDPRN", mapping.PartnerPadded(order.ReferrerID)).
		SetString("RCVPOR", "SAPPW1"))

	record.Set("E2EDK01005", idoc.Section().
		SetString("CURCY", order.Currency).
		SetString("KUNDEUINR", taxID).
		SetString("AUGRU", mapping.ShippingMethod(order.ShippingProfileID)).
		SetString("LIFSK", "Y1"))

	record.Set("E2EDK14", idoc.Group(
		orgUnit("006", "00"),
		orgUnit("007", mapping.Qualifier007(order.ReferrerID)),
		orgUnit("008", "1200"),
		orgUnit("010", "AFT"),
		orgUnit("012", mapping.Qualifier012(order.ReferrerID)),
		orgUnit("013", "EDI"),
		orgUnit("016", "1200"),
	))

	record.Set("E2EDK03", idoc.Group(
		datedEntry("105", entryDate),
		datedEntry("106", shippingToDate),
		datedEntry("012", entryDate),
	))

	if costs := shippingCosts(order); !costs.IsZero() {
		record.Set("E2EDK05001", idoc.Section().
			SetString("KSCHL", "YF10").
			SetString("KOTXT", shippingCostsLabel).
			SetString("BETRG", costs.String()))
	}

	record.Set("E2EDKA1003GRP", idoc.Group(
		partnerBlock(idoc.Section().
			SetString("PARVW", "AG").
			SetString("PARTN", partner)),
		partnerBlock(idoc.Section().
			SetString("PARVW", "WE").
			SetString("PARTN", partner).
			SetString("NAME1", truncate(deliveryName1)).
			SetString("NAME2", truncate(deliveryName2)).
			SetString("STRAS", streetLine(order.DeliveryAddress)).
			SetString("ORT01", truncate(order.DeliveryAddress.Town)).
			SetString("PSTLZ", deliveryPostal).
			SetString("LAND1", order.DeliveryAddress.CountryISO).
			SetString("TELF1", order.DeliveryAddress.Phone)),
		partnerBlock(idoc.Section().
			SetString("PARVW", "RG").
			SetString("PARTN", partner)),
		partnerBlock(idoc.Section().
			SetString("PARVW", "RE").
			SetString("PARTN", partner).
			SetString("NAME1", truncate(billingName1)).
			SetString("NAME2", truncate(billingName2)).
			SetString("STRAS", streetLine(order.BillingAddress)).
			SetString("ORT01", truncate(order.BillingAddress.Town)).
			SetString("PSTLZ", billingPostal).
			SetString("LAND1", order.BillingAddress.CountryISO).
			SetString("TELF1", "")),
	))

	external := order.ExternalOrderID()
	record.Set("E2EDK02", idoc.Group(
		docReference("001", external, entryDate),
		docReference("017", clipExternalID(b.strippedExternalID(order, external)), entryDate),
		docReference("011", strconv.FormatInt(order.ID, 10), entryDate),
	))

	record.Set("E2EDKT1002GRP", taxTextBlock(taxID))

	if items := b.lineItems(order, partner); items.Len() > 0 {
		record.Set("E2EDP01011GRP", items)
	}

	return record, nil
}

// taxID exposes the buyer's VAT id only for business-buyer marketplaces
// delivering outside the home country.
func (b *Builder) taxID(order *platform.Order, partner string) string {
	if !mapping.IsBusinessBuyer(partner) {
		return ""
	}
	if strings.EqualFold(order.DeliveryAddress.CountryISO, b.homeCountry) {
		return ""
	}
	return order.BillingAddress.TaxIDNumber
}

// strippedExternalID removes the marketplace prefix from Amazon order numbers.
func (b *Builder) strippedExternalID(order *platform.Order, external string) string {
	if !mapping.IsAmazonReferrer(order.ReferrerName) {
		return external
	}
	if i := strings.Index(external, "-"); i >= 0 {
		return external[i+1:]
	}
	return external
}

// isFreightOrder reports whether the order or any line uses the parcel
// freight shipping profile; those deliveries need the phone number on the
// address label.
func (b *Builder) isFreightOrder(order *platform.Order) bool {
	if b.freightProfileID <= 0 {
		return false
	}
	if order.ShippingProfileID == b.freightProfileID {
		return true
	}
	for _, item := range order.Items {
		if item.ShippingProfileID == b.freightProfileID {
			return true
		}
	}
	return false
}

// lineItems renders the repeated item group. Position counters run 10, 20, …
// over qualifying items only.
func (b *Builder) lineItems(order *platform.Order, partner string) *idoc.Node {
	useNet := mapping.UseNetPrice(partner, order.DeliveryAddress.CountryISO, b.homeCountry, order.BillingAddress.TaxIDNumber)

	items := idoc.Group()
	position := 10
	for _, item := range order.Items {
		if item.TypeID != platform.ItemTypeVariation && item.TypeID != platform.ItemTypePromotionalCoupon {
			continue
		}

		line := idoc.Section().
			SetString("POSEX", strconv.Itoa(position)).
			SetString("MENGE", formatQuantity(item.Quantity))
		if useNet {
			line.SetString("VPREI", item.NetPrice.String())
		} else {
			line.SetString("PREIS", item.GrossPrice.String())
		}

		detail := idoc.Section().SetString("QUALF", "002")
		if item.TypeID == platform.ItemTypeVariation {
			detail.SetString("IDTNR", item.VariationNumber)
		}

		items.Append(idoc.Section().
			Set("E2EDP01011", line).
			Set("E2EDP19003", detail))
		position += 10
	}
	return items
}

func shippingCosts(order *platform.Order) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range order.Items {
		if item.TypeID == platform.ItemTypeShippingCosts {
			sum = sum.Add(item.GrossPrice.Mul(decimal.NewFromFloat(item.Quantity)))
		}
	}
	return sum
}

func taxTextBlock(taxID string) *idoc.Node {
	if taxID == "" {
		return idoc.Group(idoc.Section().
			Set("E2EDKT1002", idoc.Section().
				SetString("TSSPRAS", "").
				SetString("TSSPRAS_ISO", "")).
			Set("E2EDKT2001", idoc.Section().
				SetString("TDLINE", "")))
	}
	return idoc.Group(idoc.Section().
		Set("E2EDKT1002", idoc.Section().
			SetString("TDID", "FIS1").
			SetString("TSSPRAS", "D").
			SetString("TSSPRAS_ISO", "DE")).
		Set("E2EDKT2001", idoc.Section().
			SetString("TDLINE", taxTextPrefix+taxID)))
}

func orgUnit(qualf, orgID string) *idoc.Node {
	return idoc.Section().SetString("QUALF", qualf).SetString("ORGID", orgID)
}

func datedEntry(iddat, datum string) *idoc.Node {
	return idoc.Section().SetString("IDDAT", iddat).SetString("DATUM", datum)
}

func docReference(qualf, belnr, datum string) *idoc.Node {
	return idoc.Section().
		SetString("QUALF", qualf).
		SetString("BELNR", belnr).
		SetString("DATUM", datum)
}

func partnerBlock(fields *idoc.Node) *idoc.Node {
	return idoc.Section().Set("E2EDKA1003", fields)
}

func clipExternalID(v string) string {
	if runes := []rune(v); len(runes) > externalIDWidth {
		return string(runes[:externalIDWidth])
	}
	return v
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func postalFault(order *platform.Order, role AddressRole, a platform.Address) *ValidationFault {
	return &ValidationFault{
		OrderID: order.ID,
		Reason:  FaultPostalCode,
		Role:    role,
		Raw: map[string]string{
			"postalCode": a.PostalCode,
			"country":    a.CountryISO,
		},
	}
}

func namesFault(order *platform.Order, role AddressRole, a platform.Address) *ValidationFault {
	return &ValidationFault{
		OrderID: order.ID,
		Reason:  FaultEmptyNames,
		Role:    role,
		Raw: map[string]string{
			"name1": a.Name1,
			"name2": a.Name2,
			"name3": a.Name3,
			"name4": a.Name4,
		},
	}
}
