// Package mapping converts platform codes into the partner, shipping and
// qualifier codes expected by the downstream ERP. All lookups are total
// functions with fixed fallback defaults.
package mapping

import "strings"

// Fallback codes for unmapped inputs.
const (
	UnmappedPartner       = "1234567"
	DefaultShippingMethod = "AMP"
	DefaultQualifier007   = "21"
	DefaultQualifier012   = "TA"
	partnerPaddedWidth    = 10
	amazonReferrerPrefix  = "Amazon "
)

// marketplacePartners maps platform referrer ids to ERP partner ids.
var marketplacePartners = map[string]string{
	"102.01": "5028259",
	"160.10": "5028143",
	"2.08":   "1999971",
	"4.01":   "5024143",
	"4.06":   "5024143",
	"9.00":   "5029170",
	"154.00": "5014263",
	"171.00": "5014263",
}

// shippingMethods maps platform shipping profile ids to ERP shipping codes.
var shippingMethods = map[int64]string{
	10: "PRI",
	11: "FBA",
	12: "ASF",
	14: "5",
}

var qualifier007 = map[string]string{
	"9.00": "50",
}

var qualifier012 = map[string]string{}

// businessBuyerPartners are the partner ids for which B2B net pricing and
// tax-id propagation apply.
var businessBuyerPartners = map[string]struct{}{
	"5024143": {},
	"5028223": {},
	"5029208": {},
	"5029209": {},
	"5030019": {},
}

// Partner resolves the ERP partner id for a referrer.
func Partner(referrerID string) string {
	if v, ok := marketplacePartners[referrerID]; ok {
		return v
	}
	return UnmappedPartner
}

// PartnerPadded resolves the partner id left-padded with zeros to width 10,
// as required by the IDoc control record.
func PartnerPadded(referrerID string) string {
	v := Partner(referrerID)
	if len(v) >= partnerPaddedWidth {
		return v
	}
	return strings.Repeat("0", partnerPaddedWidth-len(v)) + v
}

// ShippingMethod resolves the ERP shipping code for a shipping profile.
func ShippingMethod(profileID int64) string {
	if v, ok := shippingMethods[profileID]; ok {
		return v
	}
	return DefaultShippingMethod
}

// Qualifier007 resolves the ORGID for qualifier 007.
func Qualifier007(referrerID string) string {
	if v, ok := qualifier007[referrerID]; ok {
		return v
	}
	return DefaultQualifier007
}

// Qualifier012 resolves the ORGID for qualifier 012.
func Qualifier012(referrerID string) string {
	if v, ok := qualifier012[referrerID]; ok {
		return v
	}
	return DefaultQualifier012
}

// IsBusinessBuyer reports whether the partner belongs to the business-buyer set.
func IsBusinessBuyer(partner string) bool {
	_, ok := businessBuyerPartners[partner]
	return ok
}

// UseNetPrice reports whether line items must carry net instead of gross
// prices: business-buyer partner, delivery outside the home country, and a
// tax id present on the billing address.
func UseNetPrice(partner, deliveryCountry, homeCountry, taxID string) bool {
	return IsBusinessBuyer(partner) &&
		!strings.EqualFold(deliveryCountry, homeCountry) &&
		taxID != ""
}

// IsAmazonReferrer reports whether a referrer name denotes an Amazon channel.
// Amazon order numbers carry a prefix that is stripped before export.
func IsAmazonReferrer(referrerName string) bool {
	return strings.HasPrefix(referrerName, amazonReferrerPrefix)
}
