package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartner(t *testing.T) {
	t.Run("maps known referrers", func(t *testing.T) {
		assert.Equal(t, "5028259", Partner("102.01"))
		assert.Equal(t, "5024143", Partner("4.01"))
		assert.Equal(t, "5024143", Partner("4.06"))
		assert.Equal(t, "5014263", Partner("171.00"))
	})

	t.Run("falls back to the unmapped sentinel", func(t *testing.T) {
		assert.Equal(t, UnmappedPartner, Partner("999.99"))
		assert.Equal(t, UnmappedPartner, Partner(""))
	})
}

func TestPartnerPadded(t *testing.T) {
	assert.Equal(t, "0005028259", PartnerPadded("102.01"))
	assert.Equal(t, "0001234567", PartnerPadded("no-such-referrer"))
}

func TestShippingMethod(t *testing.T) {
	assert.Equal(t, "PRI", ShippingMethod(10))
	assert.Equal(t, "FBA", ShippingMethod(11))
	assert.Equal(t, "5", ShippingMethod(14))
	assert.Equal(t, DefaultShippingMethod, ShippingMethod(42))
}

func TestQualifiers(t *testing.T) {
	assert.Equal(t, "50", Qualifier007("9.00"))
	assert.Equal(t, DefaultQualifier007, Qualifier007("102.01"))
	assert.Equal(t, DefaultQualifier012, Qualifier012("9.00"))
}

func TestUseNetPrice(t *testing.T) {
	t.Run("all conditions met", func(t *testing.T) {
		assert.True(t, UseNetPrice("5024143", "AT", "DE", "ATU12345678"))
	})

	t.Run("home country delivery keeps gross", func(t *testing.T) {
		assert.False(t, UseNetPrice("5024143", "DE", "DE", "ATU12345678"))
		assert.False(t, UseNetPrice("5024143", "de", "DE", "ATU12345678"))
	})

	t.Run("missing tax id keeps gross", func(t *testing.T) {
		assert.False(t, UseNetPrice("5024143", "AT", "DE", ""))
	})

	t.Run("non business-buyer partner keeps gross", func(t *testing.T) {
		assert.False(t, UseNetPrice("5028259", "AT", "DE", "ATU12345678"))
	})
}

func TestIsAmazonReferrer(t *testing.T) {
	assert.True(t, IsAmazonReferrer("Amazon FBA Germany"))
	assert.False(t, IsAmazonReferrer("eBay"))
	assert.False(t, IsAmazonReferrer("Amazonia"))
}
