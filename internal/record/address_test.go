package record

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mct-integration/orderbridge/internal/platform"
)

func TestNormalizePostalCode(t *testing.T) {
	t.Run("valid SK code passes through", func(t *testing.T) {
		code, ok := normalizePostalCode("SK", "811 09")
		assert.True(t, ok)
		assert.Equal(t, "811 09", code)
	})

	t.Run("missing space is repaired", func(t *testing.T) {
		code, ok := normalizePostalCode("SK", "81109")
		assert.True(t, ok)
		assert.Equal(t, "811 09", code)
	})

	t.Run("dash and underscore separators are repaired", func(t *testing.T) {
		code, ok := normalizePostalCode("SK", "811-09")
		assert.True(t, ok)
		assert.Equal(t, "811 09", code)

		code, ok = normalizePostalCode("sk", "811_09")
		assert.True(t, ok)
		assert.Equal(t, "811 09", code)
	})

	t.Run("unrepairable code is rejected", func(t *testing.T) {
		_, ok := normalizePostalCode("SK", "8XY 09")
		assert.False(t, ok)

		_, ok = normalizePostalCode("SK", "8110")
		assert.False(t, ok)
	})

	t.Run("other countries are not validated", func(t *testing.T) {
		code, ok := normalizePostalCode("DE", "8XY 09")
		assert.True(t, ok)
		assert.Equal(t, "8XY 09", code)
	})
}

func TestComposeNameLines(t *testing.T) {
	t.Run("name1 alone becomes line 1", func(t *testing.T) {
		line1, line2, ok := composeNameLines(platform.Address{Name1: "ACME GmbH"})
		assert.True(t, ok)
		assert.Equal(t, "ACME GmbH", line1)
		assert.Empty(t, line2)
	})

	t.Run("long name1 splits at 35 characters", func(t *testing.T) {
		line1, line2, ok := composeNameLines(platform.Address{Name1: strings.Repeat("A", 40)})
		assert.True(t, ok)
		assert.Equal(t, strings.Repeat("A", 35), line1)
		assert.Equal(t, strings.Repeat("A", 5), line2)
	})

	t.Run("name2 and name3 form line 1 with name1 reserved", func(t *testing.T) {
		line1, line2, ok := composeNameLines(platform.Address{
			Name1: "ACME GmbH",
			Name2: "Max",
			Name3: "Mustermann",
		})
		assert.True(t, ok)
		assert.Equal(t, "Max Mustermann", line1)
		assert.Equal(t, "ACME GmbH", line2)
	})

	t.Run("overflow is prepended to a populated line 2", func(t *testing.T) {
		line1, line2, ok := composeNameLines(platform.Address{
			Name1: "ACME GmbH",
			Name2: strings.Repeat("B", 30),
			Name3: "Mustermann",
		})
		assert.True(t, ok)
		assert.Len(t, line1, 35)
		assert.Equal(t, strings.Repeat("B", 30)+" Must", line1)
		assert.Equal(t, "ermann ACME GmbH", line2)
	})

	t.Run("empty name1 with names 2 and 3 set", func(t *testing.T) {
		line1, line2, ok := composeNameLines(platform.Address{Name2: "Max", Name3: "Mustermann"})
		assert.True(t, ok)
		assert.Equal(t, "Max Mustermann", line1)
		assert.Empty(t, line2)
	})

	t.Run("all names empty is a fault", func(t *testing.T) {
		_, _, ok := composeNameLines(platform.Address{Name4: "c/o reception"})
		assert.False(t, ok)
	})
}

func TestStreetLine(t *testing.T) {
	assert.Equal(t, "Hauptstr. 1 Hinterhof",
		streetLine(platform.Address{Address1: "Hauptstr. 1", Address2: "Hinterhof"}))

	long := streetLine(platform.Address{Address1: strings.Repeat("x", 40)})
	assert.Len(t, long, 35)
}
