package idoc

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&quot;&apos;", Escape(`&<>"'`))

	t.Run("ampersand first avoids double escaping of the payload", func(t *testing.T) {
		assert.Equal(t, "M&amp;M&apos;s &lt;GmbH&gt;", Escape(`M&M's <GmbH>`))
	})

	t.Run("existing entities are escaped literally", func(t *testing.T) {
		assert.Equal(t, "&amp;amp;", Escape("&amp;"))
	})
}

func TestSerializeScalarsAndEmpties(t *testing.T) {
	record := Section().
		SetString("CURCY", "EUR").
		SetString("KUNDEUINR", "").
		Set("EMPTYSEC", Section()).
		Set("EMPTYGRP", Group())

	out := Serialize(record)

	assert.True(t, strings.HasPrefix(out, Declaration))
	assert.Contains(t, out, "<CURCY>EUR</CURCY>\n")
	assert.Contains(t, out, "<KUNDEUINR />\n")
	assert.Contains(t, out, "<EMPTYSEC />\n")
	assert.Contains(t, out, "<EMPTYGRP />\n")
}

func TestSerializeNamespaces(t *testing.T) {
	record := Section().
		Set("EDI_DC40", Section().SetString("IDOCTYP", "ORDERS05"))

	out := Serialize(record)

	assert.Contains(t, out, `<Send xmlns:xsd="http://www.w3.org/2001/XMLSchema"`)
	assert.Contains(t, out, "<idocData>\n")
	assert.Contains(t, out, `<EDI_DC40 xmlns="http://Microsoft.LobServices.Sap/2007/03/Types/Idoc/3/ORDERS05//750">`)
	assert.Contains(t, out, `<IDOCTYP xmlns="http://Microsoft.LobServices.Sap/2007/03/Types/Idoc/Common/">ORDERS05</IDOCTYP>`)
}

func TestSerializeRepeatedGroupClosesAndReopensParent(t *testing.T) {
	record := Section().Set("E2EDK14", Group(
		Section().SetString("QUALF", "006").SetString("ORGID", "00"),
		Section().SetString("QUALF", "007").SetString("ORGID", "21"),
	))

	out := Envelope(record)

	opening := `<E2EDK14 xmlns="http://Microsoft.LobServices.Sap/2007/03/Types/Idoc/3/ORDERS05//750">`
	assert.Equal(t, 2, strings.Count(out, opening))
	assert.Equal(t, 2, strings.Count(out, "</E2EDK14>"))

	// sibling boundary: close immediately followed by reopen
	assert.Contains(t, out, "</E2EDK14>\n"+opening+"\n")
}

func collectLeafText(t *testing.T, doc string) map[string]string {
	t.Helper()
	values := map[string]string{}
	dec := xml.NewDecoder(strings.NewReader(doc))
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			current = tk.Name.Local
		case xml.CharData:
			text := string(tk)
			if strings.TrimSpace(text) != "" && current != "" {
				values[current] = text
			}
		case xml.EndElement:
			current = ""
		}
	}
	return values
}

func TestSerializeRoundTripRecoversLiteralValues(t *testing.T) {
	record := Section().
		Set("EDI_DC40", Section().
			SetString("IDOCTYP", "ORDERS05").
			SetString("SNDPRN", "0005028259")).
		Set("E2EDK05001", Section().
			SetString("KSCHL", "YF10").
			SetString("KOTXT", `Versand & Co <express> "prio" 'x'`).
			SetString("BETRG", "5.9"))

	values := collectLeafText(t, Serialize(record))

	assert.Equal(t, "ORDERS05", values["IDOCTYP"])
	assert.Equal(t, "0005028259", values["SNDPRN"])
	assert.Equal(t, `Versand & Co <express> "prio" 'x'`, values["KOTXT"])
	assert.Equal(t, "5.9", values["BETRG"])
}

func TestSerializeIsDeterministic(t *testing.T) {
	build := func() *Node {
		return Section().
			SetString("A", "1").
			SetString("B", "2").
			Set("G", Group(Section().SetString("X", "y")))
	}
	require.Equal(t, Serialize(build()), Serialize(build()))
}
