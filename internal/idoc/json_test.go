package idoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *Node {
	return Section().
		Set("EDI_DC40", Section().
			SetString("IDOCTYP", "ORDERS05").
			SetString("MESTYP", "ORDERS")).
		Set("E2EDK14", Group(
			Section().SetString("QUALF", "006").SetString("ORGID", "00"),
			Section().SetString("QUALF", "007").SetString("ORGID", "21"),
		)).
		SetString("EMPTY", "")
}

func TestJSONRoundTripPreservesKeyOrder(t *testing.T) {
	record := sampleRecord()

	first, err := json.Marshal(record)
	require.NoError(t, err)

	decoded, err := Decode(first)
	require.NoError(t, err)

	second, err := json.Marshal(decoded)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, []string{"EDI_DC40", "E2EDK14", "EMPTY"}, decoded.Keys())
	assert.Equal(t, "ORDERS05", decoded.Child("EDI_DC40").Child("IDOCTYP").Value())
	assert.Equal(t, 2, decoded.Child("E2EDK14").Len())
}

func TestDecodeFoldsNumbersIntoStrings(t *testing.T) {
	node, err := Decode([]byte(`{"POSEX":10,"MENGE":1.5,"BELNR":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, "10", node.Child("POSEX").Value())
	assert.Equal(t, "1.5", node.Child("MENGE").Value())
	assert.Equal(t, "x", node.Child("BELNR").Value())
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode([]byte(`{"a":"b"} {"c":"d"}`))
	assert.Error(t, err)
}

func TestUnmarshalJSON(t *testing.T) {
	var node Node
	require.NoError(t, json.Unmarshal([]byte(`{"a":["x","y"],"b":""}`), &node))

	assert.Equal(t, KindGroup, node.Child("a").Kind())
	assert.Equal(t, 2, node.Child("a").Len())
	assert.Equal(t, "", node.Child("b").Value())
}
