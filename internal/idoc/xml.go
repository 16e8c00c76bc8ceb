package idoc

import "strings"

// Declaration precedes every rendered document.
const Declaration = `<?xml version="1.0" encoding="UTF-8" ?>` + "\n"

const (
	envelopeTag = "Send"
	payloadTag  = "idocData"

	nsEnvelope = `xmlns:xsd="http://www.w3.org/2001/XMLSchema" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns="http://Microsoft.LobServices.Sap/2007/03/Idoc/3/ORDERS05//750/Send"`
	nsSegment  = `xmlns="http://Microsoft.LobServices.Sap/2007/03/Types/Idoc/3/ORDERS05//750"`
	nsControl  = `xmlns="http://Microsoft.LobServices.Sap/2007/03/Types/Idoc/Common/"`
)

// tagNamespaces lists every tag that carries a namespace attribute on its
// opening element. Tags absent from the table render bare.
var tagNamespaces = map[string]string{
	envelopeTag: nsEnvelope,

	"EDI_DC40":      nsSegment,
	"E2EDK01005":    nsSegment,
	"E2EDK14":       nsSegment,
	"E2EDK02":       nsSegment,
	"E2EDK03":       nsSegment,
	"E2EDK05001":    nsSegment,
	"E2EDKT1002GRP": nsSegment,
	"E2EDKA1003GRP": nsSegment,
	"E2EDP01011GRP": nsSegment,

	"IDOCTYP": nsControl,
	"MESTYP":  nsControl,
	"MESCOD":  nsControl,
	"SNDPOR":  nsControl,
	"SNDPRT":  nsControl,
	"SNDPRN":  nsControl,
	"RCVPOR":  nsControl,
}

// Escape replaces XML special characters with entities, ampersand first so
// already-produced entities are not escaped twice.
func Escape(v string) string {
	v = strings.ReplaceAll(v, "&", "&amp;")
	v = strings.ReplaceAll(v, "<", "&lt;")
	v = strings.ReplaceAll(v, ">", "&gt;")
	v = strings.ReplaceAll(v, `"`, "&quot;")
	v = strings.ReplaceAll(v, "'", "&apos;")
	return v
}

func openTag(tag string) string {
	if ns, ok := tagNamespaces[tag]; ok {
		return "<" + tag + " " + ns + ">"
	}
	return "<" + tag + ">"
}

// Serialize renders a record wrapped in the Send/idocData envelope, preceded
// by the XML declaration.
func Serialize(record *Node) string {
	return Declaration + Envelope(record)
}

// Envelope renders the Send/idocData wrapper without the declaration, so a
// batched file can hold several records under a single declaration.
func Envelope(record *Node) string {
	root := Section().Set(envelopeTag, Section().Set(payloadTag, record))
	var b strings.Builder
	writeEntries(&b, root)
	return b.String()
}

// writeEntries renders each child of a section. Repeated groups close and
// reopen the parent tag between siblings; the receiving schema encodes lists
// as repeated sibling elements, not as a wrapping list element.
func writeEntries(b *strings.Builder, section *Node) {
	for _, tag := range section.Keys() {
		child := section.Child(tag)
		switch child.Kind() {
		case KindScalar:
			if child.Value() == "" {
				writeSelfClosing(b, tag)
				continue
			}
			b.WriteString(openTag(tag))
			b.WriteString(Escape(child.Value()))
			b.WriteString("</" + tag + ">\n")
		case KindSection:
			if child.Len() == 0 {
				writeSelfClosing(b, tag)
				continue
			}
			b.WriteString(openTag(tag))
			b.WriteString("\n")
			writeEntries(b, child)
			b.WriteString("</" + tag + ">\n")
		case KindGroup:
			if child.Len() == 0 {
				writeSelfClosing(b, tag)
				continue
			}
			b.WriteString(openTag(tag))
			b.WriteString("\n")
			items := child.Items()
			for i, item := range items {
				if item.Kind() == KindSection {
					writeEntries(b, item)
				} else {
					b.WriteString(Escape(item.Value()))
					b.WriteString("\n")
				}
				if i < len(items)-1 {
					b.WriteString("</" + tag + ">\n")
					b.WriteString(openTag(tag))
					b.WriteString("\n")
				}
			}
			b.WriteString("</" + tag + ">\n")
		}
	}
}

func writeSelfClosing(b *strings.Builder, tag string) {
	b.WriteString("<" + tag + " />\n")
}
