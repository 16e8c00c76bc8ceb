package record

import (
	"regexp"
	"strings"

	"github.com/mct-integration/orderbridge/internal/platform"
)

// erpFieldWidth is the character limit of the ERP's name/street/town fields.
const erpFieldWidth = 35

// Slovak postal codes must read "DDD DD". Codes written without the space or
// with a dash/underscore separator are repaired; anything else is a fault.
var (
	postalValidSK      = regexp.MustCompile(`^\d{3} \d{2}$`)
	postalRepairPlain  = regexp.MustCompile(`^\d{5}$`)
	postalRepairSeprtd = regexp.MustCompile(`^\d{3}[-_]\d{2}$`)
)

// normalizePostalCode validates and, where possible, repairs the postal code
// for the address country. The second return is false when the code is
// malformed beyond repair.
func normalizePostalCode(countryISO, code string) (string, bool) {
	if !strings.EqualFold(countryISO, "SK") {
		return code, true
	}
	if postalValidSK.MatchString(code) {
		return code, true
	}
	if postalRepairPlain.MatchString(code) || postalRepairSeprtd.MatchString(code) {
		return code[:3] + " " + code[len(code)-2:], true
	}
	return "", false
}

// composeNameLines folds the platform's name1..name3 fields into the two
// 35-character ERP name lines. name1 alone maps to line 1; otherwise
// "name2 name3" becomes line 1 with name1 reserved on line 2. Overflow past
// 35 characters moves to the front of line 2. Returns ok=false when all name
// fields are empty.
func composeNameLines(a platform.Address) (line1, line2 string, ok bool) {
	switch {
	case a.Name1 != "" && a.Name2 == "" && a.Name3 == "":
		line1 = a.Name1
	case a.Name1 != "":
		line1 = a.Name2 + " " + a.Name3
		line2 = a.Name1
	case a.Name2 == "" && a.Name3 == "":
		return "", "", false
	default:
		line1 = a.Name2 + " " + a.Name3
	}

	if runes := []rune(line1); len(runes) > erpFieldWidth {
		overflow := string(runes[erpFieldWidth:])
		line1 = string(runes[:erpFieldWidth])
		if line2 != "" {
			line2 = overflow + " " + line2
		} else {
			line2 = overflow
		}
	}
	return line1, line2, true
}

// truncate clips a value to the ERP field width.
func truncate(v string) string {
	if runes := []rune(v); len(runes) > erpFieldWidth {
		return string(runes[:erpFieldWidth])
	}
	return v
}

// streetLine joins the two address lines into the single ERP street field.
func streetLine(a platform.Address) string {
	return truncate(a.Address1 + " " + a.Address2)
}
