package source

import (
	"fmt"
	"strconv"
	"strings"
)

// spanishMonths maps lower-cased Spanish month names to their number.
var spanishMonths = map[string]int{
	"enero": 1, "febrero": 2, "marzo": 3, "abril": 4,
	"mayo": 5, "junio": 6, "julio": 7, "agosto": 8,
	"septiembre": 9, "setiembre": 9, "octubre": 10,
	"noviembre": 11, "diciembre": 12,
}

// ParseLocaleDate converts a Spanish long-form date such as
// "15 de julio de 2025" into ISO form ("2025-07-15"). Unparseable input
// returns the empty string; the normalizer rejects candidates built from it.
func ParseLocaleDate(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	// Expected shape: day "de" month [de year], with "de" tokens optional.
	var parts []string
	for _, f := range fields {
		if f == "de" || f == "del" {
			continue
		}
		parts = append(parts, strings.Trim(f, ",."))
	}
	if len(parts) != 3 {
		return ""
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return ""
	}
	month, ok := spanishMonths[parts[1]]
	if !ok {
		return ""
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil || year < 1000 || year > 9999 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
