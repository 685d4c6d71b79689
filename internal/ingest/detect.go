package ingest

import "strings"

// ColumnMapping names which raw column (by index) plays each semantic
// role. A suggestion from DetectColumns, never applied without caller
// confirmation.
type ColumnMapping struct {
	DateCol     int
	SKUCol      int
	QuantityCol int
}

var roleKeywords = map[string][]string{
	"date":     {"date", "time", "timestamp", "day", "period", "datetime"},
	"sku":      {"sku", "product", "item", "code", "article", "id"},
	"quantity": {"quantity", "qty", "count", "units", "sales", "demand", "sold", "volume"},
}

// DetectColumns picks the best candidate column for each semantic role
// using case-insensitive keyword matching. Exact-name matches win;
// otherwise substring matches; ties are broken by first occurrence.
// Header is assumed already normalized (trimmed + lowercased) by Load.
func DetectColumns(header []string) ColumnMapping {
	return ColumnMapping{
		DateCol:     bestMatch(header, roleKeywords["date"]),
		SKUCol:      bestMatch(header, roleKeywords["sku"]),
		QuantityCol: bestMatch(header, roleKeywords["quantity"]),
	}
}

func bestMatch(header []string, keywords []string) int {
	// Exact match wins, checked keyword-by-keyword so earlier keywords in
	// the bag (closer to canonical) are preferred among exact matches.
	for _, kw := range keywords {
		for i, h := range header {
			if h == kw {
				return i
			}
		}
	}
	// Otherwise the first column substring-matching any keyword.
	for i, h := range header {
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return -1
}
