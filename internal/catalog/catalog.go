// Package catalog provides read access to the pressing price list.
package catalog

import (
	"encoding/json"
	"strconv"
	"strings"

	"pressing_chatbot_backend/platform/apperr"
)

// Variant codes are the price columns of the catalogue.
const (
	VariantNormalExpress  = "NE"  // nettoyage express
	VariantNormalStandard = "NS"  // nettoyage standard
	VariantRepassage      = "REP" // repassage
	VariantAmidonnage     = "AM"  // amidonnage
)

// KnownVariants lists the variant codes a catalogue row may carry.
var KnownVariants = []string{VariantNormalExpress, VariantNormalStandard, VariantRepassage, VariantAmidonnage}

// IsKnownVariant reports whether code is a recognized price variant.
func IsKnownVariant(code string) bool {
	for _, v := range KnownVariants {
		if v == code {
			return true
		}
	}
	return false
}

// Item is one row of the price list. Prices are integer FCFA per unit,
// keyed by variant code; a missing or zero entry means the variant is
// not offered for that article.
type Item struct {
	ID          string
	Designation string
	Prices      map[string]int
}

// UnmarshalJSON accepts the sheet-export row shape used by the catalogue
// file: {"N": 3, "Désignation": "Chemise", "NE": 1000, ...}. The ID may be
// numeric or a string, and the designation key may appear with or without
// the accent.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	it.Prices = make(map[string]int)
	for key, value := range raw {
		switch key {
		case "N", "id":
			it.ID = decodeString(value)
		case "Désignation", "Designation", "designation":
			it.Designation = decodeString(value)
		default:
			code := strings.ToUpper(key)
			if IsKnownVariant(code) {
				if price, ok := decodeInt(value); ok {
					it.Prices[code] = price
				}
			}
		}
	}
	return nil
}

// MarshalJSON writes the canonical row shape back out.
func (it Item) MarshalJSON() ([]byte, error) {
	row := make(map[string]interface{}, len(it.Prices)+2)
	row["N"] = it.ID
	row["Désignation"] = it.Designation
	for code, price := range it.Prices {
		row[code] = price
	}
	return json.Marshal(row)
}

// FindItem matches ref against item IDs first (exact, as string), then
// against designations case-insensitively. Returns ErrItemNotFound when
// nothing matches.
func FindItem(items []Item, ref string) (Item, error) {
	normalized := strings.TrimSpace(ref)
	for _, it := range items {
		if it.ID == normalized {
			return it, nil
		}
	}
	for _, it := range items {
		if strings.EqualFold(it.Designation, normalized) {
			return it, nil
		}
	}
	return Item{}, apperr.NotFound("article introuvable dans le catalogue").WithOp("catalog.FindItem")
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func decodeInt(raw json.RawMessage) (int, bool) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		parsed, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
