// Package pricing computes order totals from the catalogue.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"pressing_chatbot_backend/internal/catalog"
	"pressing_chatbot_backend/platform/apperr"
)

// Quote is the result of pricing one order line. All amounts are integer FCFA.
type Quote struct {
	Item                catalog.Item
	Variant             string
	Quantity            int
	UnitPrice           int
	TotalBeforeDiscount int
	DiscountAmount      int
	Total               int
	Breakdown           string
}

// roundHalfUp rounds to the nearest integer, halves away from zero.
func roundHalfUp(v float64) int {
	return int(math.Round(v))
}

// ComputePrice prices quantity units of the referenced article at the given
// variant, applying an optional promotion percentage. It is a pure function
// over the supplied catalogue: identical inputs always yield identical quotes.
//
// Errors: ItemNotFound for an unknown reference, InvalidVariant for an unknown
// variant code, PriceUnavailable when the catalogue row has no usable price for
// the variant, and validation errors for a non-positive quantity or a discount
// outside [0,100].
func ComputePrice(items []catalog.Item, itemRef, variantCode string, quantity int, discountPercent float64) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, apperr.Validation("la quantité doit être supérieure à zéro").WithOp("pricing.ComputePrice")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return Quote{}, apperr.Validation("remise invalide (0 à 100)").WithOp("pricing.ComputePrice")
	}

	variant := strings.ToUpper(strings.TrimSpace(variantCode))
	if !catalog.IsKnownVariant(variant) {
		return Quote{}, apperr.Validation("type de tarif invalide (NE/NS/REP/AM)").WithOp("pricing.ComputePrice")
	}

	item, err := catalog.FindItem(items, itemRef)
	if err != nil {
		return Quote{}, err
	}

	unit, ok := item.Prices[variant]
	if !ok || unit <= 0 {
		return Quote{}, apperr.Validation("tarif non disponible pour cet article").WithOp("pricing.ComputePrice")
	}

	totalBefore := unit * quantity
	discount := roundHalfUp(discountPercent * float64(totalBefore) / 100)
	total := totalBefore - discount

	breakdown := fmt.Sprintf(
		"%d x %s (%s) -> %d FCFA chacun. Sous-total: %d FCFA. Remise: %d FCFA. Total: %d FCFA.",
		quantity, item.Designation, variant, unit, totalBefore, discount, total,
	)

	return Quote{
		Item:                item,
		Variant:             variant,
		Quantity:            quantity,
		UnitPrice:           unit,
		TotalBeforeDiscount: totalBefore,
		DiscountAmount:      discount,
		Total:               total,
		Breakdown:           breakdown,
	}, nil
}
