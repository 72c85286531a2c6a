package order

import (
	"fmt"
)

// Category names an option dimension of a menu item.
type Category string

const (
	CategoryCup         Category = "cup"
	CategorySugar       Category = "sugar"
	CategoryTemperature Category = "temperature"
)

// Categories is the fixed, predeclared category order used for identity keys.
var Categories = []Category{CategoryCup, CategorySugar, CategoryTemperature}

// IsKnownCategory reports whether c is one of Categories.
func IsKnownCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Choices maps an option category to the chosen option label.
// A missing key means no selection was made in that category.
type Choices map[Category]string

// Clone returns a copy of the choices.
func (c Choices) Clone() Choices {
	if c == nil {
		return nil
	}
	out := make(Choices, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Price is an amount in the smallest currency unit (e.g. fen or cents).
type Price int64

// String formats the price with two decimals.
func (p Price) String() string {
	sign := ""
	if p < 0 {
		sign = "-"
		p = -p
	}
	return fmt.Sprintf("%s%d.%02d", sign, p/100, p%100)
}

// ItemSelection is one validated extraction from the language model,
// prior to catalog resolution.
type ItemSelection struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Options  Choices `json:"options,omitempty"`
}

// CartLine is a catalog-resolved, priced, quantity-bearing cart entry.
type CartLine struct {
	// IdentityKey is derived from Name and Options via IdentityKey.
	IdentityKey string `json:"identity_key"`

	Name     string  `json:"name"`
	Options  Choices `json:"options,omitempty"`
	Quantity int     `json:"quantity"`

	// UnitPrice is fixed when the line is created.
	UnitPrice Price `json:"unit_price"`
}

// Subtotal returns UnitPrice × Quantity.
func (l CartLine) Subtotal() Price {
	return l.UnitPrice * Price(l.Quantity)
}

// Total sums the subtotals of all lines.
func Total(lines []CartLine) Price {
	var total Price
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

// Option is one choosable value within a category.
type Option struct {
	Label      string `json:"label" yaml:"label"`
	PriceDelta Price  `json:"price_delta" yaml:"price_delta"`
}

// ItemDefinition is a catalog entry.
// Options lists, per category, the choosable options in declaration order.
type ItemDefinition struct {
	Name      string                `json:"name" yaml:"name"`
	BasePrice Price                 `json:"base_price" yaml:"base_price"`
	Options   map[Category][]Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// Catalog is the read-only menu lookup.
type Catalog interface {
	// FindItem returns the item with exactly this name.
	FindItem(name string) (ItemDefinition, bool)
}
