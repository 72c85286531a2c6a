// Package order turns raw item selections into priced, deduplicated cart lines.
//
// A selection is what the language model heard: an item name, a quantity and
// zero or more option labels. Merge resolves each selection against a Catalog,
// fills missing options with the catalog's first declared option, derives a
// content identity key and folds the result into an existing cart so that
// repeated items accumulate quantity instead of adding rows.
//
// Example usage:
//
//	cart := order.Merge(nil, []order.ItemSelection{
//	    {Name: "拿铁", Quantity: 1, Options: order.Choices{order.CategoryCup: "大杯"}},
//	}, catalog)
//	fmt.Println(cart[0].UnitPrice) // base price + cup delta
package order
