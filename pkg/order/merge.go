package order

// Resolve applies the catalog fallback rule to a selection's options.
// For every category the item declares, a label matching a declared option is
// kept; anything else falls back to the first declared option. Undeclared
// categories are omitted. The second return value is the sum of price deltas.
func Resolve(def ItemDefinition, requested Choices) (Choices, Price) {
	resolved := Choices{}
	var delta Price

	for _, cat := range Categories {
		opts := def.Options[cat]
		if len(opts) == 0 {
			continue
		}
		chosen := opts[0]
		if label, ok := requested[cat]; ok {
			for _, opt := range opts {
				if opt.Label == label {
					chosen = opt
					break
				}
			}
		}
		resolved[cat] = chosen.Label
		delta += chosen.PriceDelta
	}

	return resolved, delta
}

// Merge folds selections into an existing cart and returns the updated cart.
//
// Selections whose name is not in the catalog are dropped. A selection whose
// identity key matches an existing line, or a line created earlier in the same
// batch, adds its quantity to that line; otherwise a new line is appended.
// Existing lines keep their order and unit price. The input slice is not
// modified, and the result depends only on the inputs.
func Merge(existing []CartLine, selections []ItemSelection, catalog Catalog) []CartLine {
	cart := make([]CartLine, len(existing), len(existing)+len(selections))
	index := make(map[string]int, len(existing)+len(selections))
	for i, line := range existing {
		line.Options = line.Options.Clone()
		cart[i] = line
		index[line.IdentityKey] = i
	}

	for _, sel := range selections {
		def, ok := catalog.FindItem(sel.Name)
		if !ok {
			continue
		}
		qty := sel.Quantity
		if qty <= 0 {
			qty = 1
		}

		options, delta := Resolve(def, sel.Options)
		key := IdentityKey(def.Name, options)

		if i, ok := index[key]; ok {
			cart[i].Quantity += qty
			continue
		}

		index[key] = len(cart)
		cart = append(cart, CartLine{
			IdentityKey: key,
			Name:        def.Name,
			Options:     options,
			Quantity:    qty,
			UnitPrice:   def.BasePrice + delta,
		})
	}

	return cart
}

// Remove returns the cart without the line identified by key.
func Remove(cart []CartLine, key string) ([]CartLine, bool) {
	out := make([]CartLine, 0, len(cart))
	found := false
	for _, line := range cart {
		if line.IdentityKey == key {
			found = true
			continue
		}
		out = append(out, line)
	}
	return out, found
}

// MapCatalog is an in-memory Catalog keyed by item name.
type MapCatalog map[string]ItemDefinition

// FindItem implements Catalog.
func (m MapCatalog) FindItem(name string) (ItemDefinition, bool) {
	def, ok := m[name]
	return def, ok
}

// NewMapCatalog indexes items by name. Later duplicates win.
func NewMapCatalog(items ...ItemDefinition) MapCatalog {
	m := make(MapCatalog, len(items))
	for _, item := range items {
		m[item.Name] = item
	}
	return m
}
