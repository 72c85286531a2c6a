package order

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() MapCatalog {
	return NewMapCatalog(
		ItemDefinition{
			Name:      "拿铁",
			BasePrice: 1500,
			Options: map[Category][]Option{
				CategoryCup:         {{Label: "中杯"}, {Label: "大杯", PriceDelta: 300}},
				CategoryTemperature: {{Label: "热"}, {Label: "冰"}},
			},
		},
		ItemDefinition{
			Name:      "Latte",
			BasePrice: 1500,
			Options: map[Category][]Option{
				CategoryCup: {{Label: "Medium"}, {Label: "Large", PriceDelta: 300}},
			},
		},
		ItemDefinition{Name: "Croissant", BasePrice: 1200},
	)
}

func TestMergeAccumulatesQuantity(t *testing.T) {
	cat := testCatalog()
	sel := ItemSelection{Name: "Latte", Quantity: 1, Options: Choices{}}

	first := Merge(nil, []ItemSelection{sel}, cat)
	second := Merge(first, []ItemSelection{sel}, cat)

	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].Quantity)
	assert.Equal(t, first[0].IdentityKey, second[0].IdentityKey)
	assert.Equal(t, 1, first[0].Quantity, "input cart must not be mutated")
}

func TestMergeWithinBatch(t *testing.T) {
	cart := Merge(nil, []ItemSelection{
		{Name: "Latte", Quantity: 1},
		{Name: "Croissant", Quantity: 2},
		{Name: "Latte", Quantity: 3, Options: Choices{CategoryCup: "Medium"}},
	}, testCatalog())

	require.Len(t, cart, 2)
	assert.Equal(t, "Latte", cart[0].Name)
	assert.Equal(t, 4, cart[0].Quantity)
	assert.Equal(t, "Croissant", cart[1].Name)
}

func TestMergeDefaultFallback(t *testing.T) {
	t.Run("missing category uses first option", func(t *testing.T) {
		cart := Merge(nil, []ItemSelection{{Name: "Latte", Quantity: 1}}, testCatalog())
		require.Len(t, cart, 1)
		assert.Equal(t, "Medium", cart[0].Options[CategoryCup])
		assert.Equal(t, Price(1500), cart[0].UnitPrice)
	})

	t.Run("unknown label uses first option", func(t *testing.T) {
		cart := Merge(nil, []ItemSelection{{Name: "Latte", Quantity: 1, Options: Choices{CategoryCup: "Venti"}}}, testCatalog())
		require.Len(t, cart, 1)
		assert.Equal(t, "Medium", cart[0].Options[CategoryCup])
	})

	t.Run("undeclared category is omitted", func(t *testing.T) {
		cart := Merge(nil, []ItemSelection{{Name: "Latte", Quantity: 1, Options: Choices{CategorySugar: "Half"}}}, testCatalog())
		require.Len(t, cart, 1)
		_, ok := cart[0].Options[CategorySugar]
		assert.False(t, ok)
		assert.Equal(t, "Latte|Medium|-|-", cart[0].IdentityKey)
	})
}

func TestMergeEndToEndPricing(t *testing.T) {
	cart := Merge(nil, []ItemSelection{
		{Name: "拿铁", Quantity: 1, Options: Choices{CategoryCup: "大杯"}},
	}, testCatalog())

	require.Len(t, cart, 1)
	assert.Equal(t, Price(1800), cart[0].UnitPrice)
	assert.Equal(t, 1, cart[0].Quantity)
	assert.Equal(t, "热", cart[0].Options[CategoryTemperature])
}

func TestMergeUnitPriceIsFixedAtCreation(t *testing.T) {
	cat := testCatalog()
	cart := Merge(nil, []ItemSelection{{Name: "Croissant", Quantity: 1}}, cat)

	cat["Croissant"] = ItemDefinition{Name: "Croissant", BasePrice: 9900}
	cart = Merge(cart, []ItemSelection{{Name: "Croissant", Quantity: 1}}, cat)

	require.Len(t, cart, 1)
	assert.Equal(t, Price(1200), cart[0].UnitPrice)
	assert.Equal(t, 2, cart[0].Quantity)
	assert.Equal(t, Price(2400), Total(cart))
}

func TestMergeDropsUnknownItemsAndKeepsOrder(t *testing.T) {
	existing := []CartLine{
		{IdentityKey: "a", Name: "A", Quantity: 1, UnitPrice: 100},
		{IdentityKey: "b", Name: "B", Quantity: 1, UnitPrice: 100},
	}
	cart := Merge(existing, []ItemSelection{
		{Name: "Unicorn Frappe", Quantity: 1},
		{Name: "Croissant", Quantity: 0},
	}, testCatalog())

	require.Len(t, cart, 3)
	assert.Equal(t, "a", cart[0].IdentityKey)
	assert.Equal(t, "b", cart[1].IdentityKey)
	assert.Equal(t, "Croissant", cart[2].Name)
	assert.Equal(t, 1, cart[2].Quantity, "non-positive quantity defaults to 1")
}

func TestMergeIsDeterministic(t *testing.T) {
	cat := testCatalog()
	existing := Merge(nil, []ItemSelection{{Name: "Croissant", Quantity: 1}}, cat)
	sels := []ItemSelection{
		{Name: "拿铁", Quantity: 2, Options: Choices{CategoryTemperature: "冰", CategoryCup: "大杯"}},
		{Name: "Latte", Quantity: 1},
		{Name: "Croissant", Quantity: 1},
	}

	a, err := json.Marshal(Merge(existing, sels, cat))
	require.NoError(t, err)
	b, err := json.Marshal(Merge(existing, sels, cat))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRemove(t *testing.T) {
	cart := Merge(nil, []ItemSelection{{Name: "Latte"}, {Name: "Croissant"}}, testCatalog())

	out, ok := Remove(cart, cart[0].IdentityKey)
	assert.True(t, ok)
	require.Len(t, out, 1)
	assert.Equal(t, "Croissant", out[0].Name)

	_, ok = Remove(cart, "missing")
	assert.False(t, ok)
}
