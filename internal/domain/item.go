package domain

// Rarity is an informational label attached to an item. It has no effect on
// how an item restocks.
type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityUncommon  Rarity = "Uncommon"
	RarityRare      Rarity = "Rare"
	RarityEpic      Rarity = "Epic"
	RarityLegendary Rarity = "Legendary"
	RarityMythical  Rarity = "Mythical"
)

// QuantityRange holds inclusive bounds for a restocked item count
type QuantityRange struct {
	Min int
	Max int
}

// ItemDefinition describes one purchasable item in the shop catalog
type ItemDefinition struct {
	Name        string
	Rarity      Rarity
	StockChance float64 // probability in [0,1] that the item appears in a restock
	Quantity    QuantityRange
}
