package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/fjod/go_cart/restock-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog is returned when item definitions break catalog invariants
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the fixed, ordered list of item definitions. It is read-only
// once built.
type Catalog struct {
	items []domain.ItemDefinition
	index map[string]int
}

// defaultItems is the gear shop the game launched with
var defaultItems = []domain.ItemDefinition{
	{Name: "Smart Remote", Rarity: domain.RarityCommon, StockChance: 0.9, Quantity: domain.QuantityRange{Min: 8, Max: 12}},
	{Name: "Slap hand", Rarity: domain.RarityRare, StockChance: 0.7, Quantity: domain.QuantityRange{Min: 3, Max: 6}},
	{Name: "Jade Clover", Rarity: domain.RarityRare, StockChance: 0.6, Quantity: domain.QuantityRange{Min: 2, Max: 5}},
	{Name: "Advanced Remote", Rarity: domain.RarityEpic, StockChance: 0.4, Quantity: domain.QuantityRange{Min: 1, Max: 3}},
	{Name: "Brainrot Swapper 6000", Rarity: domain.RarityLegendary, StockChance: 0.1, Quantity: domain.QuantityRange{Min: 1, Max: 1}},
}

// Default returns the built-in gear catalog
func Default() *Catalog {
	c, err := New(defaultItems)
	if err != nil {
		panic(err)
	}
	return c
}

// New validates the definitions and builds a catalog preserving their order
func New(items []domain.ItemDefinition) (*Catalog, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidCatalog)
	}

	c := &Catalog{
		items: make([]domain.ItemDefinition, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for _, item := range items {
		if err := validate(item); err != nil {
			return nil, err
		}
		if _, dup := c.index[item.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrInvalidCatalog, item.Name)
		}
		c.index[item.Name] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

func validate(item domain.ItemDefinition) error {
	switch {
	case item.Name == "":
		return fmt.Errorf("%w: item without a name", ErrInvalidCatalog)
	case item.StockChance < 0 || item.StockChance > 1:
		return fmt.Errorf("%w: %q stock chance %v outside [0,1]", ErrInvalidCatalog, item.Name, item.StockChance)
	case item.Quantity.Min < 1:
		return fmt.Errorf("%w: %q min quantity must be at least 1", ErrInvalidCatalog, item.Name)
	case item.Quantity.Min > item.Quantity.Max:
		return fmt.Errorf("%w: %q min quantity %d exceeds max %d", ErrInvalidCatalog, item.Name, item.Quantity.Min, item.Quantity.Max)
	}
	return nil
}

// Items returns the definitions in catalog order
func (c *Catalog) Items() []domain.ItemDefinition {
	out := make([]domain.ItemDefinition, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup finds an item definition by name
func (c *Catalog) Lookup(name string) (domain.ItemDefinition, bool) {
	i, ok := c.index[name]
	if !ok {
		return domain.ItemDefinition{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Len() int {
	return len(c.items)
}

type fileItem struct {
	Name        string  `yaml:"name"`
	Rarity      string  `yaml:"rarity"`
	StockChance float64 `yaml:"stock_chance"`
	Min         int     `yaml:"min"`
	Max         int     `yaml:"max"`
}

type file struct {
	Items []fileItem `yaml:"items"`
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	items := make([]domain.ItemDefinition, len(f.Items))
	for i, it := range f.Items {
		items[i] = domain.ItemDefinition{
			Name:        it.Name,
			Rarity:      domain.Rarity(it.Rarity),
			StockChance: it.StockChance,
			Quantity:    domain.QuantityRange{Min: it.Min, Max: it.Max},
		}
	}
	return New(items)
}
