package game

// Building is a purchasable unit producing passive visitors per second.
type Building struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	BaseCost   int64   `json:"base_cost" yaml:"base_cost"`
	Production float64 `json:"production" yaml:"production"`
}

// Vertical is a revenue channel. Buyers are split across unlocked verticals
// proportional to attractivity; price grows geometrically with level.
type Vertical struct {
	ID                 string  `json:"id" yaml:"id"`
	Name               string  `json:"name" yaml:"name"`
	BasePrice          int64   `json:"base_price" yaml:"base_price"`
	Attractivity       int     `json:"attractivity" yaml:"attractivity"`
	MarginGrowthFactor float64 `json:"margin_growth_factor" yaml:"margin_growth_factor"`
	UnlockCost         int64   `json:"unlock_cost" yaml:"unlock_cost"`
}

// Catalog is the static set of purchasable items, read-only after load.
// Slices keep the display order from the rules file stable; the indexes make
// id lookups cheap.
type Catalog struct {
	Buildings []Building `json:"buildings" yaml:"buildings"`
	Verticals []Vertical `json:"verticals" yaml:"verticals"`

	buildingIdx map[string]int
	verticalIdx map[string]int
}

// NewCatalog builds a catalog from already-validated item lists. Validation
// (unique ids, numeric domains) belongs to the config loader.
func NewCatalog(buildings []Building, verticals []Vertical) *Catalog {
	c := &Catalog{
		Buildings:   buildings,
		Verticals:   verticals,
		buildingIdx: make(map[string]int, len(buildings)),
		verticalIdx: make(map[string]int, len(verticals)),
	}
	for i, b := range buildings {
		c.buildingIdx[b.ID] = i
	}
	for i, v := range verticals {
		c.verticalIdx[v.ID] = i
	}
	return c
}

func (c *Catalog) FindBuilding(id string) (Building, bool) {
	i, ok := c.buildingIdx[id]
	if !ok {
		return Building{}, false
	}
	return c.Buildings[i], true
}

func (c *Catalog) FindVertical(id string) (Vertical, bool) {
	i, ok := c.verticalIdx[id]
	if !ok {
		return Vertical{}, false
	}
	return c.Verticals[i], true
}

// StartingVerticals returns the verticals that begin unlocked at level 1
// (zero unlock cost).
func (c *Catalog) StartingVerticals() []Vertical {
	var out []Vertical
	for _, v := range c.Verticals {
		if v.UnlockCost == 0 {
			out = append(out, v)
		}
	}
	return out
}
