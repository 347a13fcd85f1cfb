package game

// Derived carries the per-request computed values the UI renders next to the
// raw state. Never persisted; always recomputed from the current state and
// catalog.
type Derived struct {
	TotalAttractivity int             `json:"total_attractivity"`
	VisitorsPerSecond float64         `json:"visitors_per_second"`
	BatchCommission   int64           `json:"batch_commission"`
	SaleProgressPct   float64         `json:"sale_progress_pct"`
	Buildings         []BuildingQuote `json:"buildings"`
	Verticals         []VerticalQuote `json:"verticals"`
	Market            []MarketSlice   `json:"market"`
}

// BuildingQuote is a building's live shop entry.
type BuildingQuote struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Owned      int     `json:"owned"`
	Production float64 `json:"production"`
	NextCost   int64   `json:"next_cost"`
	Affordable bool    `json:"affordable"`
}

// VerticalQuote is a vertical's live shop entry. NextCost is the unlock price
// while locked and the upgrade price once open.
type VerticalQuote struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Level        int    `json:"level"`
	CurrentPrice int64  `json:"current_price"`
	NextCost     int64  `json:"next_cost"`
	Affordable   bool   `json:"affordable"`
}

// MarketSlice is one unlocked vertical's share of the buyer pool.
type MarketSlice struct {
	ID       string  `json:"id"`
	Level    int     `json:"level"`
	SharePct float64 `json:"share_pct"`
	Price    int64   `json:"price"`
}

// Derive computes the full set of UI values for a state.
func (e *Engine) Derive(st GameState) Derived {
	f := e.formulas
	out := Derived{
		VisitorsPerSecond: e.ProductionRate(st),
		Buildings:         make([]BuildingQuote, 0, len(e.catalog.Buildings)),
		Verticals:         make([]VerticalQuote, 0, len(e.catalog.Verticals)),
		Market:            make([]MarketSlice, 0),
	}

	if f.SaleTriggerThreshold > 0 {
		out.SaleProgressPct = st.VisitorsTowardSale / float64(f.SaleTriggerThreshold) * 100
	}

	gross, _ := e.evaluateBatch(st)
	out.BatchCommission = f.Commission(gross)

	for _, b := range e.catalog.Buildings {
		cost := f.BuildingCost(b.BaseCost, st.Owned(b.ID))
		out.Buildings = append(out.Buildings, BuildingQuote{
			ID:         b.ID,
			Name:       b.Name,
			Owned:      st.Owned(b.ID),
			Production: b.Production,
			NextCost:   cost,
			Affordable: st.Money >= cost,
		})
	}

	for _, v := range e.catalog.Verticals {
		lvl := st.VerticalLevel(v.ID)
		if lvl >= 1 {
			out.TotalAttractivity += v.Attractivity
		}
		cost := f.VerticalUpgradeCost(v.UnlockCost, lvl)
		out.Verticals = append(out.Verticals, VerticalQuote{
			ID:           v.ID,
			Name:         v.Name,
			Level:        lvl,
			CurrentPrice: f.VerticalPriceAtLevel(v.BasePrice, v.MarginGrowthFactor, lvl),
			NextCost:     cost,
			Affordable:   st.Money >= cost,
		})
	}

	if out.TotalAttractivity > 0 {
		for _, v := range e.catalog.Verticals {
			lvl := st.VerticalLevel(v.ID)
			if lvl < 1 {
				continue
			}
			out.Market = append(out.Market, MarketSlice{
				ID:       v.ID,
				Level:    lvl,
				SharePct: float64(v.Attractivity) / float64(out.TotalAttractivity) * 100,
				Price:    f.VerticalPriceAtLevel(v.BasePrice, v.MarginGrowthFactor, lvl),
			})
		}
	}
	return out
}
