package game

import "math"

// Engine is the authoritative state machine: a pure reducer over
// (GameState, Action) plus an elapsed-time tick. It holds no mutable state of
// its own and is safe to share across sessions; per-session serialization is
// the store's job.
type Engine struct {
	catalog  *Catalog
	formulas Formulas
	clock    Clock
}

func NewEngine(catalog *Catalog, formulas Formulas) *Engine {
	return &Engine{catalog: catalog, formulas: formulas, clock: RealClock{}}
}

// NewEngineWithClock is NewEngine with an injected clock, used by tests and
// anywhere deterministic timestamps matter.
func NewEngineWithClock(catalog *Catalog, formulas Formulas, clock Clock) *Engine {
	return &Engine{catalog: catalog, formulas: formulas, clock: clock}
}

func (e *Engine) Catalog() *Catalog  { return e.catalog }
func (e *Engine) Formulas() Formulas { return e.formulas }

// Initialize returns a fresh state: starting money, nothing owned, and every
// zero-unlock-cost vertical open at level 1.
func (e *Engine) Initialize() GameState {
	st := GameState{
		Money:     e.formulas.StartingMoney,
		Buildings: make(map[string]int),
		Verticals: make(map[string]int),
		Timestamp: e.clock.Now().UnixMilli(),
	}
	for _, v := range e.catalog.StartingVerticals() {
		st.Verticals[v.ID] = 1
	}
	return st
}

// Apply runs one action against a state and returns the successor state. On
// rejection the input state is returned untouched together with a sentinel
// error; rejections are expected outcomes, not failures.
func (e *Engine) Apply(st GameState, action Action) (GameState, error) {
	switch a := action.(type) {
	case Click:
		next := st.Clone()
		e.addVisitors(&next, float64(e.formulas.VisitorsPerClick*a.Count))
		next.Timestamp = e.clock.Now().UnixMilli()
		return next, nil

	case BuyBuilding:
		b, ok := e.catalog.FindBuilding(a.ID)
		if !ok {
			return st, ErrUnknownItem
		}
		cost := e.formulas.BuildingCost(b.BaseCost, st.Owned(a.ID))
		if st.Money < cost {
			return st, ErrInsufficientFunds
		}
		next := st.Clone()
		next.Money -= cost
		next.Buildings[a.ID]++
		next.Timestamp = e.clock.Now().UnixMilli()
		return next, nil

	case UpgradeVertical:
		v, ok := e.catalog.FindVertical(a.ID)
		if !ok {
			return st, ErrUnknownItem
		}
		cost := e.formulas.VerticalUpgradeCost(v.UnlockCost, st.VerticalLevel(a.ID))
		if st.Money < cost {
			return st, ErrInsufficientFunds
		}
		next := st.Clone()
		next.Money -= cost
		next.Verticals[a.ID]++
		next.Timestamp = e.clock.Now().UnixMilli()
		return next, nil
	}
	// Unreachable while Action stays closed.
	return st, ErrUnknownItem
}

// Tick applies elapsedMs of passive production. With no producing buildings
// the state comes back unchanged. The caller is responsible for bounding
// elapsedMs when it arrives from an untrusted client.
func (e *Engine) Tick(st GameState, elapsedMs int64) GameState {
	if elapsedMs <= 0 {
		return st
	}
	rate := e.ProductionRate(st)
	if rate <= 0 {
		return st
	}
	next := st.Clone()
	e.addVisitors(&next, rate*float64(elapsedMs)/1000.0)
	next.Timestamp = e.clock.Now().UnixMilli()
	return next
}

// ProductionRate returns passive visitors per second across owned buildings.
func (e *Engine) ProductionRate(st GameState) float64 {
	var rate float64
	for _, b := range e.catalog.Buildings {
		if owned := st.Owned(b.ID); owned > 0 {
			rate += b.Production * float64(owned)
		}
	}
	return rate
}

// addVisitors is the shared intake for clicks and ticks. The lifetime counter
// truncates; the sale accumulator keeps the fraction. Every full threshold
// drains into exactly one fixed-size sale batch, so a burst of visitors
// triggers the same sequence of batches as the same visitors arriving slowly.
func (e *Engine) addVisitors(st *GameState, visitors float64) {
	st.TotalVisitors += int64(visitors)
	st.VisitorsTowardSale += visitors

	threshold := float64(e.formulas.SaleTriggerThreshold)
	for st.VisitorsTowardSale >= threshold {
		st.VisitorsTowardSale -= threshold
		e.runSaleBatch(st)
	}
}

// runSaleBatch evaluates one threshold-sized batch of visitors through the
// funnel. Each vertical sells to its attractivity-weighted share of the same
// buyer pool; per-vertical revenue floors independently. Do not collapse
// multiple batches into one proportional pass: the repeated flooring is
// load-bearing, it keeps revenue identical however visitors arrive.
func (e *Engine) runSaleBatch(st *GameState) {
	gross, sales := e.evaluateBatch(*st)
	if gross == 0 && sales == 0 {
		return
	}
	st.TotalSales += sales
	st.TotalRevenue += gross
	st.Money += e.formulas.Commission(gross)
}

// evaluateBatch prices one full sale batch at the state's current vertical
// levels without mutating anything. With no unlocked verticals the batch is
// worthless and the visitors are simply lost.
func (e *Engine) evaluateBatch(st GameState) (gross int64, sales float64) {
	totalAttr := 0
	for _, v := range e.catalog.Verticals {
		if st.VerticalLevel(v.ID) >= 1 {
			totalAttr += v.Attractivity
		}
	}
	if totalAttr == 0 {
		return 0, 0
	}

	buyers := e.formulas.BuyersFromVisitors(float64(e.formulas.SaleTriggerThreshold))
	for _, v := range e.catalog.Verticals {
		lvl := st.VerticalLevel(v.ID)
		if lvl < 1 {
			continue
		}
		share := float64(v.Attractivity) / float64(totalAttr)
		vertSales := buyers * share
		price := e.formulas.VerticalPriceAtLevel(v.BasePrice, v.MarginGrowthFactor, lvl)
		gross += int64(math.Floor(vertSales * float64(price)))
		sales += vertSales
	}
	return gross, sales
}
