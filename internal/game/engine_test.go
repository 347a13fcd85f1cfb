package game

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func testCatalog() *Catalog {
	return NewCatalog(
		[]Building{
			{ID: "newsletter", Name: "Email Newsletter", BaseCost: 1000, Production: 0.5},
			{ID: "seo", Name: "SEO Agency", BaseCost: 5000, Production: 3},
		},
		[]Vertical{
			{ID: "electronics", Name: "Electronics", BasePrice: 15_000, Attractivity: 100, MarginGrowthFactor: 1.08, UnlockCost: 0},
			{ID: "fashion", Name: "Fashion", BasePrice: 9000, Attractivity: 150, MarginGrowthFactor: 1.10, UnlockCost: 10_000},
		},
	)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	clock := NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	return NewEngineWithClock(testCatalog(), testFormulas(), clock)
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestInitialize(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()
	if st.Money != 10_000 {
		t.Fatalf("money got=%d want=10000", st.Money)
	}
	if st.VisitorsTowardSale != 0 {
		t.Fatalf("accumulator should start empty, got=%f", st.VisitorsTowardSale)
	}
	if st.VerticalLevel("electronics") != 1 {
		t.Fatalf("zero-unlock-cost vertical should start at level 1, got=%d", st.VerticalLevel("electronics"))
	}
	if st.VerticalLevel("fashion") != 0 {
		t.Fatalf("paid vertical should start locked, got=%d", st.VerticalLevel("fashion"))
	}
	if st.Owned("newsletter") != 0 {
		t.Fatal("no buildings should be owned at start")
	}
}

func TestSingleSaleBatch(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()

	// 100 visitors with only electronics unlocked at level 1:
	// buyers=10, share=100%, price=15000, revenue=150000, commission=15000.
	st, err := e.Apply(st, Click{Count: 100})
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if st.Money != 25_000 {
		t.Fatalf("money got=%d want=25000", st.Money)
	}
	if st.TotalRevenue != 150_000 {
		t.Fatalf("revenue got=%d want=150000", st.TotalRevenue)
	}
	if !closeTo(st.TotalSales, 10) {
		t.Fatalf("sales got=%f want=10", st.TotalSales)
	}
	if st.TotalVisitors != 100 {
		t.Fatalf("visitors got=%d want=100", st.TotalVisitors)
	}
	if st.VisitorsTowardSale != 0 {
		t.Fatalf("accumulator got=%f want=0", st.VisitorsTowardSale)
	}
}

func TestAccumulatorCarriesRemainder(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()

	st, _ = e.Apply(st, Click{Count: 150})
	if !closeTo(st.VisitorsTowardSale, 50) {
		t.Fatalf("accumulator got=%f want=50", st.VisitorsTowardSale)
	}
	if st.TotalRevenue != 150_000 {
		t.Fatalf("one batch expected, revenue got=%d", st.TotalRevenue)
	}

	st, _ = e.Apply(st, Click{Count: 70})
	if !closeTo(st.VisitorsTowardSale, 20) {
		t.Fatalf("accumulator got=%f want=20", st.VisitorsTowardSale)
	}
	if st.TotalRevenue != 300_000 {
		t.Fatalf("second batch expected at 120 accumulated, revenue got=%d", st.TotalRevenue)
	}
}

func TestAccumulatorAlwaysBelowThreshold(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()
	counts := []int{1, 99, 37, 100, 63, 250, 7, 93}
	for _, n := range counts {
		var err error
		st, err = e.Apply(st, Click{Count: n})
		if err != nil {
			t.Fatalf("click %d rejected: %v", n, err)
		}
		if st.VisitorsTowardSale < 0 || st.VisitorsTowardSale >= 100 {
			t.Fatalf("accumulator out of [0,100): %f after %d clicks", st.VisitorsTowardSale, n)
		}
	}
}

func TestPerBatchFlooring(t *testing.T) {
	// Two unlocked verticals whose shares floor with a remainder: per batch
	// electronics sells 6.25*15000=93750, outlet sells 3.75*7501=28128.75
	// which floors to 28128. One aggregated 200-visitor pass would floor to
	// 243757; two independent batches must yield 2*121878=243756.
	catalog := NewCatalog(nil, []Vertical{
		{ID: "electronics", Name: "Electronics", BasePrice: 15_000, Attractivity: 100, MarginGrowthFactor: 1.08, UnlockCost: 0},
		{ID: "outlet", Name: "Outlet", BasePrice: 7501, Attractivity: 60, MarginGrowthFactor: 1.05, UnlockCost: 0},
	})
	clock := NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	e := NewEngineWithClock(catalog, testFormulas(), clock)

	burst := e.Initialize()
	burst, _ = e.Apply(burst, Click{Count: 200})
	if burst.TotalRevenue != 243_756 {
		t.Fatalf("burst revenue got=%d want=243756", burst.TotalRevenue)
	}

	slow := e.Initialize()
	slow, _ = e.Apply(slow, Click{Count: 100})
	slow, _ = e.Apply(slow, Click{Count: 100})
	if slow.TotalRevenue != burst.TotalRevenue {
		t.Fatalf("arrival pattern changed revenue: slow=%d burst=%d", slow.TotalRevenue, burst.TotalRevenue)
	}
}

func TestNoUnlockedVerticalsLosesVisitors(t *testing.T) {
	catalog := NewCatalog(nil, []Vertical{
		{ID: "fashion", Name: "Fashion", BasePrice: 9000, Attractivity: 150, MarginGrowthFactor: 1.10, UnlockCost: 10_000},
	})
	clock := NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	e := NewEngineWithClock(catalog, testFormulas(), clock)

	st := e.Initialize()
	st, _ = e.Apply(st, Click{Count: 300})
	if st.TotalRevenue != 0 || st.Money != 10_000 || st.TotalSales != 0 {
		t.Fatalf("locked market should yield nothing: money=%d revenue=%d sales=%f", st.Money, st.TotalRevenue, st.TotalSales)
	}
	if st.TotalVisitors != 300 {
		t.Fatalf("visitors still counted, got=%d", st.TotalVisitors)
	}
}

func TestBuyBuilding(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()

	st, err := e.Apply(st, BuyBuilding{ID: "newsletter"})
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if st.Money != 9000 {
		t.Fatalf("money got=%d want=9000", st.Money)
	}
	if st.Owned("newsletter") != 1 {
		t.Fatalf("owned got=%d want=1", st.Owned("newsletter"))
	}

	// Second unit costs floor(1000*1.15) = 1150.
	st, err = e.Apply(st, BuyBuilding{ID: "newsletter"})
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if st.Money != 7850 {
		t.Fatalf("money got=%d want=7850", st.Money)
	}
}

func TestBuyBuildingInsufficientFunds(t *testing.T) {
	e := newTestEngine(t)
	before := e.Initialize()
	before.Money = 100

	after, err := e.Apply(before, BuyBuilding{ID: "newsletter"})
	if err != ErrInsufficientFunds {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected action mutated state: before=%+v after=%+v", before, after)
	}
}

func TestUnknownItemRejected(t *testing.T) {
	e := newTestEngine(t)
	before := e.Initialize()

	after, err := e.Apply(before, BuyBuilding{ID: "moon_base"})
	if err != ErrUnknownItem {
		t.Fatalf("want ErrUnknownItem, got %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatal("rejected action mutated state")
	}

	if _, err := e.Apply(before, UpgradeVertical{ID: "moon_base"}); err != ErrUnknownItem {
		t.Fatalf("want ErrUnknownItem, got %v", err)
	}
}

func TestUpgradeVertical(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()
	st.Money = 30_000

	// Unlock fashion: flat 10000.
	st, err := e.Apply(st, UpgradeVertical{ID: "fashion"})
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if st.Money != 20_000 || st.VerticalLevel("fashion") != 1 {
		t.Fatalf("unlock failed: money=%d level=%d", st.Money, st.VerticalLevel("fashion"))
	}

	// Level 1 -> 2 costs floor(10000*1.25) = 12500.
	st, err = e.Apply(st, UpgradeVertical{ID: "fashion"})
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if st.Money != 7500 || st.VerticalLevel("fashion") != 2 {
		t.Fatalf("upgrade failed: money=%d level=%d", st.Money, st.VerticalLevel("fashion"))
	}
}

func TestTickPassiveProduction(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()
	st.Buildings["seo"] = 2 // 6 visitors/sec

	next := e.Tick(st, 5000)
	if next.TotalVisitors != 30 {
		t.Fatalf("visitors got=%d want=30", next.TotalVisitors)
	}
	if !closeTo(next.VisitorsTowardSale, 30) {
		t.Fatalf("accumulator got=%f want=30", next.VisitorsTowardSale)
	}
}

func TestTickWithoutProductionIsNoop(t *testing.T) {
	e := newTestEngine(t)
	before := e.Initialize()
	after := e.Tick(before, 5000)
	if !reflect.DeepEqual(before, after) {
		t.Fatal("tick without buildings should leave state unchanged")
	}
}

func TestTickTriggersBatches(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()
	st.Buildings["seo"] = 10 // 30 visitors/sec

	// 10 seconds = 300 visitors = 3 full batches.
	next := e.Tick(st, 10_000)
	if next.TotalRevenue != 450_000 {
		t.Fatalf("revenue got=%d want=450000", next.TotalRevenue)
	}
	if next.Money != st.Money+45_000 {
		t.Fatalf("money got=%d want=%d", next.Money, st.Money+45_000)
	}
}

func TestMonotonicCounters(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()
	actions := []Action{
		Click{Count: 40},
		BuyBuilding{ID: "newsletter"},
		Click{Count: 80},
		UpgradeVertical{ID: "fashion"},
		BuyBuilding{ID: "seo"},
		Click{Count: 100},
	}
	prev := st
	for i, a := range actions {
		next, err := e.Apply(prev, a)
		if err != nil {
			next = prev
		}
		if next.Money < 0 {
			t.Fatalf("action %d drove money negative: %d", i, next.Money)
		}
		if next.TotalVisitors < prev.TotalVisitors || next.TotalRevenue < prev.TotalRevenue || next.TotalSales < prev.TotalSales {
			t.Fatalf("action %d decreased a lifetime counter", i)
		}
		prev = next
	}
}

func TestDeterministicReplay(t *testing.T) {
	actions := []Action{
		Click{Count: 75},
		BuyBuilding{ID: "newsletter"},
		Click{Count: 60},
		BuyBuilding{ID: "newsletter"},
		Click{Count: 100},
		UpgradeVertical{ID: "fashion"},
	}

	run := func() GameState {
		clock := NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
		e := NewEngineWithClock(testCatalog(), testFormulas(), clock)
		st := e.Initialize()
		for _, a := range actions {
			next, err := e.Apply(st, a)
			if err != nil {
				continue
			}
			st = next
			clock.Advance(time.Second)
		}
		return st
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("replay diverged:\nfirst=%+v\nsecond=%+v", first, second)
	}
}

func TestCloneIsolation(t *testing.T) {
	e := newTestEngine(t)
	st := e.Initialize()
	st.Buildings["newsletter"] = 3

	clone := st.Clone()
	clone.Buildings["newsletter"] = 99
	clone.Verticals["electronics"] = 5

	if st.Buildings["newsletter"] != 3 || st.Verticals["electronics"] != 1 {
		t.Fatal("clone shares map storage with original")
	}
}
