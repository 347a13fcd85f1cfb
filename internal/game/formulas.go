package game

import "math"

// Formulas holds the tuning coefficients every price and payout derives from.
// All money values are whole cents. The same functions run on the server and
// inside the client predictor; any divergence between the two shows up as
// rollback churn, so keep these pure and rounding-exact.
type Formulas struct {
	StartingMoney             int64   `json:"starting_money" yaml:"starting_money"`
	CostGrowthRate            float64 `json:"cost_growth_rate" yaml:"cost_growth_rate"`
	VisitorsPerClick          int     `json:"visitors_per_click" yaml:"visitors_per_click"`
	SaleTriggerThreshold      int     `json:"sale_trigger_threshold" yaml:"sale_trigger_threshold"`
	ConversionRate            float64 `json:"conversion_rate" yaml:"conversion_rate"`
	BaseCommissionRate        float64 `json:"base_commission_rate" yaml:"base_commission_rate"`
	VerticalUpgradeGrowthRate float64 `json:"vertical_upgrade_growth_rate" yaml:"vertical_upgrade_growth_rate"`
	TickIntervalMs            int     `json:"tick_interval_ms" yaml:"tick_interval_ms"`
}

// BuildingCost returns the price of the next unit of a building given how
// many are already owned: floor(base * growth^owned).
func (f Formulas) BuildingCost(baseCost int64, owned int) int64 {
	if owned < 0 {
		owned = 0
	}
	return int64(math.Floor(float64(baseCost) * math.Pow(f.CostGrowthRate, float64(owned))))
}

// VerticalUpgradeCost returns the cost of moving a vertical from its current
// level to the next. Level 0 is the flat unlock price; beyond that the cost
// grows geometrically with level.
func (f Formulas) VerticalUpgradeCost(unlockCost int64, currentLevel int) int64 {
	if currentLevel <= 0 {
		return unlockCost
	}
	return int64(math.Floor(float64(unlockCost) * math.Pow(f.VerticalUpgradeGrowthRate, float64(currentLevel))))
}

// VerticalPriceAtLevel returns the per-sale price of a vertical at the given
// level. Locked verticals (level < 1) have no price.
func (f Formulas) VerticalPriceAtLevel(basePrice int64, marginGrowthFactor float64, level int) int64 {
	if level < 1 {
		return 0
	}
	return int64(math.Floor(float64(basePrice) * math.Pow(marginGrowthFactor, float64(level-1))))
}

// Commission returns the player's cut of a gross sale value.
func (f Formulas) Commission(saleValue int64) int64 {
	return int64(math.Floor(float64(saleValue) * f.BaseCommissionRate))
}

// BuyersFromVisitors converts a visitor count into buyers. Fractional buyers
// are meaningful intermediate state and must not be rounded here.
func (f Formulas) BuyersFromVisitors(visitors float64) float64 {
	return visitors * f.ConversionRate
}
