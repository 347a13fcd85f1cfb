package game

// Action is the closed set of player inputs the engine understands. The
// unexported marker method keeps outside packages from adding variants.
type Action interface {
	isAction()
}

// Click adds count manual clicks worth of visitors.
type Click struct {
	Count int
}

// BuyBuilding purchases one unit of the identified building.
type BuyBuilding struct {
	ID string
}

// UpgradeVertical unlocks (level 0 -> 1) or levels up a vertical.
type UpgradeVertical struct {
	ID string
}

func (Click) isAction()           {}
func (BuyBuilding) isAction()     {}
func (UpgradeVertical) isAction() {}
