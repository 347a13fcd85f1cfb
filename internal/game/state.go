package game

// GameState is one player's complete progress. It is a value: transitions
// clone it and return the clone, never mutating the input. The client-side
// rollback protocol depends on snapshots staying untouched, so treat any
// in-place write outside this file as a bug.
type GameState struct {
	Money              int64          `json:"money"`
	TotalVisitors      int64          `json:"total_visitors"`
	VisitorsTowardSale float64        `json:"visitors_toward_sale"`
	TotalSales         float64        `json:"total_sales"`
	TotalRevenue       int64          `json:"total_revenue"`
	Buildings          map[string]int `json:"buildings"`
	Verticals          map[string]int `json:"verticals"`

	// Timestamp marks the last mutation in unix milliseconds. Audit only;
	// no game math reads it.
	Timestamp int64 `json:"timestamp"`
}

// Clone returns a deep copy safe to mutate independently.
func (s GameState) Clone() GameState {
	next := s
	next.Buildings = make(map[string]int, len(s.Buildings))
	for id, n := range s.Buildings {
		next.Buildings[id] = n
	}
	next.Verticals = make(map[string]int, len(s.Verticals))
	for id, lvl := range s.Verticals {
		next.Verticals[id] = lvl
	}
	return next
}

// Owned returns how many units of a building the player holds (0 for ids
// never purchased).
func (s GameState) Owned(buildingID string) int {
	return s.Buildings[buildingID]
}

// VerticalLevel returns a vertical's level; 0 means locked.
func (s GameState) VerticalLevel(verticalID string) int {
	return s.Verticals[verticalID]
}
