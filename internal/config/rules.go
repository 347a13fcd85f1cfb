package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"clickmart/internal/game"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Rules is the full economy definition: tuning formulas plus the item catalog.
// It is loaded once at startup and never mutated afterwards.
type Rules struct {
	Formulas  game.Formulas   `yaml:"formulas"`
	Buildings []game.Building `yaml:"buildings"`
	Verticals []game.Vertical `yaml:"verticals"`
}

// LoadRules reads the rules file at path, or the embedded defaults when path
// is empty. A malformed or invalid file is fatal; there is no partial load.
func LoadRules(path string) (*Rules, error) {
	data := defaultRulesYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules %s: %w", path, err)
		}
		data = b
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return &r, nil
}

// Catalog builds the runtime catalog from the loaded item lists.
func (r *Rules) Catalog() *game.Catalog {
	return game.NewCatalog(r.Buildings, r.Verticals)
}

// Validate checks every numeric domain and id before the rules are allowed
// anywhere near the engine. Errors name the offending record and field.
func (r *Rules) Validate() error {
	f := r.Formulas
	switch {
	case f.StartingMoney < 0:
		return fmt.Errorf("formulas: starting_money must be >= 0")
	case f.CostGrowthRate < 1:
		return fmt.Errorf("formulas: cost_growth_rate must be >= 1")
	case f.VisitorsPerClick < 1:
		return fmt.Errorf("formulas: visitors_per_click must be >= 1")
	case f.SaleTriggerThreshold < 1:
		return fmt.Errorf("formulas: sale_trigger_threshold must be >= 1")
	case f.ConversionRate <= 0 || f.ConversionRate > 1:
		return fmt.Errorf("formulas: conversion_rate must be in (0, 1]")
	case f.BaseCommissionRate <= 0 || f.BaseCommissionRate > 1:
		return fmt.Errorf("formulas: base_commission_rate must be in (0, 1]")
	case f.VerticalUpgradeGrowthRate < 1:
		return fmt.Errorf("formulas: vertical_upgrade_growth_rate must be >= 1")
	case f.TickIntervalMs < 1:
		return fmt.Errorf("formulas: tick_interval_ms must be >= 1")
	}

	if len(r.Buildings) == 0 {
		return fmt.Errorf("buildings: at least one building is required")
	}
	seen := make(map[string]bool)
	for _, b := range r.Buildings {
		switch {
		case b.ID == "":
			return fmt.Errorf("buildings: id must not be empty")
		case seen[b.ID]:
			return fmt.Errorf("buildings[%s]: duplicate id", b.ID)
		case b.Name == "":
			return fmt.Errorf("buildings[%s]: name must not be empty", b.ID)
		case b.BaseCost < 1:
			return fmt.Errorf("buildings[%s]: base_cost must be >= 1", b.ID)
		case b.Production <= 0:
			return fmt.Errorf("buildings[%s]: production must be > 0", b.ID)
		}
		seen[b.ID] = true
	}

	if len(r.Verticals) == 0 {
		return fmt.Errorf("verticals: at least one vertical is required")
	}
	starting := 0
	seen = make(map[string]bool)
	for _, v := range r.Verticals {
		switch {
		case v.ID == "":
			return fmt.Errorf("verticals: id must not be empty")
		case seen[v.ID]:
			return fmt.Errorf("verticals[%s]: duplicate id", v.ID)
		case v.Name == "":
			return fmt.Errorf("verticals[%s]: name must not be empty", v.ID)
		case v.BasePrice < 1:
			return fmt.Errorf("verticals[%s]: base_price must be >= 1", v.ID)
		case v.Attractivity < 1:
			return fmt.Errorf("verticals[%s]: attractivity must be >= 1", v.ID)
		case v.MarginGrowthFactor < 1:
			return fmt.Errorf("verticals[%s]: margin_growth_factor must be >= 1", v.ID)
		case v.UnlockCost < 0:
			return fmt.Errorf("verticals[%s]: unlock_cost must be >= 0", v.ID)
		}
		seen[v.ID] = true
		if v.UnlockCost == 0 {
			starting++
		}
	}
	if starting == 0 {
		return fmt.Errorf("verticals: at least one vertical must start unlocked (unlock_cost 0)")
	}
	return nil
}
