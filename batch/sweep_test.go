package batch

import (
	"testing"

	"github.com/calvey/bankgrid/config"
)

func TestEnumerate(t *testing.T) {
	cfg := &config.Config{
		Sweep: map[string][]int{
			"trade_threshold": {0, 10, 20},
			"init_people":     {25, 100},
		},
	}

	combos := Enumerate(cfg)
	if len(combos) != 6 {
		t.Fatalf("got %d combinations, want 6", len(combos))
	}

	// Keys sort alphabetically and the last key varies fastest.
	want := [][2]int{
		{25, 0}, {25, 10}, {25, 20},
		{100, 0}, {100, 10}, {100, 20},
	}
	for i, c := range combos {
		if c.Index != i {
			t.Errorf("combination %d has index %d", i, c.Index)
		}
		if len(c.Keys) != 2 || c.Keys[0] != "init_people" || c.Keys[1] != "trade_threshold" {
			t.Fatalf("combination %d keys = %v", i, c.Keys)
		}
		if c.Values[0] != want[i][0] || c.Values[1] != want[i][1] {
			t.Errorf("combination %d values = %v, want %v", i, c.Values, want[i])
		}
	}
}

func TestEnumerateEmptySweep(t *testing.T) {
	combos := Enumerate(&config.Config{})
	if len(combos) != 1 {
		t.Fatalf("got %d combinations, want 1", len(combos))
	}
	if len(combos[0].Keys) != 0 {
		t.Errorf("fixed combination carries keys: %v", combos[0].Keys)
	}
	if got := combos[0].Label(); got != "fixed" {
		t.Errorf("label = %q, want %q", got, "fixed")
	}
}

func TestEnumerateSingleKey(t *testing.T) {
	cfg := &config.Config{Sweep: map[string][]int{"width": {5, 10, 15}}}
	combos := Enumerate(cfg)
	if len(combos) != 3 {
		t.Fatalf("got %d combinations, want 3", len(combos))
	}
	for i, v := range []int{5, 10, 15} {
		if combos[i].Values[0] != v {
			t.Errorf("combination %d value = %d, want %d", i, combos[i].Values[0], v)
		}
	}
}

func TestCombinationApply(t *testing.T) {
	base := config.ModelConfig{
		InitPeople:     25,
		TradeThreshold: 15,
		Width:          20,
		Height:         20,
	}

	c := Combination{Keys: []string{"init_people", "trade_threshold"}, Values: []int{100, 0}}
	mc, err := c.Apply(base)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if mc.InitPeople != 100 || mc.TradeThreshold != 0 {
		t.Errorf("applied config = %+v", mc)
	}
	// Unswept parameters pass through untouched.
	if mc.Width != 20 || mc.Height != 20 {
		t.Errorf("unswept parameters changed: %+v", mc)
	}
	// The input is a value copy.
	if base.InitPeople != 25 {
		t.Errorf("base mutated: %+v", base)
	}
}

func TestCombinationApplyUnknownKey(t *testing.T) {
	c := Combination{Keys: []string{"velocity"}, Values: []int{3}}
	if _, err := c.Apply(config.ModelConfig{}); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestCombinationLabel(t *testing.T) {
	c := Combination{Keys: []string{"init_people", "trade_threshold"}, Values: []int{25, 0}}
	if got := c.Label(); got != "init_people-25_trade_threshold-0" {
		t.Errorf("label = %q", got)
	}
}
