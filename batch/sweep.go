// Package batch runs parameter sweeps: the cartesian product of swept
// parameter values times repeated stochastic trials, collected into one
// aggregated result table.
package batch

import (
	"fmt"
	"strings"

	"github.com/calvey/bankgrid/config"
)

// Combination is one point in the swept-parameter space. Keys and Values
// are parallel slices in sorted key order.
type Combination struct {
	Index  int
	Keys   []string
	Values []int
}

// Apply overlays the combination's values onto the fixed parameters.
func (c Combination) Apply(mc config.ModelConfig) (config.ModelConfig, error) {
	for i, k := range c.Keys {
		if err := mc.Set(k, c.Values[i]); err != nil {
			return mc, err
		}
	}
	return mc, nil
}

// Label renders the combination as "key-value_key-value" for file names
// and log lines.
func (c Combination) Label() string {
	if len(c.Keys) == 0 {
		return "fixed"
	}
	var b strings.Builder
	for i, k := range c.Keys {
		if i > 0 {
			b.WriteByte('_')
		}
		fmt.Fprintf(&b, "%s-%d", k, c.Values[i])
	}
	return b.String()
}

// Enumerate expands the sweep into the cartesian product of all swept
// value lists. Keys iterate in sorted order and the last key varies
// fastest, so the combination order is deterministic. An empty sweep
// yields the single fixed-parameter combination.
func Enumerate(cfg *config.Config) []Combination {
	keys := cfg.SweepKeys()
	if len(keys) == 0 {
		return []Combination{{Index: 0}}
	}

	var combos []Combination
	idx := make([]int, len(keys))
	for {
		vals := make([]int, len(keys))
		for i, k := range keys {
			vals[i] = cfg.Sweep[k][idx[i]]
		}
		combos = append(combos, Combination{Index: len(combos), Keys: keys, Values: vals})

		// Odometer increment
		i := len(keys) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(cfg.Sweep[keys[i]]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return combos
		}
	}
}
