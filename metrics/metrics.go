// Package metrics computes per-step model statistics and writes the
// aggregated experiment output.
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/calvey/bankgrid/components"
	"github.com/calvey/bankgrid/sim"
)

// PoorLoanCutoff is the fixed debt level classifying an agent as poor
// (loans > cutoff). Middle requires loans < cutoff, so an agent sitting
// exactly on the cutoff is counted in neither class. The gap is part of
// the model, not a bug; see TestClassificationGap.
const PoorLoanCutoff = 10

// Row is one record of the aggregated result table, tagged with the
// trial uid, the step index and the active parameter values.
type Row struct {
	UID  int64 `csv:"uid"`
	Step int   `csv:"step"`

	// Active parameter values, reproduced on every row so sweeps can be
	// grouped without joining back to the configuration.
	InitPeople     int `csv:"init_people"`
	RichThreshold  int `csv:"rich_threshold"`
	TradeThreshold int `csv:"trade_threshold"`
	ReservePercent int `csv:"reserve_percent"`
	Width          int `csv:"width"`
	Height         int `csv:"height"`

	// Class counts
	Rich   int `csv:"rich"`
	Poor   int `csv:"poor"`
	Middle int `csv:"middle"`

	// Money aggregates
	TotalSavings int `csv:"savings"`
	TotalWallets int `csv:"wallets"`
	TotalMoney   int `csv:"money"`
	TotalLoans   int `csv:"loans"`

	// Distribution statistics over savings
	MeanMoney float64 `csv:"mean_money"`
	StdMoney  float64 `csv:"std_money"`
	Gini      float64 `csv:"gini"`
}

// AgentRow is one per-agent wealth sample.
type AgentRow struct {
	UID     int64 `csv:"uid"`
	Step    int   `csv:"step"`
	AgentID int   `csv:"agent_id"`
	Wealth  int   `csv:"wealth"`
}

// Collect recomputes all model-level statistics from the current model
// state. Nothing is cached between steps.
func Collect(m *sim.Model) Row {
	cfg := m.Cfg()
	row := Row{
		UID:            m.UID(),
		Step:           m.StepIndex(),
		InitPeople:     cfg.InitPeople,
		RichThreshold:  cfg.RichThreshold,
		TradeThreshold: cfg.TradeThreshold,
		ReservePercent: cfg.ReservePercent,
		Width:          cfg.Width,
		Height:         cfg.Height,
	}

	savings := make([]float64, 0, cfg.InitPeople)
	m.ForEachPerson(func(_ *components.Position, p *components.Person) {
		row.TotalSavings += p.Savings
		row.TotalWallets += p.Wallet
		row.TotalLoans += p.Loans

		if p.Savings > cfg.RichThreshold {
			row.Rich++
		}
		if p.Loans > PoorLoanCutoff {
			row.Poor++
		}
		if p.Loans < PoorLoanCutoff && p.Savings < cfg.RichThreshold {
			row.Middle++
		}

		savings = append(savings, float64(p.Savings))
	})

	row.TotalMoney = row.TotalSavings + row.TotalWallets
	if len(savings) > 0 {
		row.MeanMoney = stat.Mean(savings, nil)
		row.StdMoney = stat.PopStdDev(savings, nil)
	}
	row.Gini = Gini(savings, float64(row.TotalMoney))

	return row
}

// CollectAgents samples every agent's wealth.
func CollectAgents(m *sim.Model) []AgentRow {
	cfg := m.Cfg()
	rows := make([]AgentRow, 0, cfg.InitPeople)
	m.ForEachPerson(func(_ *components.Position, p *components.Person) {
		rows = append(rows, AgentRow{
			UID:     m.UID(),
			Step:    m.StepIndex(),
			AgentID: p.ID,
			Wealth:  p.Wealth(),
		})
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].AgentID < rows[j].AgentID })
	return rows
}

// Gini computes the Gini coefficient over the savings distribution with
// totalMoney as the normalizer:
//
//	B = (sum_i x_i * (N - i)) / (N * M)   (x sorted ascending, i zero-based)
//	G = 1 + 1/N - 2B
//
// Degenerate cases return 0: an empty population, zero total money
// (the formula would divide by zero), and B == 0 (all-zero savings).
func Gini(savings []float64, totalMoney float64) float64 {
	n := len(savings)
	if n == 0 || totalMoney == 0 {
		return 0
	}

	x := make([]float64, n)
	copy(x, savings)
	sort.Float64s(x)

	var b float64
	for i, xi := range x {
		b += xi * float64(n-i)
	}
	b /= float64(n) * totalMoney

	if b == 0 {
		return 0
	}
	return 1 + 1/float64(n) - 2*b
}
