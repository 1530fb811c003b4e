package sim

import "github.com/mlange-42/ark/ecs"

// Economic tuning constants. The exact trade and deposit amounts are a
// model choice, not an invariant; they shift trial-to-trial stochastic
// outcomes only. Documented here and kept consistent everywhere.
const (
	// initialWalletMax bounds the randomized starting wallet [1, max].
	initialWalletMax = 70

	// tradeUnitMax bounds the per-trade transfer [1, max].
	tradeUnitMax = 5

	// operatingMargin is cash kept on hand above the trade threshold
	// when depositing, so depositors stay trade-eligible.
	operatingMargin = 2 * tradeUnitMax
)

// moore holds the 8-cell Moore neighborhood offsets.
var moore = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// stepPerson runs one activation: move, balance the books with the bank,
// then trade with a co-located or adjacent partner. Activations are
// strictly sequential within a tick, so bank and grid mutations here are
// atomic relative to every other agent.
func (m *Model) stepPerson(e ecs.Entity) {
	pos := m.posMap.Get(e)
	p := m.personMap.Get(e)
	if pos == nil || p == nil {
		return
	}

	// 1. Move to a uniformly random adjacent cell, toroidal.
	d := moore[m.rng.Intn(len(moore))]
	pos.X, pos.Y = m.grid.Move(e, pos.X, pos.Y, pos.X+d[0], pos.Y+d[1])

	// 2. Savings/borrow decision.
	tt := m.cfg.TradeThreshold
	if p.Wallet > tt {
		// Bank the excess above the operating floor: retire debt first,
		// deposit the rest.
		if excess := p.Wallet - (tt + operatingMargin); excess > 0 {
			repaid := m.bank.RepayLoan(p, excess)
			p.Wallet -= repaid
			if rest := excess - repaid; rest > 0 {
				m.bank.Deposit(p, rest)
				p.Wallet -= rest
			}
		}
	} else if p.Wallet < tt {
		// Borrow back up to the operating balance; accept whatever the
		// reserve constraint allows, possibly zero.
		granted := m.bank.RequestLoan(p, tt-p.Wallet)
		p.Wallet += granted
	}
	p.Clamp()

	// 3. Trade with one random eligible partner nearby.
	if p.Wallet > tt {
		m.neighbors = m.grid.NeighborsInto(m.neighbors[:0], pos.X, pos.Y, 1, e)
		m.eligible = m.eligible[:0]
		for _, n := range m.neighbors {
			if q := m.personMap.Get(n); q != nil && q.Wallet > tt {
				m.eligible = append(m.eligible, n)
			}
		}
		if len(m.eligible) > 0 {
			partner := m.eligible[m.rng.Intn(len(m.eligible))]
			q := m.personMap.Get(partner)

			// Symmetric exchange: random amount, fair-coin direction,
			// clamped to the payer's cash. Conserves the pair total.
			amount := 1 + m.rng.Intn(tradeUnitMax)
			payer, payee := p, q
			if m.rng.Intn(2) == 0 {
				payer, payee = q, p
			}
			if amount > payer.Wallet {
				amount = payer.Wallet
			}
			payer.Wallet -= amount
			payee.Wallet += amount

			q.Clamp()
		}
	}
	p.Clamp()
}
