// Package components defines ECS components for the simulation.
package components

// Position is an entity's grid cell.
type Position struct {
	X, Y int
}

// Person holds a person's identity and economic state.
// All balances are whole currency units and stay non-negative;
// step phases call Clamp after mutating.
type Person struct {
	ID      int
	Wallet  int
	Savings int
	Loans   int
}

// Wealth is net worth: spendable cash plus deposits minus debt.
func (p *Person) Wealth() int {
	return p.Wallet + p.Savings - p.Loans
}

// Clamp floors all balances at zero.
func (p *Person) Clamp() {
	if p.Wallet < 0 {
		p.Wallet = 0
	}
	if p.Savings < 0 {
		p.Savings = 0
	}
	if p.Loans < 0 {
		p.Loans = 0
	}
}
