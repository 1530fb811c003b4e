package sim

import (
	"github.com/calvey/bankgrid/components"
)

// Bank is the single reserve-constrained lender in a model. It tracks
// aggregate deposits and outstanding loans; the reserve policy bounds how
// much of the deposits may be lent out.
//
// Invariant after every authorized transaction:
//
//	loans + deposits*reservePercent/100 <= deposits
//
// A loan request exceeding the lendable capacity is partially granted or
// refused, never breaking the invariant. The scheduler activates one
// agent at a time, so Bank needs no locking within a trial.
type Bank struct {
	reservePercent int
	deposits       int // sum of all persons' savings
	loans          int // sum of all persons' outstanding loans
}

// NewBank creates a bank with the given reserve policy (0-100).
func NewBank(reservePercent int) *Bank {
	return &Bank{reservePercent: reservePercent}
}

// TotalDeposits returns the tracked aggregate deposit figure.
func (b *Bank) TotalDeposits() int { return b.deposits }

// TotalLoans returns the tracked aggregate outstanding loans.
func (b *Bank) TotalLoans() int { return b.loans }

// ReservePercent returns the reserve policy parameter.
func (b *Bank) ReservePercent() int { return b.reservePercent }

// ReservesRequired returns the reserve the bank must keep unlent.
func (b *Bank) ReservesRequired() float64 {
	return float64(b.deposits) * float64(b.reservePercent) / 100.0
}

// LendableCapacity returns the whole currency units available to lend.
func (b *Bank) LendableCapacity() int {
	c := float64(b.deposits) - b.ReservesRequired() - float64(b.loans)
	if c <= 0 {
		return 0
	}
	return int(c)
}

// Deposit moves amount into the person's savings and the bank's aggregate.
// Amounts below zero are ignored; the operation cannot fail. The caller
// adjusts the person's wallet.
func (b *Bank) Deposit(p *components.Person, amount int) {
	if amount <= 0 {
		return
	}
	p.Savings += amount
	b.deposits += amount
}

// RequestLoan grants up to amount, bounded by the lendable capacity:
// full grant if capacity covers it, partial grant of exactly the capacity
// otherwise, zero if no capacity. Returns the amount actually granted so
// the caller can credit its wallet.
func (b *Bank) RequestLoan(p *components.Person, amount int) int {
	if amount <= 0 {
		return 0
	}
	granted := amount
	if c := b.LendableCapacity(); granted > c {
		granted = c
	}
	if granted <= 0 {
		return 0
	}
	p.Loans += granted
	b.loans += granted
	return granted
}

// RepayLoan retires up to amount of the person's debt, capped at the
// outstanding balance. Returns the amount actually repaid.
func (b *Bank) RepayLoan(p *components.Person, amount int) int {
	if amount > p.Loans {
		amount = p.Loans
	}
	if amount <= 0 {
		return 0
	}
	p.Loans -= amount
	b.loans -= amount
	return amount
}
