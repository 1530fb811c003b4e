package components

import "testing"

func TestPersonWealth(t *testing.T) {
	tests := []struct {
		name string
		p    Person
		want int
	}{
		{"cash only", Person{Wallet: 10}, 10},
		{"savings add", Person{Wallet: 10, Savings: 5}, 15},
		{"loans subtract", Person{Wallet: 10, Savings: 5, Loans: 20}, -5},
		{"broke", Person{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Wealth(); got != tt.want {
				t.Errorf("Wealth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPersonClamp(t *testing.T) {
	p := Person{Wallet: -3, Savings: -1, Loans: -7}
	p.Clamp()
	if p.Wallet != 0 || p.Savings != 0 || p.Loans != 0 {
		t.Errorf("after Clamp: %+v, want all zero", p)
	}

	q := Person{Wallet: 4, Savings: 2, Loans: 1}
	q.Clamp()
	if q.Wallet != 4 || q.Savings != 2 || q.Loans != 1 {
		t.Errorf("Clamp changed non-negative balances: %+v", q)
	}
}
