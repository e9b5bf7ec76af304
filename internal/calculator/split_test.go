package calculator

import (
	"math"
	"testing"
)

func TestEqualSplit(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		participants []string
		wantErr      error
		validateFunc func(t *testing.T, shares []Share)
	}{
		{
			name:         "three people split evenly",
			amount:       300,
			participants: []string{"u1", "u2", "u3"},
			validateFunc: func(t *testing.T, shares []Share) {
				if len(shares) != 3 {
					t.Fatalf("expected 3 shares, got %d", len(shares))
				}
				for _, s := range shares {
					if s.Amount != 100 {
						t.Errorf("%s share = %v, want 100", s.UserID, s.Amount)
					}
				}
			},
		},
		{
			name:         "non-divisible amount keeps exact division",
			amount:       100,
			participants: []string{"u1", "u2", "u3"},
			validateFunc: func(t *testing.T, shares []Share) {
				sum := 0.0
				for _, s := range shares {
					if s.Amount != 100.0/3.0 {
						t.Errorf("%s share = %v, want %v", s.UserID, s.Amount, 100.0/3.0)
					}
					sum += s.Amount
				}
				if math.Abs(sum-100) > 1e-9 {
					t.Errorf("sum of shares = %v, want 100", sum)
				}
			},
		},
		{
			name:         "duplicates are counted once and order is kept",
			amount:       90,
			participants: []string{"u2", "u1", "u2", ""},
			validateFunc: func(t *testing.T, shares []Share) {
				if len(shares) != 2 {
					t.Fatalf("expected 2 shares, got %d", len(shares))
				}
				if shares[0].UserID != "u2" || shares[1].UserID != "u1" {
					t.Errorf("unexpected order: %+v", shares)
				}
				if shares[0].Amount != 45 {
					t.Errorf("share = %v, want 45", shares[0].Amount)
				}
			},
		},
		{
			name:         "zero amount should error",
			amount:       0,
			participants: []string{"u1"},
			wantErr:      ErrInvalidAmount,
		},
		{
			name:         "negative amount should error",
			amount:       -5,
			participants: []string{"u1"},
			wantErr:      ErrInvalidAmount,
		},
		{
			name:         "no participants should error",
			amount:       10,
			participants: nil,
			wantErr:      ErrNoParticipants,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := EqualSplit(tt.amount, tt.participants)
			if err != tt.wantErr {
				t.Fatalf("EqualSplit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && tt.validateFunc != nil {
				tt.validateFunc(t, shares)
			}
		})
	}
}
