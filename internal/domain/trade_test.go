package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSideValid(t *testing.T) {
	tests := []struct {
		side Side
		want bool
	}{
		{SideBuy, true},
		{SideSell, true},
		{"", false},
		{"short", false},
		{"BUY", false}, // exchanges report lowercase; anything else is suspect
	}

	for _, tt := range tests {
		if got := tt.side.Valid(); got != tt.want {
			t.Errorf("Side(%q).Valid() = %v, want %v", tt.side, got, tt.want)
		}
	}
}

func TestIsOrderError(t *testing.T) {
	for _, sentinel := range []error{ErrInsufficientFunds, ErrExchangeRejected, ErrUnknownMarket, ErrInvalidPrice} {
		wrapped := fmt.Errorf("placing order: %w", sentinel)
		if !IsOrderError(wrapped) {
			t.Errorf("IsOrderError(%v) = false, want true", wrapped)
		}
	}

	if IsOrderError(errors.New("connection refused")) {
		t.Error("IsOrderError must not match transport errors")
	}
	if IsOrderError(nil) {
		t.Error("IsOrderError(nil) must be false")
	}
}
