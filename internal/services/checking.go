package services

import (
	"context"
	"fmt"

	"impegni/internal/core"
)

type CheckingStore interface {
	SetCheckingBalance(ctx context.Context, b core.CheckingBalance) error
	CheckingBalance(ctx context.Context, owner string, p core.Period) (core.Money, error)
}

// CheckingService records the checking balance the health summary reads.
type CheckingService struct {
	store CheckingStore
}

func NewCheckingService(store CheckingStore) *CheckingService {
	return &CheckingService{store: store}
}

// SetCheckingBalance stores the balance of p. Zero and negative balances
// are valid.
func (s *CheckingService) SetCheckingBalance(ctx context.Context, owner string, p core.Period, amount core.Money) (core.CheckingBalance, error) {
	if err := requireOwner(owner); err != nil {
		return core.CheckingBalance{}, err
	}
	if err := p.Validate(); err != nil {
		return core.CheckingBalance{}, err
	}

	b := core.CheckingBalance{Owner: owner, Period: p, Amount: amount}
	if err := s.store.SetCheckingBalance(ctx, b); err != nil {
		return core.CheckingBalance{}, fmt.Errorf("set checking balance: %w", err)
	}
	return b, nil
}

func (s *CheckingService) Balance(ctx context.Context, owner string, p core.Period) (core.Money, error) {
	if err := requireOwner(owner); err != nil {
		return core.Money{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Money{}, err
	}
	return s.store.CheckingBalance(ctx, owner, p)
}
