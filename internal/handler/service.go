package handler

import (
	"context"

	"github.com/Astemirdum/odl-service/internal/model"
	"github.com/Astemirdum/odl-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type CirculationService interface {
	Borrow(ctx context.Context, patronID, poolUid string) (model.LoanResult, error)
	Checkin(ctx context.Context, patronID, poolUid string) error
	PlaceHold(ctx context.Context, patronID, poolUid string) (model.Hold, error)
	ReleaseHold(ctx context.Context, patronID, poolUid string) error
	Notify(ctx context.Context, loanID int) error
	GetLoans(ctx context.Context, patronID string) ([]model.Loan, error)
	GetHolds(ctx context.Context, patronID string) ([]model.Hold, error)
	RecomputePoolByUid(ctx context.Context, poolUid string) (model.Counters, error)
}

var _ CirculationService = (*service.Service)(nil)
