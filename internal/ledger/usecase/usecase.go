package usecase

import (
	"context"

	"github.com/farehub/card-service/internal/ledger"
	"github.com/farehub/card-service/internal/ledger/dto"
	"github.com/farehub/card-service/internal/model"
	"github.com/farehub/card-service/internal/pkg/logger"
)

type ledgerUseCase struct {
	repo   ledger.Repository
	logger logger.ZapLogger
}

func NewLedgerUseCase(repo ledger.Repository, log logger.ZapLogger) ledger.UseCase {
	return &ledgerUseCase{repo: repo, logger: log}
}

func (uc *ledgerUseCase) ListCounters(ctx context.Context, filters *dto.CounterFilters) ([]model.StockCounter, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}
	return uc.repo.FindAll(ctx, filters)
}
