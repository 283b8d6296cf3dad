package workers

import (
	"context"
	"errors"
	"time"

	"github.com/wasifali/investpkr/internal/ledger"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/service"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

const WorkerInterval = 10 * time.Minute

// InitAutoClaim starts the background accrual pass for users that opted into
// automatic profit collection, so profit lands without the user opening the
// dashboard.
func InitAutoClaim() {
	go startWorker()

	logger.Log.Info("Auto-claim worker started")
}

func startWorker() {
	ticker := time.NewTicker(WorkerInterval)
	for range ticker.C {
		claimDueProfits()
	}
}

func claimDueProfits() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	phones, err := storage.GetAutoClaimPhones(ctx)
	if err != nil {
		logger.Log.Error("Error getting auto-claim users", zap.Error(err))
		return
	}

	for _, phone := range phones {
		collected, err := service.ClaimAccrued(ctx, phone)
		if err != nil {
			if errors.Is(err, service.ErrNoInvestments) || errors.Is(err, ledger.ErrNotReady) {
				continue
			}
			logger.Log.Error("Auto-claim failed", zap.String("phone", phone), zap.Error(err))
			continue
		}

		logger.Log.Info("Auto-claimed profit", zap.String("phone", phone), zap.Float64("collected", collected))
	}
}
