package platform

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// StatusUpdater pushes an order status change back into the host platform.
// The real implementation lives in the hosting system; the default here only
// records the intent so the pipeline stays runnable standalone.
type StatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID int64, statusID string) error
}

// Module provides the default status updater.
var Module = fx.Provide(NewLogStatusUpdater)

type logStatusUpdater struct {
	logger *zap.Logger
}

// NewLogStatusUpdater returns a StatusUpdater that logs the requested change.
func NewLogStatusUpdater(logger *zap.Logger) StatusUpdater {
	return &logStatusUpdater{logger: logger}
}

func (u *logStatusUpdater) UpdateOrderStatus(ctx context.Context, orderID int64, statusID string) error {
	u.logger.Info("order status update requested",
		zap.Int64("orderId", orderID),
		zap.String("statusId", statusID),
	)
	return nil
}
