// Package exportorder consumes order events from the host platform and feeds
// them into the export pipeline.
package exportorder

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mct-integration/orderbridge/internal/config"
	"github.com/mct-integration/orderbridge/internal/messaging"
	"github.com/mct-integration/orderbridge/internal/platform"
	exportsvc "github.com/mct-integration/orderbridge/internal/service/export"
	"github.com/mct-integration/orderbridge/internal/worker"
	"github.com/mct-integration/orderbridge/pkg/errorbank"
)

var workerTracer = otel.Tracer("github.com/mct-integration/orderbridge/worker/exportorder")

// Module registers the order export worker handler.
var Module = fx.Module("worker_exportorder",
	fx.Provide(
		fx.Annotate(
			NewOrderEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventHandler sets up a worker handler that queues inbound orders for
// export. Validation rejections are final, so the message is committed; any
// other failure leaves the message uncommitted for redelivery.
func NewOrderEventHandler(svc *exportsvc.Service, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.exportorder.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var order platform.Order
		if err := json.Unmarshal(msg.Value, &order); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			// Malformed payloads never become valid on retry.
			return nil
		}

		err := svc.ProcessOrder(ctx, &order)
		if errorbank.IsKind(err, errorbank.KindValidation) {
			logger.Warn("order rejected permanently", zap.Int64("id", order.ID), zap.Error(err))

			return nil
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "process error")
			return err
		}

		logger.Info("order event processed", zap.Int64("id", order.ID))

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
