// Package history records audit lines for the export pipeline.
package history

import (
	"context"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mct-integration/orderbridge/internal/database"
	"github.com/mct-integration/orderbridge/internal/entity"
)

var repoTracer = otel.Tracer("github.com/mct-integration/orderbridge/repository/history")

// Repository encapsulates access to the export history log.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Append writes one audit line.
func (r *Repository) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	ctx, span := repoTracer.Start(ctx, "HistoryRepository.Append", trace.WithAttributes(attribute.Int64("order.id", entry.OrderID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(entry).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ListByOrder returns the audit lines for one order, oldest first.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]entity.HistoryEntry, error) {
	ctx, span := repoTracer.Start(ctx, "HistoryRepository.ListByOrder", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var entries []entity.HistoryEntry
	err := r.reader.NewSelect().
		Model(&entries).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return entries, nil
}

// DeleteOlderThan removes audit lines saved before the cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "HistoryRepository.DeleteOlderThan", trace.WithAttributes(attribute.String("cutoff", cutoff)))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.HistoryEntry)(nil)).
		Where("saved_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, err
	}
	return res.RowsAffected()
}
