// Package exportqueue persists queued export records. Rows are keyed by order
// id, so re-processing the same order can never enqueue a second copy.
package exportqueue

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mct-integration/orderbridge/internal/database"
	"github.com/mct-integration/orderbridge/internal/entity"
)

var repoTracer = otel.Tracer("github.com/mct-integration/orderbridge/repository/exportqueue")

// ErrNotFound is returned when a queue row is missing.
var ErrNotFound = errors.New("export row not found")

// ErrDuplicate is returned when the order is already queued or was already
// sent. The insert is a no-op in that case.
var ErrDuplicate = errors.New("order already exported")

// Repository encapsulates read/write access for the export queue.
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

// Save inserts a new queue row. The insert races atomically against concurrent
// processors of the same order; the loser gets ErrDuplicate and must not
// overwrite the stored record.
func (r *Repository) Save(ctx context.Context, row *entity.ExportRow) error {
	if row == nil {
		return errors.New("nil export row")
	}
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.Save", trace.WithAttributes(attribute.Int64("order.id", row.OrderID)))
	defer span.End()

	res, err := r.writer.NewInsert().
		Model(row).
		On("CONFLICT (order_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return err
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// Get fetches one queue row by order id.
func (r *Repository) Get(ctx context.Context, orderID int64) (*entity.ExportRow, error) {
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.Get", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	row := new(entity.ExportRow)
	err := r.reader.NewSelect().Model(row).Where("order_id = ?", orderID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return row, nil
}

// Exists reports whether the order already has a queue row, sent or pending.
func (r *Repository) Exists(ctx context.Context, orderID int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.Exists", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	exists, err := r.reader.NewSelect().
		Model((*entity.ExportRow)(nil)).
		Where("order_id = ?", orderID).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return false, err
	}
	return exists, nil
}

// List returns queue rows ordered by save time, newest last. A limit of zero
// returns everything.
func (r *Repository) List(ctx context.Context, limit int) ([]entity.ExportRow, error) {
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.List")
	defer span.End()

	var rows []entity.ExportRow
	q := r.reader.NewSelect().Model(&rows).Order("saved_at ASC", "order_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return rows, nil
}

// ListUnsent returns pending rows in save order. A limit of zero returns all
// pending rows.
func (r *Repository) ListUnsent(ctx context.Context, limit int) ([]entity.ExportRow, error) {
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.ListUnsent")
	defer span.End()

	var rows []entity.ExportRow
	q := r.reader.NewSelect().
		Model(&rows).
		Where("sent_at = ''").
		Order("saved_at ASC", "order_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return rows, nil
}

// MarkSent stamps the rows as transmitted. Only pending rows are updated, so a
// repeated call after a crash-redelivery cannot move an existing timestamp.
func (r *Repository) MarkSent(ctx context.Context, orderIDs []int64, sentAt string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.MarkSent", trace.WithAttributes(attribute.Int("rows", len(orderIDs))))
	defer span.End()

	_, err := r.writer.NewUpdate().
		Model((*entity.ExportRow)(nil)).
		Set("sent_at = ?", sentAt).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Where("sent_at = ''").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// DeleteOlderThan removes sent rows whose transmission timestamp precedes the
// cutoff. Pending rows are never purged.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff string) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.DeleteOlderThan", trace.WithAttributes(attribute.String("cutoff", cutoff)))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.ExportRow)(nil)).
		Where("sent_at != ''").
		Where("sent_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes one queue row regardless of its state.
func (r *Repository) Delete(ctx context.Context, orderID int64) error {
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.ExportRow)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll empties the queue. Admin-only escape hatch.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "ExportQueueRepository.DeleteAll")
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.ExportRow)(nil)).
		Where("1 = 1").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return 0, err
	}
	return res.RowsAffected()
}
