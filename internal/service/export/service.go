// Package export orchestrates the order export pipeline: queueing built
// records, the periodic send cycle over SFTP, and retention cleanup.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mct-integration/orderbridge/internal/config"
	"github.com/mct-integration/orderbridge/internal/entity"
	"github.com/mct-integration/orderbridge/internal/idoc"
	"github.com/mct-integration/orderbridge/internal/lock"
	"github.com/mct-integration/orderbridge/internal/platform"
	"github.com/mct-integration/orderbridge/internal/record"
	"github.com/mct-integration/orderbridge/internal/repository/exportqueue"
	historyrepo "github.com/mct-integration/orderbridge/internal/repository/history"
	settingrepo "github.com/mct-integration/orderbridge/internal/repository/setting"
	"github.com/mct-integration/orderbridge/internal/transport/sftp"
	"github.com/mct-integration/orderbridge/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/mct-integration/orderbridge/service/export")

const (
	fileStampLayout = "20060102_150405"
	sendCycleLock   = "export:send-cycle"
)

// QueueRepository is the persistence surface the service needs for queue rows.
type QueueRepository interface {
	Save(ctx context.Context, row *entity.ExportRow) error
	Get(ctx context.Context, orderID int64) (*entity.ExportRow, error)
	List(ctx context.Context, limit int) ([]entity.ExportRow, error)
	ListUnsent(ctx context.Context, limit int) ([]entity.ExportRow, error)
	MarkSent(ctx context.Context, orderIDs []int64, sentAt string) error
	DeleteOlderThan(ctx context.Context, cutoff string) (int64, error)
	Delete(ctx context.Context, orderID int64) error
	DeleteAll(ctx context.Context) (int64, error)
}

// SettingRepository persists cross-cycle state.
type SettingRepository interface {
	LatestRun(ctx context.Context) (time.Time, error)
	TouchLatestRun(ctx context.Context, at time.Time) error
	BatchNumber(ctx context.Context) (string, error)
	IncrementBatchNumber(ctx context.Context) error
}

// HistoryRepository records audit lines.
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.HistoryEntry) error
	ListByOrder(ctx context.Context, orderID int64) ([]entity.HistoryEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff string) (int64, error)
}

// Service drives the export pipeline.
type Service struct {
	queue    QueueRepository
	settings SettingRepository
	history  HistoryRepository
	status   platform.StatusUpdater
	uploader sftp.Uploader
	locker   lock.Locker
	builder  *record.Builder
	cfg      config.Export
	lockTTL  time.Duration
	logger   *zap.Logger

	now func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Queue    *exportqueue.Repository
	Settings *settingrepo.Repository
	History  *historyrepo.Repository
	Status   platform.StatusUpdater
	Uploader sftp.Uploader
	Locker   lock.Locker
	Config   config.Config
	Logger   *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		queue:    p.Queue,
		settings: p.Settings,
		history:  p.History,
		status:   p.Status,
		uploader: p.Uploader,
		locker:   p.Locker,
		builder:  record.NewBuilder(p.Config),
		cfg:      p.Config.Export,
		lockTTL:  p.Config.Lock.LeaseTTL,
		logger:   p.Logger,
		now:      time.Now,
	}
}

// ProcessOrder builds the export record for one order and queues it. The call
// is idempotent: an order that is already queued or already sent is left
// untouched. A validation rejection flags the order in the host system and
// comes back as a non-retryable validation error.
func (s *Service) ProcessOrder(ctx context.Context, order *platform.Order) error {
	if order == nil {
		return errorbank.BadRequest("order payload is required")
	}
	ctx, span := serviceTracer.Start(ctx, "ExportService.ProcessOrder", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	lockKey := fmt.Sprintf("export:order:%d", order.ID)
	acquired, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		span.RecordError(err)
		return errorbank.Internal("acquire order lock", errorbank.WithCause(err))
	}
	if !acquired {
		return errorbank.Conflict("order is being processed elsewhere",
			errorbank.WithDetail("orderId", order.ID))
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey); err != nil {
			s.logger.Warn("release order lock failed", zap.Int64("orderId", order.ID), zap.Error(err))
		}
	}()

	node, err := s.builder.Build(order)
	if err != nil {
		var fault *record.ValidationFault
		if errors.As(err, &fault) {
			return s.rejectOrder(ctx, fault)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return errorbank.Internal("build export record", errorbank.WithCause(err))
	}

	payload, err := json.Marshal(node)
	if err != nil {
		span.RecordError(err)
		return errorbank.Internal("encode export record", errorbank.WithCause(err))
	}

	row := &entity.ExportRow{
		OrderID:      order.ID,
		ExportedData: string(payload),
		SavedAt:      s.now().UTC().Format(entity.TimeLayout),
	}

	err = s.queue.Save(ctx, row)
	if errors.Is(err, exportqueue.ErrDuplicate) {
		s.appendHistory(ctx, order.ID, "order already queued; skipped")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "queue insert failed")
		return errorbank.Internal("queue export record", errorbank.WithCause(err))
	}

	s.appendHistory(ctx, order.ID, "order queued for export")
	s.updateStatus(ctx, order.ID, s.cfg.ProcessedOrderStatus)

	s.logger.Info("order queued", zap.Int64("orderId", order.ID))

	return nil
}

// rejectOrder flags a permanently invalid order. The record is never queued;
// a redelivery of the same event fails the same validation again.
func (s *Service) rejectOrder(ctx context.Context, fault *record.ValidationFault) error {
	s.appendHistory(ctx, fault.OrderID, "order rejected: "+fault.Error())
	s.updateStatus(ctx, fault.OrderID, s.cfg.FaultyOrderStatus)

	s.logger.Warn("order rejected",
		zap.Int64("orderId", fault.OrderID),
		zap.String("reason", string(fault.Reason)))

	return errorbank.Validation(fault.Error(),
		errorbank.WithCause(fault),
		errorbank.WithDetail("orderId", fault.OrderID))
}

// SendCycle uploads pending queue rows to the drop folder and marks them sent.
// Cycles are single-flight; concurrent callers get a conflict. Unless forced,
// a cycle that starts before the configured interval has elapsed since the
// last one is skipped. Rows are only marked sent after every upload of the
// cycle succeeded, so a failed cycle retransmits everything next time.
func (s *Service) SendCycle(ctx context.Context, force bool) (int, error) {
	ctx, span := serviceTracer.Start(ctx, "ExportService.SendCycle", trace.WithAttributes(attribute.Bool("force", force)))
	defer span.End()

	acquired, err := s.locker.Acquire(ctx, sendCycleLock, s.lockTTL)
	if err != nil {
		span.RecordError(err)
		return 0, errorbank.Internal("acquire send-cycle lock", errorbank.WithCause(err))
	}
	if !acquired {
		return 0, errorbank.Conflict("send cycle already running")
	}
	defer func() {
		if err := s.locker.Release(ctx, sendCycleLock); err != nil {
			s.logger.Warn("release send-cycle lock failed", zap.Error(err))
		}
	}()

	now := s.now().UTC()

	if !force {
		lastRun, err := s.settings.LatestRun(ctx)
		if err != nil {
			span.RecordError(err)
			return 0, errorbank.Internal("read last run", errorbank.WithCause(err))
		}
		interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute
		if now.Before(lastRun.Add(interval)) {
			s.logger.Debug("send cycle skipped; interval not elapsed",
				zap.Time("lastRun", lastRun))
			return 0, nil
		}
	}

	rows, err := s.queue.ListUnsent(ctx, s.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list pending failed")
		return 0, errorbank.Internal("list pending rows", errorbank.WithCause(err))
	}

	if err := s.settings.TouchLatestRun(ctx, now); err != nil {
		s.logger.Warn("persist last run failed", zap.Error(err))
	}

	if len(rows) == 0 {
		return 0, nil
	}

	sent, err := s.transmit(ctx, rows, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transmit failed")
		return 0, err
	}

	s.logger.Info("send cycle finished", zap.Int("sent", sent))

	return sent, nil
}

func (s *Service) transmit(ctx context.Context, rows []entity.ExportRow, now time.Time) (int, error) {
	stamp := s.cfg.FilePrefix + now.Format(fileStampLayout)

	type outFile struct {
		name string
		data []byte
	}

	var (
		files    []outFile
		orderIDs []int64
	)

	if s.cfg.BatchMode {
		batch, err := s.settings.BatchNumber(ctx)
		if err != nil {
			return 0, errorbank.Internal("read batch number", errorbank.WithCause(err))
		}

		var body []byte
		for _, row := range rows {
			node, err := idoc.Decode([]byte(row.ExportedData))
			if err != nil {
				s.logger.Error("stored record is unreadable; skipping row",
					zap.Int64("orderId", row.OrderID), zap.Error(err))
				continue
			}
			body = append(body, idoc.Envelope(node)...)
			orderIDs = append(orderIDs, row.OrderID)
		}
		if len(orderIDs) == 0 {
			return 0, nil
		}
		data := append([]byte(idoc.Declaration), body...)
		files = append(files, outFile{name: fmt.Sprintf("%s_%s.xml", stamp, batch), data: data})
	} else {
		for _, row := range rows {
			node, err := idoc.Decode([]byte(row.ExportedData))
			if err != nil {
				s.logger.Error("stored record is unreadable; skipping row",
					zap.Int64("orderId", row.OrderID), zap.Error(err))
				continue
			}
			files = append(files, outFile{
				name: fmt.Sprintf("%s_%d.xml", stamp, row.OrderID),
				data: []byte(idoc.Serialize(node)),
			})
			orderIDs = append(orderIDs, row.OrderID)
		}
		if len(orderIDs) == 0 {
			return 0, nil
		}
	}

	for _, f := range files {
		if err := s.uploader.Upload(ctx, f.name, f.data); err != nil {
			return 0, errorbank.Transport("upload export file",
				errorbank.WithCause(err),
				errorbank.WithDetail("file", f.name))
		}
	}

	sentAt := now.Format(entity.TimeLayout)
	if err := s.queue.MarkSent(ctx, orderIDs, sentAt); err != nil {
		// The files are already on the remote side. The rows stay pending and
		// will be retransmitted; the receiver deduplicates on order id.
		return 0, errorbank.Internal("mark rows sent", errorbank.WithCause(err))
	}

	if s.cfg.BatchMode {
		if err := s.settings.IncrementBatchNumber(ctx); err != nil {
			s.logger.Warn("increment batch number failed", zap.Error(err))
		}
	}

	for _, id := range orderIDs {
		s.appendHistory(ctx, id, "order transmitted")
	}

	return len(orderIDs), nil
}

// Purge removes sent rows and audit lines older than the retention window.
// Pending rows are kept regardless of age.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "ExportService.Purge")
	defer span.End()

	cutoff := s.now().UTC().AddDate(0, 0, -s.cfg.RetentionDays).Format(entity.TimeLayout)

	queueDeleted, err := s.queue.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		return 0, errorbank.Internal("purge queue", errorbank.WithCause(err))
	}

	historyDeleted, err := s.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		return queueDeleted, errorbank.Internal("purge history", errorbank.WithCause(err))
	}

	s.logger.Info("purge finished",
		zap.Int64("queueRows", queueDeleted),
		zap.Int64("historyRows", historyDeleted),
		zap.String("cutoff", cutoff))

	return queueDeleted + historyDeleted, nil
}

// ListQueue returns queue rows for the admin surface.
func (s *Service) ListQueue(ctx context.Context, limit int) ([]entity.ExportRow, error) {
	rows, err := s.queue.List(ctx, limit)
	if err != nil {
		return nil, errorbank.Internal("list queue", errorbank.WithCause(err))
	}
	return rows, nil
}

// QueueRowXML renders the stored record of one order as the XML document that
// would be uploaded for it.
func (s *Service) QueueRowXML(ctx context.Context, orderID int64) (string, error) {
	row, err := s.queue.Get(ctx, orderID)
	if errors.Is(err, exportqueue.ErrNotFound) {
		return "", errorbank.NotFound("order not queued")
	}
	if err != nil {
		return "", errorbank.Internal("load queue row", errorbank.WithCause(err))
	}
	node, err := idoc.Decode([]byte(row.ExportedData))
	if err != nil {
		return "", errorbank.Internal("stored record is unreadable", errorbank.WithCause(err))
	}
	return idoc.Serialize(node), nil
}

// OrderHistory returns the audit trail of one order, oldest first.
func (s *Service) OrderHistory(ctx context.Context, orderID int64) ([]entity.HistoryEntry, error) {
	entries, err := s.history.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, errorbank.Internal("list order history", errorbank.WithCause(err))
	}
	return entries, nil
}

// DeleteQueueRow removes one row from the queue.
func (s *Service) DeleteQueueRow(ctx context.Context, orderID int64) error {
	err := s.queue.Delete(ctx, orderID)
	if errors.Is(err, exportqueue.ErrNotFound) {
		return errorbank.NotFound("order not queued")
	}
	if err != nil {
		return errorbank.Internal("delete queue row", errorbank.WithCause(err))
	}
	s.appendHistory(ctx, orderID, "queue row deleted by operator")
	return nil
}

// DeleteQueue empties the whole queue.
func (s *Service) DeleteQueue(ctx context.Context) (int64, error) {
	deleted, err := s.queue.DeleteAll(ctx)
	if err != nil {
		return 0, errorbank.Internal("delete queue", errorbank.WithCause(err))
	}
	s.logger.Info("queue emptied by operator", zap.Int64("rows", deleted))
	return deleted, nil
}

func (s *Service) appendHistory(ctx context.Context, orderID int64, message string) {
	entry := &entity.HistoryEntry{
		OrderID: orderID,
		Message: message,
		SavedAt: s.now().UTC().Format(entity.TimeLayout),
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("append history failed", zap.Int64("orderId", orderID), zap.Error(err))
	}
}

func (s *Service) updateStatus(ctx context.Context, orderID int64, statusID string) {
	if statusID == "" {
		return
	}
	if err := s.status.UpdateOrderStatus(ctx, orderID, statusID); err != nil {
		s.logger.Warn("order status update failed",
			zap.Int64("orderId", orderID),
			zap.String("statusId", statusID),
			zap.Error(err))
	}
}
