package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mct-integration/orderbridge/internal/config"
	"github.com/mct-integration/orderbridge/internal/entity"
	"github.com/mct-integration/orderbridge/internal/idoc"
	"github.com/mct-integration/orderbridge/internal/lock"
	"github.com/mct-integration/orderbridge/internal/platform"
	"github.com/mct-integration/orderbridge/internal/record"
	"github.com/mct-integration/orderbridge/internal/repository/exportqueue"
	"github.com/mct-integration/orderbridge/pkg/errorbank"
)

type fakeQueue struct {
	saved     []*entity.ExportRow
	duplicate bool
	saveErr   error

	unsent []entity.ExportRow

	markedIDs    []int64
	markedSentAt string
	markErr      error

	purgeCutoff string
}

func (q *fakeQueue) Save(_ context.Context, row *entity.ExportRow) error {
	if q.saveErr != nil {
		return q.saveErr
	}
	if q.duplicate {
		return exportqueue.ErrDuplicate
	}
	q.saved = append(q.saved, row)
	return nil
}

func (q *fakeQueue) Get(_ context.Context, orderID int64) (*entity.ExportRow, error) {
	for i := range q.unsent {
		if q.unsent[i].OrderID == orderID {
			return &q.unsent[i], nil
		}
	}
	return nil, exportqueue.ErrNotFound
}

func (q *fakeQueue) List(_ context.Context, _ int) ([]entity.ExportRow, error) {
	return q.unsent, nil
}

func (q *fakeQueue) ListUnsent(_ context.Context, limit int) ([]entity.ExportRow, error) {
	if limit > 0 && limit < len(q.unsent) {
		return q.unsent[:limit], nil
	}
	return q.unsent, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, orderIDs []int64, sentAt string) error {
	if q.markErr != nil {
		return q.markErr
	}
	q.markedIDs = append(q.markedIDs, orderIDs...)
	q.markedSentAt = sentAt
	return nil
}

func (q *fakeQueue) DeleteOlderThan(_ context.Context, cutoff string) (int64, error) {
	q.purgeCutoff = cutoff
	return 2, nil
}

func (q *fakeQueue) Delete(_ context.Context, _ int64) error { return nil }

func (q *fakeQueue) DeleteAll(_ context.Context) (int64, error) { return int64(len(q.unsent)), nil }

type fakeSettings struct {
	lastRun     time.Time
	touchedAt   time.Time
	batch       string
	incremented int
}

func (s *fakeSettings) LatestRun(_ context.Context) (time.Time, error) { return s.lastRun, nil }

func (s *fakeSettings) TouchLatestRun(_ context.Context, at time.Time) error {
	s.touchedAt = at
	return nil
}

func (s *fakeSettings) BatchNumber(_ context.Context) (string, error) {
	if s.batch == "" {
		return "01", nil
	}
	return s.batch, nil
}

func (s *fakeSettings) IncrementBatchNumber(_ context.Context) error {
	s.incremented++
	return nil
}

type fakeHistory struct {
	messages    []string
	purgeCutoff string
}

func (h *fakeHistory) Append(_ context.Context, entry *entity.HistoryEntry) error {
	h.messages = append(h.messages, entry.Message)
	return nil
}

func (h *fakeHistory) ListByOrder(_ context.Context, _ int64) ([]entity.HistoryEntry, error) {
	return nil, nil
}

func (h *fakeHistory) DeleteOlderThan(_ context.Context, cutoff string) (int64, error) {
	h.purgeCutoff = cutoff
	return 3, nil
}

type fakeStatus struct {
	updates map[int64]string
}

func (f *fakeStatus) UpdateOrderStatus(_ context.Context, orderID int64, statusID string) error {
	if f.updates == nil {
		f.updates = make(map[int64]string)
	}
	f.updates[orderID] = statusID
	return nil
}

type upload struct {
	name string
	data []byte
}

type fakeUploader struct {
	uploads []upload
	failOn  string
}

func (u *fakeUploader) Upload(_ context.Context, filename string, data []byte) error {
	if u.failOn != "" && strings.Contains(filename, u.failOn) {
		return errors.New("connection reset")
	}
	u.uploads = append(u.uploads, upload{name: filename, data: data})
	return nil
}

var testNow = time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	queue    *fakeQueue
	settings *fakeSettings
	history  *fakeHistory
	status   *fakeStatus
	uploader *fakeUploader
}

func newFixture(mutate func(*config.Config)) *fixture {
	cfg := config.Config{}
	cfg.Export.IntervalMinutes = 20
	cfg.Export.RetentionDays = 30
	cfg.Export.HomeCountry = "DE"
	cfg.Export.FaultyOrderStatus = "8.1"
	cfg.Export.ProcessedOrderStatus = "7.0"
	cfg.Lock.LeaseTTL = time.Minute
	if mutate != nil {
		mutate(&cfg)
	}

	f := &fixture{
		queue:    &fakeQueue{},
		settings: &fakeSettings{},
		history:  &fakeHistory{},
		status:   &fakeStatus{},
		uploader: &fakeUploader{},
	}
	f.svc = &Service{
		queue:    f.queue,
		settings: f.settings,
		history:  f.history,
		status:   f.status,
		uploader: f.uploader,
		locker:   lock.NewLocalLocker(),
		builder:  record.NewBuilder(cfg),
		cfg:      cfg.Export,
		lockTTL:  cfg.Lock.LeaseTTL,
		logger:   zap.NewNop(),
		now:      func() time.Time { return testNow },
	}
	return f
}

func validOrder() *platform.Order {
	return &platform.Order{
		ID:         4711,
		ReferrerID: "102.01",
		Currency:   "EUR",
		DeliveryAddress: platform.Address{
			Name1:      "Max Mustermann",
			Address1:   "Hauptstr. 1",
			Town:       "Berlin",
			PostalCode: "10115",
			CountryISO: "DE",
		},
		BillingAddress: platform.Address{
			Name1:      "Max Mustermann",
			Address1:   "Hauptstr. 1",
			Town:       "Berlin",
			PostalCode: "10115",
			CountryISO: "DE",
		},
		Dates: []platform.OrderDate{
			{TypeID: platform.DateTypeOrderEntry, Date: testNow},
		},
		Items: []platform.OrderItem{
			{TypeID: platform.ItemTypeVariation, Quantity: 1, GrossPrice: decimal.RequireFromString("9.99"), VariationNumber: "V1"},
		},
	}
}

func queuedRow(orderID int64) entity.ExportRow {
	node := idoc.Section().Set("EDI_DC40", idoc.Section().SetString("IDOCTYP", "ORDERS05"))
	data, err := json.Marshal(node)
	if err != nil {
		panic(err)
	}
	return entity.ExportRow{
		OrderID:      orderID,
		ExportedData: string(data),
		SavedAt:      "2024-03-07 10:00:00",
	}
}

func TestProcessOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("queues the order and flags it processed", func(t *testing.T) {
		f := newFixture(nil)

		require.NoError(t, f.svc.ProcessOrder(ctx, validOrder()))

		require.Len(t, f.queue.saved, 1)
		row := f.queue.saved[0]
		assert.Equal(t, int64(4711), row.OrderID)
		assert.Equal(t, "2024-03-07 12:00:00", row.SavedAt)
		assert.Empty(t, row.SentAt)

		// the stored payload round-trips into a record
		_, err := idoc.Decode([]byte(row.ExportedData))
		require.NoError(t, err)

		assert.Equal(t, "7.0", f.status.updates[4711])
		assert.Contains(t, f.history.messages, "order queued for export")
	})

	t.Run("already queued order is a silent no-op", func(t *testing.T) {
		f := newFixture(nil)
		f.queue.duplicate = true

		require.NoError(t, f.svc.ProcessOrder(ctx, validOrder()))

		assert.Empty(t, f.queue.saved)
		assert.Empty(t, f.status.updates)
		assert.Contains(t, f.history.messages, "order already queued; skipped")
	})

	t.Run("validation fault flags the order faulty", func(t *testing.T) {
		f := newFixture(nil)
		order := validOrder()
		order.DeliveryAddress.CountryISO = "SK"
		order.DeliveryAddress.PostalCode = "not-a-code"

		err := f.svc.ProcessOrder(ctx, order)
		require.Error(t, err)
		assert.True(t, errorbank.IsKind(err, errorbank.KindValidation))

		assert.Empty(t, f.queue.saved)
		assert.Equal(t, "8.1", f.status.updates[4711])
	})

	t.Run("held order lock yields a conflict", func(t *testing.T) {
		f := newFixture(nil)
		ok, err := f.svc.locker.Acquire(ctx, "export:order:4711", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		err = f.svc.ProcessOrder(ctx, validOrder())
		assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))
	})
}

func TestSendCycleIntervalGate(t *testing.T) {
	ctx := context.Background()

	t.Run("skips when the interval has not elapsed", func(t *testing.T) {
		f := newFixture(nil)
		f.settings.lastRun = testNow.Add(-10 * time.Minute)
		f.queue.unsent = []entity.ExportRow{queuedRow(1)}

		sent, err := f.svc.SendCycle(ctx, false)
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Empty(t, f.uploader.uploads)
	})

	t.Run("runs once the interval has elapsed", func(t *testing.T) {
		f := newFixture(nil)
		f.settings.lastRun = testNow.Add(-25 * time.Minute)
		f.queue.unsent = []entity.ExportRow{queuedRow(1)}

		sent, err := f.svc.SendCycle(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
		assert.Equal(t, testNow, f.settings.touchedAt)
	})

	t.Run("force bypasses the gate", func(t *testing.T) {
		f := newFixture(nil)
		f.settings.lastRun = testNow
		f.queue.unsent = []entity.ExportRow{queuedRow(1)}

		sent, err := f.svc.SendCycle(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 1, sent)
	})
}

func TestSendCyclePerOrderFiles(t *testing.T) {
	f := newFixture(nil)
	f.queue.unsent = []entity.ExportRow{queuedRow(11), queuedRow(22)}

	sent, err := f.svc.SendCycle(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	require.Len(t, f.uploader.uploads, 2)
	assert.Equal(t, "20240307_120000_11.xml", f.uploader.uploads[0].name)
	assert.Equal(t, "20240307_120000_22.xml", f.uploader.uploads[1].name)
	assert.True(t, strings.HasPrefix(string(f.uploader.uploads[0].data), idoc.Declaration))

	assert.Equal(t, []int64{11, 22}, f.queue.markedIDs)
	assert.Equal(t, "2024-03-07 12:00:00", f.queue.markedSentAt)
	assert.Zero(t, f.settings.incremented)
}

func TestSendCycleBatchMode(t *testing.T) {
	f := newFixture(func(cfg *config.Config) {
		cfg.Export.BatchMode = true
	})
	f.settings.batch = "07"
	f.queue.unsent = []entity.ExportRow{queuedRow(11), queuedRow(22)}

	sent, err := f.svc.SendCycle(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	require.Len(t, f.uploader.uploads, 1)
	assert.Equal(t, "20240307_120000_07.xml", f.uploader.uploads[0].name)

	body := string(f.uploader.uploads[0].data)
	assert.Equal(t, 1, strings.Count(body, "<?xml"))
	assert.Equal(t, 2, strings.Count(body, "<Send"))

	assert.Equal(t, []int64{11, 22}, f.queue.markedIDs)
	assert.Equal(t, 1, f.settings.incremented)
}

func TestSendCycleFailedUploadMarksNothing(t *testing.T) {
	f := newFixture(nil)
	f.queue.unsent = []entity.ExportRow{queuedRow(11), queuedRow(22)}
	f.uploader.failOn = "_22"

	_, err := f.svc.SendCycle(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindTransport))

	assert.Empty(t, f.queue.markedIDs)
}

func TestSendCycleSkipsCorruptRows(t *testing.T) {
	f := newFixture(nil)
	corrupt := entity.ExportRow{OrderID: 99, ExportedData: "{broken", SavedAt: "2024-03-07 10:00:00"}
	f.queue.unsent = []entity.ExportRow{corrupt, queuedRow(11)}

	sent, err := f.svc.SendCycle(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []int64{11}, f.queue.markedIDs)
}

func TestSendCycleSingleFlight(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	ok, err := f.svc.locker.Acquire(ctx, sendCycleLock, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.SendCycle(ctx, true)
	assert.True(t, errorbank.IsKind(err, errorbank.KindConflict))
}

func TestPurge(t *testing.T) {
	f := newFixture(nil)

	deleted, err := f.svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	// 30 days before the frozen clock
	assert.Equal(t, "2024-02-06 12:00:00", f.queue.purgeCutoff)
	assert.Equal(t, "2024-02-06 12:00:00", f.history.purgeCutoff)
}

func TestQueueRowXML(t *testing.T) {
	f := newFixture(nil)
	f.queue.unsent = []entity.ExportRow{queuedRow(11)}

	xml, err := f.svc.QueueRowXML(context.Background(), 11)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(xml, idoc.Declaration))
	assert.Contains(t, xml, "ORDERS05")

	_, err = f.svc.QueueRowXML(context.Background(), 404)
	assert.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}
