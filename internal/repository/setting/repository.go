// Package setting persists small key/value state that must survive restarts,
// such as the last send-cycle timestamp and the rolling batch number.
package setting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mct-integration/orderbridge/internal/database"
	"github.com/mct-integration/orderbridge/internal/entity"
)

var repoTracer = otel.Tracer("github.com/mct-integration/orderbridge/repository/setting")

// ErrNotFound is returned when a setting key is absent.
var ErrNotFound = errors.New("setting not found")

// batchNumberWidth pads the batch number in file names, "01" through "99".
const batchNumberWidth = 2

// Repository encapsulates access to persisted settings.
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

// Get returns the raw value for a key.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	ctx, span := repoTracer.Start(ctx, "SettingRepository.Get", trace.WithAttributes(attribute.String("setting.key", key)))
	defer span.End()

	setting := new(entity.Setting)
	err := r.reader.NewSelect().Model(setting).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return "", err
	}
	return setting.Value, nil
}

// Set upserts a key/value pair.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	ctx, span := repoTracer.Start(ctx, "SettingRepository.Set", trace.WithAttributes(attribute.String("setting.key", key)))
	defer span.End()

	_, err := r.writer.NewInsert().
		Model(&entity.Setting{Key: key, Value: value}).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
	}
	return err
}

// LatestRun returns the time of the last send cycle, or the zero time when no
// cycle has run yet.
func (r *Repository) LatestRun(ctx context.Context) (time.Time, error) {
	raw, err := r.Get(ctx, entity.SettingLatestRun)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt %s value %q: %w", entity.SettingLatestRun, raw, err)
	}
	return time.Unix(secs, 0), nil
}

// TouchLatestRun records the given time as the last send cycle.
func (r *Repository) TouchLatestRun(ctx context.Context, at time.Time) error {
	return r.Set(ctx, entity.SettingLatestRun, strconv.FormatInt(at.Unix(), 10))
}

// BatchNumber returns the current batch number padded for file names. A
// missing key starts the sequence at "01".
func (r *Repository) BatchNumber(ctx context.Context) (string, error) {
	n, err := r.batchNumber(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", batchNumberWidth, n), nil
}

// IncrementBatchNumber advances the batch number after a successful batch
// upload.
func (r *Repository) IncrementBatchNumber(ctx context.Context) error {
	n, err := r.batchNumber(ctx)
	if err != nil {
		return err
	}
	return r.Set(ctx, entity.SettingBatchNumber, strconv.Itoa(n+1))
}

func (r *Repository) batchNumber(ctx context.Context) (int, error) {
	raw, err := r.Get(ctx, entity.SettingBatchNumber)
	if errors.Is(err, ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("corrupt %s value %q", entity.SettingBatchNumber, raw)
	}
	return n, nil
}
