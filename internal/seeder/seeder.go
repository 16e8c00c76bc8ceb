package seeder

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mct-integration/orderbridge/internal/database"
	"github.com/mct-integration/orderbridge/internal/entity"
)

// Seeder initialises persisted settings for fresh installations.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Settings seeds the export settings that the pipeline expects to exist.
// Present values are left alone.
func (s *Seeder) Settings(ctx context.Context) error {
	defaults := []entity.Setting{
		{Key: entity.SettingLatestRun, Value: "0"},
		{Key: entity.SettingBatchNumber, Value: "1"},
	}

	for _, def := range defaults {
		setting := def
		_, err := s.db.NewInsert().Model(&setting).
			On("CONFLICT (key) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded export settings", zap.Int("count", len(defaults)))
	}
	return nil
}
