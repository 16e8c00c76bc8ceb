package entity

import "github.com/uptrace/bun"

// Setting keys used by the export pipeline.
const (
	SettingLatestRun   = "latest_cron_execution_time"
	SettingBatchNumber = "batch_number"
)

// Setting is a generic key/value pair persisted across cycles.
type Setting struct {
	bun.BaseModel `bun:"table:export_settings"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value"`
}
