package entity

import "github.com/uptrace/bun"

// TimeLayout is the storage format of SavedAt/SentAt columns. The layout sorts
// lexically, so string comparison doubles as time comparison for the purge.
const TimeLayout = "2006-01-02 15:04:05"

// ExportRow is one queued export record for one order. An empty SentAt means
// the row is still pending transmission.
type ExportRow struct {
	bun.BaseModel `bun:"table:export_queue"`

	OrderID      int64  `bun:"order_id,pk"`
	ExportedData string `bun:"exported_data"`
	SavedAt      string `bun:"saved_at"`
	SentAt       string `bun:"sent_at"`
}

// Pending reports whether the row still awaits transmission.
func (r *ExportRow) Pending() bool {
	return r.SentAt == ""
}
