package entity

import "github.com/uptrace/bun"

// HistoryEntry is one append-only audit line for the export pipeline.
type HistoryEntry struct {
	bun.BaseModel `bun:"table:export_history"`

	ID      int64  `bun:",pk,autoincrement"`
	OrderID int64  `bun:"order_id"`
	Message string `bun:"message"`
	SavedAt string `bun:"saved_at"`
}
