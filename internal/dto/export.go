package dto

// QueueRowResponse represents one export queue row on the admin surface.
type QueueRowResponse struct {
	OrderID int64  `json:"orderId"`
	SavedAt string `json:"savedAt"`
	SentAt  string `json:"sentAt,omitempty"`
	Pending bool   `json:"pending"`
}

// HistoryEntryResponse is one audit line of an order.
type HistoryEntryResponse struct {
	ID      int64  `json:"id"`
	OrderID int64  `json:"orderId"`
	Message string `json:"message"`
	SavedAt string `json:"savedAt"`
}

// SendCycleResponse reports the outcome of a manually triggered send cycle.
type SendCycleResponse struct {
	Sent int `json:"sent"`
}

// PurgeResponse reports how many rows a purge removed.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}
