package models

import "time"

// Event types
const (
	EventTypeOrderCreated    = "ORDER_CREATED"
	EventTypeOrderSynced     = "ORDER_SYNCED"
	EventTypeColumnUpdated   = "ORDER_COLUMN_UPDATED"
	EventTypeOrderDeleted    = "ORDER_DELETED"
	EventTypeUrgentPromoted  = "URGENT_PROMOTED"
	EventTypeResyncCompleted = "RESYNC_COMPLETED"
	EventTypeSyncRequested   = "SYNC_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after intake commits
type OrderCreatedEvent struct {
	BaseEvent
	IDInput   string `json:"id_input"`
	IDPesanan string `json:"id_pesanan"`
	Deadline  string `json:"deadline"`
}

// OrderSyncedEvent published after an on-demand resynchronization of one order
type OrderSyncedEvent struct {
	BaseEvent
	IDInput string `json:"id_input"`
}

// ColumnUpdatedEvent published after a column edit commits. Columns lists
// every column written in that transaction. Stage UIs refresh on it.
type ColumnUpdatedEvent struct {
	BaseEvent
	IDInput    string   `json:"id_input"`
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	Propagated bool     `json:"propagated"`
}

// OrderDeletedEvent published after a cascading delete
type OrderDeletedEvent struct {
	BaseEvent
	IDInput string `json:"id_input"`
}

// UrgentPromotedEvent published after a promotion run
type UrgentPromotedEvent struct {
	BaseEvent
	Date          string   `json:"date"`
	PromotedCount int      `json:"promoted_count"`
	IDs           []string `json:"ids"`
}

// ResyncCompletedEvent published after a bulk resynchronization
type ResyncCompletedEvent struct {
	BaseEvent
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
}

// SyncRequestedEvent asks the sync worker to re-run fan-out and propagation
// for one order. Stage tools publish it after editing their table out of band.
type SyncRequestedEvent struct {
	BaseEvent
	IDInput string `json:"id_input"`
	Reason  string `json:"reason,omitempty"`
}
