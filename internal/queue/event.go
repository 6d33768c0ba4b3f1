// Package queue defines message payloads exchanged over the message broker.
package queue

// AllocationQueueName is the durable queue allocation events are routed to.
const AllocationQueueName = "seating.allocation"

// AllocationEvent is published after an allocation run commits.  It
// carries enough for downstream consumers to audit or notify without
// querying the primary database.
type AllocationEvent struct {
    EventID        string `json:"event_id"`
    ExamID         uint64 `json:"exam_id"`
    Action         string `json:"action"` // ASSIGNED | REASSIGNED | UNASSIGNED
    Seated         int    `json:"seated"`
    Total          int    `json:"total"`
    Removed        int    `json:"removed"`
    StartedFromBin uint64 `json:"started_from_bin,omitempty"`
    ActorID        uint64 `json:"actor_id,omitempty"`
    RequestID      string `json:"request_id,omitempty"`
    OccurredAt     string `json:"occurred_at"` // RFC 3339, UTC
}
