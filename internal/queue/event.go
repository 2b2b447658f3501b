// Package queue defines message payloads exchanged over the message broker.
package queue

// TaskEvent is published for each todo when a user requests a calendar
// sync. It carries everything a downstream calendar worker needs to
// create the event without querying the primary database: the time
// span, a color derived from the task priority, and the owner's stored
// calendar credential reference.
type TaskEvent struct {
    TodoID      uint64 `json:"todo_id"`
    OwnerID     uint64 `json:"owner_id"`
    Title       string `json:"title"`
    Description string `json:"description"`
    Priority    string `json:"priority"`
    Status      string `json:"status"`
    StartsAt    string `json:"starts_at"`
    EndsAt      string `json:"ends_at"`
    ColorID     string `json:"color_id"`
    RequestedAt string `json:"requested_at"`
}
