package model

import "time"

// Priority levels accepted for a todo. Stored as plain strings in the
// `todos.priority` column.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// DefaultStatus is the free-form status assigned to newly created todos.
const DefaultStatus = "pending"

// ValidPriority reports whether p is one of the accepted priority values.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Todo represents a task record in the `todos` table. Every todo is owned
// by exactly one user; deleting the owner cascades deletion of their todos
// via the foreign key. All repository queries filter on OwnerID so a todo
// is never visible outside its owner's scope.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – required task title.
//  Description – optional longer text.
//  Date        – optional scheduled date (nullable).
//  Completed   – completion flag, toggled by the owner.
//  Priority    – low, medium or high (default medium).
//  Status      – free-form status string (default "pending").
//  Image       – stored filename of an uploaded attachment (nullable).
//  OwnerID     – foreign key into users.id.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last-update timestamp (nullable until first update).
type Todo struct {
	ID          uint64     // todos.id
	Title       string     // todos.title
	Description string     // todos.description
	Date        *time.Time // todos.date (nullable)
	Completed   bool       // todos.completed
	Priority    string     // todos.priority
	Status      string     // todos.status
	Image       *string    // todos.image (nullable)
	OwnerID     uint64     // todos.owner_id
	CreatedAt   time.Time  // todos.created_at
	UpdatedAt   *time.Time // todos.updated_at (nullable)
}
