package model

import "time"

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column in the database. Email and
// Username are both unique; uniqueness is enforced by the repository
// before inserts and profile updates and backstopped by DB constraints.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Email         – unique email address (stored lower-cased).
//  Username      – unique login name.
//  PasswordHash  – bcrypt hashed password.
//  Firstname     – optional profile field.
//  Lastname      – optional profile field.
//  Contact       – optional contact detail (phone etc.).
//  Position      – optional job title / role description.
//  CalendarToken – serialized external-calendar credential blob (nullable).
//  IsActive      – whether the account is active; inactive users cannot
//                  authenticate even with a valid token.
//  CreatedAt     – timestamp of registration.
type User struct {
	ID            uint64    // users.id
	Email         string    // users.email
	Username      string    // users.username
	PasswordHash  string    // users.password_hash
	Firstname     string    // users.firstname
	Lastname      string    // users.lastname
	Contact       string    // users.contact
	Position      string    // users.position
	CalendarToken *string   // users.calendar_token (nullable)
	IsActive      bool      // users.is_active
	CreatedAt     time.Time // users.created_at
}
