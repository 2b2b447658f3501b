package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/todo-task-api/internal/model"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,username,password_hash,firstname,lastname,contact,position,calendar_token,is_active,created_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash,
		&u.Firstname, &u.Lastname, &u.Contact, &u.Position,
		&u.CalendarToken, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a user with an already-hashed password and fills in the
// generated ID. Uniqueness is expected to be pre-checked by the caller;
// a concurrent duplicate insert is still mapped to the field-specific
// sentinel via the MySQL 1062 error.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Username = strings.TrimSpace(u.Username)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, username, password_hash, firstname, lastname, contact, position) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.Username, u.PasswordHash, u.Firstname, u.Lastname, u.Contact, u.Position)
	if err != nil {
		return dupKeyError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.IsActive = true
	return nil
}

// dupKeyError maps a MySQL duplicate-key error (1062) onto the sentinel
// naming the colliding field, falling back to ErrConflict when the key
// name cannot be recognized.
func dupKeyError(err error) error {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return err
	}
	switch {
	case strings.Contains(msg, "email"):
		return ErrEmailExists
	case strings.Contains(msg, "username"):
		return ErrUsernameExists
	}
	return ErrConflict
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
}

// GetByLogin fetches a user by username or normalized email. Login forms
// accept either in the same field.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	login = strings.TrimSpace(login)
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		login, strings.ToLower(login)))
}

// EmailTaken reports whether another user (excluding excludeID) already
// holds the given email. excludeID 0 means no exclusion, as at
// registration time.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var taken bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=? AND id<>?)",
		email, excludeID).Scan(&taken)
	return taken, err
}

// UsernameTaken reports whether another user (excluding excludeID)
// already holds the given username.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error) {
	var taken bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE username=? AND id<>?)",
		strings.TrimSpace(username), excludeID).Scan(&taken)
	return taken, err
}

// ProfileUpdate carries the optional fields of a partial profile update.
// Nil pointers leave the corresponding column untouched.
type ProfileUpdate struct {
	Email     *string
	Username  *string
	Firstname *string
	Lastname  *string
	Contact   *string
	Position  *string
}

// UpdateProfile applies a partial update to a user row. It is a no-op
// when every field is nil. Duplicate-key violations from concurrent
// updates are mapped onto the field sentinels.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, upd ProfileUpdate) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if upd.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.Username != nil {
		sets = append(sets, "username=?")
		args = append(args, strings.TrimSpace(*upd.Username))
	}
	if upd.Firstname != nil {
		sets = append(sets, "firstname=?")
		args = append(args, *upd.Firstname)
	}
	if upd.Lastname != nil {
		sets = append(sets, "lastname=?")
		args = append(args, *upd.Lastname)
	}
	if upd.Contact != nil {
		sets = append(sets, "contact=?")
		args = append(args, *upd.Contact)
	}
	if upd.Position != nil {
		sets = append(sets, "position=?")
		args = append(args, *upd.Position)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return dupKeyError(err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash for a user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// SetCalendarToken stores (or clears, when nil) the serialized external
// calendar credential for a user.
func (r *UserRepo) SetCalendarToken(ctx context.Context, id uint64, token *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET calendar_token=? WHERE id=?", token, id)
	return err
}
