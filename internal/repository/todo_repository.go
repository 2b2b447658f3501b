package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/todo-task-api/internal/model"
)

// TodoRepo provides access to the `todos` table. Every query is scoped
// by owner id equality; no method trusts a client-supplied owner field.
type TodoRepo struct{ DB *sql.DB }

func NewTodoRepo(db *sql.DB) *TodoRepo { return &TodoRepo{DB: db} }

const todoColumns = "id,title,description,date,completed,priority,status,image,owner_id,created_at,updated_at"

func scanTodo(scan func(dest ...any) error) (model.Todo, error) {
	var t model.Todo
	err := scan(&t.ID, &t.Title, &t.Description, &t.Date, &t.Completed,
		&t.Priority, &t.Status, &t.Image, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

// Create inserts a todo for its owner and fills in the generated ID and
// creation timestamp.
func (r *TodoRepo) Create(ctx context.Context, t *model.Todo) error {
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Status == "" {
		t.Status = model.DefaultStatus
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO todos (title, description, date, priority, status, owner_id) VALUES (?,?,?,?,?,?)",
		t.Title, t.Description, t.Date, t.Priority, t.Status, t.OwnerID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.CreatedAt = time.Now().UTC()
	return nil
}

// GetForOwner fetches a todo by id, restricted to the given owner.
// A todo owned by someone else is indistinguishable from a missing one.
func (r *TodoRepo) GetForOwner(ctx context.Context, id, ownerID uint64) (model.Todo, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE id=? AND owner_id=? LIMIT 1", id, ownerID)
	return scanTodo(row.Scan)
}

// ListFilter describes the optional filters and pagination of a list
// query. Page is 1-based; Size is clamped by the handler.
type ListFilter struct {
	Page      int
	Size      int
	Completed *bool  // nil = no filter
	Priority  string // empty = no filter
	Search    string // matches title or description, case-insensitive
}

// List returns one page of the owner's todos plus the unpaginated total
// for the same filter set.
func (r *TodoRepo) List(ctx context.Context, ownerID uint64, f ListFilter) ([]model.Todo, int, error) {
	where := []string{"owner_id=?"}
	args := []any{ownerID}
	if f.Completed != nil {
		where = append(where, "completed=?")
		args = append(args, *f.Completed)
	}
	if f.Priority != "" {
		where = append(where, "priority=?")
		args = append(args, f.Priority)
	}
	if f.Search != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, pattern, pattern)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM todos WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Size
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE "+cond+" ORDER BY id LIMIT ? OFFSET ?",
		append(args, f.Size, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	todos := make([]model.Todo, 0, f.Size)
	for rows.Next() {
		t, err := scanTodo(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		todos = append(todos, t)
	}
	return todos, total, rows.Err()
}

// TodoUpdate carries the optional fields of a partial todo update. Nil
// pointers leave the corresponding column untouched.
type TodoUpdate struct {
	Title       *string
	Description *string
	Date        *time.Time
	Completed   *bool
	Priority    *string
	Status      *string
}

// Update applies a partial update to an owner's todo. ErrNotFound is
// returned when the row does not exist or belongs to another owner.
func (r *TodoRepo) Update(ctx context.Context, id, ownerID uint64, upd TodoUpdate) error {
	sets := []string{"updated_at=UTC_TIMESTAMP()"}
	args := []any{}
	if upd.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description=?")
		args = append(args, *upd.Description)
	}
	if upd.Date != nil {
		sets = append(sets, "date=?")
		args = append(args, *upd.Date)
	}
	if upd.Completed != nil {
		sets = append(sets, "completed=?")
		args = append(args, *upd.Completed)
	}
	if upd.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, *upd.Priority)
	}
	if upd.Status != nil {
		sets = append(sets, "status=?")
		args = append(args, *upd.Status)
	}
	args = append(args, id, ownerID)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE todos SET "+strings.Join(sets, ", ")+" WHERE id=? AND owner_id=?", args...)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes an owner's todo.
func (r *TodoRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM todos WHERE id=? AND owner_id=?", id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Toggle flips the completion flag of an owner's todo in a single
// statement and returns the updated row.
func (r *TodoRepo) Toggle(ctx context.Context, id, ownerID uint64) (model.Todo, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE todos SET completed=NOT completed, updated_at=UTC_TIMESTAMP() WHERE id=? AND owner_id=?",
		id, ownerID)
	if err != nil {
		return model.Todo{}, err
	}
	if err := requireRow(res); err != nil {
		return model.Todo{}, err
	}
	return r.GetForOwner(ctx, id, ownerID)
}

// SetImage records the stored filename of an uploaded attachment.
func (r *TodoRepo) SetImage(ctx context.Context, id, ownerID uint64, filename string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE todos SET image=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND owner_id=?",
		filename, id, ownerID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Stats returns the owner's total and completed todo counts.
func (r *TodoRepo) Stats(ctx context.Context, ownerID uint64) (total, completed int, err error) {
	err = r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(completed),0) FROM todos WHERE owner_id=?",
		ownerID).Scan(&total, &completed)
	return total, completed, err
}

// AllForOwner returns every todo owned by a user, used by the calendar
// sync which exports the full task list.
func (r *TodoRepo) AllForOwner(ctx context.Context, ownerID uint64) ([]model.Todo, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+todoColumns+" FROM todos WHERE owner_id=? ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		t, err := scanTodo(rows.Scan)
		if err != nil {
			return nil, err
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
