package handler

import (
	"context"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-task-api/internal/cache"
	"github.com/iliyamo/todo-task-api/internal/config"
	"github.com/iliyamo/todo-task-api/internal/middleware"
	"github.com/iliyamo/todo-task-api/internal/model"
	"github.com/iliyamo/todo-task-api/internal/repository"
	"github.com/iliyamo/todo-task-api/internal/utils"
)

// Cache operation names. They form the second segment of every cache
// key and the invalidation patterns, so a mutation can purge exactly
// the read operations it could have staled.
const (
	opList  = "list"
	opStats = "stats"
)

// TodoStore is the slice of the todo repository the handlers need.
// *repository.TodoRepo satisfies it.
type TodoStore interface {
	Create(ctx context.Context, t *model.Todo) error
	GetForOwner(ctx context.Context, id, ownerID uint64) (model.Todo, error)
	List(ctx context.Context, ownerID uint64, f repository.ListFilter) ([]model.Todo, int, error)
	Update(ctx context.Context, id, ownerID uint64, upd repository.TodoUpdate) error
	Delete(ctx context.Context, id, ownerID uint64) error
	Toggle(ctx context.Context, id, ownerID uint64) (model.Todo, error)
	SetImage(ctx context.Context, id, ownerID uint64, filename string) error
	Stats(ctx context.Context, ownerID uint64) (total, completed int, err error)
	AllForOwner(ctx context.Context, ownerID uint64) ([]model.Todo, error)
}

// TodoHandler bundles dependencies for the todo endpoints: the store,
// the response cache and the upload directory.
type TodoHandler struct {
	Todos     TodoStore
	Cache     *cache.Store
	CacheCfg  config.CacheConfig
	UploadDir string
}

func NewTodoHandler(todos TodoStore, store *cache.Store, cacheCfg config.CacheConfig, uploadDir string) *TodoHandler {
	return &TodoHandler{Todos: todos, Cache: store, CacheCfg: cacheCfg, UploadDir: uploadDir}
}

// ----- DTOs -----

type todoCreateReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
}

type todoUpdateReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
}

type todoResp struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        *time.Time `json:"date"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Image       *string    `json:"image"`
	OwnerID     uint64     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

type todoListResp struct {
	Todos []todoResp `json:"todos"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
	Pages int        `json:"pages"`
}

type statsResp struct {
	TotalTodos     int     `json:"total_todos"`
	CompletedTodos int     `json:"completed_todos"`
	PendingTodos   int     `json:"pending_todos"`
	CompletionRate float64 `json:"completion_rate"`
}

func toTodoResp(t model.Todo) todoResp {
	return todoResp{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Date:        t.Date,
		Completed:   t.Completed,
		Priority:    t.Priority,
		Status:      t.Status,
		Image:       t.Image,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// parseDate accepts either a bare date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t.UTC(), err
}

// invalidateOwner purges every cached read-side entry that a mutation
// of this owner's todos could have staled, whatever the filter and
// pagination parameters that produced them were.
func (h *TodoHandler) invalidateOwner(ctx context.Context, ownerID uint64) {
	h.Cache.Invalidate(ctx, cache.OwnerPattern(h.CacheCfg.Prefix, opList, ownerID))
	h.Cache.Invalidate(ctx, cache.OwnerPattern(h.CacheCfg.Prefix, opStats, ownerID))
}

// Create adds a todo for the authenticated owner.
func (h *TodoHandler) Create(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req todoCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if req.Priority != "" && !model.ValidPriority(req.Priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "priority must be low, medium or high"})
	}
	t := model.Todo{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		OwnerID:     u.ID,
	}
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date format"})
		}
		t.Date = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Todos.Create(ctx, &t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create todo failed"})
	}
	h.invalidateOwner(ctx, u.ID)

	return c.JSON(http.StatusCreated, toTodoResp(t))
}

// List returns one page of the owner's todos, honoring the completed,
// priority and search filters. Responses are cached per owner and
// filter set; a hit skips the database entirely.
func (h *TodoHandler) List(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	f := repository.ListFilter{Page: 1, Size: 10}
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			f.Page = n
		} else {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "page must be a positive integer"})
		}
	}
	if v := c.QueryParam("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 100 {
			f.Size = n
		} else {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "size must be between 1 and 100"})
		}
	}
	var completedArg any
	if v := c.QueryParam("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "completed must be a boolean"})
		}
		f.Completed = &b
		completedArg = b
	}
	if v := c.QueryParam("priority"); v != "" {
		if !model.ValidPriority(v) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "priority must be low, medium or high"})
		}
		f.Priority = v
	}
	f.Search = c.QueryParam("search")

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	key := cache.Key(h.CacheCfg.Prefix, opList, u.ID,
		cache.Arg{Name: "page", Value: f.Page},
		cache.Arg{Name: "size", Value: f.Size},
		cache.Arg{Name: "completed", Value: completedArg},
		cache.Arg{Name: "priority", Value: f.Priority},
		cache.Arg{Name: "search", Value: f.Search},
	)
	payload, err := h.Cache.GetOrCompute(ctx, key, h.CacheCfg.TTL, func() (any, error) {
		todos, total, err := h.Todos.List(ctx, u.ID, f)
		if err != nil {
			return nil, err
		}
		resp := todoListResp{
			Todos: make([]todoResp, 0, len(todos)),
			Total: total,
			Page:  f.Page,
			Size:  f.Size,
			Pages: (total + f.Size - 1) / f.Size,
		}
		for _, t := range todos {
			resp.Todos = append(resp.Todos, toTodoResp(t))
		}
		return resp, nil
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list todos failed"})
	}
	return c.JSONBlob(http.StatusOK, payload)
}

// Get returns a single todo by id. Another user's todo renders exactly
// like a missing one.
func (h *TodoHandler) Get(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := todoID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid todo id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	t, err := h.Todos.GetForOwner(ctx, id, u.ID)
	if err != nil {
		return todoError(c, err)
	}
	return c.JSON(http.StatusOK, toTodoResp(t))
}

// Update applies a partial update to an owner's todo.
func (h *TodoHandler) Update(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := todoID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid todo id"})
	}
	var req todoUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must not be empty"})
	}
	if req.Priority != nil && !model.ValidPriority(*req.Priority) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "priority must be low, medium or high"})
	}
	upd := repository.TodoUpdate{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date format"})
		}
		upd.Date = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Todos.Update(ctx, id, u.ID, upd); err != nil {
		return todoError(c, err)
	}
	h.invalidateOwner(ctx, u.ID)

	t, err := h.Todos.GetForOwner(ctx, id, u.ID)
	if err != nil {
		return todoError(c, err)
	}
	return c.JSON(http.StatusOK, toTodoResp(t))
}

// Delete removes an owner's todo.
func (h *TodoHandler) Delete(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := todoID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid todo id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Todos.Delete(ctx, id, u.ID); err != nil {
		return todoError(c, err)
	}
	h.invalidateOwner(ctx, u.ID)

	return c.JSON(http.StatusOK, echo.Map{"message": "todo deleted successfully"})
}

// Toggle flips the completion flag and returns the updated todo.
func (h *TodoHandler) Toggle(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := todoID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid todo id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	t, err := h.Todos.Toggle(ctx, id, u.ID)
	if err != nil {
		return todoError(c, err)
	}
	h.invalidateOwner(ctx, u.ID)

	return c.JSON(http.StatusOK, toTodoResp(t))
}

// Stats returns the owner's completion statistics. Cached like List and
// invalidated by the same mutations.
func (h *TodoHandler) Stats(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	key := cache.Key(h.CacheCfg.Prefix, opStats, u.ID)
	payload, err := h.Cache.GetOrCompute(ctx, key, h.CacheCfg.TTL, func() (any, error) {
		total, completed, err := h.Todos.Stats(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		rate := 0.0
		if total > 0 {
			rate = math.Round(float64(completed)/float64(total)*10000) / 100
		}
		return statsResp{
			TotalTodos:     total,
			CompletedTodos: completed,
			PendingTodos:   total - completed,
			CompletionRate: rate,
		}, nil
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load stats failed"})
	}
	return c.JSONBlob(http.StatusOK, payload)
}

// allowed image extensions for uploads.
var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// UploadImage stores a todo attachment under the upload directory with
// a random filename and records it on the todo. The file is served
// statically under /uploads.
func (h *TodoHandler) UploadImage(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := todoID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid todo id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	// Check ownership before touching the filesystem.
	if _, err := h.Todos.GetForOwner(ctx, id, u.ID); err != nil {
		return todoError(c, err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file is required"})
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExts[ext] {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported image type"})
	}

	name, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}
	filename := name + ext
	if err := saveUpload(fh, filepath.Join(h.UploadDir, filename)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}

	if err := h.Todos.SetImage(ctx, id, u.ID, filename); err != nil {
		return todoError(c, err)
	}
	h.invalidateOwner(ctx, u.ID)

	t, err := h.Todos.GetForOwner(ctx, id, u.ID)
	if err != nil {
		return todoError(c, err)
	}
	return c.JSON(http.StatusOK, toTodoResp(t))
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, src)
	return err
}

func todoID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// todoError maps repository failures onto HTTP responses. Not-owned and
// missing collapse into the same 404.
func todoError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "todo not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
}
