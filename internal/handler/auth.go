package handler

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-task-api/internal/config"
	"github.com/iliyamo/todo-task-api/internal/middleware"
	"github.com/iliyamo/todo-task-api/internal/model"
	"github.com/iliyamo/todo-task-api/internal/repository"
	"github.com/iliyamo/todo-task-api/internal/utils"
)

// minPasswordLen is the minimum accepted password length at registration
// and password change.
const minPasswordLen = 6

// dbTimeout bounds every database call made from a handler.
const dbTimeout = 5 * time.Second

// UserStore is the slice of the user repository the auth handlers need.
// *repository.UserRepo satisfies it.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByLogin(ctx context.Context, login string) (model.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error)
	UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error)
	UpdateProfile(ctx context.Context, id uint64, upd repository.ProfileUpdate) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	SetCalendarToken(ctx context.Context, id uint64, token *string) error
}

// AuthHandler bundles dependencies for the account endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewAuthHandler(cfg config.Config, users UserStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Contact   string `json:"contact"`
	Position  string `json:"position"`
}

type updateMeReq struct {
	Email     *string `json:"email"`
	Username  *string `json:"username"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Contact   *string `json:"contact"`
	Position  *string `json:"position"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type userResp struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Contact   string    `json:"contact"`
	Position  string    `json:"position"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Firstname: u.Firstname,
		Lastname:  u.Lastname,
		Contact:   u.Contact,
		Position:  u.Position,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Register creates a new account after checking both unique fields. The
// conflict response names the colliding field so clients can point at
// the right form input.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, username and password are required"})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
	}
	if len(req.Password) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if taken, err := h.Users.UsernameTaken(ctx, req.Username, 0); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already registered"})
	}
	if taken, err := h.Users.EmailTaken(ctx, req.Email, 0); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	} else if taken {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u := model.User{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		Contact:      req.Contact,
		Position:     req.Position,
	}
	if err := h.Users.Create(ctx, &u); err != nil {
		// A concurrent registration can still slip past the pre-checks.
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	u.CreatedAt = time.Now().UTC()

	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login verifies form-encoded credentials and returns a bearer token.
// The username field accepts either a username or an email. Every
// failure mode yields the same generic 401.
func (h *AuthHandler) Login(c echo.Context) error {
	login := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	if login == "" || password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect username or password"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "incorrect username or password"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.Username, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: access.Token, TokenType: "bearer"})
}

// Me returns the authenticated caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// UpdateMe applies a partial profile update. Changed unique fields are
// re-checked excluding the caller's own row, so keeping your current
// email or username is never a conflict.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateMeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
		}
		req.Email = &email
		if taken, err := h.Users.EmailTaken(ctx, email, u.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		} else if taken {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		}
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username must not be empty"})
		}
		req.Username = &username
		if taken, err := h.Users.UsernameTaken(ctx, username, u.ID); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		} else if taken {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already registered"})
		}
	}

	upd := repository.ProfileUpdate{
		Email:     req.Email,
		Username:  req.Username,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Contact:   req.Contact,
		Position:  req.Position,
	}
	if err := h.Users.UpdateProfile(ctx, u.ID, upd); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		case errors.Is(err, repository.ErrUsernameExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	fresh, err := h.Users.GetByID(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserResp(fresh))
}

// ChangePassword rotates the caller's password. Possession of a valid
// token is not enough: the current plaintext password must verify too,
// so a leaked session cannot silently take over the account. A mismatch
// is reported as the same generic unauthorized outcome as any other
// failed authorization check.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if len(req.NewPassword) < minPasswordLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new password must be at least 6 characters"})
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed successfully"})
}
