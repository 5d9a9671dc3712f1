package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"circdesk/internal/auth"
	"circdesk/internal/catalog"
	"circdesk/internal/models"
	"circdesk/internal/services"
)

// Options carries the handler configuration RegisterRoutes needs beyond the
// service itself.
type Options struct {
	JWTSecret   string
	TokenTTL    time.Duration
	Blacklist   *auth.TokenBlacklist // nil disables server-side logout
	SearchLimit int
}

type Handler struct {
	svc  services.CirculationService
	opts Options
}

func RegisterRoutes(r *gin.Engine, svc services.CirculationService, opts Options) {
	h := &Handler{svc: svc, opts: opts}
	am := NewAuthMiddleware(opts.JWTSecret, opts.Blacklist)

	r.POST("/login", h.login)

	authed := r.Group("", am.RequireAuth())
	authed.POST("/logout", h.logout)
	authed.GET("/operations", h.listOperations)
	authed.GET("/books", h.searchBooks)

	reader := authed.Group("", RequireRole(models.UserRoleReader))
	reader.POST("/books/:id/borrow", h.borrowBook)
	reader.POST("/books/:id/extend", h.extendLoan)
	reader.POST("/books/:id/reserve", h.reserveBook)

	librarian := authed.Group("", RequireRole(models.UserRoleLibrarian))
	librarian.POST("/books", h.addBook)
	librarian.DELETE("/books/:id", h.removeBook)
	librarian.POST("/books/:id/return", h.acceptReturn)
	librarian.POST("/users", h.addUser)
}

// ─── Views ────────────────────────────────────────────────────────────────────

type bookView struct {
	*models.Book
	Summary string `json:"summary"`
}

type userView struct {
	*models.User
	Summary string `json:"summary"`
}

func viewBook(b *models.Book) bookView {
	return bookView{Book: b, Summary: b.String()}
}

func viewBooks(books []models.Book) []bookView {
	views := make([]bookView, len(books))
	for i := range books {
		views[i] = viewBook(&books[i])
	}
	return views
}

func viewUser(u *models.User) userView {
	return userView{User: u, Summary: u.String()}
}

// ─── Session ──────────────────────────────────────────────────────────────────

type loginRequest struct {
	Username string `json:"username" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.svc.Authenticate(req.Username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token, err := auth.GenerateToken(h.opts.JWTSecret, user, h.opts.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	// The capability set is resolved here, once per session.
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"user":       viewUser(user),
		"operations": services.OperationsFor(user.Role),
	})
}

func (h *Handler) logout(c *gin.Context) {
	claims := claimsFrom(c)
	if h.opts.Blacklist != nil && claims != nil && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if err := h.opts.Blacklist.Revoke(c.Request.Context(), tokenFrom(c), ttl); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *Handler) listOperations(c *gin.Context) {
	actor := actorFrom(c)
	c.JSON(http.StatusOK, gin.H{"operations": services.OperationsFor(actor.Role)})
}

// ─── Catalog Search ───────────────────────────────────────────────────────────

// searchBooks resolves candidate books under the optional criteria id, title,
// author and keyword, plus an optional operation-eligibility predicate
// (eligible=borrow|extend|reserve|return) evaluated for the acting user. All
// supplied criteria are ANDed; an empty result is a 200 with an empty list.
func (h *Handler) searchBooks(c *gin.Context) {
	actor := actorFrom(c)

	q := catalog.NewQuery().WithLimit(h.opts.SearchLimit)
	if raw := c.Query("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
			return
		}
		q = q.WithID(id)
	}
	q = q.WithTitle(c.Query("title")).
		WithAuthor(c.Query("author")).
		WithKeyword(c.Query("keyword"))

	switch c.Query("eligible") {
	case "":
	case "borrow":
		q = q.Matching(catalog.BorrowableBy(actor.ID))
	case "extend":
		q = q.Matching(catalog.BorrowedBy(actor.ID))
	case "reserve":
		q = q.Matching(catalog.ReservableBy(actor.ID))
	case "return":
		q = q.Matching(catalog.Borrowed())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "eligible must be one of borrow, extend, reserve, return"})
		return
	}

	books, err := h.svc.SearchBooks(q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": viewBooks(books)})
}

// ─── Reader Operations ────────────────────────────────────────────────────────

func (h *Handler) borrowBook(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	book, err := h.svc.Borrow(id, actorFrom(c), time.Now())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBook(book))
}

func (h *Handler) extendLoan(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	book, err := h.svc.Extend(id, actorFrom(c), time.Now())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBook(book))
}

func (h *Handler) reserveBook(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	book, err := h.svc.Reserve(id, actorFrom(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBook(book))
}

// ─── Librarian Operations ─────────────────────────────────────────────────────

type addBookRequest struct {
	Title    string `json:"title" binding:"required"`
	Author   string `json:"author" binding:"required"`
	Keywords string `json:"keywords"`
}

func (h *Handler) addBook(c *gin.Context) {
	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	book, err := h.svc.AddBook(req.Title, req.Author, req.Keywords)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewBook(book))
}

func (h *Handler) removeBook(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveBook(id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book removed"})
}

func (h *Handler) acceptReturn(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	book, err := h.svc.AcceptReturn(id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewBook(book))
}

type addUserRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role"` // defaults to READER
}

func (h *Handler) addUser(c *gin.Context) {
	var req addUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.UserRole(req.Role)
	if req.Role == "" {
		role = models.UserRoleReader
	}

	user, err := h.svc.AddUser(req.Username, role)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewUser(user))
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func bookID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors onto HTTP statuses: bad input is 400,
// missing records are 404, rejected transitions (including commit conflicts)
// are 409, everything else is 500.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrAuthorRequired),
		errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, services.ErrInvalidRole):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrBookNotFound),
		errors.Is(err, services.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNotBorrowable),
		errors.Is(err, services.ErrNotBorrower),
		errors.Is(err, services.ErrNotReservable),
		errors.Is(err, services.ErrNotBorrowed),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
