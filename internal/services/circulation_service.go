package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"circdesk/internal/catalog"
	"circdesk/internal/models"
	"circdesk/internal/repositories"
)

// ─── Circulation Constants ────────────────────────────────────────────────────

const (
	// DefaultLoanPeriodDays is the number of days added to "now" when a book
	// is borrowed or a loan is extended.
	DefaultLoanPeriodDays = 30

	// AdminUsername is the well-known librarian guaranteed to exist after
	// EnsureAdminUser has run.
	AdminUsername = "admin"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrTitleRequired is returned when adding a book without a title.
	ErrTitleRequired = errors.New("title is required")

	// ErrAuthorRequired is returned when adding a book without an author.
	ErrAuthorRequired = errors.New("author is required")

	// ErrUsernameRequired is returned when adding a user without a username.
	ErrUsernameRequired = errors.New("username is required")

	// ErrUsernameTaken is returned when the requested username already exists.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidRole is returned when adding a user with an unknown role.
	ErrInvalidRole = errors.New("role must be READER or LIBRARIAN")

	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotBorrowable is returned when a borrow is attempted on a book that
	// is already on loan or reserved by somebody else.
	ErrNotBorrowable = errors.New("book is not available for borrowing")

	// ErrNotBorrower is returned when an extension is attempted by a user who
	// does not hold the active loan.
	ErrNotBorrower = errors.New("book is not borrowed by this user")

	// ErrNotReservable is returned when a reservation is attempted on a book
	// that is on the shelf, already reserved, or borrowed by the actor.
	ErrNotReservable = errors.New("book cannot be reserved by this user")

	// ErrNotBorrowed is returned when a return is accepted for a book that is
	// not on loan.
	ErrNotBorrowed = errors.New("book is not borrowed")

	// ErrConflict is returned when a commit lost the race against another
	// transition on the same book. The operation aborted without mutating
	// state; the caller may re-issue it against the fresh state.
	ErrConflict = errors.New("book was modified concurrently")
)

// ─── Service Interface ────────────────────────────────────────────────────────

// CirculationService owns the legal state transitions of the catalog. Every
// transition re-reads the target book, validates its precondition against that
// read, and commits through the store's versioned compare-and-swap, so a
// precondition can never be observed stale at commit time. A precondition
// violation is a rejected operation (sentinel error), never a partial write.
type CirculationService interface {
	AddBook(title, author, keywords string) (*models.Book, error)
	RemoveBook(id uuid.UUID) error

	Borrow(id uuid.UUID, actor *models.User, now time.Time) (*models.Book, error)
	Extend(id uuid.UUID, actor *models.User, now time.Time) (*models.Book, error)
	Reserve(id uuid.UUID, actor *models.User) (*models.Book, error)
	AcceptReturn(id uuid.UUID) (*models.Book, error)

	SearchBooks(q catalog.Query) ([]models.Book, error)

	AddUser(username string, role models.UserRole) (*models.User, error)
	Authenticate(username string) (*models.User, error)
	EnsureAdminUser() (*models.User, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type circulationService struct {
	books      repositories.BookStore
	users      repositories.UserStore
	loanPeriod time.Duration
}

// NewCirculationService wires up the store dependencies. A non-positive loan
// period falls back to DefaultLoanPeriodDays.
func NewCirculationService(books repositories.BookStore, users repositories.UserStore, loanPeriod time.Duration) CirculationService {
	if loanPeriod <= 0 {
		loanPeriod = DefaultLoanPeriodDays * 24 * time.Hour
	}
	return &circulationService{
		books:      books,
		users:      users,
		loanPeriod: loanPeriod,
	}
}

// ─── Book Management ──────────────────────────────────────────────────────────

// AddBook creates a catalog entry with no borrower, due date or reserver.
func (s *circulationService) AddBook(title, author, keywords string) (*models.Book, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}
	if author == "" {
		return nil, ErrAuthorRequired
	}

	book := &models.Book{
		Title:    title,
		Author:   author,
		Keywords: keywords,
	}
	if err := s.books.Create(book); err != nil {
		log.Printf("[ERROR] AddBook: failed to create book record: %v", err)
		return nil, err
	}
	log.Printf("[INFO] AddBook: created book %q by %q (id=%s)", book.Title, book.Author, book.ID)
	return book, nil
}

// RemoveBook deletes a book unconditionally, discarding any active loan or
// reservation (force-remove semantics).
func (s *circulationService) RemoveBook(id uuid.UUID) error {
	if err := s.books.Delete(id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrBookNotFound
		}
		log.Printf("[ERROR] RemoveBook: failed to delete book %s: %v", id, err)
		return err
	}
	log.Printf("[INFO] RemoveBook: removed book %s", id)
	return nil
}

// ─── Circulation Transitions ──────────────────────────────────────────────────

// Borrow lends the book to the actor until now + loan period. The actor must
// find the shelf empty: nobody borrowing, and any reservation their own. A
// consumed reservation is cleared in the same commit.
func (s *circulationService) Borrow(id uuid.UUID, actor *models.User, now time.Time) (*models.Book, error) {
	book, err := s.getBook(id)
	if err != nil {
		return nil, err
	}
	if !book.Borrowable(actor.ID) {
		log.Printf("[WARN] Borrow: book %s is not borrowable by %s", id, actor.Username)
		return nil, ErrNotBorrowable
	}

	due := now.Add(s.loanPeriod)
	book.ReservedByID = nil
	book.ReservedBy = nil
	book.BorrowedByID = &actor.ID
	book.BorrowedBy = actor
	book.BorrowedUntil = &due

	committed, err := s.commit("Borrow", book)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Borrow: book %s borrowed by %s until %s", id, actor.Username, due.Format("2006-01-02"))
	return committed, nil
}

// Extend pushes the due date of the actor's own loan to now + loan period.
func (s *circulationService) Extend(id uuid.UUID, actor *models.User, now time.Time) (*models.Book, error) {
	book, err := s.getBook(id)
	if err != nil {
		return nil, err
	}
	if !book.BorrowedByUser(actor.ID) {
		log.Printf("[WARN] Extend: book %s is not borrowed by %s", id, actor.Username)
		return nil, ErrNotBorrower
	}

	due := now.Add(s.loanPeriod)
	book.BorrowedUntil = &due

	committed, err := s.commit("Extend", book)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Extend: loan on book %s extended by %s until %s", id, actor.Username, due.Format("2006-01-02"))
	return committed, nil
}

// Reserve grants the actor first claim on the book's next availability. The
// book must be on loan to somebody else and carry no reservation yet.
func (s *circulationService) Reserve(id uuid.UUID, actor *models.User) (*models.Book, error) {
	book, err := s.getBook(id)
	if err != nil {
		return nil, err
	}
	if !book.Reservable(actor.ID) {
		log.Printf("[WARN] Reserve: book %s is not reservable by %s", id, actor.Username)
		return nil, ErrNotReservable
	}

	book.ReservedByID = &actor.ID
	book.ReservedBy = actor

	committed, err := s.commit("Reserve", book)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Reserve: book %s reserved by %s", id, actor.Username)
	return committed, nil
}

// AcceptReturn clears the loan. A standing reservation is left untouched; the
// reserver keeps first claim on the next borrow.
func (s *circulationService) AcceptReturn(id uuid.UUID) (*models.Book, error) {
	book, err := s.getBook(id)
	if err != nil {
		return nil, err
	}
	if !book.Borrowed() {
		log.Printf("[WARN] AcceptReturn: book %s is not on loan", id)
		return nil, ErrNotBorrowed
	}

	borrower := book.BorrowedBy
	book.BorrowedByID = nil
	book.BorrowedBy = nil
	book.BorrowedUntil = nil

	committed, err := s.commit("AcceptReturn", book)
	if err != nil {
		return nil, err
	}
	if borrower != nil {
		log.Printf("[INFO] AcceptReturn: book %s returned by %s", id, borrower.Username)
	} else {
		log.Printf("[INFO] AcceptReturn: book %s returned", id)
	}
	return committed, nil
}

// ─── Catalog Search ───────────────────────────────────────────────────────────

// SearchBooks executes a catalog query. An empty result is a normal outcome,
// not an error; the caller decides whether to search again or abort.
func (s *circulationService) SearchBooks(q catalog.Query) ([]models.Book, error) {
	books, err := s.books.Search(q)
	if err != nil {
		log.Printf("[ERROR] SearchBooks: search failed: %v", err)
		return nil, err
	}
	return books, nil
}

// ─── Users ────────────────────────────────────────────────────────────────────

// AddUser creates an account. Usernames are unique; users are immutable after
// creation.
func (s *circulationService) AddUser(username string, role models.UserRole) (*models.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if role != models.UserRoleReader && role != models.UserRoleLibrarian {
		return nil, ErrInvalidRole
	}

	user := &models.User{
		Username: username,
		Role:     role,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		log.Printf("[ERROR] AddUser: failed to create user %q: %v", username, err)
		return nil, err
	}
	log.Printf("[INFO] AddUser: created user %s", user)
	return user, nil
}

// Authenticate resolves a username to its account. There is no password; the
// two-role model is the entire authorization surface.
func (s *circulationService) Authenticate(username string) (*models.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// EnsureAdminUser creates the well-known "admin" librarian if it is missing.
// Safe to call on every startup.
func (s *circulationService) EnsureAdminUser() (*models.User, error) {
	user, err := s.users.GetByUsername(AdminUsername)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	admin, err := s.AddUser(AdminUsername, models.UserRoleLibrarian)
	if err != nil {
		// Lost a startup race against another instance; the account exists.
		if errors.Is(err, ErrUsernameTaken) {
			return s.users.GetByUsername(AdminUsername)
		}
		return nil, err
	}
	log.Printf("[INFO] EnsureAdminUser: bootstrapped librarian %q", AdminUsername)
	return admin, nil
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

// getBook is the re-read immediately preceding precondition validation. The
// interactive selection step may have happened long before; only the state
// read here is trusted.
func (s *circulationService) getBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.books.Get(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrBookNotFound
		}
		log.Printf("[ERROR] getBook: failed to load book %s: %v", id, err)
		return nil, err
	}
	return book, nil
}

// commit writes the new state through the versioned compare-and-swap. A stale
// version means another transition won the race; the operation is rejected
// exactly like a failed precondition, with no partial state left behind.
func (s *circulationService) commit(op string, book *models.Book) (*models.Book, error) {
	committed, err := s.books.Commit(book)
	if err != nil {
		if errors.Is(err, repositories.ErrStaleVersion) {
			log.Printf("[WARN] %s: commit conflict on book %s, operation rejected", op, book.ID)
			return nil, ErrConflict
		}
		log.Printf("[ERROR] %s: commit failed for book %s: %v", op, book.ID, err)
		return nil, err
	}
	return committed, nil
}
