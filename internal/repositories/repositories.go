// Package repositories holds the record-store contract consumed by the
// circulation engine, together with its Postgres and in-memory
// implementations.
package repositories

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"circdesk/internal/catalog"
	"circdesk/internal/models"
)

var (
	// ErrNotFound is returned by point lookups when no record matches.
	// Searches never return it; an empty result set is a normal outcome.
	ErrNotFound = errors.New("record not found")

	// ErrStaleVersion is returned by Commit when the stored version no longer
	// matches the version the caller read, i.e. another transition committed
	// first (or the book was removed in between).
	ErrStaleVersion = errors.New("book version is stale")

	// ErrDuplicateUsername is returned when creating a user whose username is
	// already taken.
	ErrDuplicateUsername = errors.New("username already taken")
)

// BookStore is the catalog half of the record-store contract. Commit is the
// only mutation path for existing books: it compares the version read at
// selection time against the stored one and rejects the write on mismatch, so
// at most one transition commits per book state.
type BookStore interface {
	Get(id uuid.UUID) (*models.Book, error)
	Search(q catalog.Query) ([]models.Book, error)
	Create(book *models.Book) error
	Commit(book *models.Book) (*models.Book, error)
	Delete(id uuid.UUID) error
}

// UserStore is the account half of the record-store contract.
type UserStore interface {
	GetByUsername(username string) (*models.User, error)
	GetByID(id uuid.UUID) (*models.User, error)
	Create(user *models.User) error
}

// ─── Postgres Implementation ──────────────────────────────────────────────────

type gormBookStore struct {
	db *gorm.DB
}

func NewBookStore(db *gorm.DB) BookStore {
	return &gormBookStore{db: db}
}

func (s *gormBookStore) Get(id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := s.db.
		Preload("BorrowedBy").
		Preload("ReservedBy").
		First(&book, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (s *gormBookStore) Search(q catalog.Query) ([]models.Book, error) {
	var books []models.Book
	err := s.db.
		Scopes(q.Scope()).
		Preload("BorrowedBy").
		Preload("ReservedBy").
		Order("id").
		Limit(q.Limit()).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (s *gormBookStore) Create(book *models.Book) error {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	book.Version = 1
	return s.db.Create(book).Error
}

// Commit writes the new book state with a compare-and-swap on Version: a
// single conditional UPDATE, so no other transition can interleave between the
// caller's read and this write. Zero rows affected means somebody else
// committed first (or the book is gone).
func (s *gormBookStore) Commit(book *models.Book) (*models.Book, error) {
	res := s.db.Model(&models.Book{}).
		Where("id = ? AND version = ?", book.ID, book.Version).
		Updates(map[string]interface{}{
			"title":          book.Title,
			"author":         book.Author,
			"keywords":       book.Keywords,
			"borrowed_by_id": book.BorrowedByID,
			"borrowed_until": book.BorrowedUntil,
			"reserved_by_id": book.ReservedByID,
			"version":        book.Version + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrStaleVersion
	}
	return s.Get(book.ID)
}

func (s *gormBookStore) Delete(id uuid.UUID) error {
	res := s.db.Delete(&models.Book{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormUserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) UserStore {
	return &gormUserStore{db: db}
}

func (s *gormUserStore) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) Create(user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := s.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

// isUniqueViolation checks whether a PostgreSQL unique-constraint error
// occurred. PostgreSQL error code 23505 = unique_violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
