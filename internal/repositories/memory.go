package repositories

import (
	"sync"

	"github.com/google/uuid"

	"circdesk/internal/catalog"
	"circdesk/internal/models"
)

// MemoryStore is an in-process record store with the same commit semantics as
// the Postgres store. It backs the test suites and is usable for local runs
// without a database. Books and users share one lock so book snapshots see a
// consistent user table; store order is insertion order.
type MemoryStore struct {
	mu         sync.Mutex
	books      map[uuid.UUID]*models.Book
	bookOrder  []uuid.UUID
	users      map[uuid.UUID]*models.User
	byUsername map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		books:      make(map[uuid.UUID]*models.Book),
		users:      make(map[uuid.UUID]*models.User),
		byUsername: make(map[string]uuid.UUID),
	}
}

// Books returns the BookStore view of the memory store.
func (s *MemoryStore) Books() BookStore { return &memoryBookStore{s} }

// Users returns the UserStore view of the memory store.
func (s *MemoryStore) Users() UserStore { return &memoryUserStore{s} }

type memoryBookStore struct {
	*MemoryStore
}

func (s *memoryBookStore) Get(id uuid.UUID) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.snapshot(book), nil
}

func (s *memoryBookStore) Search(q catalog.Query) ([]models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]models.Book, 0)
	for _, id := range s.bookOrder {
		book := s.snapshot(s.books[id])
		if !q.Matches(book) {
			continue
		}
		results = append(results, *book)
		if len(results) >= q.Limit() {
			break
		}
	}
	return results, nil
}

func (s *memoryBookStore) Create(book *models.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	book.Version = 1
	stored := *book
	s.books[book.ID] = &stored
	s.bookOrder = append(s.bookOrder, book.ID)
	return nil
}

func (s *memoryBookStore) Commit(book *models.Book) (*models.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.books[book.ID]
	if !ok || current.Version != book.Version {
		return nil, ErrStaleVersion
	}
	stored := *book
	stored.Version = book.Version + 1
	s.books[book.ID] = &stored
	return s.snapshot(&stored), nil
}

func (s *memoryBookStore) Delete(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	delete(s.books, id)
	for i, orderedID := range s.bookOrder {
		if orderedID == id {
			s.bookOrder = append(s.bookOrder[:i], s.bookOrder[i+1:]...)
			break
		}
	}
	return nil
}

type memoryUserStore struct {
	*MemoryStore
}

func (s *memoryUserStore) GetByUsername(username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	user := *s.users[id]
	return &user, nil
}

func (s *memoryUserStore) GetByID(id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memoryUserStore) Create(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[user.Username]; taken {
		return ErrDuplicateUsername
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	stored := *user
	s.users[user.ID] = &stored
	s.byUsername[user.Username] = user.ID
	return nil
}

// snapshot copies a stored book and resolves its user relations, mirroring the
// Preloads done by the Postgres store. Pointer fields are copied too so
// callers get a fully isolated snapshot.
func (s *MemoryStore) snapshot(book *models.Book) *models.Book {
	copied := *book
	if book.BorrowedByID != nil {
		id := *book.BorrowedByID
		copied.BorrowedByID = &id
	}
	if book.BorrowedUntil != nil {
		due := *book.BorrowedUntil
		copied.BorrowedUntil = &due
	}
	if book.ReservedByID != nil {
		id := *book.ReservedByID
		copied.ReservedByID = &id
	}
	if copied.BorrowedByID != nil {
		if u, ok := s.users[*copied.BorrowedByID]; ok {
			borrower := *u
			copied.BorrowedBy = &borrower
		}
	}
	if copied.ReservedByID != nil {
		if u, ok := s.users[*copied.ReservedByID]; ok {
			reserver := *u
			copied.ReservedBy = &reserver
		}
	}
	return &copied
}
