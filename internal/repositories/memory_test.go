package repositories_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circdesk/internal/catalog"
	"circdesk/internal/models"
	"circdesk/internal/repositories"
)

func TestMemoryBookCRUD(t *testing.T) {
	books := repositories.NewMemoryStore().Books()

	book := &models.Book{Title: "Dune", Author: "Herbert", Keywords: "scifi"}
	require.NoError(t, books.Create(book))
	assert.NotEqual(t, uuid.Nil, book.ID)
	assert.Equal(t, int64(1), book.Version)

	got, err := books.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	_, err = books.Get(uuid.New())
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, books.Delete(book.ID))
	_, err = books.Get(book.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, books.Delete(book.ID), repositories.ErrNotFound)
}

func TestMemorySearchOrderAndCap(t *testing.T) {
	books := repositories.NewMemoryStore().Books()

	for i := 0; i < 25; i++ {
		require.NoError(t, books.Create(&models.Book{
			Title:  fmt.Sprintf("Book %02d", i),
			Author: "Author",
		}))
	}

	// Blank query returns everything up to the cap, in insertion order.
	results, err := books.Search(catalog.NewQuery())
	require.NoError(t, err)
	require.Len(t, results, catalog.DefaultLimit)
	for i, book := range results {
		assert.Equal(t, fmt.Sprintf("Book %02d", i), book.Title)
	}

	results, err = books.Search(catalog.NewQuery().WithLimit(3))
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Filtered search, empty result is a normal outcome.
	results, err = books.Search(catalog.NewQuery().WithTitle("no such book"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryCommitVersioning(t *testing.T) {
	books := repositories.NewMemoryStore().Books()

	book := &models.Book{Title: "Dune", Author: "Herbert"}
	require.NoError(t, books.Create(book))

	first, err := books.Get(book.ID)
	require.NoError(t, err)
	second, err := books.Get(book.ID)
	require.NoError(t, err)

	first.Keywords = "scifi"
	committed, err := books.Commit(first)
	require.NoError(t, err)
	assert.Equal(t, int64(2), committed.Version)

	// The second reader holds a stale version now.
	second.Keywords = "fantasy"
	_, err = books.Commit(second)
	assert.ErrorIs(t, err, repositories.ErrStaleVersion)

	got, err := books.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "scifi", got.Keywords, "losing commit must not mutate state")

	// Committing against a deleted book is also a stale write.
	require.NoError(t, books.Delete(book.ID))
	committed.Keywords = "gone"
	_, err = books.Commit(committed)
	assert.ErrorIs(t, err, repositories.ErrStaleVersion)
}

func TestMemorySnapshotIsolation(t *testing.T) {
	store := repositories.NewMemoryStore()
	books := store.Books()

	book := &models.Book{Title: "Dune", Author: "Herbert"}
	require.NoError(t, books.Create(book))

	got, err := books.Get(book.ID)
	require.NoError(t, err)
	got.Title = "mutated"

	fresh, err := books.Get(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", fresh.Title, "callers must not be able to mutate stored state")
}

func TestMemorySnapshotResolvesUsers(t *testing.T) {
	store := repositories.NewMemoryStore()
	books, users := store.Books(), store.Users()

	alice := &models.User{Username: "alice", Role: models.UserRoleReader}
	require.NoError(t, users.Create(alice))

	due := time.Now().Add(30 * 24 * time.Hour)
	book := &models.Book{Title: "Dune", Author: "Herbert"}
	require.NoError(t, books.Create(book))
	book.BorrowedByID = &alice.ID
	book.BorrowedUntil = &due
	_, err := books.Commit(book)
	require.NoError(t, err)

	got, err := books.Get(book.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BorrowedBy)
	assert.Equal(t, "alice", got.BorrowedBy.Username)
}

func TestMemoryUsers(t *testing.T) {
	users := repositories.NewMemoryStore().Users()

	alice := &models.User{Username: "alice", Role: models.UserRoleReader}
	require.NoError(t, users.Create(alice))
	assert.NotEqual(t, uuid.Nil, alice.ID)

	got, err := users.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	byID, err := users.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	_, err = users.GetByUsername("bob")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	err = users.Create(&models.User{Username: "alice", Role: models.UserRoleLibrarian})
	assert.ErrorIs(t, err, repositories.ErrDuplicateUsername)
}
