// Package catalog implements the query engine used to locate candidate books.
//
// A Query is a conjunction of independently-optional criteria: an exact id,
// case-insensitive substring matches on title, author and keywords, and any
// number of extra Predicates contributed by the calling operation (for example
// the borrow-eligibility check). An omitted criterion matches everything, so an
// empty Query matches the whole catalog.
//
// Queries are backend-agnostic: Scope lowers a Query to a gorm clause chain for
// the Postgres store, Matches evaluates it directly against a Book for the
// in-memory store.
package catalog

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"circdesk/internal/models"
)

// DefaultLimit caps search results when no explicit limit is set. It is a
// usability bound: when more books match, only the first DefaultLimit in store
// order are returned, with no indication that the result is truncated.
const DefaultLimit = 20

// Predicate is a single book criterion with two lowerings: a gorm scope for
// the Postgres store and a plain match function for the in-memory store. Both
// must accept exactly the same books.
type Predicate struct {
	name  string
	scope func(*gorm.DB) *gorm.DB
	match func(*models.Book) bool
}

func (p Predicate) Name() string { return p.name }

// Matches evaluates the predicate against a single book.
func (p Predicate) Matches(b *models.Book) bool { return p.match(b) }

// BorrowableBy matches books the given user may borrow right now: not on loan,
// and either unreserved or reserved by that same user.
func BorrowableBy(userID uuid.UUID) Predicate {
	return Predicate{
		name: "borrowable",
		scope: func(db *gorm.DB) *gorm.DB {
			return db.Where("borrowed_by_id IS NULL AND (reserved_by_id IS NULL OR reserved_by_id = ?)", userID)
		},
		match: func(b *models.Book) bool { return b.Borrowable(userID) },
	}
}

// BorrowedBy matches books currently on loan to the given user.
func BorrowedBy(userID uuid.UUID) Predicate {
	return Predicate{
		name: "borrowed-by",
		scope: func(db *gorm.DB) *gorm.DB {
			return db.Where("borrowed_by_id = ?", userID)
		},
		match: func(b *models.Book) bool { return b.BorrowedByUser(userID) },
	}
}

// ReservableBy matches books the given user may reserve: on loan to somebody
// else and not already reserved.
func ReservableBy(userID uuid.UUID) Predicate {
	return Predicate{
		name: "reservable",
		scope: func(db *gorm.DB) *gorm.DB {
			return db.Where("borrowed_by_id IS NOT NULL AND borrowed_by_id <> ? AND reserved_by_id IS NULL", userID)
		},
		match: func(b *models.Book) bool { return b.Reservable(userID) },
	}
}

// Borrowed matches books currently on loan to anybody (return candidates).
func Borrowed() Predicate {
	return Predicate{
		name: "borrowed",
		scope: func(db *gorm.DB) *gorm.DB {
			return db.Where("borrowed_by_id IS NOT NULL")
		},
		match: func(b *models.Book) bool { return b.Borrowed() },
	}
}

// Query is an immutable conjunctive book filter. The zero value matches every
// book; With* methods return extended copies.
type Query struct {
	id      *uuid.UUID
	title   string
	author  string
	keyword string
	extra   []Predicate
	limit   int
}

func NewQuery() Query { return Query{} }

// WithID adds an exact identity criterion.
func (q Query) WithID(id uuid.UUID) Query {
	q.id = &id
	return q
}

// WithTitle adds a case-insensitive title substring criterion. An empty or
// blank string leaves the query unchanged (match all).
func (q Query) WithTitle(s string) Query {
	q.title = strings.TrimSpace(s)
	return q
}

// WithAuthor adds a case-insensitive author substring criterion; blank means
// match all.
func (q Query) WithAuthor(s string) Query {
	q.author = strings.TrimSpace(s)
	return q
}

// WithKeyword adds a case-insensitive substring criterion on the keyword
// field; blank means match all.
func (q Query) WithKeyword(s string) Query {
	q.keyword = strings.TrimSpace(s)
	return q
}

// Matching adds an extra predicate; all added predicates must hold.
func (q Query) Matching(p Predicate) Query {
	q.extra = append(q.extra[:len(q.extra):len(q.extra)], p)
	return q
}

// WithLimit overrides the result cap; non-positive values fall back to
// DefaultLimit.
func (q Query) WithLimit(n int) Query {
	q.limit = n
	return q
}

// Limit returns the effective result cap.
func (q Query) Limit() int {
	if q.limit <= 0 {
		return DefaultLimit
	}
	return q.limit
}

// Matches evaluates the whole conjunction against a single book.
func (q Query) Matches(b *models.Book) bool {
	if q.id != nil && b.ID != *q.id {
		return false
	}
	if !containsFold(b.Title, q.title) {
		return false
	}
	if !containsFold(b.Author, q.author) {
		return false
	}
	if !containsFold(b.Keywords, q.keyword) {
		return false
	}
	for _, p := range q.extra {
		if !p.Matches(b) {
			return false
		}
	}
	return true
}

// Scope lowers the query to a gorm clause chain, suitable for db.Scopes.
func (q Query) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.id != nil {
			db = db.Where("id = ?", *q.id)
		}
		if q.title != "" {
			db = db.Where("title ILIKE ?", likePattern(q.title))
		}
		if q.author != "" {
			db = db.Where("author ILIKE ?", likePattern(q.author))
		}
		if q.keyword != "" {
			db = db.Where("keywords ILIKE ?", likePattern(q.keyword))
		}
		for _, p := range q.extra {
			db = p.scope(db)
		}
		return db
	}
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// likePattern builds a substring ILIKE pattern, escaping LIKE metacharacters
// in the needle.
func likePattern(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + escaped + "%"
}
