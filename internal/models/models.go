package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleReader    UserRole = "READER"
	UserRoleLibrarian UserRole = "LIBRARIAN"
)

// User is an account known to the circulation desk. Users are immutable once
// created; there is no profile data beyond the username and role.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username string    `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Role     UserRole  `gorm:"size:16;not null" json:"role"`
}

func (u *User) String() string {
	return fmt.Sprintf("%s: %s (%s)", u.ID, u.Username, u.Role)
}

// Book is a single lendable catalog entry. BorrowedUntil is set if and only if
// BorrowedByID is set. A reservation survives a return; it is consumed by the
// next borrow (which must be by the reserver) or by removing the book.
type Book struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Author        string     `gorm:"size:255;not null" json:"author"`
	Keywords      string     `gorm:"size:1024" json:"keywords"` // comma-separated, may be empty
	BorrowedByID  *uuid.UUID `gorm:"type:uuid;index" json:"borrowed_by_id,omitempty"`
	BorrowedBy    *User      `gorm:"foreignKey:BorrowedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"borrowed_by,omitempty"`
	BorrowedUntil *time.Time `json:"borrowed_until,omitempty"`
	ReservedByID  *uuid.UUID `gorm:"type:uuid;index" json:"reserved_by_id,omitempty"`
	ReservedBy    *User      `gorm:"foreignKey:ReservedByID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"reserved_by,omitempty"`
	Version       int64      `gorm:"not null;default:1" json:"version"`
}

// Borrowable reports whether the given user may borrow the book: nobody holds
// it, and any standing reservation is the user's own.
func (b *Book) Borrowable(userID uuid.UUID) bool {
	return b.BorrowedByID == nil && (b.ReservedByID == nil || *b.ReservedByID == userID)
}

// BorrowedByUser reports whether the given user holds the active loan.
func (b *Book) BorrowedByUser(userID uuid.UUID) bool {
	return b.BorrowedByID != nil && *b.BorrowedByID == userID
}

// Reservable reports whether the given user may reserve the book: it is out on
// loan to somebody else and not already reserved.
func (b *Book) Reservable(userID uuid.UUID) bool {
	return b.BorrowedByID != nil && *b.BorrowedByID != userID && b.ReservedByID == nil
}

// Borrowed reports whether the book is out on loan to anybody.
func (b *Book) Borrowed() bool {
	return b.BorrowedByID != nil
}

func (b *Book) String() string {
	keywords := b.Keywords
	if keywords == "" {
		keywords = "<none>"
	}
	s := fmt.Sprintf("%s: %q by %q, keywords: %s", b.ID, b.Title, b.Author, keywords)
	if b.BorrowedByID != nil {
		s += fmt.Sprintf(" (borrowed by %s until %s)", renderUser(b.BorrowedBy, *b.BorrowedByID), b.BorrowedUntil.Format("2006-01-02"))
	}
	if b.ReservedByID != nil {
		s += fmt.Sprintf(" (reserved by %s)", renderUser(b.ReservedBy, *b.ReservedByID))
	}
	return s
}

// renderUser falls back to the bare id when the relation was not preloaded.
func renderUser(u *User, id uuid.UUID) string {
	if u != nil {
		return u.String()
	}
	return id.String()
}
