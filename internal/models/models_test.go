package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBookPreconditions(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	tests := []struct {
		name           string
		borrowedBy     *uuid.UUID
		reservedBy     *uuid.UUID
		wantBorrowable map[uuid.UUID]bool
		wantReservable map[uuid.UUID]bool
	}{
		{
			name:           "on_the_shelf",
			wantBorrowable: map[uuid.UUID]bool{alice: true, bob: true},
			wantReservable: map[uuid.UUID]bool{alice: false, bob: false},
		},
		{
			name:           "borrowed_by_alice",
			borrowedBy:     &alice,
			wantBorrowable: map[uuid.UUID]bool{alice: false, bob: false},
			wantReservable: map[uuid.UUID]bool{alice: false, bob: true, carol: true},
		},
		{
			name:           "borrowed_by_alice_reserved_by_bob",
			borrowedBy:     &alice,
			reservedBy:     &bob,
			wantBorrowable: map[uuid.UUID]bool{alice: false, bob: false, carol: false},
			wantReservable: map[uuid.UUID]bool{alice: false, bob: false, carol: false},
		},
		{
			name:           "returned_with_standing_reservation",
			reservedBy:     &bob,
			wantBorrowable: map[uuid.UUID]bool{alice: false, bob: true, carol: false},
			wantReservable: map[uuid.UUID]bool{alice: false, bob: false, carol: false},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			book := &Book{
				ID:           uuid.New(),
				Title:        "Dune",
				Author:       "Herbert",
				BorrowedByID: tc.borrowedBy,
				ReservedByID: tc.reservedBy,
			}
			if tc.borrowedBy != nil {
				due := time.Now().Add(30 * 24 * time.Hour)
				book.BorrowedUntil = &due
			}

			for userID, want := range tc.wantBorrowable {
				assert.Equal(t, want, book.Borrowable(userID), "Borrowable(%s)", userID)
			}
			for userID, want := range tc.wantReservable {
				assert.Equal(t, want, book.Reservable(userID), "Reservable(%s)", userID)
			}
		})
	}
}

func TestBookBorrowedByUser(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	book := &Book{ID: uuid.New()}
	assert.False(t, book.Borrowed())
	assert.False(t, book.BorrowedByUser(alice))

	due := time.Now()
	book.BorrowedByID = &alice
	book.BorrowedUntil = &due
	assert.True(t, book.Borrowed())
	assert.True(t, book.BorrowedByUser(alice))
	assert.False(t, book.BorrowedByUser(bob))
}

func TestUserString(t *testing.T) {
	id := uuid.New()
	user := &User{ID: id, Username: "alice", Role: UserRoleReader}
	assert.Equal(t, fmt.Sprintf("%s: alice (READER)", id), user.String())
}

func TestBookString(t *testing.T) {
	bookID := uuid.New()
	alice := &User{ID: uuid.New(), Username: "alice", Role: UserRoleReader}
	bob := &User{ID: uuid.New(), Username: "bob", Role: UserRoleReader}
	due := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	base := &Book{ID: bookID, Title: "Dune", Author: "Herbert", Keywords: "scifi,classic"}
	assert.Equal(t,
		fmt.Sprintf(`%s: "Dune" by "Herbert", keywords: scifi,classic`, bookID),
		base.String())

	noKeywords := &Book{ID: bookID, Title: "Dune", Author: "Herbert"}
	assert.Equal(t,
		fmt.Sprintf(`%s: "Dune" by "Herbert", keywords: <none>`, bookID),
		noKeywords.String())

	borrowed := &Book{
		ID: bookID, Title: "Dune", Author: "Herbert", Keywords: "scifi,classic",
		BorrowedByID: &alice.ID, BorrowedBy: alice, BorrowedUntil: &due,
	}
	assert.Equal(t,
		fmt.Sprintf(`%s: "Dune" by "Herbert", keywords: scifi,classic (borrowed by %s until 2026-10-01)`, bookID, alice),
		borrowed.String())

	borrowedAndReserved := &Book{
		ID: bookID, Title: "Dune", Author: "Herbert", Keywords: "scifi,classic",
		BorrowedByID: &alice.ID, BorrowedBy: alice, BorrowedUntil: &due,
		ReservedByID: &bob.ID, ReservedBy: bob,
	}
	assert.Equal(t,
		fmt.Sprintf(`%s: "Dune" by "Herbert", keywords: scifi,classic (borrowed by %s until 2026-10-01) (reserved by %s)`, bookID, alice, bob),
		borrowedAndReserved.String())
}
