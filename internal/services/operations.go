package services

import "circdesk/internal/models"

// Operation names one action a signed-in user can perform. The set available
// to a session is fixed by the user's role and resolved once at session start;
// the HTTP layer serves it so clients can render role-appropriate menus.
type Operation string

const (
	OpBorrow       Operation = "borrow"
	OpExtend       Operation = "extend"
	OpReserve      Operation = "reserve"
	OpBrowse       Operation = "browse"
	OpAddBook      Operation = "add-book"
	OpRemoveBook   Operation = "remove-book"
	OpAddUser      Operation = "add-user"
	OpAcceptReturn Operation = "accept-return"
)

var (
	readerOperations = []Operation{
		OpBorrow,
		OpExtend,
		OpReserve,
		OpBrowse,
	}

	librarianOperations = []Operation{
		OpAddBook,
		OpRemoveBook,
		OpAddUser,
		OpAcceptReturn,
		OpBrowse,
	}
)

// OperationsFor returns the operation set for a role. Unknown roles get no
// operations.
func OperationsFor(role models.UserRole) []Operation {
	switch role {
	case models.UserRoleReader:
		return append([]Operation(nil), readerOperations...)
	case models.UserRoleLibrarian:
		return append([]Operation(nil), librarianOperations...)
	default:
		return nil
	}
}

// Allows reports whether a role may perform an operation.
func Allows(role models.UserRole, op Operation) bool {
	for _, allowed := range OperationsFor(role) {
		if allowed == op {
			return true
		}
	}
	return false
}
