package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"circdesk/internal/models"
	"circdesk/internal/services"
)

func TestOperationsFor(t *testing.T) {
	reader := services.OperationsFor(models.UserRoleReader)
	assert.ElementsMatch(t,
		[]services.Operation{services.OpBorrow, services.OpExtend, services.OpReserve, services.OpBrowse},
		reader)

	librarian := services.OperationsFor(models.UserRoleLibrarian)
	assert.ElementsMatch(t,
		[]services.Operation{services.OpAddBook, services.OpRemoveBook, services.OpAddUser, services.OpAcceptReturn, services.OpBrowse},
		librarian)

	assert.Empty(t, services.OperationsFor(models.UserRole("WIZARD")))
}

func TestAllows(t *testing.T) {
	assert.True(t, services.Allows(models.UserRoleReader, services.OpBorrow))
	assert.True(t, services.Allows(models.UserRoleLibrarian, services.OpBrowse))
	assert.False(t, services.Allows(models.UserRoleReader, services.OpAddBook))
	assert.False(t, services.Allows(models.UserRoleLibrarian, services.OpReserve))
}
