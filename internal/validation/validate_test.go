package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bsg-enterprise/ticketing/pkg/util/errorutil"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=admin manager technician requester"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(registerRequest{Email: "a@bsg.co.id", Password: "longenough"}))
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(registerRequest{Email: "nope", Password: "short", Role: "root"})
	require.Error(t, err)

	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	assert.Contains(t, de.Details, "email")
	assert.Contains(t, de.Details, "password")
	assert.Equal(t, "role must be one of: admin manager technician requester", de.Details["role"])
}
