package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type checkRequest struct {
	Action       string `json:"action" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required"`
	ResourceID   string `json:"resource_id,omitempty" validate:"omitempty,min=1"`
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(checkRequest{ResourceType: "invoice"})
	require.Error(t, err)

	failures, ok := err.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, failures, 1)
	require.Equal(t, "action", failures[0].Field)
	require.Equal(t, "required", failures[0].Tag)
}

func TestValidateStructPasses(t *testing.T) {
	require.NoError(t, ValidateStruct(checkRequest{
		Action:       "invoices.update",
		ResourceType: "invoice",
	}))
}

type overridePayload struct {
	Permission string `json:"permission" validate:"required,permission_name"`
}

func TestPermissionNameRule(t *testing.T) {
	require.NoError(t, ValidateStruct(overridePayload{Permission: "invoices.approve"}))
	require.NoError(t, ValidateStruct(overridePayload{Permission: "system.all"}))

	for _, bad := range []string{"invoices", "invoices.", ".approve", "Invoices.Approve", "invoices approve", "a.b.c"} {
		err := ValidateStruct(overridePayload{Permission: bad})
		require.Error(t, err, bad)

		failures, ok := err.(ValidationErrors)
		require.True(t, ok)
		require.Equal(t, "permission_name", failures[0].Tag)
	}
}

func TestIsPermissionName(t *testing.T) {
	require.True(t, IsPermissionName("parishes.manage"))
	require.True(t, IsPermissionName("record_access.read"))
	require.False(t, IsPermissionName(""))
	require.False(t, IsPermissionName("no-dots-here"))
}
