package validator

import (
	"testing"

	"anoa.com/campusfix/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	RoomNo string `binding:"required"`
	Title  string `binding:"required,max=5"`
	Status string `binding:"omitempty,oneof=pending work_done"`
}

func TestStruct(t *testing.T) {
	err := Struct(sample{Title: "too long title", Status: "closed"})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Contains(t, err.Error(), "room_no is required")
	assert.Contains(t, err.Error(), "title must be at most 5 characters")
	assert.Contains(t, err.Error(), "status must be one of [pending work_done]")
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(sample{RoomNo: "B-204", Title: "fan"}))
}
