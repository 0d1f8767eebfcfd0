package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusNext(t *testing.T) {
	next, ok := StatusPending.Next()
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, next)

	next, ok = StatusInProgress.Next()
	require.True(t, ok)
	assert.Equal(t, StatusResolved, next)

	_, ok = StatusResolved.Next()
	assert.False(t, ok)
	assert.True(t, StatusResolved.Terminal())
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"Pending":     StatusPending,
		"InProgress":  StatusInProgress,
		"In Progress": StatusInProgress,
		"in progress": StatusInProgress,
		" Resolved ":  StatusResolved,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("Closed")
	assert.Error(t, err)
}

func TestStatusRequestable(t *testing.T) {
	assert.False(t, StatusPending.Requestable())
	assert.True(t, StatusInProgress.Requestable())
	assert.True(t, StatusResolved.Requestable())
}

func TestRoom(t *testing.T) {
	id := uuid.MustParse("6f1c2b3a-0000-4000-8000-000000000001")

	assert.Equal(t, "authority-6f1c2b3a-0000-4000-8000-000000000001", Room(RoleAuthority, &id))
	assert.Equal(t, "admin", Room(RoleAdmin, nil))

	nilID := uuid.Nil
	assert.Equal(t, "citizen", Room(RoleCitizen, &nilID))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("Authority")
	require.NoError(t, err)
	assert.Equal(t, RoleAuthority, r)

	_, err = ParseRole("municipality")
	assert.Error(t, err)
}

func TestParseReportQuery(t *testing.T) {
	t.Run("all disables filters and defaults to newest first", func(t *testing.T) {
		q, err := ParseReportQuery("All", "All", "")
		require.NoError(t, err)
		assert.Empty(t, q.Status)
		assert.Empty(t, q.Category)
		assert.False(t, q.Ascending)
	})

	t.Run("filters and ascending sort", func(t *testing.T) {
		q, err := ParseReportQuery("In Progress", "organic", "1")
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, q.Status)
		assert.Equal(t, CategoryOrganic, q.Category)
		assert.True(t, q.Ascending)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		_, err := ParseReportQuery("", "Plastic", "")
		assert.Error(t, err)
	})
}

func TestCitizenCanSubmit(t *testing.T) {
	c := Citizen{SubmissionCount: 4, SubmissionLimit: 5}
	assert.True(t, c.CanSubmit())
	c.SubmissionCount = 5
	assert.False(t, c.CanSubmit())
}

func TestParseAuthorityQuery(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		q, err := ParseAuthorityQuery("all", "", "", "", "", "", "")
		require.NoError(t, err)
		assert.Empty(t, q.Status)
		assert.Nil(t, q.Near)
		assert.Equal(t, 1, q.Page)
		assert.Equal(t, DefaultAuthorityPageSize, q.Limit)
		assert.Equal(t, 0, q.Offset())
		assert.Equal(t, DefaultAuthorityRadius, q.Radius)
	})

	t.Run("point radius and paging", func(t *testing.T) {
		q, err := ParseAuthorityQuery("approved", " Ikeja ", "6.6", "3.35", "2500", "3", "500")
		require.NoError(t, err)
		require.NotNil(t, q.Near)
		assert.Equal(t, 6.6, q.Near.Latitude)
		assert.Equal(t, 3.35, q.Near.Longitude)
		assert.Equal(t, 2500.0, q.Radius)
		assert.Equal(t, "Ikeja", q.City)
		assert.Equal(t, ApprovalApproved, q.Status)
		assert.Equal(t, MaxAuthorityPageSize, q.Limit)
		assert.Equal(t, 2*MaxAuthorityPageSize, q.Offset())
	})

	t.Run("one coordinate without the other", func(t *testing.T) {
		_, err := ParseAuthorityQuery("", "", "6.6", "", "", "", "")
		assert.ErrorIs(t, err, ErrPartialCoordinates)
		_, err = ParseAuthorityQuery("", "", "", "3.35", "", "", "")
		assert.ErrorIs(t, err, ErrPartialCoordinates)
	})

	t.Run("bad values", func(t *testing.T) {
		_, err := ParseAuthorityQuery("", "", "north", "3.35", "", "", "")
		assert.ErrorIs(t, err, ErrInvalidCoordinates)
		_, err = ParseAuthorityQuery("", "", "95", "3.35", "", "", "")
		assert.ErrorIs(t, err, ErrInvalidCoordinates)
		_, err = ParseAuthorityQuery("", "", "6.6", "3.35", "-1", "", "")
		assert.Error(t, err)
		_, err = ParseAuthorityQuery("bogus", "", "", "", "", "", "")
		assert.Error(t, err)
	})
}
