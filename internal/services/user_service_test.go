package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microcommerce/auth-service/internal/apperrors"
	"github.com/microcommerce/auth-service/internal/dto"
)

func TestUserService_CreateAndLookups(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(newTestDB(t))

	created, err := s.Create(ctx, "alice", "alice@x.com", "hashed-pw")
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "USER", created.Role)

	byID, err := s.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byEmail, err := s.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byName, err := s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = s.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = s.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_ExistsByEmailOrUsername(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(newTestDB(t))

	_, err := s.Create(ctx, "alice", "alice@x.com", "hashed-pw")
	require.NoError(t, err)

	cases := []struct {
		email, username string
		want            bool
	}{
		{"alice@x.com", "someone-else", true},
		{"other@x.com", "alice", true},
		{"alice@x.com", "alice", true},
		{"other@x.com", "someone-else", false},
	}
	for _, tc := range cases {
		got, err := s.ExistsByEmailOrUsername(ctx, tc.email, tc.username)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "email=%s username=%s", tc.email, tc.username)
	}
}

func seedDirectory(t *testing.T, s *UserService, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("user%02d", i), fmt.Sprintf("user%02d@x.com", i), "hashed-pw")
		require.NoError(t, err)
	}
}

func TestListUsers_Pagination(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(newTestDB(t))
	seedDirectory(t, s, 25)

	page1, total, err := s.ListUsers(ctx, dto.ListUsersQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page1, 10)

	page3, total, err := s.ListUsers(ctx, dto.ListUsersQuery{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	assert.Len(t, page3, 5)

	// Out-of-range values fall back to sane defaults.
	defaulted, _, err := s.ListUsers(ctx, dto.ListUsersQuery{Page: 0, Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, defaulted, 10)
}

func TestListUsers_SearchMatchesUsernameOrEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(newTestDB(t))

	_, err := s.Create(ctx, "alice", "alice@x.com", "hashed-pw")
	require.NoError(t, err)
	_, err = s.Create(ctx, "bob", "bob@alicemail.com", "hashed-pw")
	require.NoError(t, err)
	_, err = s.Create(ctx, "carol", "carol@x.com", "hashed-pw")
	require.NoError(t, err)

	users, total, err := s.ListUsers(ctx, dto.ListUsersQuery{Search: "alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	names := []string{users[0].Username, users[1].Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestListUsers_SortWhitelist(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(newTestDB(t))

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := s.Create(ctx, name, name+"@x.com", "hashed-pw")
		require.NoError(t, err)
	}

	asc, _, err := s.ListUsers(ctx, dto.ListUsersQuery{SortBy: "username", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "alice", asc[0].Username)
	assert.Equal(t, "carol", asc[2].Username)

	desc, _, err := s.ListUsers(ctx, dto.ListUsersQuery{SortBy: "username", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "carol", desc[0].Username)

	// A column outside the whitelist must not reach the query; the listing
	// still succeeds on the default ordering.
	_, _, err = s.ListUsers(ctx, dto.ListUsersQuery{SortBy: "password; drop table users"})
	assert.NoError(t, err)
	got, err := s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestListUsers_RoleFilter(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := NewUserService(db)
	seedDirectory(t, s, 3)

	require.NoError(t, db.Exec("UPDATE users SET role = 'ADMIN' WHERE username = 'user00'").Error)

	admins, total, err := s.ListUsers(ctx, dto.ListUsersQuery{Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, admins, 1)
	assert.Equal(t, "user00", admins[0].Username)
}
