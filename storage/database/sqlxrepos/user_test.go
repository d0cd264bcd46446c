package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core/user"
	"github.com/trezcool/edudesk/internal/testutil"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	repo := NewUserRepository(db)

	admin := testutil.CreateUser(t, repo, "admin", user.RoleAdmin)
	teacher := testutil.CreateUser(t, repo, "teacher", user.RoleTeacher)
	parent := testutil.CreateUser(t, repo, "parent", user.RoleParent)

	t.Run("get by id and username", func(t *testing.T) {
		got, err := repo.GetUser(ctx, user.GetFilter{ID: teacher.ID})
		require.NoError(t, err)
		assert.Equal(t, "teacher", got.Username)
		assert.Equal(t, user.RoleTeacher, got.Role)
		assert.True(t, got.IsActive)
		assert.Nil(t, got.LastLogin)
		assert.NoError(t, got.CheckPassword(testutil.Password))

		got, err = repo.GetUser(ctx, user.GetFilter{Username: "parent"})
		require.NoError(t, err)
		assert.Equal(t, parent.ID, got.ID)

		_, err = repo.GetUser(ctx, user.GetFilter{Username: "nobody"})
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("username uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrUserExists, repo.CheckUsernameUniqueness(ctx, "admin", nil))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "admin", []user.User{admin}))
		assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "someone", nil))

		dup := admin
		dup.ID = 0
		_, err := repo.CreateUser(ctx, dup)
		assert.Equal(t, user.ErrUserExists, err)
	})

	t.Run("query by roles", func(t *testing.T) {
		users, err := repo.QueryUsers(ctx, user.NewRoleSet(user.RoleTeacher, user.RoleParent))
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "parent", users[0].Username)
		assert.Equal(t, "teacher", users[1].Username)

		users, err = repo.QueryUsers(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, users, 3)
	})

	t.Run("update and last login", func(t *testing.T) {
		usr := parent
		usr.Name = "Parent P."
		usr.IsActive = false
		_, err := repo.UpdateUser(ctx, usr)
		require.NoError(t, err)

		at := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.SetLastLogin(ctx, usr.ID, at))

		got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		assert.Equal(t, "Parent P.", got.Name)
		assert.False(t, got.IsActive)
		require.NotNil(t, got.LastLogin)
		assert.True(t, at.Equal(*got.LastLogin))

		assert.Equal(t, user.ErrNotFound, repo.SetLastLogin(ctx, 9999, at))
	})

	t.Run("delete", func(t *testing.T) {
		cnt, err := repo.DeleteUsersByID(ctx, []int{admin.ID, 9999})
		require.NoError(t, err)
		assert.Equal(t, 1, cnt)

		_, err = repo.GetUser(ctx, user.GetFilter{ID: admin.ID})
		assert.Equal(t, user.ErrNotFound, err)
	})
}
