package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
)

const userColumns = "id, username, name, email, role, is_active, password_hash, created_at, updated_at, last_login"

var userUniqueErrs = map[string]error{
	"users_username_key": user.ErrUserExists,
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	query, args := "SELECT COUNT(*) FROM users WHERE username = ?", []interface{}{username}

	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		var err error
		query, args, err = sqlx.In(query+" AND id NOT IN (?)", username, ids)
		if err != nil {
			return errors.Wrap(err, "building user uniqueness query")
		}
	}

	var cnt int
	if err := exe.GetContext(ctx, &cnt, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if cnt > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	id, err := insertReturningID(ctx, getExec(repo.exec, exec),
		`INSERT INTO users (username, name, email, role, is_active, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		usr.Username, usr.Name, usr.Email, usr.Role, usr.IsActive, usr.PasswordHash,
		usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, trapUniqueErr(err, userUniqueErrs, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, roles user.RoleSet, exec ...core.DBExecutor) ([]user.User, error) {
	exe := getExec(repo.exec, exec)
	query, args := "SELECT "+userColumns+" FROM users", []interface{}{}

	if roles != 0 {
		names := make([]string, 0, len(user.Roles))
		for _, role := range user.Roles {
			if roles.Has(role) {
				names = append(names, role.String())
			}
		}
		var err error
		query, args, err = sqlx.In(query+" WHERE role IN (?)", names)
		if err != nil {
			return nil, errors.Wrap(err, "building users query")
		}
	}

	users := make([]user.User, 0)
	if err := exe.SelectContext(ctx, &users, exe.Rebind(query+" ORDER BY username ASC"), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	exe := getExec(repo.exec, exec)
	query := "SELECT " + userColumns + " FROM users"

	var arg interface{}
	switch {
	case filter.ID != 0:
		query, arg = query+" WHERE id = ?", filter.ID
	case filter.Username != "":
		query, arg = query+" WHERE username = ?", filter.Username
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := exe.GetContext(ctx, &usr, exe.Rebind(query), arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := execAffecting(ctx, getExec(repo.exec, exec), user.ErrNotFound,
		`UPDATE users SET name = ?, email = ?, role = ?, is_active = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		usr.Name, usr.Email, usr.Role, usr.IsActive, usr.PasswordHash, usr.UpdatedAt.UTC(), usr.ID,
	)
	if err != nil {
		if err == user.ErrNotFound {
			return user.User{}, err
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo userRepository) SetLastLogin(ctx context.Context, id int, at time.Time, exec ...core.DBExecutor) error {
	err := execAffecting(ctx, getExec(repo.exec, exec), user.ErrNotFound,
		"UPDATE users SET last_login = ? WHERE id = ?", at.UTC(), id)
	if err != nil && err != user.ErrNotFound {
		return errors.Wrap(err, "setting last login")
	}
	return err
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	exe := getExec(repo.exec, exec)

	query, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete users query")
	}
	res, err := exe.ExecContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
