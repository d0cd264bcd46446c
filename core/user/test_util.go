package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trezcool/edudesk/core"
)

// RepositoryMock is an in-memory Repository for tests that do not need a database.
type RepositoryMock struct {
	mu    sync.RWMutex
	pk    int
	table map[int]*User
}

var _ Repository = (*RepositoryMock)(nil)

func NewRepositoryMock() *RepositoryMock {
	return &RepositoryMock{table: make(map[int]*User)}
}

func (repo *RepositoryMock) query() []User {
	users := make([]User, 0, len(repo.table))
	for _, u := range repo.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

func (repo *RepositoryMock) CheckUsernameUniqueness(_ context.Context, username string, excludedUsers []User, _ ...core.DBExecutor) error {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, usr := range repo.table {
		if usr.Username != username {
			continue
		}
		excluded := false
		for _, ex := range excludedUsers {
			if ex.ID == usr.ID {
				excluded = true
				break
			}
		}
		if !excluded {
			return ErrUserExists
		}
	}
	return nil
}

func (repo *RepositoryMock) CreateUser(_ context.Context, usr User, _ ...core.DBExecutor) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.pk++
	usr.ID = repo.pk
	repo.table[usr.ID] = &usr
	return usr, nil
}

func (repo *RepositoryMock) QueryUsers(_ context.Context, roles RoleSet, _ ...core.DBExecutor) ([]User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	users := make([]User, 0)
	for _, usr := range repo.query() {
		if roles == 0 || roles.Has(usr.Role) {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *RepositoryMock) GetUser(_ context.Context, filter GetFilter, _ ...core.DBExecutor) (User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if filter.ID != 0 {
		if usr, ok := repo.table[filter.ID]; ok {
			return *usr, nil
		}
		return User{}, ErrNotFound
	}
	for _, usr := range repo.table {
		if filter.Username != "" && usr.Username == filter.Username {
			return *usr, nil
		}
	}
	return User{}, ErrNotFound
}

func (repo *RepositoryMock) UpdateUser(_ context.Context, usr User, _ ...core.DBExecutor) (User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.table[usr.ID]; !ok {
		return User{}, ErrNotFound
	}
	repo.table[usr.ID] = &usr
	return usr, nil
}

func (repo *RepositoryMock) SetLastLogin(_ context.Context, id int, at time.Time, _ ...core.DBExecutor) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	usr, ok := repo.table[id]
	if !ok {
		return ErrNotFound
	}
	usr.LastLogin = &at
	return nil
}

func (repo *RepositoryMock) DeleteUsersByID(_ context.Context, ids []int, _ ...core.DBExecutor) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.table[id]; ok {
			delete(repo.table, id)
			cnt++
		}
	}
	return cnt, nil
}
