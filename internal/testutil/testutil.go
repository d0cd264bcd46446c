// Package testutil provides database and fixture helpers shared by tests.
package testutil

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
	"github.com/trezcool/edudesk/storage/database"
)

// Password is the password of every user created by CreateUser.
const Password = "s3cret!x"

var (
	dbCount   int64
	nameRegex = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// OpenDB returns a migrated in-memory SQLite database, closed at the end of the test.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	name := fmt.Sprintf("%s_%d", nameRegex.ReplaceAllString(t.Name(), "_"), atomic.AddInt64(&dbCount, 1))
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// NewConfig returns the configuration used in tests.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Database.Engine = database.EngineSQLite
	conf.Server.DisableCSRF = true
	conf.Server.DisableReqLogs = true
	conf.Server.SecureCookies = false
	return conf
}

// NewValidator returns a validator with the application validations registered,
// along with the translator holding their messages.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// CreateUser stores an active user with Password as password.
func CreateUser(t *testing.T, repo user.Repository, uname string, role user.Role) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Username:  uname,
		Name:      "Test " + uname,
		Email:     uname + "@example.com",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, usr.SetPassword(Password))

	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}
