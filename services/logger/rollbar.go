package logsvc

import (
	"log"
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
)

// RollbarLogger prints every entry to std and reports it to Rollbar.
// A user.User argument identifies the signed-in account behind the entry:
// it is reported as the Rollbar person, with its role as custom data.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger returns a logger writing to std and reporting to Rollbar.
// Reporting is disabled in debug and test mode, or without a token.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)

	l := &RollbarLogger{std: std}
	l.Enable(!(conf.Debug || conf.TestMode) && conf.RollbarToken != "")
	return l
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// splitUser separates the first user.User from the other args.
func splitUser(args []interface{}) (usr user.User, found bool, rest []interface{}) {
	rest = make([]interface{}, 0, len(args))
	for _, arg := range args {
		if u, ok := arg.(user.User); ok {
			if !found {
				usr, found = u, true
			}
			continue
		}
		rest = append(rest, arg)
	}
	return usr, found, rest
}

// prepare sets the reported person and returns the Rollbar args: msg, then errors and extras.
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	usr, found, rest := splitUser(args)
	if found {
		rollbar.SetPerson(strconv.Itoa(usr.ID), usr.Username, usr.Email)
		rollbar.SetCustom(map[string]interface{}{"role": usr.Role.String()})
	} else {
		rollbar.ClearPerson()
		rollbar.SetCustom(nil)
	}
	return append([]interface{}{msg}, rest...)
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	usr, found, rest := splitUser(args)
	l.std.Println(msg)
	for _, arg := range rest {
		l.std.Printf("%+v\n", arg)
	}
	if found {
		l.std.Printf("user: %s (%d, %s)\n", usr.Username, usr.ID, usr.Role)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}

// Close waits for the pending reports to be sent.
func (l RollbarLogger) Close() {
	rollbar.Close()
}
