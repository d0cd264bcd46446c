package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// pgUniqueViolation is the postgres unique_violation error code.
const pgUniqueViolation = "23505"

// UniqueViolation reports whether err is a unique constraint violation, and returns the name of
// the violated constraint. SQLite constraints get the postgres default name `<table>_<columns>_key`,
// so that both engines report the same names.
func UniqueViolation(err error) (string, bool) {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		if e.Code == pgUniqueViolation {
			return e.Constraint, true
		}
	case sqlite3.Error:
		if e.ExtendedCode == sqlite3.ErrConstraintUnique || e.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return sqliteConstraintName(e.Error()), true
		}
	}
	return "", false
}

// sqliteConstraintName turns "UNIQUE constraint failed: marks.student_id, marks.exam_id"
// into "marks_student_id_exam_id_key".
func sqliteConstraintName(msg string) string {
	i := strings.LastIndex(msg, ": ")
	if i < 0 {
		return ""
	}

	var table string
	cols := make([]string, 0, 3)
	for _, qualified := range strings.Split(msg[i+2:], ",") {
		parts := strings.SplitN(strings.TrimSpace(qualified), ".", 2)
		if len(parts) != 2 {
			return ""
		}
		table = parts[0]
		cols = append(cols, parts[1])
	}
	return table + "_" + strings.Join(cols, "_") + "_key"
}
