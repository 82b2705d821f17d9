package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/sciencemaster/portal/portal"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNumericOutOfRange   = "22003"
)

// pgConstraints maps constraint names from schema/postgres.sql to the
// table.column a unique key guards, or the table a foreign key references.
var pgConstraints = map[string]string{
	"branches_name_key":                "branches.name",
	"users_mobile_key":                 "users.mobile",
	"users_email_key":                  "users.email",
	"users_single_super_admin":         "users.role",
	"categories_name_key":              "categories.name",
	"batches_batch_code_key":           "batches.batch_code",
	"batches_name_key":                 "batches.name",
	"student_payments_installment_key": "student_payments.installment_number",
	"users_branch_id_fkey":             "branches",
	"branches_branch_admin_id_fkey":    "users",
	"batches_category_id_fkey":         "categories",
	"batch_branches_batch_id_fkey":     "batches",
	"batch_branches_branch_id_fkey":    "branches",
	"students_coaching_branch_id_fkey": "branches",
	"student_batches_student_id_fkey":  "students",
	"student_batches_batch_id_fkey":    "batches",
	"student_payments_student_id_fkey": "students",
}

var entities = map[string]string{
	"branches":         "branch",
	"users":            "user",
	"categories":       "category",
	"batches":          "batch",
	"students":         "student",
	"student_payments": "payment",
}

// wrapErr translates constraint violations into portal errors and wraps
// everything else with the failing operation.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if mapped := translate(err); mapped != nil {
		return mapped
	}
	return fmt.Errorf("%s: %w", op, err)
}

func translate(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return conflict(sqliteColumn(sqliteErr.Error()))
		case sqlite3.ErrConstraintForeignKey:
			return &portal.NotFoundError{Entity: "referenced record"}
		}
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return conflict(pgConstraints[pgErr.ConstraintName])
		case pgForeignKeyViolation:
			table := pgConstraints[pgErr.ConstraintName]
			if entity, ok := entities[table]; ok {
				return &portal.NotFoundError{Entity: entity}
			}
			return &portal.NotFoundError{Entity: "referenced record"}
		case pgNumericOutOfRange:
			return &portal.ValidationError{Message: "amount is out of range", Err: err}
		}
	}
	return nil
}

// sqliteColumn extracts "users.mobile" from
// "UNIQUE constraint failed: users.mobile". For composite keys the last
// column is the one that names the clash.
func sqliteColumn(msg string) string {
	_, after, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return ""
	}
	cols := strings.Split(after, ",")
	return strings.TrimSpace(cols[len(cols)-1])
}

// conflict builds a ConflictError from "table.column".
func conflict(column string) error {
	table, col, _ := strings.Cut(column, ".")
	if column == "users.role" {
		return &portal.ConflictError{Entity: "user", Message: "super admin already exists"}
	}
	entity, ok := entities[table]
	if !ok {
		entity = "record"
	}
	return &portal.ConflictError{Entity: entity, Field: camel(col)}
}

// camel turns a snake_case column into the camelCase field clients send.
func camel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
