package convert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/sheeterr"
	"github.com/witanlabs/jsheet/internal/value"
)

const defaultTableName = "rows"

// WriteSQLite replaces path with a database holding one table. Declared
// column types map to SQLite affinities; undeclared columns get none, so
// each value keeps its own storage class. Arrays and objects are stored as
// JSON text.
func WriteSQLite(ctx context.Context, e *Export, path, tableName string) error {
	if tableName == "" {
		tableName = defaultTableName
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sheeterr.Wrap(sheeterr.KindIO, path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return sheeterr.Wrap(sheeterr.KindIO, path, fmt.Errorf("open sqlite: %w", err))
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := writeTable(ctx, db, e, tableName); err != nil {
		return sheeterr.Wrap(sheeterr.KindExport, path, err)
	}
	return nil
}

func writeTable(ctx context.Context, db *sql.DB, e *Export, tableName string) error {
	defs := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		defs[i] = quoteIdent(c)
		if t, ok := e.Meta.ColumnType(c); ok {
			if aff := affinity(t); aff != "" {
				defs[i] += " " + aff
			}
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if len(defs) == 0 {
		// sqlite requires at least one column
		defs = []string{`"_row"`}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(tableName), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if len(e.Columns) > 0 {
		names := make([]string, len(e.Columns))
		marks := make([]string, len(e.Columns))
		for i, c := range e.Columns {
			names[i] = quoteIdent(c)
			marks[i] = "?"
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(tableName), strings.Join(names, ", "), strings.Join(marks, ", ")))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		args := make([]any, len(e.Columns))
		for r, row := range e.Rows {
			for i, c := range e.Columns {
				args[i] = sqlValue(row[c])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row %d: %w", r+1, err)
			}
		}
	}
	return tx.Commit()
}

func affinity(t coerce.ColumnType) string {
	switch t {
	case coerce.TypeString:
		return "TEXT"
	case coerce.TypeNumber:
		return "NUMERIC"
	case coerce.TypeBool:
		return "INTEGER"
	case coerce.TypeNull:
	}
	return ""
}

func sqlValue(v value.Value) any {
	switch v.Kind {
	case value.KindArray, value.KindObject:
		return v.Display()
	case value.KindBool:
		if v.Boolean {
			return int64(1)
		}
		return int64(0)
	case value.KindNumber:
		if _, ok := v.Int64(); ok {
			return v.Native()
		}
		// out of int64 range: keep the exact digits
		if _, ok := v.Uint64(); ok {
			return v.Display()
		}
	}
	return v.Native()
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
