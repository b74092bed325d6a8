package main

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtractMigrationPart(t *testing.T) {
	content := `
-- +migrate Up
CREATE TABLE products (id int);
ALTER TABLE products ADD COLUMN stock int;

-- +migrate Down
DROP TABLE products;
`
	t.Run("Extract Up", func(t *testing.T) {
		up := extractMigrationPart(content, "Up")
		assert.Contains(t, up, "CREATE TABLE products")
		assert.Contains(t, up, "ALTER TABLE products")
		assert.NotContains(t, up, "DROP TABLE products")
		assert.NotContains(t, up, "-- +migrate Up")
	})

	t.Run("Extract Down", func(t *testing.T) {
		down := extractMigrationPart(content, "Down")
		assert.Contains(t, down, "DROP TABLE products")
		assert.NotContains(t, down, "CREATE TABLE products")
	})

	t.Run("Missing section", func(t *testing.T) {
		assert.Empty(t, extractMigrationPart("-- +migrate Up\nSELECT 1;", "Down"))
	})
}

func TestRun(t *testing.T) {
	t.Run("Applies files in name order", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		dir := t.TempDir()
		writeMigration(t, dir, "002_orders.sql", "-- +migrate Up\nCREATE TABLE orders (id int);")
		writeMigration(t, dir, "001_products.sql", "-- +migrate Up\nCREATE TABLE products (id int);")

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
		for _, m := range []struct{ version, table string }{{"001_products.sql", "products"}, {"002_orders.sql", "orders"}} {
			mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
				WithArgs(m.version).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			mock.ExpectBegin()
			mock.ExpectExec("CREATE TABLE " + m.table).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(m.version).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()
		}

		require.NoError(t, run(db, "up", dir))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown mode", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

		err = run(db, "sideways", t.TempDir())
		assert.ErrorContains(t, err, "unknown mode")
	})
}

func TestRunMigrationsUp(t *testing.T) {
	t.Run("Applies pending migration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		file := writeMigration(t, t.TempDir(), "20230101_init.sql", "-- +migrate Up\nCREATE TABLE test (id int);")

		mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
			WithArgs("20230101_init.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE test").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs("20230101_init.sql").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		require.NoError(t, runMigrationsUp(db, []string{file}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Skips applied migration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		file := writeMigration(t, t.TempDir(), "20230101_init.sql", "-- +migrate Up\nCREATE TABLE test (id int);")

		mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
			WithArgs("20230101_init.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		require.NoError(t, runMigrationsUp(db, []string{file}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failed body rolls back and is not recorded", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		file := writeMigration(t, t.TempDir(), "20230101_init.sql", "-- +migrate Up\nCREATE TABLE test (id int);")

		mock.ExpectQuery("SELECT EXISTS.*schema_migrations").
			WithArgs("20230101_init.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE test").WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		err = runMigrationsUp(db, []string{file})
		assert.ErrorContains(t, err, "20230101_init.sql")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunMigrationsDown(t *testing.T) {
	t.Run("Rolls back latest", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		file := writeMigration(t, t.TempDir(), "002_orders.sql", "-- +migrate Up\nCREATE TABLE orders (id int);\n-- +migrate Down\nDROP TABLE orders;")

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("002_orders.sql"))
		mock.ExpectBegin()
		mock.ExpectExec("DROP TABLE orders").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM schema_migrations").WithArgs("002_orders.sql").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, runMigrationsDown(db, []string{file}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Nothing applied", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnError(sql.ErrNoRows)

		require.NoError(t, runMigrationsDown(db, nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing file", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT version FROM schema_migrations").
			WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("009_gone.sql"))

		err = runMigrationsDown(db, nil)
		assert.ErrorContains(t, err, "migration file not found")
	})
}

func TestDatabaseURL(t *testing.T) {
	t.Run("DB_URL wins", func(t *testing.T) {
		t.Setenv("DB_URL", "postgres://u:p@h/db")
		t.Setenv("DB_HOST", "ignored")
		assert.Equal(t, "postgres://u:p@h/db", databaseURL())
	})

	t.Run("Built from parts", func(t *testing.T) {
		t.Setenv("DB_URL", "")
		t.Setenv("DB_HOST", "localhost")
		t.Setenv("DB_USER", "shop")
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("DB_NAME", "storefront")
		t.Setenv("DB_PORT", "5432")
		assert.Equal(t, "host=localhost user=shop password=pw dbname=storefront port=5432 sslmode=disable", databaseURL())
	})

	t.Run("Unconfigured", func(t *testing.T) {
		t.Setenv("DB_URL", "")
		t.Setenv("DB_HOST", "")
		assert.Empty(t, databaseURL())
	})
}
