package linkshortener

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"
)

const createLinksTable = `create table if not exists links (
	shortKey text primary key,
	longURL  text not null unique
)`

// SQLiteSnapshot is a Snapshotter backed by a SQLite database.
type SQLiteSnapshot struct {
	db *sql.DB
}

// compile-time assertion that we implement Snapshotter
var _ Snapshotter = &SQLiteSnapshot{}

// NewSQLiteSnapshot opens the SQLite database at dsn and makes sure the links
// table exists.
func NewSQLiteSnapshot(dsn string) (*SQLiteSnapshot, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, xerrors.Errorf("could not open SQLite database: %w", err)
	}

	// one connection, so in-memory databases are shared between calls
	db.SetMaxOpenConns(1)

	_, err = db.Exec(createLinksTable)
	if err != nil {
		db.Close()
		return nil, xerrors.Errorf("could not create links table: %w", err)
	}

	return &SQLiteSnapshot{db: db}, nil
}

// Load adds all rows of the links table to s. Rows read before an error
// stay in s.
func (i *SQLiteSnapshot) Load(s *Store) error {
	rows, err := i.db.Query("select shortKey, longURL from links")
	if err != nil {
		return countFailure("load", xerrors.Errorf("error querying links: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var key, longURL string
		if err := rows.Scan(&key, &longURL); err != nil {
			return countFailure("load", xerrors.Errorf("error scanning link: %w", err))
		}
		s.Put(key, longURL)
	}

	if err := rows.Err(); err != nil {
		return countFailure("load", xerrors.Errorf("error reading links: %w", err))
	}

	return nil
}

// Save replaces the contents of the links table with the entries of s in a
// single transaction.
func (i *SQLiteSnapshot) Save(s *Store) (err error) {
	defer func() {
		if err != nil {
			countFailure("save", err)
		}
	}()

	tx, err := i.db.Begin()
	if err != nil {
		return xerrors.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("delete from links"); err != nil {
		return xerrors.Errorf("error clearing links: %w", err)
	}

	stmt, err := tx.Prepare("insert into links (shortKey, longURL) values (?, ?)")
	if err != nil {
		return xerrors.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range s.Entries() {
		if _, err = stmt.Exec(e.Key, e.LongURL); err != nil {
			return xerrors.Errorf("error inserting link %s: %w", e.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return xerrors.Errorf("error committing links: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (i *SQLiteSnapshot) Close() error {
	return i.db.Close()
}
