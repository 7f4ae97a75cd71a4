package pipeline

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aluiziolira/catalog-scraper/models"
)

const createItemsTable = `CREATE TABLE items (
	position INTEGER PRIMARY KEY,
	category TEXT NOT NULL,
	title    TEXT NOT NULL,
	price    REAL NOT NULL CHECK (price >= 0),
	rating   INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5)
)`

const insertItem = `INSERT INTO items (position, category, title, price, rating) VALUES (?, ?, ?, ?, ?)`

// SQLiteWriter writes records into an items table of a SQLite file.
type SQLiteWriter struct {
	staged *stagedFile
	db     *sql.DB
	next   int
	mu     sync.Mutex
	done   bool
}

// NewSQLiteWriter stages a SQLite database for filename.
func NewSQLiteWriter(filename string) (*SQLiteWriter, error) {
	staged, err := stage(filename)
	if err != nil {
		return nil, err
	}
	// The driver opens the file itself; an empty file is a valid new database.
	if err := staged.file.Close(); err != nil {
		_ = staged.discard()
		return nil, fmt.Errorf("close staging file: %w", err)
	}

	db, err := sql.Open("sqlite", staged.path())
	if err != nil {
		_ = staged.discard()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createItemsTable); err != nil {
		_ = db.Close()
		_ = staged.discard()
		return nil, fmt.Errorf("create items table: %w", err)
	}

	return &SQLiteWriter{staged: staged, db: db}, nil
}

// Write inserts items in one transaction, preserving their order.
func (sw *SQLiteWriter) Write(items []models.NormalizedItem) (err error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.done {
		return ErrWriterClosed
	}

	tx, err := sw.db.Begin()
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(insertItem)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	next := sw.next
	for _, item := range items {
		if _, err := stmt.Exec(next, item.Category, item.Title, item.Price, item.Rating); err != nil {
			return fmt.Errorf("insert item %q: %w", item.Title, err)
		}
		next++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	sw.next = next
	return nil
}

// Close closes the database and moves it into place.
func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.done {
		return nil
	}
	sw.done = true

	if err := sw.db.Close(); err != nil {
		_ = os.Remove(sw.staged.path())
		return fmt.Errorf("close sqlite: %w", err)
	}
	return sw.staged.publish()
}

// Discard closes the database and removes the staged file.
func (sw *SQLiteWriter) Discard() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.done {
		return nil
	}
	sw.done = true
	return errors.Join(sw.db.Close(), sw.staged.discard())
}
