package repositories

import (
	"context"
	"errors"

	"catalog/internal/models"
)

var (
	// ErrBookNotFound is returned when no book matches the requested ISBN.
	ErrBookNotFound = errors.New("book not found")

	// ErrDuplicateISBN is returned when a save would break the unique ISBN index.
	ErrDuplicateISBN = errors.New("duplicate isbn")

	// ErrConcurrencyConflict is returned when a book is saved with a stale version.
	ErrConcurrencyConflict = errors.New("concurrent modification detected: version mismatch")
)

// BookRepository defines the interface for book data access.
type BookRepository interface {
	// FindAll returns every persisted book.
	FindAll(ctx context.Context) ([]models.Book, error)
	// FindByISBN returns ErrBookNotFound when nothing matches.
	FindByISBN(ctx context.Context, isbn string) (*models.Book, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	// Save inserts a book with a zero ID and updates any other, checking Version.
	Save(ctx context.Context, book *models.Book) (*models.Book, error)
	// DeleteByISBN is a no-op when nothing matches.
	DeleteByISBN(ctx context.Context, isbn string) error
}
