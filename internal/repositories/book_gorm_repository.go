package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GORMBookRepository is a GORM implementation of BookRepository.
//
// The database must be opened with TranslateError enabled so that unique
// index violations surface as gorm.ErrDuplicatedKey.
type GORMBookRepository struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewGORMBookRepository creates a new instance of GORMBookRepository.
func NewGORMBookRepository(db *gorm.DB, log *zap.Logger) *GORMBookRepository {
	return &GORMBookRepository{
		db:  db,
		log: log,
		now: storeTime,
	}
}

// storeTime truncates to microseconds, the precision postgres keeps.
func storeTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// FindAll retrieves all books ordered by ID.
func (r *GORMBookRepository) FindAll(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		r.log.Error("Failed to list books", zap.Error(err))
		return nil, fmt.Errorf("failed to get all books: %w", err)
	}
	return books, nil
}

// FindByISBN retrieves a single book by its ISBN.
func (r *GORMBookRepository) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "isbn = ?", isbn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.String("isbn", isbn), zap.Error(err))
		return nil, fmt.Errorf("failed to get book by ISBN %s: %w", isbn, err)
	}
	return &book, nil
}

// ExistsByISBN reports whether a book with the ISBN is stored.
func (r *GORMBookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Book{}).Where("isbn = ?", isbn).Count(&count).Error; err != nil {
		r.log.Error("Failed to check book existence", zap.String("isbn", isbn), zap.Error(err))
		return false, fmt.Errorf("failed to check book with ISBN %s: %w", isbn, err)
	}
	return count > 0, nil
}

// Save inserts a new book or updates an existing one.
func (r *GORMBookRepository) Save(ctx context.Context, book *models.Book) (*models.Book, error) {
	if book.IsNew() {
		return r.create(ctx, book)
	}
	return r.update(ctx, book)
}

func (r *GORMBookRepository) create(ctx context.Context, book *models.Book) (*models.Book, error) {
	saved := *book
	now := r.now()
	saved.CreatedDate = now
	saved.LastModifiedDate = now
	saved.Version = 0

	if err := r.db.WithContext(ctx).Create(&saved).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateISBN
		}
		r.log.Error("Failed to create book", zap.String("isbn", book.ISBN), zap.Error(err))
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return &saved, nil
}

// update writes the business fields only if the stored version still
// matches, bumping it in the same statement.
func (r *GORMBookRepository) update(ctx context.Context, book *models.Book) (*models.Book, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND version = ?", book.ID, book.Version).
		Updates(map[string]interface{}{
			"isbn":               book.ISBN,
			"title":              book.Title,
			"author":             book.Author,
			"price":              book.Price,
			"publisher":          book.Publisher,
			"last_modified_date": r.now(),
			"version":            book.Version + 1,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateISBN
		}
		r.log.Error("Failed to update book", zap.Uint("id", book.ID), zap.Error(res.Error))
		return nil, fmt.Errorf("failed to update book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the row is gone or someone else bumped the version first.
		return nil, ErrConcurrencyConflict
	}

	var saved models.Book
	if err := r.db.WithContext(ctx).First(&saved, book.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload book %d: %w", book.ID, err)
	}
	return &saved, nil
}

// DeleteByISBN deletes a book by its ISBN, if present.
func (r *GORMBookRepository) DeleteByISBN(ctx context.Context, isbn string) error {
	if err := r.db.WithContext(ctx).Where("isbn = ?", isbn).Delete(&models.Book{}).Error; err != nil {
		r.log.Error("Failed to delete book", zap.String("isbn", isbn), zap.Error(err))
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}
