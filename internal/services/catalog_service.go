package services

import (
	"context"
	"errors"

	"catalog/internal/models"
	"catalog/internal/repositories"

	"go.uber.org/zap"
)

// CatalogService handles business logic related to the book catalog.
//
// It holds no state between calls. Books passed in are assumed to have been
// validated already. Check-then-write sequences are not atomic; the store's
// unique ISBN index and version check are the real guards.
type CatalogService struct {
	repo      repositories.BookRepository
	publisher EventPublisher
	log       *zap.Logger
}

// NewCatalogService creates a new CatalogService. publisher may be nil, in
// which case no catalog events are emitted.
func NewCatalogService(repo repositories.BookRepository, publisher EventPublisher, log *zap.Logger) *CatalogService {
	return &CatalogService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// ViewBookList retrieves every book in the catalog.
func (s *CatalogService) ViewBookList(ctx context.Context) ([]models.Book, error) {
	return s.repo.FindAll(ctx)
}

// ViewBookDetails retrieves a single book by its ISBN.
func (s *CatalogService) ViewBookDetails(ctx context.Context, isbn string) (*models.Book, error) {
	book, err := s.repo.FindByISBN(ctx, isbn)
	if errors.Is(err, repositories.ErrBookNotFound) {
		return nil, &BookNotFoundError{ISBN: isbn}
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// AddBookToCatalog stores a new book, refusing an ISBN that is already taken.
func (s *CatalogService) AddBookToCatalog(ctx context.Context, book models.Book) (*models.Book, error) {
	exists, err := s.repo.ExistsByISBN(ctx, book.ISBN)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &BookAlreadyExistsError{ISBN: book.ISBN}
	}

	saved, err := s.repo.Save(ctx, &book)
	if errors.Is(err, repositories.ErrDuplicateISBN) {
		// Lost the race against a concurrent insert.
		return nil, &BookAlreadyExistsError{ISBN: book.ISBN}
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("Book added to catalog", zap.String("isbn", saved.ISBN), zap.Uint("id", saved.ID))
	s.publish(EventBookCreated, saved.ISBN, saved)
	return saved, nil
}

// RemoveBookFromCatalog deletes the book with the ISBN. Removing an unknown
// ISBN is not an error.
func (s *CatalogService) RemoveBookFromCatalog(ctx context.Context, isbn string) error {
	if err := s.repo.DeleteByISBN(ctx, isbn); err != nil {
		return err
	}

	s.log.Info("Book removed from catalog", zap.String("isbn", isbn))
	s.publish(EventBookDeleted, isbn, nil)
	return nil
}

// EditBookDetails replaces the business fields of the book found under isbn
// with those of incoming, or adds incoming when nothing is found.
//
// The lookup key and the stored key are decoupled: incoming.ISBN may differ
// from isbn, which renames the book while keeping its identity and version
// lineage. Renaming onto an ISBN held by another book fails with
// BookAlreadyExistsError. A stale version surfaces as
// repositories.ErrConcurrencyConflict and is not retried.
func (s *CatalogService) EditBookDetails(ctx context.Context, isbn string, incoming models.Book) (*models.Book, error) {
	existing, err := s.repo.FindByISBN(ctx, isbn)
	if errors.Is(err, repositories.ErrBookNotFound) {
		return s.AddBookToCatalog(ctx, incoming)
	}
	if err != nil {
		return nil, err
	}

	updated := models.Book{
		ID:               existing.ID,
		ISBN:             incoming.ISBN,
		Title:            incoming.Title,
		Author:           incoming.Author,
		Price:            incoming.Price,
		Publisher:        incoming.Publisher,
		CreatedDate:      existing.CreatedDate,
		LastModifiedDate: existing.LastModifiedDate,
		Version:          existing.Version,
	}

	saved, err := s.repo.Save(ctx, &updated)
	if errors.Is(err, repositories.ErrDuplicateISBN) {
		return nil, &BookAlreadyExistsError{ISBN: incoming.ISBN}
	}
	if err != nil {
		if errors.Is(err, repositories.ErrConcurrencyConflict) {
			s.log.Warn("Concurrent edit rejected", zap.String("isbn", isbn), zap.Int("version", existing.Version))
		}
		return nil, err
	}

	s.log.Info("Book details edited",
		zap.String("isbn", isbn),
		zap.String("new_isbn", saved.ISBN),
		zap.Int("version", saved.Version),
	)
	s.publish(EventBookUpdated, isbn, saved)
	return saved, nil
}

// publish is best effort: a broker failure never fails the catalog call.
func (s *CatalogService) publish(eventType, isbn string, book *models.Book) {
	if s.publisher == nil {
		return
	}

	body, err := newCatalogEvent(eventType, isbn, book).marshal()
	if err != nil {
		s.log.Error("Failed to marshal catalog event", zap.String("event_type", eventType), zap.Error(err))
		return
	}

	if err := s.publisher.Publish(CatalogExchange, eventType, body); err != nil {
		s.log.Warn("Failed to publish catalog event",
			zap.String("event_type", eventType),
			zap.String("isbn", isbn),
			zap.Error(err),
		)
	}
}
