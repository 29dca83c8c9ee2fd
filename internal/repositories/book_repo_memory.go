package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"catalog/internal/models"
)

// MemoryBookRepository is an in-memory implementation of BookRepository.
// It enforces the same unique ISBN and version rules as the database.
type MemoryBookRepository struct {
	books  map[uint]models.Book
	nextID uint
	mu     sync.RWMutex
	now    func() time.Time
}

// NewMemoryBookRepository creates a new instance of MemoryBookRepository.
func NewMemoryBookRepository() *MemoryBookRepository {
	return &MemoryBookRepository{
		books: make(map[uint]models.Book),
		now:   storeTime,
	}
}

// FindAll returns all books ordered by ID.
func (r *MemoryBookRepository) FindAll(_ context.Context) ([]models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bookList := make([]models.Book, 0, len(r.books))
	for _, b := range r.books {
		bookList = append(bookList, b)
	}
	sort.Slice(bookList, func(i, j int) bool { return bookList[i].ID < bookList[j].ID })
	return bookList, nil
}

// FindByISBN returns a book by its ISBN.
func (r *MemoryBookRepository) FindByISBN(_ context.Context, isbn string) (*models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	book, ok := r.lookup(isbn)
	if !ok {
		return nil, ErrBookNotFound
	}
	return &book, nil
}

// ExistsByISBN reports whether a book with the ISBN is stored.
func (r *MemoryBookRepository) ExistsByISBN(_ context.Context, isbn string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.lookup(isbn)
	return ok, nil
}

// Save adds a new book or replaces an existing one.
func (r *MemoryBookRepository) Save(_ context.Context, book *models.Book) (*models.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if other, ok := r.lookup(book.ISBN); ok && other.ID != book.ID {
		return nil, ErrDuplicateISBN
	}

	saved := *book
	now := r.now()
	if book.IsNew() {
		r.nextID++
		saved.ID = r.nextID
		saved.CreatedDate = now
		saved.Version = 0
	} else {
		stored, ok := r.books[book.ID]
		if !ok || stored.Version != book.Version {
			return nil, ErrConcurrencyConflict
		}
		saved.CreatedDate = stored.CreatedDate
		saved.Version = stored.Version + 1
	}
	saved.LastModifiedDate = now

	r.books[saved.ID] = saved
	return &saved, nil
}

// DeleteByISBN removes a book by its ISBN, if present.
func (r *MemoryBookRepository) DeleteByISBN(_ context.Context, isbn string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if book, ok := r.lookup(isbn); ok {
		delete(r.books, book.ID)
	}
	return nil
}

// lookup must be called with r.mu held.
func (r *MemoryBookRepository) lookup(isbn string) (models.Book, bool) {
	for _, b := range r.books {
		if b.ISBN == isbn {
			return b, true
		}
	}
	return models.Book{}, false
}
