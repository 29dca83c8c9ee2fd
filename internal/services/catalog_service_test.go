package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockBookRepository is a mock implementation of repositories.BookRepository
type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) FindAll(ctx context.Context) ([]models.Book, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookRepository) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	args := m.Called(isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	args := m.Called(isbn)
	return args.Bool(0), args.Error(1)
}

func (m *MockBookRepository) Save(ctx context.Context, book *models.Book) (*models.Book, error) {
	args := m.Called(book)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) DeleteByISBN(ctx context.Context, isbn string) error {
	args := m.Called(isbn)
	return args.Error(0)
}

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, routingKey string, body []byte) error {
	args := m.Called(exchange, routingKey, body)
	return args.Error(0)
}

func TestCatalogService_ViewBookList(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewCatalogService(mockRepo, nil, zap.NewNop())

	expectedBooks := []models.Book{
		{ID: 1, ISBN: "1234567891", Title: "Northern Lights", Author: "Lyra Silverstar", Price: 9.90},
		{ID: 2, ISBN: "1234567892", Title: "Polar Journey", Author: "Iorek Polarson", Price: 12.90},
	}

	mockRepo.On("FindAll").Return(expectedBooks, nil).Once()

	books, err := service.ViewBookList(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, expectedBooks, books)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_ViewBookList_RepositoryError(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewCatalogService(mockRepo, nil, zap.NewNop())

	mockRepo.On("FindAll").Return(nil, fmt.Errorf("database error")).Once()

	books, err := service.ViewBookList(context.Background())
	assert.Nil(t, books)
	assert.EqualError(t, err, "database error")
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_ViewBookDetails(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewCatalogService(mockRepo, nil, zap.NewNop())
	ctx := context.Background()

	expected := &models.Book{ID: 1, ISBN: "1234567890", Title: "Title", Author: "Author", Price: 9.90}

	// Found
	mockRepo.On("FindByISBN", "1234567890").Return(expected, nil).Once()
	book, err := service.ViewBookDetails(ctx, "1234567890")
	assert.NoError(t, err)
	assert.Equal(t, expected, book)

	// Not found
	mockRepo.On("FindByISBN", "0000000000").Return(nil, repositories.ErrBookNotFound).Once()
	book, err = service.ViewBookDetails(ctx, "0000000000")
	assert.Nil(t, book)

	var notFound *services.BookNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "0000000000", notFound.ISBN)
	assert.ErrorIs(t, err, repositories.ErrBookNotFound)
	assert.EqualError(t, err, "book with ISBN 0000000000 was not found")
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_AddBookToCatalog(t *testing.T) {
	mockRepo := new(MockBookRepository)
	mockPublisher := new(MockPublisher)
	service := services.NewCatalogService(mockRepo, mockPublisher, zap.NewNop())
	ctx := context.Background()

	book := models.NewBook("1234567890", "Title", "Author", 9.90, "")
	saved := book
	saved.ID = 1

	mockRepo.On("ExistsByISBN", "1234567890").Return(false, nil).Once()
	mockRepo.On("Save", &book).Return(&saved, nil).Once()
	mockPublisher.On("Publish", services.CatalogExchange, services.EventBookCreated, mock.Anything).Return(nil).Once()

	result, err := service.AddBookToCatalog(ctx, book)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), result.ID)
	assert.Equal(t, 0, result.Version)
	mockRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestCatalogService_AddBookToCatalog_AlreadyExists(t *testing.T) {
	mockRepo := new(MockBookRepository)
	mockPublisher := new(MockPublisher)
	service := services.NewCatalogService(mockRepo, mockPublisher, zap.NewNop())

	mockRepo.On("ExistsByISBN", "1234567890").Return(true, nil).Once()

	result, err := service.AddBookToCatalog(context.Background(), models.NewBook("1234567890", "Title", "Author", 9.90, ""))
	assert.Nil(t, result)

	var exists *services.BookAlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "1234567890", exists.ISBN)
	assert.EqualError(t, err, "a book with ISBN 1234567890 already exists")
	mockRepo.AssertNotCalled(t, "Save", mock.Anything)
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_AddBookToCatalog_LostRaceOnUniqueIndex(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewCatalogService(mockRepo, nil, zap.NewNop())

	mockRepo.On("ExistsByISBN", "1234567890").Return(false, nil).Once()
	mockRepo.On("Save", mock.AnythingOfType("*models.Book")).Return(nil, repositories.ErrDuplicateISBN).Once()

	_, err := service.AddBookToCatalog(context.Background(), models.NewBook("1234567890", "Title", "Author", 9.90, ""))

	var exists *services.BookAlreadyExistsError
	assert.ErrorAs(t, err, &exists)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_AddBookToCatalog_PublishFailureIsIgnored(t *testing.T) {
	mockRepo := new(MockBookRepository)
	mockPublisher := new(MockPublisher)
	service := services.NewCatalogService(mockRepo, mockPublisher, zap.NewNop())

	book := models.NewBook("1234567890", "Title", "Author", 9.90, "")
	saved := book
	saved.ID = 7

	mockRepo.On("ExistsByISBN", "1234567890").Return(false, nil).Once()
	mockRepo.On("Save", mock.AnythingOfType("*models.Book")).Return(&saved, nil).Once()
	mockPublisher.On("Publish", services.CatalogExchange, services.EventBookCreated, mock.Anything).
		Return(fmt.Errorf("broker unavailable")).Once()

	result, err := service.AddBookToCatalog(context.Background(), book)
	assert.NoError(t, err)
	assert.Equal(t, uint(7), result.ID)
	mockPublisher.AssertExpectations(t)
}

func TestCatalogService_RemoveBookFromCatalog(t *testing.T) {
	mockRepo := new(MockBookRepository)
	mockPublisher := new(MockPublisher)
	service := services.NewCatalogService(mockRepo, mockPublisher, zap.NewNop())
	ctx := context.Background()

	var published []byte
	mockRepo.On("DeleteByISBN", "1234567890").Return(nil).Once()
	mockPublisher.On("Publish", services.CatalogExchange, services.EventBookDeleted, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil).Once()

	assert.NoError(t, service.RemoveBookFromCatalog(ctx, "1234567890"))

	var event services.CatalogEvent
	require.NoError(t, json.Unmarshal(published, &event))
	assert.Equal(t, services.EventBookDeleted, event.EventType)
	assert.Equal(t, "1234567890", event.ISBN)
	assert.NotEmpty(t, event.EventID)
	assert.Nil(t, event.Book)

	// Repository failures propagate
	mockRepo.On("DeleteByISBN", "1234567891").Return(fmt.Errorf("database error")).Once()
	assert.Error(t, service.RemoveBookFromCatalog(ctx, "1234567891"))

	mockRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestCatalogService_EditBookDetails_Existing(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewCatalogService(mockRepo, nil, zap.NewNop())

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	modified := created.Add(time.Hour)
	existing := &models.Book{
		ID: 5, ISBN: "1234567890", Title: "Title", Author: "Author", Price: 9.90,
		CreatedDate: created, LastModifiedDate: modified, Version: 3,
	}
	incoming := models.NewBook("9781234567897", "New Title", "New Author", 12.00, "Polarsophia")

	// The replacement keeps identity and lineage from the stored book and
	// business fields from the incoming one.
	expectedReplacement := &models.Book{
		ID: 5, ISBN: "9781234567897", Title: "New Title", Author: "New Author", Price: 12.00, Publisher: "Polarsophia",
		CreatedDate: created, LastModifiedDate: modified, Version: 3,
	}
	stored := *expectedReplacement
	stored.Version = 4

	mockRepo.On("FindByISBN", "1234567890").Return(existing, nil).Once()
	mockRepo.On("Save", expectedReplacement).Return(&stored, nil).Once()

	result, err := service.EditBookDetails(context.Background(), "1234567890", incoming)
	assert.NoError(t, err)
	assert.Equal(t, &stored, result)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_EditBookDetails_MissingFallsBackToAdd(t *testing.T) {
	mockRepo := new(MockBookRepository)
	mockPublisher := new(MockPublisher)
	service := services.NewCatalogService(mockRepo, mockPublisher, zap.NewNop())

	incoming := models.NewBook("1234567890", "Title", "Author", 9.90, "")
	saved := incoming
	saved.ID = 1

	mockRepo.On("FindByISBN", "1234567890").Return(nil, repositories.ErrBookNotFound).Once()
	mockRepo.On("ExistsByISBN", "1234567890").Return(false, nil).Once()
	mockRepo.On("Save", &incoming).Return(&saved, nil).Once()
	mockPublisher.On("Publish", services.CatalogExchange, services.EventBookCreated, mock.Anything).Return(nil).Once()

	result, err := service.EditBookDetails(context.Background(), "1234567890", incoming)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), result.ID)
	mockRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestCatalogService_EditBookDetails_ConcurrencyConflictPropagates(t *testing.T) {
	mockRepo := new(MockBookRepository)
	mockPublisher := new(MockPublisher)
	service := services.NewCatalogService(mockRepo, mockPublisher, zap.NewNop())

	existing := &models.Book{ID: 5, ISBN: "1234567890", Title: "Title", Author: "Author", Price: 9.90, Version: 1}

	mockRepo.On("FindByISBN", "1234567890").Return(existing, nil).Once()
	mockRepo.On("Save", mock.AnythingOfType("*models.Book")).Return(nil, repositories.ErrConcurrencyConflict).Once()

	result, err := service.EditBookDetails(context.Background(), "1234567890", models.NewBook("1234567890", "New", "Author", 9.90, ""))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, repositories.ErrConcurrencyConflict)
	mockRepo.AssertNumberOfCalls(t, "Save", 1)
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_EditBookDetails_RenameOntoTakenISBN(t *testing.T) {
	mockRepo := new(MockBookRepository)
	service := services.NewCatalogService(mockRepo, nil, zap.NewNop())

	existing := &models.Book{ID: 5, ISBN: "1234567890", Title: "Title", Author: "Author", Price: 9.90}

	mockRepo.On("FindByISBN", "1234567890").Return(existing, nil).Once()
	mockRepo.On("Save", mock.AnythingOfType("*models.Book")).Return(nil, repositories.ErrDuplicateISBN).Once()

	_, err := service.EditBookDetails(context.Background(), "1234567890", models.NewBook("1234567891", "Title", "Author", 9.90, ""))

	var exists *services.BookAlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "1234567891", exists.ISBN)
	mockRepo.AssertExpectations(t)
}

// The example scenarios of the catalog, run against the in-memory store.
func TestCatalogService_Scenarios(t *testing.T) {
	service := services.NewCatalogService(repositories.NewMemoryBookRepository(), nil, zap.NewNop())
	ctx := context.Background()

	// 1. Adding a book assigns an id and starts at version 0
	added, err := service.AddBookToCatalog(ctx, models.NewBook("1234567890", "Title", "Author", 9.90, ""))
	require.NoError(t, err)
	assert.NotZero(t, added.ID)
	assert.Equal(t, 0, added.Version)

	// 2. Adding the same ISBN again fails
	_, err = service.AddBookToCatalog(ctx, models.NewBook("1234567890", "Other", "Other", 1.00, ""))
	var exists *services.BookAlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, "1234567890", exists.ISBN)

	// 3. Unknown ISBN is not found
	_, err = service.ViewBookDetails(ctx, "0000000000")
	var notFound *services.BookNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "0000000000", notFound.ISBN)

	// 4. Editing keeps identity and bumps the version
	edited, err := service.EditBookDetails(ctx, "1234567890", models.NewBook("1234567890", "New Title", "Author", 12.00, ""))
	require.NoError(t, err)
	assert.Equal(t, added.ID, edited.ID)
	assert.Equal(t, "New Title", edited.Title)
	assert.Equal(t, 12.00, edited.Price)
	assert.Equal(t, 1, edited.Version)
	assert.True(t, added.CreatedDate.Equal(edited.CreatedDate))

	viewed, err := service.ViewBookDetails(ctx, "1234567890")
	require.NoError(t, err)
	assert.Equal(t, "New Title", viewed.Title)

	// 5. Removing makes the book unreachable, and removing again is fine
	require.NoError(t, service.RemoveBookFromCatalog(ctx, "1234567890"))
	_, err = service.ViewBookDetails(ctx, "1234567890")
	assert.ErrorAs(t, err, &notFound)
	assert.NoError(t, service.RemoveBookFromCatalog(ctx, "1234567890"))
}

func TestCatalogService_EditBookDetails_RenamesISBN(t *testing.T) {
	service := services.NewCatalogService(repositories.NewMemoryBookRepository(), nil, zap.NewNop())
	ctx := context.Background()

	added, err := service.AddBookToCatalog(ctx, models.NewBook("1234567890", "Title", "Author", 9.90, ""))
	require.NoError(t, err)

	renamed, err := service.EditBookDetails(ctx, "1234567890", models.NewBook("9781234567897", "Title", "Author", 9.90, ""))
	require.NoError(t, err)
	assert.Equal(t, added.ID, renamed.ID)
	assert.Equal(t, "9781234567897", renamed.ISBN)

	_, err = service.ViewBookDetails(ctx, "1234567890")
	assert.ErrorIs(t, err, repositories.ErrBookNotFound)

	books, err := service.ViewBookList(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 1)
}
