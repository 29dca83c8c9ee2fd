package handlers

import (
	"catalog/internal/models"
	"catalog/internal/services"
	"catalog/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BookHandler handles HTTP requests for the book catalog.
type BookHandler struct {
	service  *services.CatalogService
	validate *validation.Validator
	log      *zap.Logger
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(service *services.CatalogService, validate *validation.Validator, log *zap.Logger) *BookHandler {
	return &BookHandler{
		service:  service,
		validate: validate,
		log:      log,
	}
}

// RegisterRoutes registers the book routes. Reads are public; guard runs in
// front of every write.
func (h *BookHandler) RegisterRoutes(router fiber.Router, guard fiber.Handler) {
	bookRoutes := router.Group("/books")
	bookRoutes.Get("/", h.HandleViewBookList)
	bookRoutes.Get("/:isbn", h.HandleViewBookDetails)
	bookRoutes.Post("/", guard, h.HandleAddBook)
	bookRoutes.Put("/:isbn", guard, h.HandleEditBook)
	bookRoutes.Delete("/:isbn", guard, h.HandleRemoveBook)
}

// HandleViewBookList returns every book in the catalog.
func (h *BookHandler) HandleViewBookList(c *fiber.Ctx) error {
	books, err := h.service.ViewBookList(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	if books == nil {
		books = []models.Book{}
	}
	return c.JSON(books)
}

// HandleViewBookDetails returns a single book by ISBN.
func (h *BookHandler) HandleViewBookDetails(c *fiber.Ctx) error {
	book, err := h.service.ViewBookDetails(c.UserContext(), c.Params("isbn"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(book)
}

// HandleAddBook adds a new book and answers 201 with the stored record.
func (h *BookHandler) HandleAddBook(c *fiber.Ctx) error {
	book, err := h.parseBook(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	saved, err := h.service.AddBookToCatalog(c.UserContext(), book)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

// HandleEditBook updates the book under :isbn, or creates it.
func (h *BookHandler) HandleEditBook(c *fiber.Ctx) error {
	book, err := h.parseBook(c)
	if err != nil {
		return respondError(c, h.log, err)
	}

	saved, err := h.service.EditBookDetails(c.UserContext(), c.Params("isbn"), book)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(saved)
}

// HandleRemoveBook deletes the book under :isbn and answers 204 either way.
func (h *BookHandler) HandleRemoveBook(c *fiber.Ctx) error {
	if err := h.service.RemoveBookFromCatalog(c.UserContext(), c.Params("isbn")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseBook decodes and validates the request body. Store-owned fields in
// the body are dropped.
func (h *BookHandler) parseBook(c *fiber.Ctx) (models.Book, error) {
	var body models.Book
	if err := c.BodyParser(&body); err != nil {
		return models.Book{}, fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	book := models.NewBook(body.ISBN, body.Title, body.Author, body.Price, body.Publisher)
	if err := h.validate.ValidateBook(book); err != nil {
		return models.Book{}, err
	}
	return book, nil
}
