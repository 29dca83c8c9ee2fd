package services

import (
	"errors"
	"fmt"

	"catalog/internal/repositories"
)

var (
	// ErrUserAlreadyExists is returned when registering a taken username or email.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// BookNotFoundError reports that no book matches ISBN.
type BookNotFoundError struct {
	ISBN string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book with ISBN %s was not found", e.ISBN)
}

func (e *BookNotFoundError) Unwrap() error {
	return repositories.ErrBookNotFound
}

// BookAlreadyExistsError reports that ISBN is taken by another book.
type BookAlreadyExistsError struct {
	ISBN string
}

func (e *BookAlreadyExistsError) Error() string {
	return fmt.Sprintf("a book with ISBN %s already exists", e.ISBN)
}

func (e *BookAlreadyExistsError) Unwrap() error {
	return repositories.ErrDuplicateISBN
}
