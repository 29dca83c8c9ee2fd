package models

import "time"

// Book represents a book in the catalog.
//
// ID, CreatedDate, LastModifiedDate and Version are owned by the store: a
// transient book has a zero ID and Version 0, and the store fills them in on
// the first save. Version is the optimistic-concurrency token and is bumped by
// the store on every successful update.
type Book struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ISBN             string    `json:"isbn" gorm:"uniqueIndex;type:varchar(13);not null" validate:"required,catalog_isbn"`
	Title            string    `json:"title" gorm:"type:varchar(255);not null" validate:"required,notblank"`
	Author           string    `json:"author" gorm:"type:varchar(255);not null" validate:"required,notblank"`
	Price            float64   `json:"price" gorm:"not null" validate:"required,gt=0"`
	Publisher        string    `json:"publisher,omitempty" gorm:"type:varchar(255)"`
	CreatedDate      time.Time `json:"createdDate" gorm:"not null"`
	LastModifiedDate time.Time `json:"lastModifiedDate" gorm:"not null"`
	Version          int       `json:"version" gorm:"not null;default:0"`
}

// TableName specifies the table name for the Book model.
func (Book) TableName() string {
	return "books"
}

// NewBook builds a transient book that has never been persisted.
func NewBook(isbn, title, author string, price float64, publisher string) Book {
	return Book{
		ISBN:      isbn,
		Title:     title,
		Author:    author,
		Price:     price,
		Publisher: publisher,
	}
}

// IsNew reports whether the book has not been assigned an identifier yet.
func (b Book) IsNew() bool {
	return b.ID == 0
}
