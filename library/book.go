package library

import "errors"

// Book is a catalog entry. Available is mutated only by the loan coordinator.
type Book struct {
	ISBN      ISBN   `json:"isbn" validate:"required,max=32"`
	Title     string `json:"title" validate:"required"`
	Author    string `json:"author" validate:"required"`
	Pages     int    `json:"pages" validate:"gte=0"`
	Genre     string `json:"genre"`
	Available bool   `json:"available"`
}

// BuildBook is a factory method for a new, available Book.
// It normalizes the ISBN and validates the input.
func BuildBook(rawISBN string, title string, author string, pages int, genre string) (Book, error) {
	isbn, err := NormalizeISBN(rawISBN)
	if err != nil {
		return Book{}, errors.Join(ErrInvalidInput, err)
	}

	book := Book{
		ISBN:      isbn,
		Title:     title,
		Author:    author,
		Pages:     pages,
		Genre:     genre,
		Available: true,
	}

	if err = Validate(book); err != nil {
		return Book{}, err
	}

	return book, nil
}

// WithAvailability returns a copy of the book with the given availability.
func (b Book) WithAvailability(available bool) Book {
	b.Available = available
	return b
}
