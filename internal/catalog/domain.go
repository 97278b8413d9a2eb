// internal/catalog/domain.go
package catalog

import "libradesk/internal/library"

// Caller-facing messages.
const (
	msgTitleRequired  = "!!! Book name is required !!!"
	msgNegativeQty    = "!!! Quantity cannot be negative !!!"
	msgDuplicate      = "This book already exists. Please use the update operation."
	msgUpdateNotFound = "This book doesn't exist. Set `confirm=true` to add it."
	msgDeleteNotFound = "!!! The book you are trying to delete does not exist in the DB. !!!"
	msgDeleteInUse    = "!!! The book has borrowing records and cannot be deleted. !!!"
	msgNotFound       = "!!! Book not found !!!"
	msgNegativeYear   = "!!! Year values cannot be negative !!!"
	msgInvertedYears  = "!!! End year can't be less than start year !!!"
	msgDirtyTitle     = "!!! Only characters and numbers are recommended in the title !!!"
	msgDirtyAuthor    = "!!! Only characters and numbers are recommended in the author's name !!!"
	warnZeroQuantity  = "Quantity can't be 0, however, we are adding this with 1."
	defaultAuthor     = "Unknown Author"
)

// BookPatch carries a partial update. Empty strings and non-positive numbers
// leave the stored value alone, except PublishedYear where only 0 means unset.
type BookPatch struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Quantity      int    `json:"quantity"`
	PublishedYear int    `json:"publishedYear"`
}

// Book turns the patch into a full record for the create fallback.
func (p BookPatch) Book() library.Book {
	return library.Book{
		Title:         p.Title,
		Author:        p.Author,
		Quantity:      p.Quantity,
		PublishedYear: p.PublishedYear,
	}
}

// Outcome reports what a write did.
type Outcome struct {
	Created bool
	Warning string
}

// SearchResult is a ranked list plus an optional non-fatal warning.
type SearchResult struct {
	Warning string
	Books   []library.Book
}
