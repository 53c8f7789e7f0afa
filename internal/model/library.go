package model

// Category groups books in the library catalogue.
type Category struct {
	CategoryID   int    `json:"category_id" gorm:"primaryKey"`
	CategoryName string `json:"category_name"`
}

type Author struct {
	AuthorID   int    `json:"author_id" gorm:"primaryKey"`
	AuthorName string `json:"author_name"`
}

// Book references its author and category by identity. The references are
// only checked by stores that enforce foreign keys.
type Book struct {
	BookID         int    `json:"book_id" gorm:"primaryKey"`
	Title          string `json:"title"`
	AuthorID       int    `json:"author_id"`
	CategoryID     int    `json:"category_id"`
	NumberOfCopies int    `json:"number_of_copies"`
	IsEnabled      bool   `json:"is_enabled"`
}

func (Category) TableName() string { return "categories" }
func (Author) TableName() string   { return "authors" }
func (Book) TableName() string     { return "books" }
