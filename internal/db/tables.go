package db

import "github.com/mydemos/lms/internal/model"

// identity points at the integer key of records whose store may generate
// it. Tables with caller-assigned keys have none.
type identity[T any] func(*T) *int

var (
	categoryIdentity identity[model.Category] = func(c *model.Category) *int { return &c.CategoryID }
	authorIdentity   identity[model.Author]   = func(a *model.Author) *int { return &a.AuthorID }
	bookIdentity     identity[model.Book]     = func(b *model.Book) *int { return &b.BookID }
)
