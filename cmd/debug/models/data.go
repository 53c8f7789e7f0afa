package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mydemos/lms/internal/db"
)

// TableNames lists the browsable tables in menu order.
var TableNames = []string{"categories", "books", "authors", "users", "roles", "user_roles"}

// TableData is a rendered snapshot of one table.
type TableData struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// LoadTable reads every row of the named table through a fresh context.
func LoadTable(ctx context.Context, database *db.Database, name string) (TableData, error) {
	c := database.NewContext()
	defer c.Close()

	data := TableData{Name: name}
	switch name {
	case "categories":
		items, err := c.Categories().All(ctx)
		if err != nil {
			return data, err
		}
		data.Columns = []string{"category_id", "category_name"}
		for _, it := range items {
			data.Rows = append(data.Rows, []string{strconv.Itoa(it.CategoryID), it.CategoryName})
		}
	case "books":
		items, err := c.Books().All(ctx)
		if err != nil {
			return data, err
		}
		data.Columns = []string{"book_id", "title", "author_id", "category_id", "number_of_copies", "is_enabled"}
		for _, it := range items {
			data.Rows = append(data.Rows, []string{
				strconv.Itoa(it.BookID), it.Title, strconv.Itoa(it.AuthorID), strconv.Itoa(it.CategoryID),
				strconv.Itoa(it.NumberOfCopies), strconv.FormatBool(it.IsEnabled),
			})
		}
	case "authors":
		items, err := c.Authors().All(ctx)
		if err != nil {
			return data, err
		}
		data.Columns = []string{"author_id", "author_name"}
		for _, it := range items {
			data.Rows = append(data.Rows, []string{strconv.Itoa(it.AuthorID), it.AuthorName})
		}
	case "users":
		items, err := c.Users().All(ctx)
		if err != nil {
			return data, err
		}
		data.Columns = []string{"user_id", "user_name", "email", "email_confirmed", "created_at"}
		for _, it := range items {
			data.Rows = append(data.Rows, []string{
				it.UserID, it.UserName, it.Email, strconv.FormatBool(it.EmailConfirmed),
				it.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
	case "roles":
		items, err := c.Roles().All(ctx)
		if err != nil {
			return data, err
		}
		data.Columns = []string{"role_id", "name"}
		for _, it := range items {
			data.Rows = append(data.Rows, []string{it.RoleID, it.Name})
		}
	case "user_roles":
		items, err := c.UserRoles().All(ctx)
		if err != nil {
			return data, err
		}
		data.Columns = []string{"user_id", "role_id"}
		for _, it := range items {
			data.Rows = append(data.Rows, []string{it.UserID, it.RoleID})
		}
	default:
		return data, fmt.Errorf("unknown table: %s", name)
	}
	return data, nil
}

// TableCount is the row count of one table.
type TableCount struct {
	Name  string
	Count int
}

// Overview summarizes the store.
type Overview struct {
	Provider string
	Healthy  bool
	Counts   []TableCount
}

// LoadOverview pings the store and counts the rows of every table.
func LoadOverview(ctx context.Context, database *db.Database) (Overview, error) {
	o := Overview{Provider: database.Provider().Name()}
	o.Healthy = database.Ping(ctx) == nil

	c := database.NewContext()
	defer c.Close()

	counters := map[string]func(context.Context) (int, error){
		"categories": c.Categories().Count,
		"books":      c.Books().Count,
		"authors":    c.Authors().Count,
		"users":      c.Users().Count,
		"roles":      c.Roles().Count,
		"user_roles": c.UserRoles().Count,
	}
	for _, name := range TableNames {
		n, err := counters[name](ctx)
		if err != nil {
			return o, fmt.Errorf("failed to count %s: %w", name, err)
		}
		o.Counts = append(o.Counts, TableCount{Name: name, Count: n})
	}
	return o, nil
}

// truncate shortens s to width runes, marking the cut with "…".
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func pad(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
