package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mydemos/lms/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Context exposes the application's record collections and commits staged
// changes to the backing store as one unit.
type Context interface {
	Categories() *Set[model.Category]
	Books() *Set[model.Book]
	Authors() *Set[model.Author]
	Users() *Set[model.User]
	Roles() *Set[model.Role]
	UserRoles() *Set[model.UserRole]
	SaveChanges(ctx context.Context) (int, error)
}

type changeKind string

const (
	changeInsert changeKind = "insert"
	changeUpdate changeKind = "update"
	changeDelete changeKind = "delete"
)

// execFunc writes one staged change. The returned undo func, if any, reverts
// in-memory side effects when the surrounding transaction rolls back.
type execFunc func(tx *gorm.DB, d Dialect, generatesIdentity bool) (int64, func(), error)

type change struct {
	kind  changeKind
	table string
	exec  execFunc
}

// Database is an opened, migrated store shared by many contexts.
type Database struct {
	sqlDB    *sql.DB
	gorm     *gorm.DB
	provider Provider
}

// Connect opens the provider's store and applies the schema.
func Connect(ctx context.Context, provider Provider) (*Database, error) {
	database, err := provider.Open(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug("Running database migrations", "provider", provider.Name())
	if err := RunMigrations(database, provider.Dialect()); err != nil {
		database.Close()
		return nil, err
	}

	orm, err := gorm.Open(dialector(provider.Dialect(), database), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newQueryLogger(),
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	log.Info("Database initialized", "provider", provider.Name())
	return &Database{sqlDB: database, gorm: orm, provider: provider}, nil
}

// dialector binds GORM to an already opened pool so the migrations and the
// record sets share one set of connections.
func dialector(d Dialect, conn *sql.DB) gorm.Dialector {
	if d == DialectPostgres {
		return postgres.New(postgres.Config{Conn: conn})
	}
	return sqlite.New(sqlite.Config{Conn: conn})
}

func (d *Database) Provider() Provider             { return d.provider }
func (d *Database) Close() error                   { return d.sqlDB.Close() }
func (d *Database) Ping(ctx context.Context) error { return d.sqlDB.PingContext(ctx) }

// NewContext returns a context over the shared connection pool. Closing the
// context does not close the pool.
func (d *Database) NewContext() *AppContext {
	c := &AppContext{
		db:                d.gorm,
		dialect:           d.provider.Dialect(),
		generatesIdentity: d.provider.GeneratesIdentity(),
	}
	c.categories = newSet(c, categoryIdentity)
	c.books = newSet(c, bookIdentity)
	c.authors = newSet(c, authorIdentity)
	c.users = newSet[model.User](c, nil)
	c.roles = newSet[model.Role](c, nil)
	c.userRoles = newSet[model.UserRole](c, nil)
	return c
}

// AppContext is the application's Context implementation. It is not safe
// for concurrent use.
type AppContext struct {
	db                *gorm.DB
	owner             *Database
	dialect           Dialect
	generatesIdentity bool
	closed            bool
	pending           []change

	categories *Set[model.Category]
	books      *Set[model.Book]
	authors    *Set[model.Author]
	users      *Set[model.User]
	roles      *Set[model.Role]
	userRoles  *Set[model.UserRole]
}

var _ Context = (*AppContext)(nil)

// Open connects to the provider and returns a context that owns the
// connection; Close releases it.
func Open(ctx context.Context, provider Provider) (*AppContext, error) {
	database, err := Connect(ctx, provider)
	if err != nil {
		return nil, err
	}
	c := database.NewContext()
	c.owner = database
	return c, nil
}

func (c *AppContext) Categories() *Set[model.Category] { return c.categories }
func (c *AppContext) Books() *Set[model.Book]          { return c.books }
func (c *AppContext) Authors() *Set[model.Author]      { return c.authors }
func (c *AppContext) Users() *Set[model.User]          { return c.users }
func (c *AppContext) Roles() *Set[model.Role]          { return c.roles }
func (c *AppContext) UserRoles() *Set[model.UserRole]  { return c.userRoles }

// Pending reports the number of staged, uncommitted changes.
func (c *AppContext) Pending() int { return len(c.pending) }

func (c *AppContext) stage(ch change) {
	c.pending = append(c.pending, ch)
}

func (c *AppContext) session(ctx context.Context) (*gorm.DB, error) {
	if c.closed {
		return nil, ErrContextClosed
	}
	return c.db.WithContext(ctx), nil
}

// SaveChanges writes all staged changes in staging order inside a single
// transaction and returns the number of affected rows. If any change fails
// the transaction is rolled back, the staged changes are kept and the error
// is returned.
func (c *AppContext) SaveChanges(ctx context.Context) (int, error) {
	session, err := c.session(ctx)
	if err != nil {
		return 0, err
	}
	if len(c.pending) == 0 {
		return 0, nil
	}

	var (
		total     int64
		undo      []func()
		changeErr error
	)
	err = session.Transaction(func(tx *gorm.DB) error {
		for _, ch := range c.pending {
			n, revert, err := ch.exec(tx, c.dialect, c.generatesIdentity)
			if revert != nil {
				undo = append(undo, revert)
			}
			if err != nil {
				changeErr = fmt.Errorf("failed to %s %s: %w", ch.kind, ch.table, translateError(err))
				return changeErr
			}
			total += n
		}
		return nil
	})
	if err != nil {
		for _, fn := range undo {
			fn()
		}
		log.Debug("Rolled back staged changes", "changes", len(c.pending), "error", err)
		if changeErr != nil {
			return 0, changeErr
		}
		return 0, fmt.Errorf("failed to commit transaction: %w", translateError(err))
	}

	log.Debug("Saved staged changes", "changes", len(c.pending), "rows", total)
	c.pending = nil
	return int(total), nil
}

// Close discards staged changes. A context returned by Open also closes its
// connection, which disposes a memory store once no other handle uses it.
func (c *AppContext) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.pending = nil
	if c.owner != nil {
		return c.owner.Close()
	}
	return nil
}
