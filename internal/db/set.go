package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Set is a typed collection of records in a Context. Add, Update and Remove
// stage changes that are written by SaveChanges; the query methods read
// committed rows.
type Set[T any] struct {
	c        *AppContext
	identity identity[T]
}

func newSet[T any](c *AppContext, id identity[T]) *Set[T] {
	return &Set[T]{c: c, identity: id}
}

// schema returns the parsed mapping of T onto its table.
func (s *Set[T]) schema() (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: s.c.db}
	if err := stmt.Parse(new(T)); err != nil {
		return nil, fmt.Errorf("failed to parse %T: %w", *new(T), err)
	}
	return stmt.Schema, nil
}

func (s *Set[T]) tableName() string {
	sch, err := s.schema()
	if err != nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return sch.Table
}

// Add stages records for insertion. A record whose integer identity is zero
// gets its identity from the store; the generated value is written back into
// the record on commit.
func (s *Set[T]) Add(items ...*T) {
	for _, item := range items {
		s.c.stage(change{kind: changeInsert, table: s.tableName(), exec: s.insert(item)})
	}
}

// Update stages records to be rewritten by key.
func (s *Set[T]) Update(items ...*T) {
	for _, item := range items {
		s.c.stage(change{kind: changeUpdate, table: s.tableName(), exec: s.update(item)})
	}
}

// Remove stages records for deletion by key.
func (s *Set[T]) Remove(items ...*T) {
	for _, item := range items {
		s.c.stage(change{kind: changeDelete, table: s.tableName(), exec: s.remove(item)})
	}
}

func (s *Set[T]) insert(item *T) execFunc {
	return func(tx *gorm.DB, d Dialect, generates bool) (int64, func(), error) {
		if s.identity == nil {
			res := tx.Create(item)
			return res.RowsAffected, nil, res.Error
		}

		id := s.identity(item)
		if *id == 0 {
			if !generates {
				return 0, nil, fmt.Errorf("%s: %w", s.tableName(), ErrIdentityRequired)
			}
			// Create writes the generated key back into the record.
			res := tx.Create(item)
			return res.RowsAffected, func() { *id = 0 }, res.Error
		}

		res := tx.Create(item)
		if res.Error != nil {
			return 0, nil, res.Error
		}
		if d == DialectPostgres {
			if err := s.syncIdentity(tx); err != nil {
				return 0, nil, err
			}
		}
		return res.RowsAffected, nil, nil
	}
}

// syncIdentity moves the key generator past explicitly assigned keys so later
// generated keys cannot collide with them.
func (s *Set[T]) syncIdentity(tx *gorm.DB) error {
	sch, err := s.schema()
	if err != nil {
		return err
	}
	key := sch.PrioritizedPrimaryField.DBName
	return tx.Exec("SELECT setval(pg_get_serial_sequence(?, ?), (SELECT COALESCE(MAX(?), 0) + 1 FROM ?), false)",
		sch.Table, key, clause.Column{Name: key}, clause.Table{Name: sch.Table}).Error
}

func (s *Set[T]) update(item *T) execFunc {
	return func(tx *gorm.DB, _ Dialect, _ bool) (int64, func(), error) {
		sch, err := s.schema()
		if err != nil {
			return 0, nil, err
		}
		// Nothing to rewrite when every column is part of the key.
		if len(sch.DBNames) == len(sch.PrimaryFieldDBNames) {
			return 0, nil, nil
		}
		res := tx.Model(item).Select("*").Updates(item)
		return requireRows(res, sch.Table)
	}
}

func (s *Set[T]) remove(item *T) execFunc {
	return func(tx *gorm.DB, _ Dialect, _ bool) (int64, func(), error) {
		return requireRows(tx.Delete(item), s.tableName())
	}
}

// All returns every committed record ordered by key.
func (s *Set[T]) All(ctx context.Context) ([]T, error) {
	return s.query(ctx, nil)
}

// Where returns the committed records whose column equals value.
func (s *Set[T]) Where(ctx context.Context, column string, value any) ([]T, error) {
	sch, err := s.schema()
	if err != nil {
		return nil, err
	}
	if _, ok := sch.FieldsByDBName[column]; !ok {
		return nil, fmt.Errorf("%s.%s: %w", sch.Table, column, ErrUnknownColumn)
	}
	return s.query(ctx, []clause.Expression{clause.Eq{Column: clause.Column{Name: column}, Value: value}})
}

// Find returns the record with the given key values, or ErrNotFound.
func (s *Set[T]) Find(ctx context.Context, key ...any) (*T, error) {
	sch, err := s.schema()
	if err != nil {
		return nil, err
	}
	if len(key) != len(sch.PrimaryFields) {
		return nil, fmt.Errorf("%s: expected %d key values, got %d", sch.Table, len(sch.PrimaryFields), len(key))
	}
	session, err := s.c.session(ctx)
	if err != nil {
		return nil, err
	}

	conds := make([]clause.Expression, len(key))
	for i, field := range sch.PrimaryFields {
		conds[i] = clause.Eq{Column: clause.Column{Name: field.DBName}, Value: key[i]}
	}

	var record T
	if err := session.Clauses(clause.Where{Exprs: conds}).Take(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", sch.Table, translateError(err))
	}
	return &record, nil
}

// Count returns the number of committed records.
func (s *Set[T]) Count(ctx context.Context) (int, error) {
	session, err := s.c.session(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := session.Model(new(T)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", s.tableName(), err)
	}
	return int(n), nil
}

func (s *Set[T]) query(ctx context.Context, conds []clause.Expression) ([]T, error) {
	sch, err := s.schema()
	if err != nil {
		return nil, err
	}
	session, err := s.c.session(ctx)
	if err != nil {
		return nil, err
	}

	order := clause.OrderBy{}
	for _, field := range sch.PrimaryFields {
		order.Columns = append(order.Columns, clause.OrderByColumn{Column: clause.Column{Name: field.DBName}})
	}
	if len(conds) > 0 {
		session = session.Clauses(clause.Where{Exprs: conds})
	}

	records := []T{}
	if err := session.Order(order).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sch.Table, err)
	}
	return records, nil
}

func requireRows(res *gorm.DB, tableName string) (int64, func(), error) {
	if errors.Is(res.Error, gorm.ErrMissingWhereClause) {
		return 0, nil, fmt.Errorf("%s: %w", tableName, ErrConcurrencyConflict)
	}
	if res.Error != nil {
		return 0, nil, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil, fmt.Errorf("%s: %w", tableName, ErrConcurrencyConflict)
	}
	return res.RowsAffected, nil, nil
}
