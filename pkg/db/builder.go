package db

import (
	"context"

	"github.com/go-pg/pg/v10/orm"
	"github.com/go-pg/pg/v10/types"
)

// Searcher applies WHERE conditions to a query.
type Searcher interface {
	Apply(query *orm.Query) *orm.Query
}

// Filter is a base table condition applied to every repository query.
type Filter func(query *orm.Query) *orm.Query

// StatusFilter excludes soft-deleted rows.
func StatusFilter(query *orm.Query) *orm.Query {
	return query.Where(`?TableAlias."statusId" != ?`, StatusDeleted)
}

// StatusEnabledFilter restricts queries to enabled rows only.
func StatusEnabledFilter(query *orm.Query) *orm.Query {
	return query.Where(`?TableAlias."statusId" = ?`, StatusEnabled)
}

// SortDirection is an ORDER BY direction.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// SortField is one ORDER BY clause element.
type SortField struct {
	Column    string
	Direction SortDirection
}

// Pager limits query results.
type Pager struct {
	Page     int
	PageSize int
}

var (
	PagerDefault = Pager{PageSize: 100}
	PagerOne     = Pager{PageSize: 1}
	// PagerTwo is used by One* methods to detect unexpected multiple rows.
	PagerTwo = Pager{PageSize: 2}
)

func (p Pager) apply(query *orm.Query) *orm.Query {
	size := p.PageSize
	if size == 0 {
		size = PagerDefault.PageSize
	}
	query = query.Limit(size)
	if p.Page > 1 {
		query = query.Offset((p.Page - 1) * size)
	}
	return query
}

// OpFunc modifies a query with additional columns, joins or sorting.
type OpFunc func(query *orm.Query)

// WithColumns selects the given columns. Names matching model relations load
// the relation.
func WithColumns(columns ...string) OpFunc {
	return func(query *orm.Query) {
		query.Column(columns...)
	}
}

// WithSort adds ORDER BY clauses.
func WithSort(fields ...SortField) OpFunc {
	return func(query *orm.Query) {
		for _, f := range fields {
			query.OrderExpr(`?TableAlias.? ?`, types.Ident(f.Column), types.Safe(string(f.Direction)))
		}
	}
}

func applyOps(query *orm.Query, ops ...OpFunc) {
	for _, op := range ops {
		op(query)
	}
}

// buildQuery assembles a model query from base filters, search conditions,
// paging and optional query modifiers.
func buildQuery(ctx context.Context, db orm.DB, model interface{}, search Searcher, filters []Filter, pager Pager, ops ...OpFunc) *orm.Query {
	query := db.ModelContext(ctx, model)
	for _, f := range filters {
		query = f(query)
	}
	if search != nil {
		query = search.Apply(query)
	}
	query = pager.apply(query)
	applyOps(query, ops...)

	return query
}
