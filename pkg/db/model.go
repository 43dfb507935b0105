package db

import (
	"time"

	"github.com/go-pg/pg/v10/orm"
)

// Status values for soft delete.
const (
	StatusEnabled  = 1
	StatusDisabled = 2
	StatusDeleted  = 3
)

// TableColumns selects all columns of the base table.
const TableColumns = "t.*"

var Tables = struct {
	User struct {
		Name, Alias string
	}
	Expense struct {
		Name, Alias string
	}
}{
	User: struct {
		Name, Alias string
	}{Name: "users", Alias: "t"},
	Expense: struct {
		Name, Alias string
	}{Name: "expenses", Alias: "t"},
}

var Columns = struct {
	User struct {
		ID, Login, CreatedAt, StatusID string
	}
	Expense struct {
		ID, UserID, Amount, Currency, Category, Description, SpentAt, CreatedAt, StatusID string
		User                                                                              string
	}
}{
	User: struct {
		ID, Login, CreatedAt, StatusID string
	}{
		ID:        "userId",
		Login:     "login",
		CreatedAt: "createdAt",
		StatusID:  "statusId",
	},
	Expense: struct {
		ID, UserID, Amount, Currency, Category, Description, SpentAt, CreatedAt, StatusID string
		User                                                                              string
	}{
		ID:          "expenseId",
		UserID:      "userId",
		Amount:      "amount",
		Currency:    "currency",
		Category:    "category",
		Description: "description",
		SpentAt:     "spentAt",
		CreatedAt:   "createdAt",
		StatusID:    "statusId",
		User:        "User",
	},
}

// User is an account record. Login is supplied by the authentication
// collaborator, this service does not manage credentials.
type User struct {
	tableName struct{} `pg:"users,alias:t,discard_unknown_columns"`

	ID        int       `pg:"userId,pk"`
	Login     string    `pg:"login,use_zero"`
	CreatedAt time.Time `pg:"createdAt,default:now()"`
	StatusID  int       `pg:"statusId,use_zero"`
}

// Expense is a stored expense. Amount is kept in minor units (cents).
// Category is the fixed enum stored as text.
type Expense struct {
	tableName struct{} `pg:"expenses,alias:t,discard_unknown_columns"`

	ID          int       `pg:"expenseId,pk"`
	UserID      int       `pg:"userId,use_zero"`
	Amount      int       `pg:"amount,use_zero"`
	Currency    string    `pg:"currency,use_zero"`
	Category    string    `pg:"category,use_zero"`
	Description string    `pg:"description,use_zero"`
	SpentAt     time.Time `pg:"spentAt"`
	CreatedAt   time.Time `pg:"createdAt,default:now()"`
	StatusID    int       `pg:"statusId,use_zero"`

	User *User `pg:"fk:userId,rel:has-one"`
}

// UserSearch filters users.
type UserSearch struct {
	ID    *int
	Login *string
}

// Apply adds search conditions to the query. Safe on a nil receiver.
func (s *UserSearch) Apply(query *orm.Query) *orm.Query {
	if s == nil {
		return query
	}
	if s.ID != nil {
		query = query.Where(`?TableAlias."userId" = ?`, *s.ID)
	}
	if s.Login != nil {
		query = query.Where(`?TableAlias."login" = ?`, *s.Login)
	}
	return query
}

// ExpenseSearch filters expenses.
type ExpenseSearch struct {
	ID          *int
	UserID      *int
	Category    *string
	SpentAtFrom *time.Time
	SpentAtTo   *time.Time
}

// Apply adds search conditions to the query. Safe on a nil receiver.
func (s *ExpenseSearch) Apply(query *orm.Query) *orm.Query {
	if s == nil {
		return query
	}
	if s.ID != nil {
		query = query.Where(`?TableAlias."expenseId" = ?`, *s.ID)
	}
	if s.UserID != nil {
		query = query.Where(`?TableAlias."userId" = ?`, *s.UserID)
	}
	if s.Category != nil {
		query = query.Where(`?TableAlias."category" = ?`, *s.Category)
	}
	if s.SpentAtFrom != nil {
		query = query.Where(`?TableAlias."spentAt" >= ?`, *s.SpentAtFrom)
	}
	if s.SpentAtTo != nil {
		query = query.Where(`?TableAlias."spentAt" <= ?`, *s.SpentAtTo)
	}
	return query
}
