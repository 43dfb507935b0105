package saypay

import (
	"saypay/pkg/db"
	"saypay/pkg/services"
)

// User is a service-level view of a stored user.
type User struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
}

// NewUser converts a db user.
func NewUser(in *db.User) *User {
	if in == nil {
		return nil
	}

	return &User{
		ID:    in.ID,
		Login: in.Login,
	}
}

// Expense is a service-level view of a stored expense with the amount back in
// major units.
type Expense struct {
	ID          int     `json:"id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	SpentAt     string  `json:"spentAt"`
}

// NewExpense converts a db expense.
func NewExpense(in *db.Expense) *Expense {
	if in == nil {
		return nil
	}

	return &Expense{
		ID:          in.ID,
		Amount:      float64(in.Amount) / 100,
		Currency:    in.Currency,
		Category:    in.Category,
		Description: in.Description,
		SpentAt:     in.SpentAt.Format("2006-01-02"),
	}
}

// NewExpenses converts a db expense list.
func NewExpenses(in []db.Expense) []Expense {
	return MapP(in, NewExpense)
}

// Draft returns the expense as an editable draft.
func (e Expense) Draft() services.ExpenseDraft {
	category, _ := services.ParseCategory(e.Category)

	return services.ExpenseDraft{
		Amount:      e.Amount,
		Currency:    e.Currency,
		Description: e.Description,
		Category:    category,
		Date:        e.SpentAt,
	}
}

// MapP applies fn to each element via pointer and collects non-nil results.
func MapP[T, V any](in []T, fn func(*T) *V) []V {
	out := make([]V, 0, len(in))
	for i := range in {
		if v := fn(&in[i]); v != nil {
			out = append(out, *v)
		}
	}

	return out
}
