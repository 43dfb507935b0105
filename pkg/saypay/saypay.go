package saypay

import (
	"context"
	"math"
	"sync"
	"time"

	"saypay/pkg/db"
	"saypay/pkg/services"

	"github.com/go-pg/pg/v10"
	"github.com/google/uuid"
	"github.com/vmkteam/embedlog"
)

// StorageError reports a failed database write. The expense survives in the
// in-memory park, so callers may treat it as a degraded save rather than a
// loss.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage failed: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// ParkedExpense is an expense held in memory after a failed insert.
type ParkedExpense struct {
	ID      uuid.UUID
	Expense db.Expense
}

// Manager owns expense persistence. Confirmed drafts go to Postgres, inserts
// that fail are parked in memory and retried by FlushParked.
type Manager struct {
	cr  db.CommonRepo
	dbo db.DB
	log embedlog.Logger

	mu     sync.Mutex
	parked []ParkedExpense
}

// NewManager creates an expense manager.
func NewManager(dbo db.DB, log embedlog.Logger) *Manager {
	return &Manager{
		cr:  db.NewCommonRepo(dbo),
		dbo: dbo,
		log: log,
	}
}

// GetOrCreateUserByLogin returns the user with the given login, creating it on
// first sight.
func (m *Manager) GetOrCreateUserByLogin(ctx context.Context, login string) (*db.User, error) {
	user, err := m.cr.OneUser(ctx, &db.UserSearch{Login: &login})
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user, err = m.cr.AddUser(ctx, &db.User{
		Login:    login,
		StatusID: db.StatusEnabled,
	})
	if err != nil {
		return nil, err
	}
	m.log.Print(ctx, "user created", "userId", user.ID, "login", login)

	return user, nil
}

// CreateExpense persists a confirmed draft for the user. On insert failure the
// expense is parked in memory and a StorageError is returned so callers can
// tell the user the save is provisional.
func (m *Manager) CreateExpense(ctx context.Context, userID int, draft services.ExpenseDraft) (*db.Expense, error) {
	expense := expenseFromDraft(userID, draft)

	saved, err := m.cr.AddExpense(ctx, &expense)
	if err != nil {
		m.park(expense)
		m.log.Error(ctx, "expense insert failed, parked in memory", "userId", userID, "err", err)
		return &expense, &StorageError{Err: err}
	}
	m.log.Print(ctx, "expense saved", "expenseId", saved.ID, "userId", userID, "amount", saved.Amount)

	return saved, nil
}

// ExpenseByID returns the user's expense or nil when it does not exist.
func (m *Manager) ExpenseByID(ctx context.Context, userID, expenseID int) (*db.Expense, error) {
	return m.cr.OneExpense(ctx, &db.ExpenseSearch{ID: &expenseID, UserID: &userID})
}

// UpdateExpense replaces a stored expense with the reviewed draft.
func (m *Manager) UpdateExpense(ctx context.Context, expense *db.Expense, draft services.ExpenseDraft) (*db.Expense, error) {
	updated := expenseFromDraft(expense.UserID, draft)
	updated.ID = expense.ID

	ok, err := m.cr.UpdateExpense(ctx, &updated)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pg.ErrNoRows
	}
	m.log.Print(ctx, "expense updated", "expenseId", updated.ID, "userId", expense.UserID)

	return &updated, nil
}

// ExpensesByUser returns the user's stored expenses plus any parked ones, most
// recent first.
func (m *Manager) ExpensesByUser(ctx context.Context, userID int, pager db.Pager) ([]db.Expense, error) {
	expenses, err := m.cr.ExpensesByFilters(ctx, &db.ExpenseSearch{UserID: &userID}, pager, m.cr.DefaultExpenseSort())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	for _, p := range m.parked {
		if p.Expense.UserID == userID {
			expenses = append([]db.Expense{p.Expense}, expenses...)
		}
	}
	m.mu.Unlock()

	return expenses, nil
}

// CountParked returns the number of expenses waiting for a retry.
func (m *Manager) CountParked() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.parked)
}

// FlushParked retries inserting parked expenses. Successful ones leave the
// park, failures stay for the next round. Returns the number flushed.
func (m *Manager) FlushParked(ctx context.Context) int {
	m.mu.Lock()
	pending := m.parked
	m.parked = nil
	m.mu.Unlock()

	flushed := 0
	for _, p := range pending {
		expense := p.Expense
		if _, err := m.cr.AddExpense(ctx, &expense); err != nil {
			m.park(p.Expense)
			m.log.Error(ctx, "parked expense retry failed", "parkedId", p.ID, "err", err)
			continue
		}
		flushed++
	}
	if flushed > 0 {
		m.log.Print(ctx, "parked expenses flushed", "count", flushed)
	}

	return flushed
}

// StartParkedFlusher retries parked inserts periodically until ctx is done.
func (m *Manager) StartParkedFlusher(ctx context.Context, every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if m.CountParked() > 0 {
					m.FlushParked(ctx)
				}
			}
		}
	}()
}

func (m *Manager) park(expense db.Expense) {
	m.mu.Lock()
	m.parked = append(m.parked, ParkedExpense{ID: uuid.New(), Expense: expense})
	m.mu.Unlock()
}

// expenseFromDraft converts a reviewed draft to a storable row. Amounts are
// stored in minor units, the draft date falls back to today when malformed.
func expenseFromDraft(userID int, draft services.ExpenseDraft) db.Expense {
	spentAt, err := time.Parse("2006-01-02", draft.Date)
	if err != nil {
		spentAt = time.Now()
	}

	return db.Expense{
		UserID:      userID,
		Amount:      int(math.Round(draft.Amount * 100)),
		Currency:    draft.Currency,
		Category:    string(draft.Category),
		Description: draft.Description,
		SpentAt:     spentAt,
		StatusID:    db.StatusEnabled,
	}
}
