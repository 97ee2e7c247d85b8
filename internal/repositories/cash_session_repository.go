package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venue_pos_backend/internal/models"

	"github.com/shopspring/decimal"
)

// CashSessionRepository persists cash-drawer sessions and their expenses.
type CashSessionRepository interface {
	// CreateCashSession fails with ErrDuplicateKey while another session is open.
	CreateCashSession(ctx context.Context, session *models.CashSession) (int64, error)
	GetCashSessionByID(ctx context.Context, id int64) (*models.CashSession, error)
	// LockCashSession reads the session and holds it against concurrent writers until the
	// surrounding transaction ends.
	LockCashSession(ctx context.Context, id int64) (*models.CashSession, error)
	GetOpenCashSession(ctx context.Context) (*models.CashSession, error)
	// AddTicketsSold increments tickets_sold while the session is open and within its inventory.
	AddTicketsSold(ctx context.Context, id int64, count int64) (int64, error)
	// CreateCashExpense inserts the expense only while the session is open.
	CreateCashExpense(ctx context.Context, expense *models.CashExpense) (int64, error)
	GetCashExpenses(ctx context.Context, sessionID int64) ([]models.CashExpense, error)
	SumCashExpenses(ctx context.Context, sessionID int64) (decimal.Decimal, error)
	// CloseCashSession writes the closing snapshot if the session is still open.
	CloseCashSession(ctx context.Context, session *models.CashSession) error
}

type cashSessionRepository struct {
	db *sql.DB
}

func NewCashSessionRepository(db *sql.DB) CashSessionRepository {
	return &cashSessionRepository{db: db}
}

const cashSessionColumns = `id, opened_at, closed_at, initial_cash, ticket_price, ticket_quantity, tickets_sold,
	final_cash, expected_cash, expected_transfer, expected_qr, difference, notes, status, opened_by`

func scanCashSession(s scanner, cs *models.CashSession) error {
	return s.Scan(
		&cs.ID, &cs.OpenedAt, &cs.ClosedAt, &cs.InitialCash, &cs.TicketPrice, &cs.TicketQuantity, &cs.TicketsSold,
		&cs.FinalCash, &cs.ExpectedCash, &cs.ExpectedTransfer, &cs.ExpectedQR, &cs.Difference, &cs.Notes,
		&cs.Status, &cs.OpenedBy,
	)
}

func (r *cashSessionRepository) CreateCashSession(ctx context.Context, session *models.CashSession) (int64, error) {
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now()
	}
	session.Status = models.CashSessionOpen
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO cash_sessions (opened_at, initial_cash, ticket_price, ticket_quantity, tickets_sold, status, opened_by)
		 VALUES ($1, $2, $3, $4, 0, $5, $6) RETURNING id`,
		session.OpenedAt, session.InitialCash, session.TicketPrice, session.TicketQuantity, session.Status, session.OpenedBy,
	).Scan(&session.ID)
	if err != nil {
		return 0, mapPQError(err, "opening cash session")
	}
	return session.ID, nil
}

func (r *cashSessionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.CashSession, error) {
	cs := &models.CashSession{}
	if err := scanCashSession(executor(ctx, r.db).QueryRowContext(ctx, query, args...), cs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting cash session: %v", ErrDatabaseError, err)
	}
	return cs, nil
}

func (r *cashSessionRepository) GetCashSessionByID(ctx context.Context, id int64) (*models.CashSession, error) {
	return r.getOne(ctx, `SELECT `+cashSessionColumns+` FROM cash_sessions WHERE id = $1`, id)
}

func (r *cashSessionRepository) LockCashSession(ctx context.Context, id int64) (*models.CashSession, error) {
	return r.getOne(ctx, `SELECT `+cashSessionColumns+` FROM cash_sessions WHERE id = $1 FOR UPDATE`, id)
}

func (r *cashSessionRepository) GetOpenCashSession(ctx context.Context) (*models.CashSession, error) {
	return r.getOne(ctx, `SELECT `+cashSessionColumns+` FROM cash_sessions WHERE status = $1`, models.CashSessionOpen)
}

func (r *cashSessionRepository) AddTicketsSold(ctx context.Context, id int64, count int64) (int64, error) {
	var sold int64
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`UPDATE cash_sessions SET tickets_sold = tickets_sold + $1
		 WHERE id = $2 AND status = $3 AND ticket_quantity IS NOT NULL AND tickets_sold + $1 <= ticket_quantity
		 RETURNING tickets_sold`,
		count, id, models.CashSessionOpen,
	).Scan(&sold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: tickets not recorded for session %d", ErrConflict, id)
		}
		return 0, fmt.Errorf("%w: recording tickets for session %d: %v", ErrDatabaseError, id, err)
	}
	return sold, nil
}

func (r *cashSessionRepository) CreateCashExpense(ctx context.Context, expense *models.CashExpense) (int64, error) {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	// FOR SHARE keeps a concurrent close from slipping between the check and the insert.
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`INSERT INTO cash_expenses (session_id, amount, description, created_at)
		 SELECT id, $2, $3, $4 FROM cash_sessions WHERE id = $1 AND status = $5 FOR SHARE
		 RETURNING id`,
		expense.SessionID, expense.Amount, expense.Description, expense.CreatedAt, models.CashSessionOpen,
	).Scan(&expense.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: session %d is not open", ErrConflict, expense.SessionID)
		}
		return 0, mapPQError(err, fmt.Sprintf("recording expense for session %d", expense.SessionID))
	}
	return expense.ID, nil
}

func (r *cashSessionRepository) GetCashExpenses(ctx context.Context, sessionID int64) ([]models.CashExpense, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx,
		`SELECT id, session_id, amount, description, created_at FROM cash_expenses WHERE session_id = $1 ORDER BY created_at, id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting expenses for session %d: %v", ErrDatabaseError, sessionID, err)
	}
	defer rows.Close()

	expenses := []models.CashExpense{}
	for rows.Next() {
		var e models.CashExpense
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Amount, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning cash expense: %v", ErrDatabaseError, err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *cashSessionRepository) SumCashExpenses(ctx context.Context, sessionID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM cash_expenses WHERE session_id = $1`, sessionID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: summing expenses for session %d: %v", ErrDatabaseError, sessionID, err)
	}
	return total, nil
}

func (r *cashSessionRepository) CloseCashSession(ctx context.Context, session *models.CashSession) error {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE cash_sessions
		 SET status = $1, closed_at = $2, final_cash = $3, expected_cash = $4, expected_transfer = $5,
		     expected_qr = $6, difference = $7, notes = $8
		 WHERE id = $9 AND status = $10`,
		models.CashSessionClosed, session.ClosedAt, session.FinalCash, session.ExpectedCash, session.ExpectedTransfer,
		session.ExpectedQR, session.Difference, session.Notes, session.ID, models.CashSessionOpen,
	)
	if err != nil {
		return fmt.Errorf("%w: closing cash session %d: %v", ErrDatabaseError, session.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for cash session %d: %v", ErrDatabaseError, session.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: cash session %d is not open", ErrConflict, session.ID)
	}
	session.Status = models.CashSessionClosed
	return nil
}
