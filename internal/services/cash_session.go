package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type OpenSessionRequest struct {
	InitialCash decimal.Decimal      `json:"initial_cash"`
	Tickets     *models.TicketConfig `json:"tickets"`
}

// CashSessionReconciler tracks the drawer from opening float to closing count.
type CashSessionReconciler interface {
	Open(ctx context.Context, req OpenSessionRequest, actor models.Actor) (*models.CashSession, error)
	Current(ctx context.Context) (*models.CashSession, error)
	Get(ctx context.Context, id int64) (*models.CashSession, error)
	RecordTicketsSold(ctx context.Context, sessionID int64, count int64) (*models.CashSession, error)
	RecordExpense(ctx context.Context, sessionID int64, amount decimal.Decimal, description string) (*models.CashExpense, error)
	ListExpenses(ctx context.Context, sessionID int64) ([]models.CashExpense, error)
	// Close is terminal. A counted/expected difference is reported, never an error.
	Close(ctx context.Context, sessionID int64, countedCash decimal.Decimal, notes *string) (*models.ReconciliationReport, error)
}

type cashSessionReconciler struct {
	tx          repositories.Transactor
	sessionRepo repositories.CashSessionRepository
	saleRepo    repositories.SaleRepository
	now         func() time.Time
}

func NewCashSessionReconciler(tx repositories.Transactor, sessionRepo repositories.CashSessionRepository, saleRepo repositories.SaleRepository) CashSessionReconciler {
	return &cashSessionReconciler{tx: tx, sessionRepo: sessionRepo, saleRepo: saleRepo, now: time.Now}
}

func (r *cashSessionReconciler) Open(ctx context.Context, req OpenSessionRequest, actor models.Actor) (*models.CashSession, error) {
	if req.InitialCash.Sign() < 0 {
		return nil, validationf("initial cash must not be negative")
	}
	if err := checkMoney("initial cash", req.InitialCash); err != nil {
		return nil, err
	}
	session := &models.CashSession{InitialCash: req.InitialCash, OpenedAt: r.now()}
	if req.Tickets != nil {
		if req.Tickets.Price.Sign() < 0 || req.Tickets.Quantity <= 0 {
			return nil, validationf("ticket price must not be negative and quantity must be positive")
		}
		if err := checkMoney("ticket price", req.Tickets.Price); err != nil {
			return nil, err
		}
		quantity := req.Tickets.Quantity
		session.TicketPrice = decimal.NewNullDecimal(req.Tickets.Price)
		session.TicketQuantity = &quantity
	}
	if actor.UserID != 0 {
		openedBy := actor.UserID
		session.OpenedBy = &openedBy
	}

	if _, err := r.sessionRepo.CreateCashSession(ctx, session); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrAlreadyOpen
		}
		return nil, fmt.Errorf("opening cash session: %w", err)
	}
	session.Expenses = []models.CashExpense{}
	log.Info().Int64("session_id", session.ID).Str("initial_cash", session.InitialCash.String()).Msg("Cash session opened")
	return session, nil
}

func (r *cashSessionReconciler) Current(ctx context.Context) (*models.CashSession, error) {
	session, err := r.sessionRepo.GetOpenCashSession(ctx)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: no open cash session", ErrNotFound)
		}
		return nil, err
	}
	return r.withExpenses(ctx, session)
}

func (r *cashSessionReconciler) Get(ctx context.Context, id int64) (*models.CashSession, error) {
	session, err := r.sessionRepo.GetCashSessionByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "cash session", id)
	}
	return r.withExpenses(ctx, session)
}

func (r *cashSessionReconciler) withExpenses(ctx context.Context, session *models.CashSession) (*models.CashSession, error) {
	expenses, err := r.sessionRepo.GetCashExpenses(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("loading expenses for session %d: %w", session.ID, err)
	}
	session.Expenses = expenses
	return session, nil
}

func (r *cashSessionReconciler) RecordTicketsSold(ctx context.Context, sessionID int64, count int64) (*models.CashSession, error) {
	if count <= 0 {
		return nil, validationf("ticket count must be positive")
	}
	if _, err := r.sessionRepo.AddTicketsSold(ctx, sessionID, count); err != nil {
		if !errors.Is(err, repositories.ErrConflict) {
			return nil, err
		}
		// The conditional update does not say which guard failed; the current row does.
		session, getErr := r.sessionRepo.GetCashSessionByID(ctx, sessionID)
		switch {
		case getErr != nil:
			return nil, notFoundOr(getErr, "cash session", sessionID)
		case session.Status != models.CashSessionOpen:
			return nil, fmt.Errorf("%w: session %d", ErrAlreadyClosed, sessionID)
		case !session.HasTickets():
			return nil, validationf("session %d has no ticket inventory", sessionID)
		default:
			return nil, fmt.Errorf("%w: %d sold of %d, %d more requested", ErrTicketInventoryExceeded, session.TicketsSold, *session.TicketQuantity, count)
		}
	}
	return r.Get(ctx, sessionID)
}

func (r *cashSessionReconciler) RecordExpense(ctx context.Context, sessionID int64, amount decimal.Decimal, description string) (*models.CashExpense, error) {
	description = strings.TrimSpace(description)
	if amount.Sign() <= 0 {
		return nil, validationf("expense amount must be positive")
	}
	if err := checkMoney("expense amount", amount); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, validationf("expense description is required")
	}

	expense := &models.CashExpense{SessionID: sessionID, Amount: amount, Description: description, CreatedAt: r.now()}
	if _, err := r.sessionRepo.CreateCashExpense(ctx, expense); err != nil {
		if !errors.Is(err, repositories.ErrConflict) {
			return nil, err
		}
		if _, getErr := r.sessionRepo.GetCashSessionByID(ctx, sessionID); getErr != nil {
			return nil, notFoundOr(getErr, "cash session", sessionID)
		}
		return nil, fmt.Errorf("%w: session %d", ErrAlreadyClosed, sessionID)
	}
	log.Info().Int64("session_id", sessionID).Str("amount", amount.String()).Msg("Cash expense recorded")
	return expense, nil
}

func (r *cashSessionReconciler) ListExpenses(ctx context.Context, sessionID int64) ([]models.CashExpense, error) {
	if _, err := r.sessionRepo.GetCashSessionByID(ctx, sessionID); err != nil {
		return nil, notFoundOr(err, "cash session", sessionID)
	}
	return r.sessionRepo.GetCashExpenses(ctx, sessionID)
}

func (r *cashSessionReconciler) Close(ctx context.Context, sessionID int64, countedCash decimal.Decimal, notes *string) (*models.ReconciliationReport, error) {
	if countedCash.Sign() < 0 {
		return nil, validationf("counted cash must not be negative")
	}
	if err := checkMoney("counted cash", countedCash); err != nil {
		return nil, err
	}

	var report *models.ReconciliationReport
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		session, err := r.sessionRepo.LockCashSession(ctx, sessionID)
		if err != nil {
			return notFoundOr(err, "cash session", sessionID)
		}
		if session.Status != models.CashSessionOpen {
			return fmt.Errorf("%w: session %d", ErrAlreadyClosed, sessionID)
		}

		closedAt := r.now()
		collected, err := r.saleRepo.SumCollectedByMethod(ctx, session.OpenedAt, closedAt)
		if err != nil {
			return fmt.Errorf("summing collected sales: %w", err)
		}
		expenses, err := r.sessionRepo.SumCashExpenses(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("summing expenses: %w", err)
		}

		ticketIncome := session.TicketIncome()
		expectedCash := session.InitialCash.Add(collected.Cash).Add(ticketIncome).Sub(expenses)
		difference := countedCash.Sub(expectedCash)

		session.ClosedAt = &closedAt
		session.FinalCash = decimal.NewNullDecimal(countedCash)
		session.ExpectedCash = decimal.NewNullDecimal(expectedCash)
		session.ExpectedTransfer = decimal.NewNullDecimal(collected.Transfer)
		session.ExpectedQR = decimal.NewNullDecimal(collected.QR)
		session.Difference = decimal.NewNullDecimal(difference)
		session.Notes = notes
		if err := r.sessionRepo.CloseCashSession(ctx, session); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return fmt.Errorf("%w: session %d", ErrAlreadyClosed, sessionID)
			}
			return err
		}

		report = &models.ReconciliationReport{
			SessionID:        session.ID,
			InitialCash:      session.InitialCash,
			Collected:        collected,
			TicketIncome:     ticketIncome,
			TotalExpenses:    expenses,
			ExpectedCash:     expectedCash,
			ExpectedTransfer: collected.Transfer,
			ExpectedQR:       collected.QR,
			CountedCash:      countedCash,
			Difference:       difference,
			Outcome:          models.OutcomeFor(difference),
			Notes:            notes,
			ClosedAt:         closedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("session_id", sessionID).
		Str("expected_cash", report.ExpectedCash.String()).
		Str("counted_cash", report.CountedCash.String()).
		Str("outcome", string(report.Outcome)).
		Msg("Cash session closed")
	return report, nil
}
