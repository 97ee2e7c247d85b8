package memory

import (
	"context"
	"fmt"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

func (s *Store) CreateCashSession(ctx context.Context, session *models.CashSession) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cs := range s.sessions {
		if cs.Status == models.CashSessionOpen {
			return 0, fmt.Errorf("%w: cash session %d is already open", repositories.ErrDuplicateKey, cs.ID)
		}
	}
	if session.OpenedAt.IsZero() {
		session.OpenedAt = time.Now()
	}
	session.ID = s.nextID()
	session.Status = models.CashSessionOpen
	session.TicketsSold = 0
	stored := *session
	stored.Expenses = nil
	s.sessions[session.ID] = &stored
	return session.ID, nil
}

func (s *Store) GetCashSessionByID(ctx context.Context, id int64) (*models.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *cs
	return &out, nil
}

func (s *Store) LockCashSession(ctx context.Context, id int64) (*models.CashSession, error) {
	return s.GetCashSessionByID(ctx, id)
}

func (s *Store) GetOpenCashSession(ctx context.Context) (*models.CashSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cs := range s.sessions {
		if cs.Status == models.CashSessionOpen {
			out := *cs
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (s *Store) AddTicketsSold(ctx context.Context, id int64, count int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[id]
	if !ok || cs.Status != models.CashSessionOpen || cs.TicketQuantity == nil || cs.TicketsSold+count > *cs.TicketQuantity {
		return 0, fmt.Errorf("%w: tickets not recorded for session %d", repositories.ErrConflict, id)
	}
	cs.TicketsSold += count
	return cs.TicketsSold, nil
}

func (s *Store) CreateCashExpense(ctx context.Context, expense *models.CashExpense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[expense.SessionID]
	if !ok || cs.Status != models.CashSessionOpen {
		return 0, fmt.Errorf("%w: session %d is not open", repositories.ErrConflict, expense.SessionID)
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}
	expense.ID = s.nextID()
	s.expenses = append(s.expenses, *expense)
	return expense.ID, nil
}

func (s *Store) GetCashExpenses(ctx context.Context, sessionID int64) ([]models.CashExpense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.CashExpense{}
	for _, e := range s.expenses {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) SumCashExpenses(ctx context.Context, sessionID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, e := range s.expenses {
		if e.SessionID == sessionID {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (s *Store) CloseCashSession(ctx context.Context, session *models.CashSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, ok := s.sessions[session.ID]
	if !ok || cs.Status != models.CashSessionOpen {
		return fmt.Errorf("%w: cash session %d is not open", repositories.ErrConflict, session.ID)
	}
	cs.Status = models.CashSessionClosed
	cs.ClosedAt = session.ClosedAt
	cs.FinalCash = session.FinalCash
	cs.ExpectedCash = session.ExpectedCash
	cs.ExpectedTransfer = session.ExpectedTransfer
	cs.ExpectedQR = session.ExpectedQR
	cs.Difference = session.Difference
	cs.Notes = session.Notes
	session.Status = models.CashSessionClosed
	return nil
}
