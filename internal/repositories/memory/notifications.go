package memory

import (
	"context"
	"sort"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"
)

func addressedTo(n *models.Notification, role models.Role, userID int64) bool {
	return (n.TargetRole != nil && *n.TargetRole == role) || (n.TargetUserID != nil && *n.TargetUserID == userID)
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notifications[n.ID]; exists {
		return nil
	}
	stored := *n
	s.notifications[n.ID] = &stored
	return nil
}

func (s *Store) GetNotifications(ctx context.Context, filters models.NotificationFilters) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Notification{}
	for _, n := range s.notifications {
		if !addressedTo(n, filters.Role, filters.UserID) {
			continue
		}
		if filters.UnreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string, role models.Role, userID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || !addressedTo(n, role, userID) {
		return repositories.ErrNotFound
	}
	if n.ReadAt == nil {
		readAt := at
		n.ReadAt = &readAt
	}
	return nil
}
