package notifications

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/medimart-health/medimart-backend/pkg/db/models"
	"github.com/medimart-health/medimart-backend/pkg/pagination"
)

type repo interface {
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Notification, string, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Service is the read/ack surface over in-app notifications.
type Service struct {
	repo repo
}

func NewService(repo repo) (*Service, error) {
	if repo == nil {
		return nil, stderrors.New("repo is required")
	}
	return &Service{repo: repo}, nil
}

// Feed is one page of a user's notification list.
type Feed struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int64                 `json:"unread_count"`
	NextCursor  string                `json:"next_cursor,omitempty"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Feed, error) {
	items, nextCursor, err := s.repo.ListForUser(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Feed{
		Items:       items,
		UnreadCount: unread,
		NextCursor:  nextCursor,
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
