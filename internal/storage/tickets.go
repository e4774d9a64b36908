package storage

import (
	"context"
	"fmt"

	"github.com/blademasters/bladebot/internal/models"
	"gorm.io/gorm/clause"
)

func (s *Storage) UpsertTicket(ctx context.Context, ticket *models.Ticket) error {
	if err := s.db.
		WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}},
			UpdateAll: true,
		}).
		Create(ticket).
		Error; err != nil {
		return fmt.Errorf("upserting ticket: %w", err)
	}
	return nil
}

func (s *Storage) GetTicket(ctx context.Context, channelID string) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&ticket).Error; err != nil {
		return nil, fmt.Errorf("getting ticket: %w", err)
	}
	return &ticket, nil
}

func (s *Storage) GetActiveTickets(ctx context.Context) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	if err := s.db.
		WithContext(ctx).
		Where("status = ?", models.TicketStatusActive).
		Order("created_at ASC").
		Find(&tickets).
		Error; err != nil {
		return nil, fmt.Errorf("getting active tickets: %w", err)
	}
	return tickets, nil
}

func (s *Storage) DeleteTicket(ctx context.Context, channelID string) error {
	if err := s.db.
		WithContext(ctx).
		Where("channel_id = ?", channelID).
		Delete(&models.Ticket{}).
		Error; err != nil {
		return fmt.Errorf("deleting ticket: %w", err)
	}
	return nil
}
