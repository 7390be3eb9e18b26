package repository

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/models"
)

type TicketRepository struct {
	db DBTX
}

func NewTicketRepository(db DBTX) *TicketRepository {
	return &TicketRepository{db: db}
}

type CreateTicketInput struct {
	UserID      int64
	AgentID     *int64
	Subject     string
	Description string
	Status      string
}

func (r *TicketRepository) Create(ctx context.Context, input CreateTicketInput) (*models.SupportTicket, error) {
	query := `
		INSERT INTO support_tickets (user_id, agent_id, subject, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, agent_id, subject, description, status, created_at, updated_at
	`
	var ticket models.SupportTicket
	err := r.db.QueryRow(
		ctx,
		query,
		input.UserID,
		input.AgentID,
		input.Subject,
		input.Description,
		input.Status,
	).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.AgentID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}
