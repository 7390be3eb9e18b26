package repository

import (
	"context"

	"github.com/listenline/ListenLineBack/internal/models"
)

type ListenerRepository struct {
	db DBTX
}

func NewListenerRepository(db DBTX) *ListenerRepository {
	return &ListenerRepository{db: db}
}

const listenerColumns = `id, user_id, display_name, specialty, is_available, created_at, updated_at`

func (r *ListenerRepository) Create(ctx context.Context, listener *models.Listener) error {
	query := `
		INSERT INTO listeners (user_id, display_name, specialty, is_available)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(
		ctx,
		query,
		listener.UserID,
		listener.DisplayName,
		listener.Specialty,
		listener.IsAvailable,
	).Scan(&listener.ID, &listener.CreatedAt, &listener.UpdatedAt)
}

func (r *ListenerRepository) GetByID(ctx context.Context, id int64) (*models.Listener, error) {
	query := `SELECT ` + listenerColumns + ` FROM listeners WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *ListenerRepository) GetByUserID(ctx context.Context, userID int64) (*models.Listener, error) {
	query := `SELECT ` + listenerColumns + ` FROM listeners WHERE user_id = $1`
	return r.scanOne(ctx, query, userID)
}

func (r *ListenerRepository) scanOne(ctx context.Context, query string, arg any) (*models.Listener, error) {
	var listener models.Listener
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&listener.ID,
		&listener.UserID,
		&listener.DisplayName,
		&listener.Specialty,
		&listener.IsAvailable,
		&listener.CreatedAt,
		&listener.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &listener, nil
}
