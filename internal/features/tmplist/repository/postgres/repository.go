package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"member-directory-bot/internal/features/tmplist/models"
	"member-directory-bot/internal/features/tmplist/repository"
)

type listRepository struct {
	db *sql.DB
}

func NewListRepository(db *sql.DB) repository.ListRepository {
	return &listRepository{db: db}
}

func (r *listRepository) ActiveByChat(ctx context.Context, chatID int64) ([]models.List, error) {
	query := `
		SELECT id, chat_id, name, created_by, created_at, expires_at, is_active
		FROM tmplists
		WHERE chat_id = $1 AND is_active = TRUE
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tmplists: %w", err)
	}
	defer rows.Close()

	var lists []models.List
	for rows.Next() {
		var l models.List
		err := rows.Scan(&l.ID, &l.ChatID, &l.Name, &l.CreatedBy, &l.CreatedAt, &l.ExpiresAt, &l.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tmplist: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tmplists: %w", err)
	}

	return lists, nil
}

func (r *listRepository) ActiveByName(ctx context.Context, chatID int64, name string) (*models.List, error) {
	query := `
		SELECT id, chat_id, name, created_by, created_at, expires_at, is_active
		FROM tmplists
		WHERE chat_id = $1 AND name = $2 AND is_active = TRUE
	`

	var l models.List
	err := r.db.QueryRowContext(ctx, query, chatID, name).Scan(
		&l.ID, &l.ChatID, &l.Name, &l.CreatedBy, &l.CreatedAt, &l.ExpiresAt, &l.IsActive)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrListNotFound
		}
		return nil, fmt.Errorf("failed to get tmplist: %w", err)
	}

	return &l, nil
}

func (r *listRepository) Create(ctx context.Context, l *models.List) error {
	query := `
		INSERT INTO tmplists (chat_id, name, created_by, created_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		l.ChatID, l.Name, l.CreatedBy, l.CreatedAt, l.ExpiresAt).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("failed to create tmplist: %w", err)
	}

	l.IsActive = true
	return nil
}

func (r *listRepository) Deactivate(ctx context.Context, listID int64) error {
	query := "UPDATE tmplists SET is_active = FALSE WHERE id = $1 AND is_active = TRUE"

	result, err := r.db.ExecContext(ctx, query, listID)
	if err != nil {
		return fmt.Errorf("failed to deactivate tmplist: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrListNotFound
	}

	return nil
}

func (r *listRepository) DeactivateExpired(ctx context.Context, chatID int64, now time.Time) error {
	query := "UPDATE tmplists SET is_active = FALSE WHERE chat_id = $1 AND is_active = TRUE AND expires_at <= $2"

	if _, err := r.db.ExecContext(ctx, query, chatID, now); err != nil {
		return fmt.Errorf("failed to deactivate expired tmplists: %w", err)
	}

	return nil
}

func (r *listRepository) AddItem(ctx context.Context, listID, userID int64) (bool, error) {
	query := `
		INSERT INTO tmplist_items (list_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (list_id, user_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query, listID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add tmplist item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *listRepository) RemoveItem(ctx context.Context, listID, userID int64) error {
	query := "DELETE FROM tmplist_items WHERE list_id = $1 AND user_id = $2"

	if _, err := r.db.ExecContext(ctx, query, listID, userID); err != nil {
		return fmt.Errorf("failed to remove tmplist item: %w", err)
	}

	return nil
}

func (r *listRepository) Items(ctx context.Context, listID int64) ([]int64, error) {
	query := "SELECT user_id FROM tmplist_items WHERE list_id = $1 ORDER BY user_id"

	rows, err := r.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tmplist items: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan tmplist item: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tmplist items: %w", err)
	}

	return userIDs, nil
}
