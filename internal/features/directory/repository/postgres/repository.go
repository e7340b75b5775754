package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"member-directory-bot/internal/features/directory/models"
	"member-directory-bot/internal/features/directory/repository"

	"github.com/lib/pq"
)

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) List(ctx context.Context, chatID int64) ([]models.Member, error) {
	query := `
		SELECT id, chat_id, user_id, username, full_name, external_name, role, created_at, updated_at
		FROM members
		WHERE chat_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		err := rows.Scan(
			&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.FullName,
			&m.ExternalName, &m.Role, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

func (r *memberRepository) Get(ctx context.Context, chatID, userID int64) (*models.Member, error) {
	query := `
		SELECT id, chat_id, user_id, username, full_name, external_name, role, created_at, updated_at
		FROM members
		WHERE chat_id = $1 AND user_id = $2
	`

	var m models.Member
	err := r.db.QueryRowContext(ctx, query, chatID, userID).Scan(
		&m.ID, &m.ChatID, &m.UserID, &m.Username, &m.FullName,
		&m.ExternalName, &m.Role, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &m, nil
}

func (r *memberRepository) Insert(ctx context.Context, m *models.Member) error {
	query := `
		INSERT INTO members (chat_id, user_id, username, full_name, external_name, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chat_id, user_id) DO UPDATE SET
			username = EXCLUDED.username,
			full_name = EXCLUDED.full_name,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ChatID, m.UserID, m.Username, m.FullName, m.ExternalName, m.Role)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}

	return nil
}

func (r *memberRepository) UpdateIdentity(ctx context.Context, chatID, userID int64, username, fullName string) error {
	query := `
		UPDATE members
		SET username = $3, full_name = $4, updated_at = NOW()
		WHERE chat_id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, chatID, userID, username, fullName)
	if err != nil {
		return fmt.Errorf("failed to update member identity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

func (r *memberRepository) SetExternalName(ctx context.Context, chatID, userID int64, externalName string) error {
	query := `
		UPDATE members
		SET external_name = $3, updated_at = NOW()
		WHERE chat_id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, chatID, userID, externalName)
	if err != nil {
		return fmt.Errorf("failed to set external name: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

func (r *memberRepository) SetRole(ctx context.Context, chatID, userID int64, role string) error {
	query := `
		UPDATE members
		SET role = $3, updated_at = NOW()
		WHERE chat_id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, chatID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

func (r *memberRepository) Delete(ctx context.Context, chatID, userID int64) error {
	query := "DELETE FROM members WHERE chat_id = $1 AND user_id = $2"

	if _, err := r.db.ExecContext(ctx, query, chatID, userID); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	return nil
}

func (r *memberRepository) DeleteBatch(ctx context.Context, chatID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}

	query := "DELETE FROM members WHERE chat_id = $1 AND user_id = ANY($2)"

	if _, err := r.db.ExecContext(ctx, query, chatID, pq.Array(userIDs)); err != nil {
		return fmt.Errorf("failed to delete members batch: %w", err)
	}

	return nil
}
