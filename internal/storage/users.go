package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/donaoferta/offers-aggregator/internal/models"
)

// RegisterUser сохраняет нового пользователя в базу данных и возвращает его UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (phone, postal_code, tax_id, plan, trial_end_date,
			      active, preferred_format, supermarket_uids)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, string_to_array($8, ',')::uuid[])
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Phone, user.PostalCode, user.TaxID, user.Plan, user.TrialEndDate,
		user.Active, user.PreferredFormat, joinUIDs(user.Supermarkets)).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUserByPhone возвращает пользователя по номеру WhatsApp независимо от
// флага активности. Используется при проверке повторной регистрации.
func (s *Storage) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	const op = "storage.GetUserByPhone"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, phone, postal_code, tax_id, plan, trial_end_date,
			      active, preferred_format, array_to_string(supermarket_uids, ','), created_at
			  FROM users
			  WHERE phone = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, phone), op)
}

// GetActiveUserByPhone возвращает активного пользователя по номеру WhatsApp.
// Неактивный пользователь неотличим от отсутствующего: в обоих случаях
// возвращается sql.ErrNoRows.
func (s *Storage) GetActiveUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	const op = "storage.GetActiveUserByPhone"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, phone, postal_code, tax_id, plan, trial_end_date,
			      active, preferred_format, array_to_string(supermarket_uids, ','), created_at
			  FROM users
			  WHERE phone = $1
			    AND active = true`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, phone), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var taxID sql.NullString
	var uids string
	if err := row.Scan(&u.UID, &u.Phone, &u.PostalCode, &taxID, &u.Plan,
		&u.TrialEndDate, &u.Active, &u.PreferredFormat, &uids, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if taxID.Valid {
		u.TaxID = &taxID.String
	}
	u.Supermarkets = splitUIDs(uids)
	return u, nil
}
