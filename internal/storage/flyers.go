package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/donaoferta/offers-aggregator/internal/models"
)

// FlyerExists проверяет, зарегистрирован ли энкарт супермаркета на дату.
func (s *Storage) FlyerExists(ctx context.Context, supermarketUID string, flyerDate time.Time) (bool, error) {
	const op = "storage.FlyerExists"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM stored_flyers
			      WHERE supermarket_uid = $1
			        AND flyer_date = $2
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, supermarketUID, flyerDate).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// InsertFlyer регистрирует энкарт супермаркета на дату и возвращает ID записи.
// Уникальность пары (супермаркет, дата) обеспечивается ограничением в БД;
// идемпотентность повторной загрузки за день проверяется вызывающей стороной
// через FlyerExists.
func (s *Storage) InsertFlyer(ctx context.Context, flyer models.StoredFlyer) (int64, error) {
	const op = "storage.InsertFlyer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO stored_flyers (supermarket_uid, flyer_date, storage_url)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID int64
	if err := s.DB.QueryRowContext(ctx, query,
		flyer.SupermarketUID, flyer.FlyerDate, flyer.StorageURL).Scan(&newID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListLatestFlyers возвращает последние энкарты супермаркетов пользователя,
// от новых к старым по дате энкарта, с ограничением количества.
func (s *Storage) ListLatestFlyers(ctx context.Context, supermarketUIDs []string, limit int) ([]*models.FlyerWithMarket, error) {
	const op = "storage.ListLatestFlyers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT f.id, f.supermarket_uid, f.flyer_date, f.storage_url, f.created_at, sm.name
			  FROM stored_flyers f
			  JOIN supermarkets sm ON sm.uid = f.supermarket_uid
			  WHERE f.supermarket_uid = ANY(string_to_array($1, ',')::uuid[])
			  ORDER BY f.flyer_date DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, joinUIDs(supermarketUIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.FlyerWithMarket
	for rows.Next() {
		var item models.FlyerWithMarket
		if err := rows.Scan(&item.ID, &item.SupermarketUID, &item.FlyerDate,
			&item.StorageURL, &item.CreatedAt, &item.SupermarketName); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
