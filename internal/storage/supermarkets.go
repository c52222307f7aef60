package storage

import (
	"context"
	"fmt"

	"github.com/donaoferta/offers-aggregator/internal/models"
)

// ListServingSupermarkets возвращает все супермаркеты, чей диапазон индексов
// включает переданный почтовый индекс. Пустой результат — валидный исход,
// означающий непокрытый регион.
func (s *Storage) ListServingSupermarkets(ctx context.Context, postalCode int64) ([]*models.Supermarket, error) {
	const op = "storage.ListServingSupermarkets"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, region, range_start, range_end, extraction_mode, created_at
			  FROM supermarkets
			  WHERE range_start <= $1
			    AND range_end >= $1`
	rows, err := s.DB.QueryContext(ctx, query, postalCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Supermarket
	for rows.Next() {
		var item models.Supermarket
		if err := rows.Scan(&item.UID, &item.Name, &item.Region, &item.RangeStart,
			&item.RangeEnd, &item.ExtractionMode, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetSupermarket возвращает супермаркет по его UID.
func (s *Storage) GetSupermarket(ctx context.Context, uid string) (*models.Supermarket, error) {
	const op = "storage.GetSupermarket"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, region, range_start, range_end, extraction_mode, created_at
			  FROM supermarkets
			  WHERE uid = $1`
	sm := &models.Supermarket{}
	row := s.DB.QueryRowContext(ctx, query, uid)
	if err := row.Scan(&sm.UID, &sm.Name, &sm.Region, &sm.RangeStart,
		&sm.RangeEnd, &sm.ExtractionMode, &sm.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sm, nil
}

// CreateSupermarket вставляет новый супермаркет и возвращает его UID.
// Используется административным контуром и фабрикой тестовых данных.
func (s *Storage) CreateSupermarket(ctx context.Context, sm models.Supermarket) (string, error) {
	const op = "storage.CreateSupermarket"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO supermarkets (name, region, range_start, range_end, extraction_mode)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid`
	var newUID string
	if err := s.DB.QueryRowContext(ctx, query,
		sm.Name, sm.Region, sm.RangeStart, sm.RangeEnd, sm.ExtractionMode).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}
