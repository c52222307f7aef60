package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/donaoferta/offers-aggregator/internal/models"
)

// DeleteStaleOffers удаляет предложения супермаркета, созданные раньше
// переданного порога, и возвращает количество удалённых строк. Политика
// хранения применяется по created_at и не зависит от окна валидности.
func (s *Storage) DeleteStaleOffers(ctx context.Context, supermarketUID string, olderThan time.Time) (int, error) {
	const op = "storage.DeleteStaleOffers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM offers
			  WHERE supermarket_uid = $1
			    AND created_at < $2`
	result, err := s.DB.ExecContext(ctx, query, supermarketUID, olderThan)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// InsertOffers вставляет партию предложений в одной транзакции и возвращает
// количество вставленных строк. Ошибка вставки откатывает всю партию;
// предшествующая очистка по политике хранения выполняется отдельно
// и не откатывается.
func (s *Storage) InsertOffers(ctx context.Context, offers []models.Offer) (int, error) {
	const op = "storage.InsertOffers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if len(offers) == 0 {
		return 0, nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO offers (supermarket_uid, product_name, price, valid_from,
			      valid_until, extracted_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, offer := range offers {
		if _, err := stmt.ExecContext(ctx, offer.SupermarketUID, offer.ProductName,
			offer.Price, offer.ValidFrom, offer.ValidUntil, offer.ExtractedAt); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return len(offers), nil
}

// ListValidOffers возвращает предложения супермаркетов пользователя с
// valid_until не раньше переданной даты, от новых к старым по created_at,
// с ограничением количества. Каждая строка дополняется названием и регионом
// супермаркета.
func (s *Storage) ListValidOffers(ctx context.Context, supermarketUIDs []string, today time.Time, limit int) ([]*models.OfferWithMarket, error) {
	const op = "storage.ListValidOffers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT o.id, o.supermarket_uid, o.product_name, o.price, o.valid_from,
			      o.valid_until, o.extracted_at, o.created_at, sm.name, sm.region
			  FROM offers o
			  JOIN supermarkets sm ON sm.uid = o.supermarket_uid
			  WHERE o.supermarket_uid = ANY(string_to_array($1, ',')::uuid[])
			    AND o.valid_until >= $2
			  ORDER BY o.created_at DESC
			  LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, joinUIDs(supermarketUIDs), today, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.OfferWithMarket
	for rows.Next() {
		var item models.OfferWithMarket
		if err := rows.Scan(&item.ID, &item.SupermarketUID, &item.ProductName, &item.Price,
			&item.ValidFrom, &item.ValidUntil, &item.ExtractedAt, &item.CreatedAt,
			&item.SupermarketName, &item.SupermarketRegion); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
