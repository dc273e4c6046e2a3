package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/storage"
)

const uniqueViolation = "23505"

func (s *Store) AddTrackedOrder(order models.TrackedOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if order.AddedAt.IsZero() {
		order.AddedAt = time.Now().UTC()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.AddedAt
	}

	_, err := s.db.Exec(`
		INSERT INTO tracked_orders (order_id, label, last_status, last_stage, added_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.OrderID, order.Label, string(order.LastStatus), string(order.LastStage), order.AddedAt, order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", storage.ErrAlreadyTracked, order.OrderID)
		}
		return fmt.Errorf("failed to insert tracked order: %w", err)
	}
	return nil
}

func (s *Store) GetTrackedOrder(orderID string) (models.TrackedOrder, error) {
	row := s.db.QueryRow(`
		SELECT order_id, label, last_status, last_stage, added_at, updated_at
		FROM tracked_orders WHERE order_id = $1
	`, orderID)
	order, err := scanTrackedOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TrackedOrder{}, fmt.Errorf("tracked order %s: %w", orderID, storage.ErrNotFound)
	}
	return order, err
}

func (s *Store) GetAllTrackedOrders() ([]models.TrackedOrder, error) {
	rows, err := s.db.Query(`
		SELECT order_id, label, last_status, last_stage, added_at, updated_at
		FROM tracked_orders ORDER BY added_at, order_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.TrackedOrder
	for rows.Next() {
		order, err := scanTrackedOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (s *Store) UpdateTrackedOrder(order models.TrackedOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		UPDATE tracked_orders
		SET label = $1, last_status = $2, last_stage = $3, updated_at = $4
		WHERE order_id = $5
	`, order.Label, string(order.LastStatus), string(order.LastStage), order.UpdatedAt, order.OrderID)
	if err != nil {
		return fmt.Errorf("failed to update tracked order: %w", err)
	}
	return requireRow(res, order.OrderID)
}

func (s *Store) RemoveTrackedOrder(orderID string) error {
	res, err := s.db.Exec("DELETE FROM tracked_orders WHERE order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to remove tracked order: %w", err)
	}
	return requireRow(res, orderID)
}

func (s *Store) RecordTransition(t models.Transition) error {
	_, err := s.db.Exec(`
		INSERT INTO transitions (id, order_id, kind, from_value, to_value, reason, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.OrderID, string(t.Kind), t.From, t.To, t.Reason, t.At)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

func (s *Store) GetTransitions(orderID string, limit int) ([]models.Transition, error) {
	query := `
		SELECT id, order_id, kind, from_value, to_value, reason, at FROM (
			SELECT * FROM transitions WHERE order_id = $1 ORDER BY at DESC`
	args := []any{orderID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	query += ") recent ORDER BY at ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transition
	for rows.Next() {
		var t models.Transition
		var kind string
		if err := rows.Scan(&t.ID, &t.OrderID, &kind, &t.From, &t.To, &t.Reason, &t.At); err != nil {
			return nil, err
		}
		t.Kind = models.TransitionKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrackedOrder(sc scanner) (models.TrackedOrder, error) {
	var order models.TrackedOrder
	var status, stage string
	if err := sc.Scan(&order.OrderID, &order.Label, &status, &stage, &order.AddedAt, &order.UpdatedAt); err != nil {
		return models.TrackedOrder{}, err
	}
	order.LastStatus = models.OrderStatus(status)
	order.LastStage = models.DeliveryStage(stage)
	return order, nil
}

func requireRow(res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("tracked order %s: %w", orderID, storage.ErrNotFound)
	}
	return nil
}
