package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/storage"
)

func (s *Store) AddTrackedOrder(order models.TrackedOrder) error {
	if err := order.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if order.AddedAt.IsZero() {
		order.AddedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.AddedAt
	}

	_, err := s.db.Exec(`
		INSERT INTO tracked_orders (order_id, label, last_status, last_stage, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		order.OrderID, order.Label, string(order.LastStatus), string(order.LastStage),
		order.AddedAt.UTC().Format(time.RFC3339), order.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", storage.ErrAlreadyTracked, order.OrderID)
		}
		return fmt.Errorf("failed to insert tracked order: %w", err)
	}
	return nil
}

func (s *Store) GetTrackedOrder(orderID string) (models.TrackedOrder, error) {
	row := s.db.QueryRow(`
		SELECT order_id, label, last_status, last_stage, added_at, updated_at
		FROM tracked_orders WHERE order_id = ?
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
		SET label = ?, last_status = ?, last_stage = ?, updated_at = ?
		WHERE order_id = ?
	`,
		order.Label, string(order.LastStatus), string(order.LastStage),
		order.UpdatedAt.UTC().Format(time.RFC3339), order.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tracked order: %w", err)
	}
	return requireRow(res, order.OrderID)
}

func (s *Store) RemoveTrackedOrder(orderID string) error {
	res, err := s.db.Exec("DELETE FROM tracked_orders WHERE order_id = ?", orderID)
	if err != nil {
		return fmt.Errorf("failed to remove tracked order: %w", err)
	}
	return requireRow(res, orderID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrackedOrder(sc scanner) (models.TrackedOrder, error) {
	var order models.TrackedOrder
	var status, stage, addedAt, updatedAt string
	if err := sc.Scan(&order.OrderID, &order.Label, &status, &stage, &addedAt, &updatedAt); err != nil {
		return models.TrackedOrder{}, err
	}
	order.LastStatus = models.OrderStatus(status)
	order.LastStage = models.DeliveryStage(stage)

	var err error
	if order.AddedAt, err = time.Parse(time.RFC3339, addedAt); err != nil {
		return models.TrackedOrder{}, fmt.Errorf("parsing added_at: %w", err)
	}
	if order.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return models.TrackedOrder{}, fmt.Errorf("parsing updated_at: %w", err)
	}
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
