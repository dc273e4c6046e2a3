package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/dietline/internal/models"
)

// Fixed width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *Store) RecordTransition(t models.Transition) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := s.db.Exec(`
		INSERT INTO transitions (id, order_id, kind, from_value, to_value, reason, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID.String(), t.OrderID, string(t.Kind), t.From, t.To, t.Reason,
		t.At.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record transition: %w", err)
	}
	return nil
}

func (s *Store) GetTransitions(orderID string, limit int) ([]models.Transition, error) {
	query := `
		SELECT id, order_id, kind, from_value, to_value, reason, at FROM (
			SELECT id, order_id, kind, from_value, to_value, reason, at, rowid AS seq
			FROM transitions WHERE order_id = ?
			ORDER BY at DESC, seq DESC`
	args := []any{orderID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	query += ") ORDER BY at ASC, seq ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transition
	for rows.Next() {
		var t models.Transition
		var id, kind, at string
		if err := rows.Scan(&id, &t.OrderID, &kind, &t.From, &t.To, &t.Reason, &at); err != nil {
			return nil, err
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing transition id: %w", err)
		}
		if t.At, err = time.Parse(timestampLayout, at); err != nil {
			return nil, fmt.Errorf("parsing transition time: %w", err)
		}
		t.Kind = models.TransitionKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}
