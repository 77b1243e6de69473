package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/whatseat/fulfillment/internal/domain/order"
)

// CreateAll inserts every order, its lines, and its initial waiting record in
// one transaction: either the whole checkout's batch exists or none of it.
func (s *Store) CreateAll(ctx context.Context, orders []*domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, o := range orders {
		if o == nil || o.ID == "" {
			return fmt.Errorf("sqlite: order id is required")
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (order_id, customer_id, vendor_id, shipping_profile_id,
			                     payment_method_id, shipping_fee, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.CustomerID, o.VendorID, o.ShippingProfileID,
			o.PaymentMethodID, o.ShippingFee, encodeTime(o.CreatedAt))
		if err != nil {
			return fmt.Errorf("sqlite: insert order %s: %w", o.ID, err)
		}

		for _, l := range o.Lines {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
				 VALUES (?, ?, ?, ?)`,
				o.ID, l.ProductID, l.Quantity, l.UnitPrice)
			if err != nil {
				return fmt.Errorf("sqlite: insert line %s/%s: %w", o.ID, l.ProductID, err)
			}
		}

		rec := domain.NewStatusRecord(o.ID, domain.StatusWaiting, "")
		if err := insertStatus(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit create: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT order_id, customer_id, vendor_id, shipping_profile_id,
		        payment_method_id, shipping_fee, created_at
		   FROM orders WHERE order_id = ?`, id)

	var o domain.Order
	var createdAt string
	err := row.Scan(&o.ID, &o.CustomerID, &o.VendorID, &o.ShippingProfileID,
		&o.PaymentMethodID, &o.ShippingFee, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order: %w", err)
	}
	if o.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, quantity, unit_price
		   FROM order_lines WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("sqlite: scan line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate lines: %w", err)
	}

	return &o, nil
}

func (s *Store) AppendStatus(ctx context.Context, rec domain.StatusRecord) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM orders WHERE order_id = ?`, rec.OrderID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: check order: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertStatus(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit append: %w", err)
	}
	return nil
}

// StatusHistory returns records in append order (the surrogate key), which is
// also occurred-at order for a well-behaved clock; LatestRecord relies on
// append order to break occurred-at ties.
func (s *Store) StatusHistory(ctx context.Context, orderID string) ([]domain.StatusRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT order_id, status, message, occurred_at
		   FROM order_status_history WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: status history: %w", err)
	}
	defer rows.Close()

	var history []domain.StatusRecord
	for rows.Next() {
		var rec domain.StatusRecord
		var status, occurredAt string
		if err := rows.Scan(&rec.OrderID, &status, &rec.Message, &occurredAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan status: %w", err)
		}
		rec.Status = domain.Status(status)
		if rec.OccurredAt, err = decodeTime(occurredAt); err != nil {
			return nil, err
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate history: %w", err)
	}
	if history == nil {
		return nil, domain.ErrNotFound
	}
	return history, nil
}

func insertStatus(ctx context.Context, tx *sql.Tx, rec domain.StatusRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_status_history (order_id, status, message, occurred_at)
		 VALUES (?, ?, ?, ?)`,
		rec.OrderID, string(rec.Status), rec.Message, encodeTime(rec.OccurredAt))
	if err != nil {
		return fmt.Errorf("sqlite: insert status %s: %w", rec.OrderID, err)
	}
	return nil
}
