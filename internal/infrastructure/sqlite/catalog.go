package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
	dominv "github.com/whatseat/fulfillment/internal/domain/inventory"
)

func (s *Store) GetProduct(ctx context.Context, productID string) (*domcatalog.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT product_id, vendor_id, name, unit_price, in_stock, origin_code
		   FROM products WHERE product_id = ?`, productID)

	var p domcatalog.Product
	err := row.Scan(&p.ProductID, &p.VendorID, &p.Name, &p.UnitPrice, &p.InStock, &p.OriginCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domcatalog.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get product: %w", err)
	}
	return &p, nil
}

// PutProduct inserts or replaces a product row. Used by seeding and tests;
// stock mutation at runtime goes through ReserveAll/Release only.
func (s *Store) PutProduct(ctx context.Context, p *domcatalog.Product) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (product_id, vendor_id, name, unit_price, in_stock, origin_code)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
		   vendor_id = excluded.vendor_id,
		   name = excluded.name,
		   unit_price = excluded.unit_price,
		   in_stock = excluded.in_stock,
		   origin_code = excluded.origin_code`,
		p.ProductID, p.VendorID, p.Name, p.UnitPrice, p.InStock, p.OriginCode)
	if err != nil {
		return fmt.Errorf("sqlite: put product: %w", err)
	}
	return nil
}

// ReserveAll applies the batch inside one transaction using conditional
// UPDATEs (compare-and-decrement in the WHERE clause, never read-then-write).
// The first losing decrement rolls the whole transaction back.
func (s *Store) ReserveAll(ctx context.Context, deductions []dominv.Deduction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin reserve: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range deductions {
		if d.Quantity <= 0 {
			return dominv.ErrInvalidQuantity
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE products SET in_stock = in_stock - ?
			  WHERE product_id = ? AND in_stock >= ?`,
			d.Quantity, d.ProductID, d.Quantity)
		if err != nil {
			return fmt.Errorf("sqlite: reserve %s: %w", d.ProductID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: reserve %s: %w", d.ProductID, err)
		}
		if n == 0 {
			return s.insufficientStock(ctx, tx, d)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit reserve: %w", err)
	}
	return nil
}

// insufficientStock reads the current quantity inside the doomed transaction
// so the error carries the availability the decrement actually saw.
func (s *Store) insufficientStock(ctx context.Context, tx *sql.Tx, d dominv.Deduction) error {
	var available int
	err := tx.QueryRowContext(ctx,
		`SELECT in_stock FROM products WHERE product_id = ?`, d.ProductID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return dominv.ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: read stock %s: %w", d.ProductID, err)
	}
	return &dominv.InsufficientStockError{
		ProductID: d.ProductID,
		Requested: d.Quantity,
		Available: available,
	}
}

// Release credits a reserved batch back in one transaction.
func (s *Store) Release(ctx context.Context, deductions []dominv.Deduction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin release: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range deductions {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET in_stock = in_stock + ? WHERE product_id = ?`,
			d.Quantity, d.ProductID)
		if err != nil {
			return fmt.Errorf("sqlite: release %s: %w", d.ProductID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("sqlite: release %s: %w", d.ProductID, err)
		} else if n == 0 {
			return dominv.ErrProductNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit release: %w", err)
	}
	return nil
}
