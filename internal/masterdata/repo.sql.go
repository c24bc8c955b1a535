package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir-erp/comptoir/internal/shared"
)

// Repository provides PostgreSQL backed persistence for reference entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func mapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateProduct inserts a product and returns it with its id.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (sku, name, purchase_price, sale_price, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,true,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, p.PurchasePrice, p.SalePrice).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, mapWriteErr(err)
	}
	p.Active = true
	return p, nil
}

// GetProduct returns one product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, sku, name, purchase_price, sale_price, active, created_at, updated_at FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.PurchasePrice, &p.SalePrice, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, mapReadErr(err)
}

// ListProducts returns a page of active products ordered by name.
func (r *Repository) ListProducts(ctx context.Context, page, perPage int) ([]Product, shared.Pagination, error) {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE active`).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, sku, name, purchase_price, sale_price, active, created_at, updated_at
FROM products WHERE active ORDER BY name LIMIT $1 OFFSET $2`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.PurchasePrice, &p.SalePrice, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, shared.Pagination{}, err
		}
		out = append(out, p)
	}
	return out, shared.NewPagination(page, perPage, total), rows.Err()
}

// DeactivateProduct soft-disables a product.
func (r *Repository) DeactivateProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET active=false, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, s Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, email, phone, active, created_at, updated_at)
VALUES ($1,$2,$3,true,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		s.Name, s.Email, s.Phone).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Supplier{}, mapWriteErr(err)
	}
	s.Active = true
	return s, nil
}

// GetSupplier returns one supplier.
func (r *Repository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, phone, active, created_at, updated_at FROM suppliers WHERE id=$1`, id).
		Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	return s, mapReadErr(err)
}

// ListSuppliers returns active suppliers.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, phone, active, created_at, updated_at FROM suppliers WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateCustomer inserts a customer.
func (r *Repository) CreateCustomer(ctx context.Context, c Customer) (Customer, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO customers (name, email, phone, active, created_at, updated_at)
VALUES ($1,$2,$3,true,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		c.Name, c.Email, c.Phone).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, mapWriteErr(err)
	}
	c.Active = true
	return c, nil
}

// GetCustomer returns one customer.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	var c Customer
	err := r.pool.QueryRow(ctx, `SELECT id, name, email, phone, active, created_at, updated_at FROM customers WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	return c, mapReadErr(err)
}

// ListCustomers returns active customers.
func (r *Repository) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, phone, active, created_at, updated_at FROM customers WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateWarehouse inserts a warehouse.
func (r *Repository) CreateWarehouse(ctx context.Context, w Warehouse) (Warehouse, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO warehouses (code, name, address, created_at, updated_at)
VALUES ($1,$2,$3,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		w.Code, w.Name, w.Address).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return Warehouse{}, mapWriteErr(err)
	}
	return w, nil
}

// GetWarehouse returns one warehouse.
func (r *Repository) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	var w Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, address, created_at, updated_at FROM warehouses WHERE id=$1`, id).
		Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.CreatedAt, &w.UpdatedAt)
	return w, mapReadErr(err)
}

// ListWarehouses returns all warehouses.
func (r *Repository) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, address, created_at, updated_at FROM warehouses ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Warehouse
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// CreatePOSLocation inserts a point-of-sale location.
func (r *Repository) CreatePOSLocation(ctx context.Context, l POSLocation) (POSLocation, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO pos_locations (code, name, created_at, updated_at)
VALUES ($1,$2,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		l.Code, l.Name).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return POSLocation{}, mapWriteErr(err)
	}
	return l, nil
}

// ListPOSLocations returns all POS locations.
func (r *Repository) ListPOSLocations(ctx context.Context) ([]POSLocation, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, created_at, updated_at FROM pos_locations ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []POSLocation
	for rows.Next() {
		var l POSLocation
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
