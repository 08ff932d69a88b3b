package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"comptoirs/internal/domain/customer"
)

const (
	getCustomerByIDSQL = `SELECT id, name, tier, street, city, postal_code, country
		FROM customers WHERE id = $1`

	upsertCustomerSQL = `INSERT INTO customers (id, name, tier, street, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			tier = EXCLUDED.tier,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			postal_code = EXCLUDED.postal_code,
			country = EXCLUDED.country`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns a single customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// Upsert inserts or replaces a customer record. Used by the seed tooling.
func (r *CustomerRepository) Upsert(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx, upsertCustomerSQL,
		c.ID, c.Name, string(c.Tier),
		c.Address.Street, c.Address.City, c.Address.PostalCode, c.Address.Country,
	)
	if err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.ID, err)
	}
	return nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c    customer.Customer
		tier string
	)
	err := row.Scan(
		&c.ID, &c.Name, &tier,
		&c.Address.Street, &c.Address.City, &c.Address.PostalCode, &c.Address.Country,
	)
	c.Tier = customer.Tier(tier)
	return c, err
}
