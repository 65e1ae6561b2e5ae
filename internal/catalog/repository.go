package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// invalidTextRepresentation is SQLSTATE 22P02, raised for malformed uuid input.
const invalidTextRepresentation = "22P02"

// Repository loads products with their stored price rows. Implementations return
// ErrNotFound when nothing matches.
type Repository interface {
	FindByID(ctx context.Context, id string, ruleIDs []string) (*Record, error)
	FindByNumber(ctx context.Context, number string, ruleIDs []string) (*Record, error)
}

// Querier is the subset of pgxpool.Pool used by PostgresRepository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads products from the product and product_price tables.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository constructs a repository backed by db.
func NewPostgresRepository(db Querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// A variant with a zero group minimum inherits its parent's.
const productSelect = `
	SELECT p.id::text, COALESCE(p.parent_id::text, ''), p.product_number, p.min_purchase,
		COALESCE(NULLIF(p.group_purchase_quantity, 0), pp.group_purchase_quantity, 0)
	FROM product p
	LEFT JOIN product pp ON pp.id = p.parent_id`

// FindByID implements Repository. Ids that are not UUIDs are reported as
// ErrNotFound without querying.
func (r *PostgresRepository) FindByID(ctx context.Context, id string, ruleIDs []string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return r.find(ctx, productSelect+` WHERE p.id = $1`, id, ruleIDs)
}

// FindByNumber implements Repository.
func (r *PostgresRepository) FindByNumber(ctx context.Context, number string, ruleIDs []string) (*Record, error) {
	return r.find(ctx, productSelect+` WHERE p.product_number = $1`, number, ruleIDs)
}

func (r *PostgresRepository) find(ctx context.Context, query, key string, ruleIDs []string) (*Record, error) {
	var rec Record
	err := r.db.QueryRow(ctx, query, key).Scan(&rec.ID, &rec.ParentID, &rec.ProductNumber, &rec.MinPurchase, &rec.GroupMinimum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidInput(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.prices(ctx, rec.ID, ruleIDs)
	if err != nil {
		return nil, err
	}
	// variants without own prices inherit the parent's table
	if len(rows) == 0 && rec.ParentID != "" {
		rows, err = r.prices(ctx, rec.ParentID, ruleIDs)
		if err != nil {
			return nil, err
		}
	}
	rec.Prices = selectRulePrices(rows, ruleIDs)
	return &rec, nil
}

func (r *PostgresRepository) prices(ctx context.Context, productID string, ruleIDs []string) ([]PriceRow, error) {
	if ruleIDs == nil {
		ruleIDs = []string{}
	}
	query := `
		SELECT COALESCE(rule_id::text, ''), quantity_end, price::text, tax_rate::text
		FROM product_price
		WHERE product_id = $1 AND (rule_id IS NULL OR rule_id::text = ANY($2))
		ORDER BY quantity_end ASC NULLS LAST`

	rows, err := r.db.Query(ctx, query, productID, ruleIDs)
	if err != nil {
		return nil, fmt.Errorf("list product prices: %w", err)
	}
	defer rows.Close()

	var out []PriceRow
	for rows.Next() {
		var (
			row         PriceRow
			price, rate string
		)
		if err := rows.Scan(&row.RuleID, &row.QuantityEnd, &price, &rate); err != nil {
			return nil, fmt.Errorf("scan product price: %w", err)
		}
		if row.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		if row.TaxRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("parse tax rate %q: %w", rate, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product prices: %w", err)
	}
	return out, nil
}

func isInvalidInput(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
