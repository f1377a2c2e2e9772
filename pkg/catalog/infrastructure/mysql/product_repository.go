package mysql

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"shop/pkg/catalog/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Migrations() fs.FS { return migrationsFS }

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price, stock_quantity, category, image_url, discount_percentage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.Name, product.Description, product.Price, product.StockQuantity,
		product.Category, product.ImageURL, product.DiscountPercentage,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert product")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read product id")
	}
	product.ID = id
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET name = ?, description = ?, price = ?, stock_quantity = ?, category = ?,
		     image_url = ?, discount_percentage = ?, updated_at = ?
		 WHERE id = ?`,
		product.Name, product.Description, product.Price, product.StockQuantity,
		product.Category, product.ImageURL, product.DiscountPercentage,
		product.UpdatedAt, product.ID,
	)
	return errors.Wrap(err, "update product")
}

func (r *ProductRepository) Find(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	if err := r.db.GetContext(ctx, &product, `SELECT * FROM products WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, errors.Wrap(err, "select product")
	}
	return &product, nil
}

func (r *ProductRepository) List(ctx context.Context, filter model.ListFilter) ([]model.Product, error) {
	query := `SELECT * FROM products`
	var clauses []string
	var args []interface{}

	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		clauses = append(clauses, "name LIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY " + sortColumn(filter.SortBy) + " " + sortDirection(filter.SortOrder)

	products := []model.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	return products, nil
}

func sortColumn(sortBy string) string {
	switch sortBy {
	case "price":
		return "price"
	case "name":
		return "name"
	default:
		return "created_at"
	}
}

func sortDirection(order string) string {
	if order == "asc" {
		return "ASC"
	}
	return "DESC"
}
