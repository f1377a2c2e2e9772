package mysql

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"shop/pkg/orders/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Migrations() fs.FS { return migrationsFS }

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateWithItems writes the order row and every line in one transaction:
// either the whole order becomes visible or none of it does.
func (r *OrderRepository) CreateWithItems(ctx context.Context, order *model.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO orders (user_id, order_date, status, total_amount, shipping_address, payment_status, tracking_number, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.UserID, order.OrderDate, order.Status, order.TotalAmount,
		order.ShippingAddress, order.PaymentStatus, order.TrackingNumber, order.Notes,
	)
	if err != nil {
		return errors.Wrap(err, "insert order")
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read order id")
	}
	order.ID = orderID

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = orderID
		res, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
			 VALUES (?, ?, ?, ?, ?)`,
			item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price,
		)
		if err != nil {
			return errors.Wrap(err, "insert order item")
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "read order item id")
		}
		item.ID = itemID
	}

	return errors.Wrap(tx.Commit(), "commit order")
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return errors.Wrap(err, "delete order items")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return errors.Wrap(tx.Commit(), "commit order delete")
}

func (r *OrderRepository) Find(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := r.db.GetContext(ctx, &order, `SELECT * FROM orders WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "select order")
	}
	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) FindByUser(ctx context.Context, userID int64, status string) ([]model.Order, error) {
	query := `SELECT * FROM orders WHERE user_id = ?`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY order_date DESC`
	return r.selectOrders(ctx, query, args...)
}

func (r *OrderRepository) FindAll(ctx context.Context, status string) ([]model.Order, error) {
	query := `SELECT * FROM orders`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY order_date DESC`
	return r.selectOrders(ctx, query, args...)
}

func (r *OrderRepository) selectOrders(ctx context.Context, query string, args ...interface{}) ([]model.Order, error) {
	orders := []model.Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, order *model.Order) error {
	items := []model.OrderItem{}
	if err := r.db.SelectContext(ctx, &items, `SELECT * FROM order_items WHERE order_id = ?`, order.ID); err != nil {
		return errors.Wrap(err, "select order items")
	}
	order.Items = items
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order *model.Order) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, payment_status = ?, tracking_number = ?, notes = ? WHERE id = ?`,
		order.Status, order.PaymentStatus, order.TrackingNumber, order.Notes, order.ID,
	)
	return errors.Wrap(err, "update order")
}
