package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventscan/internal/models"
)

func (db *DB) FetchAdmins(ctx context.Context) ([]*models.Admin, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, email FROM admin_users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()

	admins := []*models.Admin{}
	for rows.Next() {
		var admin models.Admin
		if err := rows.Scan(&admin.ID, &admin.Email); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, &admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate admins: %w", err)
	}
	return admins, nil
}

// FetchCustomerPaymentToken returns "" when the customer is unknown or has no stored token.
func (db *DB) FetchCustomerPaymentToken(ctx context.Context, customerID string) (string, error) {
	if customerID == "" {
		return "", nil
	}

	var token sql.NullString
	err := db.QueryRowContext(ctx, db.rebind(`SELECT stripe_customer_id FROM customers WHERE id = ?`), customerID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch payment token for customer %s: %w", customerID, err)
	}
	return token.String, nil
}

func (db *DB) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `INSERT INTO customers (id, email, stripe_customer_id) VALUES (?, ?, ?)`
	if _, err := db.ExecContext(ctx, db.rebind(query), customer.ID, nullIfEmpty(customer.Email), nullIfEmpty(customer.PaymentToken)); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func (db *DB) CreateProvider(ctx context.Context, provider *models.Provider) error {
	query := `INSERT INTO chefs (id, full_name, stripe_chef_id) VALUES (?, ?, ?)`
	if _, err := db.ExecContext(ctx, db.rebind(query), provider.ID, nullIfEmpty(provider.DisplayName), nullIfEmpty(provider.PayoutAccountID)); err != nil {
		return fmt.Errorf("failed to create chef: %w", err)
	}
	return nil
}

func (db *DB) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	query := `INSERT INTO admin_users (id, email) VALUES (?, ?)`
	if _, err := db.ExecContext(ctx, db.rebind(query), admin.ID, admin.Email); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}
