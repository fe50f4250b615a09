package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"eventscan/internal/models"

	"github.com/shopspring/decimal"
)

const bookingColumns = `
    b.id, b.event_date, COALESCE(b.customer_id, ''), COALESCE(b.chef_id, ''),
    CAST(b.total_price AS TEXT), b.deposit_paid, CAST(b.deposit_amount AS TEXT),
    COALESCE(b.payment_status, ''), b.final_customer_paid, b.final_chef_paid,
    CAST(b.final_chef_paid_amount AS TEXT), b.final_transfer_id,
    c.id, c.email, c.stripe_customer_id,
    ch.id, ch.full_name, ch.stripe_chef_id`

// FetchByDate returns the bookings of one calendar date with customer and chef joined in.
func (db *DB) FetchByDate(ctx context.Context, date string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
        FROM booking_requests b
        LEFT JOIN customers c ON c.id = b.customer_id
        LEFT JOIN chefs ch ON ch.id = b.chef_id
        WHERE b.event_date = ?
        ORDER BY b.id`

	rows, err := db.QueryContext(ctx, db.rebind(query), date)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for %s: %w", date, err)
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		booking, err := db.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings for %s: %w", date, err)
	}

	return bookings, nil
}

func (db *DB) scanBooking(rows *sql.Rows) (*models.Booking, error) {
	var (
		b                                models.Booking
		total, deposit, paidAmount       sql.NullString
		depositPaid, customerPaid        sql.NullBool
		chefPaid                         sql.NullBool
		status                           string
		transferID                       sql.NullString
		customerID, customerEmail, token sql.NullString
		chefID, chefName, chefAccount    sql.NullString
	)

	err := rows.Scan(
		&b.ID, &b.EventDate, &b.CustomerID, &b.ProviderID,
		&total, &depositPaid, &deposit,
		&status, &customerPaid, &chefPaid,
		&paidAmount, &transferID,
		&customerID, &customerEmail, &token,
		&chefID, &chefName, &chefAccount,
	)
	if err != nil {
		return nil, err
	}

	b.TotalPrice = db.parseAmount(b.ID, "total_price", total)
	b.DepositPaid = depositPaid.Bool
	b.DepositAmount = db.parseAmount(b.ID, "deposit_amount", deposit)
	b.PaymentStatus = models.PaymentStatus(status)
	b.FinalCustomerPaid = customerPaid.Bool
	b.FinalChefPaid = chefPaid.Bool

	if paidAmount.Valid {
		b.FinalChefPaidAmount = decimal.NewNullDecimal(db.parseAmount(b.ID, "final_chef_paid_amount", paidAmount))
	}
	if transferID.Valid {
		b.FinalTransferID = &transferID.String
	}

	if customerID.Valid {
		b.Customer = &models.Customer{
			ID:           customerID.String,
			Email:        customerEmail.String,
			PaymentToken: token.String,
		}
	}
	if chefID.Valid {
		b.Provider = &models.Provider{
			ID:              chefID.String,
			DisplayName:     chefName.String,
			PayoutAccountID: chefAccount.String,
		}
	}

	return &b, nil
}

// parseAmount coerces a missing or non-numeric amount to zero.
func (db *DB) parseAmount(bookingID, column string, raw sql.NullString) decimal.Decimal {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw.String))
	if err != nil {
		db.logger.Warn().
			Str("booking_id", bookingID).
			Str("column", column).
			Str("value", raw.String).
			Msg("Non-numeric amount treated as zero")
		return decimal.Zero
	}
	return amount
}

// UpdateBooking persists the non-nil fields of update.
func (db *DB) UpdateBooking(ctx context.Context, id string, update models.BookingUpdate) error {
	if update.Empty() {
		return nil
	}

	var (
		sets []string
		args []interface{}
	)
	if update.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, string(*update.PaymentStatus))
	}
	if update.FinalCustomerPaid != nil {
		sets = append(sets, "final_customer_paid = ?")
		args = append(args, *update.FinalCustomerPaid)
	}
	if update.FinalChefPaid != nil {
		sets = append(sets, "final_chef_paid = ?")
		args = append(args, *update.FinalChefPaid)
	}
	if update.FinalChefPaidAmount != nil {
		sets = append(sets, "final_chef_paid_amount = ?")
		args = append(args, update.FinalChefPaidAmount.String())
	}
	if update.FinalTransferID != nil {
		sets = append(sets, "final_transfer_id = ?")
		args = append(args, *update.FinalTransferID)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	query := `UPDATE booking_requests SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := db.ExecContext(ctx, db.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to update booking %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateBooking inserts a booking as the intake process would.
func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	var paidAmount interface{}
	if booking.FinalChefPaidAmount.Valid {
		paidAmount = booking.FinalChefPaidAmount.Decimal.String()
	}
	status := booking.PaymentStatus
	if status == models.PaymentUnset {
		status = models.PaymentPending
	}

	query := `INSERT INTO booking_requests (
                id, event_date, customer_id, chef_id, total_price, deposit_paid, deposit_amount,
                payment_status, final_customer_paid, final_chef_paid, final_chef_paid_amount, final_transfer_id
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, db.rebind(query),
		booking.ID,
		booking.EventDate,
		nullIfEmpty(booking.CustomerID),
		nullIfEmpty(booking.ProviderID),
		booking.TotalPrice.String(),
		booking.DepositPaid,
		booking.DepositAmount.String(),
		string(status),
		booking.FinalCustomerPaid,
		booking.FinalChefPaid,
		paidAmount,
		booking.FinalTransferID,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
