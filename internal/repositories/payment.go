package repositories

import (
	"database/sql"
	"fmt"

	"github.com/iaminawe/ParkingGarage-sub010/internal/models"
	"github.com/shopspring/decimal"
)

// PaymentRepository persists payments.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new PaymentRepository with the given database connection
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const upsertPaymentQuery = `
	INSERT INTO payments (id, session_id, amount, method, status, refund_amount, created_at, migration_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		session_id = excluded.session_id,
		amount = excluded.amount,
		method = excluded.method,
		status = excluded.status,
		refund_amount = excluded.refund_amount,
		created_at = excluded.created_at,
		migration_id = excluded.migration_id
`

// Upsert inserts or overwrites a payment by id.
func (r *PaymentRepository) Upsert(p *models.Payment) error {
	return r.UpsertOrigin(r.db, p, "")
}

// UpsertOrigin writes a payment through q, stamping the origin migration id
// when non-empty.
func (r *PaymentRepository) UpsertOrigin(q Execer, p *models.Payment, migrationID string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := q.Exec(upsertPaymentQuery,
		p.ID, p.SessionID, p.Amount.String(), string(p.Method), string(p.Status),
		p.RefundAmount.String(), p.CreatedAt, nullable(migrationID),
	)
	if err != nil {
		return wrapStoreErr("upsert payment "+p.ID, err)
	}
	return nil
}

// Get retrieves a payment by id.
func (r *PaymentRepository) Get(id string) (*models.Payment, error) {
	row := r.db.QueryRow(`
		SELECT id, session_id, amount, method, status, refund_amount, created_at
		FROM payments WHERE id = ?
	`, id)

	p, err := scanPayment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List retrieves all payments ordered by id.
func (r *PaymentRepository) List() ([]models.Payment, error) {
	rows, err := r.db.Query(`
		SELECT id, session_id, amount, method, status, refund_amount, created_at
		FROM payments ORDER BY id
	`)
	if err != nil {
		return nil, wrapStoreErr("list payments", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("list payments", err)
	}
	return payments, nil
}

// Count returns the number of stored payments.
func (r *PaymentRepository) Count() (int, error) {
	return count(r.db, "payments")
}

// Clear removes payment rows through q.
func (r *PaymentRepository) Clear(q Execer, migrationID string) (int64, error) {
	return deleteRows(q, "payments", migrationID)
}

func scanPayment(scan func(...any) error) (*models.Payment, error) {
	var (
		p       models.Payment
		amount  string
		method  string
		status  string
		refund  string
		created sql.NullTime
	)
	err := scan(&p.ID, &p.SessionID, &amount, &method, &status, &refund, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, wrapStoreErr("scan payment", err)
	}

	p.Method = models.PaymentMethod(method)
	p.Status = models.PaymentStatus(status)
	if created.Valid {
		p.CreatedAt = created.Time
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount for payment %s: %w", p.ID, err)
	}
	if p.RefundAmount, err = decimal.NewFromString(refund); err != nil {
		return nil, fmt.Errorf("failed to parse refund for payment %s: %w", p.ID, err)
	}
	return &p, nil
}
