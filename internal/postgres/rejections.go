package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-parts-fulfillment/internal/ledger"
	"github.com/ariefcatur/go-parts-fulfillment/internal/rejections"
)

const rejectionColumns = `r.id, r.rejection_number, r.product_id, r.customer_id, r.order_id,
	r.rejection_date, r.rejected_quantity, r.reason, r.description, r.status,
	r.resolution_date, r.resolution_notes, r.cost_impact`

type RejectionRepo struct {
	DB          *pgxpool.Pool
	LockTimeout time.Duration
}

func (r *RejectionRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx rejections.Tx) error) error {
	return runTx(ctx, r.DB, r.LockTimeout, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &rejectionTx{tx: tx})
	})
}

func (r *RejectionRepo) ListBetween(ctx context.Context, from, to time.Time) ([]rejections.Record, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+rejectionColumns+`, p.name, c.company_name
		FROM material_rejections r
		JOIN products p ON p.id = r.product_id
		JOIN customers c ON c.id = r.customer_id
		WHERE r.rejection_date BETWEEN $1 AND $2
		ORDER BY r.id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rejections.Record
	for rows.Next() {
		var row rejectionRow
		var rec rejections.Record
		if err := rows.Scan(append(row.dest(), &rec.ProductName, &rec.CustomerName)...); err != nil {
			return nil, err
		}
		rec.Rejection = row.value()
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rejectionTx struct{ tx pgx.Tx }

func (t *rejectionTx) GetProduct(ctx context.Context, id int64) (ledger.Product, error) {
	byID, err := productsByID(ctx, t.tx, []int64{id})
	if err != nil {
		return ledger.Product{}, err
	}
	p, ok := byID[id]
	if !ok {
		return ledger.Product{}, ledger.NotFound("product %d", id)
	}
	return p, nil
}

func (t *rejectionTx) GetCustomer(ctx context.Context, id string) (ledger.Customer, error) {
	c, err := scanCustomer(t.tx.QueryRow(ctx, `
		SELECT id, company_name, credit_limit, outstanding_balance, rating
		FROM customers WHERE id=$1`, id))
	if err != nil {
		return ledger.Customer{}, notFound(err, "customer %s", id)
	}
	return c, nil
}

func (t *rejectionTx) OrderOwner(ctx context.Context, orderID int64) (string, error) {
	var owner string
	if err := t.tx.QueryRow(ctx, `SELECT customer_id FROM orders WHERE id=$1`, orderID).Scan(&owner); err != nil {
		return "", notFound(err, "order %d", orderID)
	}
	return owner, nil
}

func (t *rejectionTx) InsertRejection(ctx context.Context, r *ledger.MaterialRejection) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO material_rejections(rejection_number, product_id, customer_id, order_id,
			rejection_date, rejected_quantity, reason, description, status, cost_impact)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		r.RejectionNumber, r.ProductID, r.CustomerID, r.OrderID,
		r.RejectionDate, r.RejectedQuantity, r.Reason, r.Description, string(r.Status), nullDecimal(r.CostImpact),
	).Scan(&r.ID)
}

func (t *rejectionTx) LockRejection(ctx context.Context, id int64) (ledger.MaterialRejection, error) {
	var row rejectionRow
	err := t.tx.QueryRow(ctx, `
		SELECT `+rejectionColumns+`
		FROM material_rejections r WHERE r.id=$1 FOR UPDATE`, id).Scan(row.dest()...)
	if err != nil {
		return ledger.MaterialRejection{}, notFound(err, "rejection %d", id)
	}
	return row.value(), nil
}

func (t *rejectionTx) UpdateRejection(ctx context.Context, r ledger.MaterialRejection) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE material_rejections
		SET status=$2, resolution_date=$3, resolution_notes=$4, cost_impact=$5
		WHERE id=$1`,
		r.ID, string(r.Status), r.ResolutionDate, r.ResolutionNotes, nullDecimal(r.CostImpact))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ledger.NotFound("rejection %d", r.ID)
	}
	return nil
}

// rejectionRow holds a scanned row until the text and nullable columns are converted.
type rejectionRow struct {
	rej    ledger.MaterialRejection
	status string
	cost   decimal.NullDecimal
}

func (r *rejectionRow) dest() []any {
	return []any{
		&r.rej.ID, &r.rej.RejectionNumber, &r.rej.ProductID, &r.rej.CustomerID, &r.rej.OrderID,
		&r.rej.RejectionDate, &r.rej.RejectedQuantity, &r.rej.Reason, &r.rej.Description, &r.status,
		&r.rej.ResolutionDate, &r.rej.ResolutionNotes, &r.cost,
	}
}

func (r *rejectionRow) value() ledger.MaterialRejection {
	out := r.rej
	out.Status = ledger.RejectionStatus(r.status)
	if r.cost.Valid {
		v := r.cost.Decimal
		out.CostImpact = &v
	}
	return out
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
