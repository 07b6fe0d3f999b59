package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

var rentalColumns = []string{
	"id", "item_id", "renter_id", "owner_id", "start_date", "end_date",
	"price_per_day_cents", "total_days", "subtotal_cents", "service_fee_cents", "insurance_fee_cents",
	"delivery_fee_cents", "total_amount_cents", "security_deposit_cents", "late_fee_per_day_cents",
	"late_days", "late_fee_amount_cents", "security_deposit_deduction_cents", "security_deposit_returned_cents",
	"security_deposit_reason", "damage_reported", "damage_description",
	"status", "payment_status",
	"pickup_confirmed_at", "pickup_confirmed_by", "return_initiated_at", "return_initiated_by",
	"return_confirmed_at", "return_confirmed_by", "actual_return_date",
	"agreement_text", "agreement_generated_at", "agreement_accepted_by_owner", "agreement_accepted_by_renter", "agreement_signed_at",
	"delivery_method", "delivery_address", "special_instructions",
	"stripe_session_id", "stripe_payment_intent_id", "cancellation_reason",
	"created_at", "updated_at",
}

func rentalSelect(prefix string) string {
	if prefix == "" {
		return strings.Join(rentalColumns, ", ")
	}
	cols := make([]string, len(rentalColumns))
	for i, c := range rentalColumns {
		cols[i] = prefix + "." + c
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func rentalFields(rt *domain.Rental) []any {
	return []any{
		&rt.ID, &rt.ItemID, &rt.RenterID, &rt.OwnerID, &rt.StartDate, &rt.EndDate,
		&rt.PricePerDayCents, &rt.TotalDays, &rt.SubtotalCents, &rt.ServiceFeeCents, &rt.InsuranceFeeCents,
		&rt.DeliveryFeeCents, &rt.TotalAmountCents, &rt.SecurityDepositCents, &rt.LateFeePerDayCents,
		&rt.LateDays, &rt.LateFeeAmountCents, &rt.SecurityDepositDeductionCents, &rt.SecurityDepositReturnedCents,
		&rt.SecurityDepositReason, &rt.DamageReported, &rt.DamageDescription,
		&rt.Status, &rt.PaymentStatus,
		&rt.PickupConfirmedAt, &rt.PickupConfirmedBy, &rt.ReturnInitiatedAt, &rt.ReturnInitiatedBy,
		&rt.ReturnConfirmedAt, &rt.ReturnConfirmedBy, &rt.ActualReturnDate,
		&rt.AgreementText, &rt.AgreementGeneratedAt, &rt.AgreementAcceptedByOwner, &rt.AgreementAcceptedByRenter, &rt.AgreementSignedAt,
		&rt.DeliveryMethod, &rt.DeliveryAddress, &rt.SpecialInstructions,
		&rt.StripeSessionID, &rt.StripePaymentIntentID, &rt.CancellationReason,
		&rt.CreatedAt, &rt.UpdatedAt,
	}
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	if err := row.Scan(rentalFields(rt)...); err != nil {
		return nil, err
	}
	return rt, nil
}

func collectRentals(rows *sql.Rows) ([]domain.Rental, error) {
	defer rows.Close()
	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	logger.DatabaseCall("INSERT", "rentals", "itemID", rt.ItemID, "renterID", rt.RenterID)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockItem(ctx, tx, rt.ItemID); err != nil {
			return err
		}
		taken, err := rangeTaken(ctx, tx, rt.ItemID, rt.StartDate, rt.EndDate, "", true)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UnavailableError{}
		}

		now := time.Now().UTC()
		query := `INSERT INTO rentals (item_id, renter_id, owner_id, start_date, end_date,
		            price_per_day_cents, total_days, subtotal_cents, service_fee_cents, insurance_fee_cents,
		            delivery_fee_cents, total_amount_cents, security_deposit_cents, late_fee_per_day_cents,
		            status, payment_status, delivery_method, delivery_address, special_instructions, created_at, updated_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		          RETURNING id`
		if err := tx.QueryRowContext(ctx, query,
			rt.ItemID, rt.RenterID, rt.OwnerID, rt.StartDate, rt.EndDate,
			rt.PricePerDayCents, rt.TotalDays, rt.SubtotalCents, rt.ServiceFeeCents, rt.InsuranceFeeCents,
			rt.DeliveryFeeCents, rt.TotalAmountCents, rt.SecurityDepositCents, rt.LateFeePerDayCents,
			rt.Status, rt.PaymentStatus, rt.DeliveryMethod, rt.DeliveryAddress, rt.SpecialInstructions, now, now,
		).Scan(&rt.ID); err != nil {
			return err
		}
		rt.CreatedAt, rt.UpdatedAt = now, now
		return nil
	})
	logger.DatabaseResult("INSERT", 1, err, "rentalID", rt.ID)
	return mapError(err, "rental")
}

func (r *rentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	query := `SELECT ` + rentalSelect("") + ` FROM rentals WHERE id = $1`
	rt, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "rental")
	}
	return rt, nil
}

func (r *rentalRepository) List(ctx context.Context, f domain.RentalFilter) ([]domain.Rental, error) {
	query := `SELECT ` + rentalSelect("") + ` FROM rentals WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}

	if f.UserID != "" {
		switch f.Role {
		case domain.RentalRoleRenter:
			add(" AND renter_id = $%d", f.UserID)
		case domain.RentalRoleOwner:
			add(" AND owner_id = $%d", f.UserID)
		default:
			args = append(args, f.UserID)
			query += fmt.Sprintf(" AND (renter_id = $%d OR owner_id = $%d)", len(args), len(args))
		}
	}
	if f.Status != "" {
		add(" AND status = $%d", f.Status)
	}
	if f.ItemID != "" {
		add(" AND item_id = $%d", f.ItemID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRentals(rows)
}

func (r *rentalRepository) ListBlocking(ctx context.Context, itemID string, from domain.Date) ([]domain.Rental, error) {
	query := `SELECT ` + rentalSelect("") + ` FROM rentals
	          WHERE item_id = $1 AND status IN ('pending_pickup', 'active') AND end_date > $2
	          ORDER BY start_date`
	rows, err := r.db.QueryContext(ctx, query, itemID, from)
	if err != nil {
		return nil, err
	}
	return collectRentals(rows)
}

func (r *rentalRepository) ListOverdue(ctx context.Context, today domain.Date) ([]domain.OverdueRental, error) {
	query := `SELECT ` + rentalSelect("r") + `, i.title
	          FROM rentals r JOIN items i ON i.id = r.item_id
	          WHERE r.status = 'active' AND r.end_date < $1
	          ORDER BY r.end_date`
	rows, err := r.db.QueryContext(ctx, query, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overdue []domain.OverdueRental
	for rows.Next() {
		var o domain.OverdueRental
		dest := append(rentalFields(&o.Rental), &o.ItemTitle)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		overdue = append(overdue, o)
	}
	return overdue, rows.Err()
}

func (r *rentalRepository) ListPickupsOn(ctx context.Context, day domain.Date) ([]domain.Rental, error) {
	query := `SELECT ` + rentalSelect("") + ` FROM rentals WHERE status = 'pending_pickup' AND start_date = $1`
	rows, err := r.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, err
	}
	return collectRentals(rows)
}

func (r *rentalRepository) ListReturnsDueOn(ctx context.Context, day domain.Date) ([]domain.Rental, error) {
	query := `SELECT ` + rentalSelect("") + ` FROM rentals
	          WHERE status = 'active' AND return_initiated_at IS NULL AND end_date = $1`
	rows, err := r.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, err
	}
	return collectRentals(rows)
}

func (r *rentalRepository) MarkPaid(ctx context.Context, id, paymentIntentID string, at time.Time) (bool, error) {
	logger.DatabaseCall("UPDATE", "rentals", "operation", "mark_paid", "rentalID", id)
	var ok bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var itemID string
		var start, end domain.Date
		var status domain.RentalStatus
		err := tx.QueryRowContext(ctx, `SELECT item_id, start_date, end_date, status FROM rentals WHERE id = $1`, id).
			Scan(&itemID, &start, &end, &status)
		if err != nil {
			return err
		}
		if status != domain.RentalStatusPending {
			return nil
		}

		if err := lockItem(ctx, tx, itemID); err != nil {
			return err
		}
		taken, err := rangeTaken(ctx, tx, itemID, start, end, id, true)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UnavailableError{}
		}

		res, err := tx.ExecContext(ctx, `UPDATE rentals
		    SET status = 'pending_pickup', payment_status = 'paid',
		        stripe_payment_intent_id = COALESCE(NULLIF($2, ''), stripe_payment_intent_id), updated_at = $3
		    WHERE id = $1 AND status = 'pending' AND payment_status <> 'paid'`, id, paymentIntentID, at)
		if err != nil {
			return err
		}
		ok, err = applied(res)
		return err
	})
	logger.DatabaseResult("UPDATE", boolRows(ok), err, "rentalID", id)
	return ok, mapError(err, "rental")
}

func (r *rentalRepository) ConfirmPickup(ctx context.Context, id, by string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE rentals
	    SET status = 'active', pickup_confirmed_at = $2, pickup_confirmed_by = $3, updated_at = $2
	    WHERE id = $1 AND status = 'pending_pickup' AND pickup_confirmed_at IS NULL`, id, at, by)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (r *rentalRepository) InitiateReturn(ctx context.Context, id, by string, at time.Time, lateDays int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE rentals
	    SET return_initiated_at = $2, return_initiated_by = $3, late_days = $4, updated_at = $2
	    WHERE id = $1 AND status = 'active' AND return_initiated_at IS NULL`, id, at, by, lateDays)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (r *rentalRepository) ConfirmReturn(ctx context.Context, id string, s domain.ReturnSettlement) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE rentals
	    SET status = 'completed', return_confirmed_at = $2, return_confirmed_by = $3, actual_return_date = $4,
	        late_days = $5, late_fee_amount_cents = $6, security_deposit_deduction_cents = $7,
	        security_deposit_returned_cents = $8, security_deposit_reason = $9,
	        damage_reported = $10, damage_description = $11, updated_at = $2
	    WHERE id = $1 AND status = 'active' AND return_initiated_at IS NOT NULL AND return_confirmed_at IS NULL`,
		id, s.ConfirmedAt, s.ConfirmedBy, s.ActualReturnDate,
		s.LateDays, s.LateFeeAmountCents, s.DeductionCents,
		s.DepositReturnedCents, s.DeductionReason,
		s.DamageReported, s.DamageDescription)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (r *rentalRepository) Cancel(ctx context.Context, id string, from []domain.RentalStatus, reason string, payment domain.PaymentStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE rentals
	    SET status = 'cancelled', cancellation_reason = $3,
	        payment_status = COALESCE(NULLIF($4, ''), payment_status), updated_at = $5
	    WHERE id = $1 AND status = ANY($2)`, id, pq.Array(statuses), reason, string(payment), time.Now().UTC())
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (r *rentalRepository) SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE rentals SET payment_status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	return err
}

func (r *rentalRepository) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE rentals SET stripe_session_id = $2, updated_at = $3 WHERE id = $1`,
		id, sessionID, time.Now().UTC())
	return err
}

func (r *rentalRepository) SaveAgreement(ctx context.Context, id, text string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE rentals
	    SET agreement_text = $2, agreement_generated_at = $3, updated_at = $3
	    WHERE id = $1 AND agreement_text IS NULL`, id, text, at)
	if err != nil {
		return false, err
	}
	return applied(res)
}

func (r *rentalRepository) AcceptAgreement(ctx context.Context, id string, party domain.Party, at time.Time) (bool, *time.Time, error) {
	var own, other string
	switch party {
	case domain.PartyRenter:
		own, other = "agreement_accepted_by_renter", "agreement_accepted_by_owner"
	case domain.PartyOwner:
		own, other = "agreement_accepted_by_owner", "agreement_accepted_by_renter"
	default:
		return false, nil, fmt.Errorf("unknown party %q", party)
	}

	// The CASE reads the row version being updated, so two concurrent
	// acceptances cannot both miss the other's flag.
	query := fmt.Sprintf(`UPDATE rentals
	    SET %[1]s = true,
	        agreement_signed_at = CASE WHEN %[2]s THEN $2 ELSE agreement_signed_at END,
	        updated_at = $2
	    WHERE id = $1 AND agreement_text IS NOT NULL AND %[1]s = false
	    RETURNING agreement_signed_at`, own, other)

	var signedAt *time.Time
	err := r.db.QueryRowContext(ctx, query, id, at).Scan(&signedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, signedAt, nil
}

func (r *rentalRepository) NextAvailableDate(ctx context.Context, itemID string) (*domain.Date, error) {
	var d domain.Date
	if err := r.db.QueryRowContext(ctx, `SELECT get_next_available_date($1)`, itemID).Scan(&d); err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}

func boolRows(ok bool) int64 {
	if ok {
		return 1
	}
	return 0
}
