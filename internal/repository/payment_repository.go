package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const feesColumns = `year_id, class_id, inscription, mensualite, created_at`

const extraFeeColumns = `id, year_id, name, amount, created_at`

const serviceColumns = `id, year_id, name, amount, periodicity, created_at`

const paymentColumns = `id, year_id, student_id, type, class_id, month, item_id, method, amount, payment_date, created_at`

var (
	extraFeeMutable = columns("name", "amount")
	serviceMutable  = columns("name", "amount", "periodicity")
)

// PaymentRepository manages billing configuration and received payments.
type PaymentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db, now: time.Now}
}

// SetFeesPerClass creates or replaces the fee schedule of a class.
func (r *PaymentRepository) SetFeesPerClass(ctx context.Context, fees *models.FeesPerClass) (*models.FeesPerClass, error) {
	const query = `INSERT OR REPLACE INTO fees_per_class (year_id, class_id, inscription, mensualite)
        VALUES (:year_id, :class_id, :inscription, :mensualite)`
	if err := insertNamed(ctx, r.db, "fees per class", query, fees); err != nil {
		return nil, err
	}
	return r.FindFeesPerClass(ctx, fees.YearID, fees.ClassID)
}

func (r *PaymentRepository) FindFeesPerClass(ctx context.Context, yearID, classID string) (*models.FeesPerClass, error) {
	return getOne[models.FeesPerClass](ctx, r.db, "fees per class",
		`SELECT `+feesColumns+` FROM fees_per_class WHERE year_id = ? AND class_id = ?`, yearID, classID)
}

func (r *PaymentRepository) ListFeesPerClass(ctx context.Context, yearID string) ([]models.FeesPerClass, error) {
	return selectAll[models.FeesPerClass](ctx, r.db, "fees per class",
		`SELECT `+feesColumns+` FROM fees_per_class WHERE year_id = ? ORDER BY class_id`, yearID)
}

func (r *PaymentRepository) CreateExtraFee(ctx context.Context, fee *models.ExtraFee) (*models.ExtraFee, error) {
	const query = `INSERT INTO extra_fees (id, year_id, name, amount) VALUES (:id, :year_id, :name, :amount)`
	if err := insertNamed(ctx, r.db, "extra fee", query, fee); err != nil {
		return nil, err
	}
	return r.FindExtraFee(ctx, fee.ID, fee.YearID)
}

func (r *PaymentRepository) FindExtraFee(ctx context.Context, id, yearID string) (*models.ExtraFee, error) {
	return getOne[models.ExtraFee](ctx, r.db, "extra fee",
		`SELECT `+extraFeeColumns+` FROM extra_fees WHERE id = ? AND year_id = ?`, id, yearID)
}

func (r *PaymentRepository) ListExtraFees(ctx context.Context, yearID string) ([]models.ExtraFee, error) {
	return selectAll[models.ExtraFee](ctx, r.db, "extra fees",
		`SELECT `+extraFeeColumns+` FROM extra_fees WHERE year_id = ? ORDER BY name`, yearID)
}

func (r *PaymentRepository) UpdateExtraFee(ctx context.Context, id, yearID string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "extra_fees", extraFeeMutable, fields, "id = ? AND year_id = ?", id, yearID)
}

func (r *PaymentRepository) DeleteExtraFee(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "extra_fees", "id = ? AND year_id = ?", id, yearID)
}

// CreateService inserts a billable service. Periodicity defaults to monthly.
func (r *PaymentRepository) CreateService(ctx context.Context, service *models.Service) (*models.Service, error) {
	if service.Periodicity == "" {
		service.Periodicity = models.PeriodicityMonthly
	}
	const query = `INSERT INTO services (id, year_id, name, amount, periodicity)
        VALUES (:id, :year_id, :name, :amount, :periodicity)`
	if err := insertNamed(ctx, r.db, "service", query, service); err != nil {
		return nil, err
	}
	return r.FindService(ctx, service.ID, service.YearID)
}

func (r *PaymentRepository) FindService(ctx context.Context, id, yearID string) (*models.Service, error) {
	return getOne[models.Service](ctx, r.db, "service",
		`SELECT `+serviceColumns+` FROM services WHERE id = ? AND year_id = ?`, id, yearID)
}

func (r *PaymentRepository) ListServices(ctx context.Context, yearID string) ([]models.Service, error) {
	return selectAll[models.Service](ctx, r.db, "services",
		`SELECT `+serviceColumns+` FROM services WHERE year_id = ? ORDER BY name`, yearID)
}

func (r *PaymentRepository) UpdateService(ctx context.Context, id, yearID string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "services", serviceMutable, fields, "id = ? AND year_id = ?", id, yearID)
}

func (r *PaymentRepository) DeleteService(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "services", "id = ? AND year_id = ?", id, yearID)
}

// ActivateExtraFee opts a student into an extra fee; repeating is harmless.
func (r *PaymentRepository) ActivateExtraFee(ctx context.Context, a models.FeeActivation) error {
	const query = `INSERT OR REPLACE INTO student_fee_activations (student_id, year_id, extra_fee_id)
        VALUES (:student_id, :year_id, :extra_fee_id)`
	return insertNamed(ctx, r.db, "fee activation", query, a)
}

func (r *PaymentRepository) DeactivateExtraFee(ctx context.Context, a models.FeeActivation) (int64, error) {
	return deleteByKey(ctx, r.db, "student_fee_activations", "student_id = ? AND year_id = ? AND extra_fee_id = ?",
		a.StudentID, a.YearID, a.ExtraFeeID)
}

func (r *PaymentRepository) IsExtraFeeActive(ctx context.Context, a models.FeeActivation) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM student_fee_activations
        WHERE student_id = ? AND year_id = ? AND extra_fee_id = ?`, a.StudentID, a.YearID, a.ExtraFeeID); err != nil {
		return false, fmt.Errorf("check fee activation: %w", err)
	}
	return n > 0, nil
}

// ActivateService opts a student into a service for a month; repeating is harmless.
func (r *PaymentRepository) ActivateService(ctx context.Context, a models.ServiceActivation) error {
	const query = `INSERT OR REPLACE INTO student_service_activations (student_id, year_id, service_id, month)
        VALUES (:student_id, :year_id, :service_id, :month)`
	return insertNamed(ctx, r.db, "service activation", query, a)
}

func (r *PaymentRepository) DeactivateService(ctx context.Context, a models.ServiceActivation) (int64, error) {
	return deleteByKey(ctx, r.db, "student_service_activations", "student_id = ? AND year_id = ? AND service_id = ? AND month = ?",
		a.StudentID, a.YearID, a.ServiceID, a.Month)
}

func (r *PaymentRepository) IsServiceActive(ctx context.Context, a models.ServiceActivation) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM student_service_activations
        WHERE student_id = ? AND year_id = ? AND service_id = ? AND month = ?`, a.StudentID, a.YearID, a.ServiceID, a.Month); err != nil {
		return false, fmt.Errorf("check service activation: %w", err)
	}
	return n > 0, nil
}

// CreatePayment records a payment. The date defaults to today.
func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.PaymentDate == "" {
		payment.PaymentDate = r.now().Format("2006-01-02")
	}
	const query = `INSERT INTO payments (id, year_id, student_id, type, class_id, month, item_id, method, amount, payment_date)
        VALUES (:id, :year_id, :student_id, :type, :class_id, :month, :item_id, :method, :amount, :payment_date)`
	if err := insertNamed(ctx, r.db, "payment", query, payment); err != nil {
		return nil, err
	}
	return r.FindPayment(ctx, payment.ID, payment.YearID)
}

func (r *PaymentRepository) FindPayment(ctx context.Context, id, yearID string) (*models.Payment, error) {
	return getOne[models.Payment](ctx, r.db, "payment",
		`SELECT `+paymentColumns+` FROM payments WHERE id = ? AND year_id = ?`, id, yearID)
}

func (r *PaymentRepository) DeletePayment(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "payments", "id = ? AND year_id = ?", id, yearID)
}

// ListStudentPayments returns a student's payments in a year, newest first.
func (r *PaymentRepository) ListStudentPayments(ctx context.Context, studentID, yearID string) ([]models.Payment, error) {
	return selectAll[models.Payment](ctx, r.db, "student payments",
		`SELECT `+paymentColumns+` FROM payments WHERE student_id = ? AND year_id = ? ORDER BY payment_date DESC, created_at DESC`,
		studentID, yearID)
}

// ListPaymentsByYear returns every payment of a year, newest first.
func (r *PaymentRepository) ListPaymentsByYear(ctx context.Context, yearID string) ([]models.Payment, error) {
	return selectAll[models.Payment](ctx, r.db, "payments",
		`SELECT `+paymentColumns+` FROM payments WHERE year_id = ? ORDER BY payment_date DESC, created_at DESC`, yearID)
}

// Summary aggregates a student's payments of one type. Optional filters
// narrow to a class, month or billed item; rows for other groupings are
// summed together. It returns nil when nothing was paid.
func (r *PaymentRepository) Summary(ctx context.Context, f models.PaymentSummaryFilter) (*models.PaymentSummary, error) {
	var b strings.Builder
	b.WriteString(`SELECT student_id, year_id, type,
        CASE WHEN ? = '' THEN NULL ELSE ? END AS class_id,
        CASE WHEN ? = '' THEN NULL ELSE ? END AS month,
        CASE WHEN ? = '' THEN NULL ELSE ? END AS item_id,
        SUM(total_paid) AS total_paid, SUM(payment_count) AS payment_count, MAX(last_payment_date) AS last_payment_date
        FROM payment_summary WHERE student_id = ? AND year_id = ? AND type = ?`)
	args := []interface{}{f.ClassID, f.ClassID, f.Month, f.Month, f.ItemID, f.ItemID, f.StudentID, f.YearID, f.Type}
	if f.ClassID != "" {
		b.WriteString(" AND class_id = ?")
		args = append(args, f.ClassID)
	}
	if f.Month != "" {
		b.WriteString(" AND month = ?")
		args = append(args, f.Month)
	}
	if f.ItemID != "" {
		b.WriteString(" AND item_id = ?")
		args = append(args, f.ItemID)
	}
	b.WriteString(" GROUP BY student_id, year_id, type")
	return getOne[models.PaymentSummary](ctx, r.db, "payment summary", b.String(), args...)
}

// FeesDue reads what active students of a year owe according to their class.
func (r *PaymentRepository) FeesDue(ctx context.Context, yearID string) ([]models.FeesDue, error) {
	return selectAll[models.FeesDue](ctx, r.db, "fees due",
		`SELECT student_id, year_id, class_id, inscription_due, mensualite_due FROM fees_due WHERE year_id = ? ORDER BY class_id, student_id`,
		yearID)
}
