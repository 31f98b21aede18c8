package models

// Payment categories.
const (
	PaymentInscription = "inscription"
	PaymentMonthly     = "mensualite"
	PaymentExtraFee    = "frais"
	PaymentService     = "service"
)

// Service billing periods.
const (
	PeriodicityMonthly = "monthly"
	PeriodicityYearly  = "yearly"
)

// FeesPerClass holds the registration and monthly fee for a class.
type FeesPerClass struct {
	YearID      string  `db:"year_id" json:"year_id"`
	ClassID     string  `db:"class_id" json:"class_id"`
	Inscription float64 `db:"inscription" json:"inscription"`
	Mensualite  float64 `db:"mensualite" json:"mensualite"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
}

// ExtraFee is an optional one-off charge students can be opted into.
type ExtraFee struct {
	ID        string  `db:"id" json:"id"`
	YearID    string  `db:"year_id" json:"year_id"`
	Name      string  `db:"name" json:"name"`
	Amount    float64 `db:"amount" json:"amount"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// Service is a billable service such as transport or canteen.
type Service struct {
	ID          string  `db:"id" json:"id"`
	YearID      string  `db:"year_id" json:"year_id"`
	Name        string  `db:"name" json:"name"`
	Amount      float64 `db:"amount" json:"amount"`
	Periodicity string  `db:"periodicity" json:"periodicity"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
}

// FeeActivation opts a student into an extra fee.
type FeeActivation struct {
	StudentID  string `db:"student_id" json:"student_id"`
	YearID     string `db:"year_id" json:"year_id"`
	ExtraFeeID string `db:"extra_fee_id" json:"extra_fee_id"`
}

// ServiceActivation opts a student into a service for a month.
type ServiceActivation struct {
	StudentID string `db:"student_id" json:"student_id"`
	YearID    string `db:"year_id" json:"year_id"`
	ServiceID string `db:"service_id" json:"service_id"`
	Month     string `db:"month" json:"month"`
}

// Payment is money received from a student.
type Payment struct {
	ID          string  `db:"id" json:"id"`
	YearID      string  `db:"year_id" json:"year_id"`
	StudentID   string  `db:"student_id" json:"student_id"`
	Type        string  `db:"type" json:"type"`
	ClassID     *string `db:"class_id" json:"class_id,omitempty"`
	Month       *string `db:"month" json:"month,omitempty"`
	ItemID      *string `db:"item_id" json:"item_id,omitempty"`
	Method      *string `db:"method" json:"method,omitempty"`
	Amount      float64 `db:"amount" json:"amount"`
	PaymentDate string  `db:"payment_date" json:"payment_date"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
}

// PaymentSummaryFilter narrows a payment_summary lookup.
type PaymentSummaryFilter struct {
	StudentID string
	YearID    string
	Type      string
	ClassID   string
	Month     string
	ItemID    string
}

// PaymentSummary is one row of the payment_summary view.
type PaymentSummary struct {
	StudentID       string  `db:"student_id" json:"student_id"`
	YearID          string  `db:"year_id" json:"year_id"`
	Type            string  `db:"type" json:"type"`
	ClassID         *string `db:"class_id" json:"class_id,omitempty"`
	Month           *string `db:"month" json:"month,omitempty"`
	ItemID          *string `db:"item_id" json:"item_id,omitempty"`
	TotalPaid       float64 `db:"total_paid" json:"total_paid"`
	PaymentCount    int     `db:"payment_count" json:"payment_count"`
	LastPaymentDate string  `db:"last_payment_date" json:"last_payment_date"`
}

// FeesDue is one row of the fees_due view.
type FeesDue struct {
	StudentID      string  `db:"student_id" json:"student_id"`
	YearID         string  `db:"year_id" json:"year_id"`
	ClassID        string  `db:"class_id" json:"class_id"`
	InscriptionDue float64 `db:"inscription_due" json:"inscription_due"`
	MensualiteDue  float64 `db:"mensualite_due" json:"mensualite_due"`
}
