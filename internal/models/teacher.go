package models

// Payment and contact modes accepted by the teachers table.
const (
	TeacherPaymentFixed  = "fixe"
	TeacherPaymentHourly = "horaire"

	ContactPhone    = "telephone"
	ContactEmail    = "email"
	ContactWhatsApp = "whatsapp"
	ContactSMS      = "sms"
)

// Teacher is a staff member. Identity is global; assignments and timetable
// blocks tie it to a year.
type Teacher struct {
	ID               string   `db:"id" json:"id"`
	FirstName        string   `db:"first_name" json:"first_name"`
	LastName         string   `db:"last_name" json:"last_name"`
	Email            *string  `db:"email" json:"email,omitempty"`
	Phone            *string  `db:"phone" json:"phone,omitempty"`
	Subject          *string  `db:"subject" json:"subject,omitempty"`
	HireDate         *string  `db:"hire_date" json:"hire_date,omitempty"`
	PaymentType      string   `db:"payment_type" json:"payment_type"`
	Salary           *float64 `db:"salary" json:"salary,omitempty"`
	HourlyRate       *float64 `db:"hourly_rate" json:"hourly_rate,omitempty"`
	Residence        *string  `db:"residence" json:"residence,omitempty"`
	ContactType      string   `db:"contact_type" json:"contact_type"`
	YearsExperience  int      `db:"years_experience" json:"years_experience"`
	Nationality      *string  `db:"nationality" json:"nationality,omitempty"`
	EmergencyContact *string  `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone   *string  `db:"emergency_phone" json:"emergency_phone,omitempty"`
	CreatedAt        string   `db:"created_at" json:"created_at"`
}
