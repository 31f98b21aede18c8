package dto

import (
	"github.com/tidwall/gjson"

	"github.com/noah-isme/sma-records/internal/models"
)

// Aliases lists, per logical field, the legacy spellings in preference
// order. The canonical camelCase key comes first.
var Aliases = map[string][]string{
	"year.name":       {"name", "nom"},
	"year.start":      {"start_date", "startDate", "debut"},
	"year.end":        {"end_date", "endDate", "fin"},
	"person.first":    {"firstName", "prenom"},
	"person.last":     {"lastName", "nom"},
	"class.name":      {"name", "nom"},
	"item.name":       {"name", "nom"},
	"item.amount":     {"amount", "montant"},
	"payment.classId": {"classId", "classeId"},
	"payment.month":   {"month", "mois"},
}

// Pick returns the first alias of field that is present and non-empty.
func Pick(rec gjson.Result, field string) gjson.Result {
	for _, key := range Aliases[field] {
		if v := rec.Get(gjson.Escape(key)); v.Exists() && v.String() != "" {
			return v
		}
	}
	return gjson.Result{}
}

func str(rec gjson.Result, key string) string {
	return rec.Get(key).String()
}

func optStr(rec gjson.Result, key string) *string {
	return optional(rec.Get(key).String())
}

func optFloat(rec gjson.Result, key string) *float64 {
	v := rec.Get(key)
	if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
		return nil
	}
	f := v.Float()
	return &f
}

// ImportYear is a legacy academic year ready for validation.
type ImportYear struct {
	ID        string `validate:"required"`
	Name      string `validate:"required"`
	StartDate string `validate:"required"`
	EndDate   string `validate:"required"`
	Closed    bool
}

// DecodeYear reads a legacy year record.
func DecodeYear(rec gjson.Result) ImportYear {
	return ImportYear{
		ID:        str(rec, "id"),
		Name:      Pick(rec, "year.name").String(),
		StartDate: Pick(rec, "year.start").String(),
		EndDate:   Pick(rec, "year.end").String(),
		Closed:    rec.Get("closed").Bool(),
	}
}

func (y ImportYear) Model() *models.AcademicYear {
	return &models.AcademicYear{ID: y.ID, Name: y.Name, StartDate: y.StartDate, EndDate: y.EndDate, Closed: y.Closed}
}

// ImportStudent is a legacy student ready for validation.
type ImportStudent struct {
	ID            string  `validate:"required"`
	FirstName     string  `validate:"required"`
	LastName      string  `validate:"required"`
	BirthDate     *string
	BirthPlace    *string
	Gender        *string `validate:"omitempty,oneof=homme femme"`
	StudentNumber *string
	// ClassID is the pre-enrollment single class pointer.
	ClassID string
}

// DecodeStudent reads a legacy student record.
func DecodeStudent(rec gjson.Result) ImportStudent {
	return ImportStudent{
		ID:            str(rec, "id"),
		FirstName:     Pick(rec, "person.first").String(),
		LastName:      Pick(rec, "person.last").String(),
		BirthDate:     optStr(rec, "birthDate"),
		BirthPlace:    optStr(rec, "birthPlace"),
		Gender:        optStr(rec, "gender"),
		StudentNumber: optStr(rec, "studentNumber"),
		ClassID:       str(rec, "classId"),
	}
}

func (s ImportStudent) Model() *models.Student {
	return &models.Student{
		ID:            s.ID,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		BirthDate:     s.BirthDate,
		BirthPlace:    s.BirthPlace,
		Gender:        s.Gender,
		StudentNumber: s.StudentNumber,
	}
}

// ImportTeacher is a legacy teacher ready for validation.
type ImportTeacher struct {
	ID               string `validate:"required"`
	FirstName        string `validate:"required"`
	LastName         string `validate:"required"`
	Email            *string
	Phone            *string
	Subject          *string
	HireDate         *string
	PaymentType      string `validate:"oneof=fixe horaire"`
	Salary           *float64
	HourlyRate       *float64
	Residence        *string
	ContactType      string `validate:"oneof=telephone email whatsapp sms"`
	YearsExperience  int    `validate:"gte=0"`
	Nationality      *string
	EmergencyContact *string
	EmergencyPhone   *string
}

// DecodeTeacher reads a legacy teacher record and applies the column defaults.
func DecodeTeacher(rec gjson.Result) ImportTeacher {
	t := ImportTeacher{
		ID:               str(rec, "id"),
		FirstName:        Pick(rec, "person.first").String(),
		LastName:         Pick(rec, "person.last").String(),
		Email:            optStr(rec, "email"),
		Phone:            optStr(rec, "phone"),
		Subject:          optStr(rec, "subject"),
		HireDate:         optStr(rec, "hireDate"),
		PaymentType:      str(rec, "paymentType"),
		Salary:           optFloat(rec, "salary"),
		HourlyRate:       optFloat(rec, "hourlyRate"),
		Residence:        optStr(rec, "residence"),
		ContactType:      str(rec, "contactType"),
		YearsExperience:  int(rec.Get("yearsExperience").Int()),
		Nationality:      optStr(rec, "nationality"),
		EmergencyContact: optStr(rec, "emergencyContact"),
		EmergencyPhone:   optStr(rec, "emergencyPhone"),
	}
	if t.PaymentType == "" {
		t.PaymentType = models.TeacherPaymentFixed
	}
	if t.ContactType == "" {
		t.ContactType = models.ContactPhone
	}
	return t
}

func (t ImportTeacher) Model() *models.Teacher {
	return &models.Teacher{
		ID:               t.ID,
		FirstName:        t.FirstName,
		LastName:         t.LastName,
		Email:            t.Email,
		Phone:            t.Phone,
		Subject:          t.Subject,
		HireDate:         t.HireDate,
		PaymentType:      t.PaymentType,
		Salary:           t.Salary,
		HourlyRate:       t.HourlyRate,
		Residence:        t.Residence,
		ContactType:      t.ContactType,
		YearsExperience:  t.YearsExperience,
		Nationality:      t.Nationality,
		EmergencyContact: t.EmergencyContact,
		EmergencyPhone:   t.EmergencyPhone,
	}
}

// ImportClass is a legacy class placed in the current year.
type ImportClass struct {
	ID          string `validate:"required"`
	YearID      string `validate:"required"`
	Name        string `validate:"required"`
	Level       *string
	Description *string
	Capacity    int `validate:"gt=0"`
}

// DecodeClass reads a legacy class record for yearID.
func DecodeClass(rec gjson.Result, yearID string) ImportClass {
	c := ImportClass{
		ID:          str(rec, "id"),
		YearID:      yearID,
		Name:        Pick(rec, "class.name").String(),
		Level:       optStr(rec, "level"),
		Description: optStr(rec, "description"),
		Capacity:    int(rec.Get("capacity").Int()),
	}
	if c.Capacity == 0 {
		c.Capacity = models.DefaultClassCapacity
	}
	return c
}

func (c ImportClass) Model() *models.Class {
	return &models.Class{ID: c.ID, YearID: c.YearID, Name: c.Name, Level: c.Level, Description: c.Description, Capacity: c.Capacity}
}

// ImportEnrollment is a legacy enrollment placed in the current year.
type ImportEnrollment struct {
	ID             string `validate:"required"`
	StudentID      string `validate:"required"`
	ClassID        string `validate:"required"`
	YearID         string `validate:"required"`
	Status         string `validate:"oneof=active transferred graduated left"`
	EnrollmentDate string `validate:"required"`
}

// DecodeEnrollment reads an enrollments__<year> entry. today fills a missing date.
func DecodeEnrollment(rec gjson.Result, yearID, today string) ImportEnrollment {
	e := ImportEnrollment{
		ID:             str(rec, "id"),
		StudentID:      str(rec, "studentId"),
		ClassID:        str(rec, "classId"),
		YearID:         yearID,
		Status:         str(rec, "status"),
		EnrollmentDate: DatePart(str(rec, "date")),
	}
	if e.ID == "" && e.StudentID != "" {
		e.ID = models.EnrollmentID(e.StudentID, yearID)
	}
	if e.Status == "" {
		e.Status = string(models.EnrollmentStatusActive)
	}
	if e.EnrollmentDate == "" {
		e.EnrollmentDate = today
	}
	return e
}

// EnrollmentFromStudentClass synthesises the enrollment implied by a
// student's single class pointer.
func EnrollmentFromStudentClass(s ImportStudent, yearID, today string) ImportEnrollment {
	return ImportEnrollment{
		ID:             models.EnrollmentID(s.ID, yearID),
		StudentID:      s.ID,
		ClassID:        s.ClassID,
		YearID:         yearID,
		Status:         string(models.EnrollmentStatusActive),
		EnrollmentDate: today,
	}
}

func (e ImportEnrollment) Model() *models.Enrollment {
	return &models.Enrollment{
		ID:             e.ID,
		StudentID:      e.StudentID,
		ClassID:        e.ClassID,
		YearID:         e.YearID,
		Status:         models.EnrollmentStatus(e.Status),
		EnrollmentDate: e.EnrollmentDate,
	}
}

// ImportFees is one class entry of a studentFees object.
type ImportFees struct {
	YearID      string  `validate:"required"`
	ClassID     string  `validate:"required"`
	Inscription float64 `validate:"gte=0"`
	Mensualite  float64 `validate:"gte=0"`
}

// DecodeFees reads the fee schedule stored for classID.
func DecodeFees(classID string, rec gjson.Result, yearID string) ImportFees {
	return ImportFees{
		YearID:      yearID,
		ClassID:     classID,
		Inscription: rec.Get("inscription").Float(),
		Mensualite:  rec.Get("mensualite").Float(),
	}
}

func (f ImportFees) Model() *models.FeesPerClass {
	return &models.FeesPerClass{YearID: f.YearID, ClassID: f.ClassID, Inscription: f.Inscription, Mensualite: f.Mensualite}
}

// ImportItem is a legacy extra fee or service.
type ImportItem struct {
	ID          string  `validate:"required"`
	YearID      string  `validate:"required"`
	Name        string  `validate:"required"`
	Amount      float64 `validate:"gte=0"`
	Periodicity string  `validate:"omitempty,oneof=monthly yearly"`
}

// DecodeItem reads an extra fee or service record.
func DecodeItem(rec gjson.Result, yearID string) ImportItem {
	return ImportItem{
		ID:     str(rec, "id"),
		YearID: yearID,
		Name:   Pick(rec, "item.name").String(),
		Amount: Pick(rec, "item.amount").Float(),
	}
}

func (i ImportItem) ExtraFee() *models.ExtraFee {
	return &models.ExtraFee{ID: i.ID, YearID: i.YearID, Name: i.Name, Amount: i.Amount}
}

// Service converts the item; legacy services are always billed monthly.
func (i ImportItem) Service() *models.Service {
	return &models.Service{ID: i.ID, YearID: i.YearID, Name: i.Name, Amount: i.Amount, Periodicity: models.PeriodicityMonthly}
}

// ImportPayment is a legacy payment placed in the current year.
type ImportPayment struct {
	ID          string `validate:"required"`
	YearID      string `validate:"required"`
	StudentID   string `validate:"required"`
	Type        string `validate:"oneof=inscription mensualite frais service"`
	ClassID     *string
	Month       *string
	ItemID      *string
	Method      *string
	Amount      float64 `validate:"gte=0"`
	PaymentDate string  `validate:"required"`
}

// DecodePayment reads a legacy payment. today fills a missing date.
func DecodePayment(rec gjson.Result, yearID, today string) ImportPayment {
	p := ImportPayment{
		ID:          str(rec, "id"),
		YearID:      yearID,
		StudentID:   str(rec, "studentId"),
		Type:        str(rec, "type"),
		ClassID:     optional(Pick(rec, "payment.classId").String()),
		Month:       optional(Pick(rec, "payment.month").String()),
		ItemID:      optStr(rec, "itemId"),
		Method:      optStr(rec, "method"),
		Amount:      rec.Get("amount").Float(),
		PaymentDate: DatePart(str(rec, "date")),
	}
	if p.PaymentDate == "" {
		p.PaymentDate = today
	}
	return p
}

func (p ImportPayment) Model() *models.Payment {
	return &models.Payment{
		ID:          p.ID,
		YearID:      p.YearID,
		StudentID:   p.StudentID,
		Type:        p.Type,
		ClassID:     p.ClassID,
		Month:       p.Month,
		ItemID:      p.ItemID,
		Method:      p.Method,
		Amount:      p.Amount,
		PaymentDate: p.PaymentDate,
	}
}
