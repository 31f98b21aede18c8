package dto

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/noah-isme/sma-records/internal/models"
)

// LegacyYear is an academic year as stored under academicYears.
type LegacyYear struct {
	ID     string `json:"id" validate:"required"`
	Nom    string `json:"nom"`
	Debut  string `json:"debut"`
	Fin    string `json:"fin"`
	Closed bool   `json:"closed,omitempty"`
}

// LegacyStudent is a student as stored under students.
type LegacyStudent struct {
	ID            string `json:"id" validate:"required"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	BirthDate     string `json:"birthDate,omitempty"`
	BirthPlace    string `json:"birthPlace,omitempty"`
	Gender        string `json:"gender,omitempty" validate:"omitempty,oneof=homme femme"`
	StudentNumber string `json:"studentNumber,omitempty"`
	ClassID       string `json:"classId,omitempty"`
	Contact       string `json:"contact,omitempty"`
	ParentPhone   string `json:"parentPhone,omitempty"`
}

// LegacyEnrollment is one entry of an enrollments__<year> list.
type LegacyEnrollment struct {
	StudentID string `json:"studentId" validate:"required"`
	YearID    string `json:"yearId"`
	ClassID   string `json:"classId" validate:"required"`
	Status    string `json:"status,omitempty" validate:"omitempty,oneof=active transferred graduated left"`
	Date      string `json:"date,omitempty"`
}

// FieldPair names one attribute in both shapes.
type FieldPair struct {
	Legacy   string
	Internal string
}

// FieldMap translates records between the legacy camelCase shape and the
// column names used by the repositories. Every converter below goes through
// one of these tables.
type FieldMap []FieldPair

// ToInternal renames known legacy keys and drops the rest.
func (m FieldMap) ToInternal(in map[string]interface{}) models.Fields {
	out := make(models.Fields, len(in))
	for _, p := range m {
		if v, ok := in[p.Legacy]; ok {
			out[p.Internal] = v
		}
	}
	return out
}

// ToLegacy renames known columns and drops the rest.
func (m FieldMap) ToLegacy(in models.Fields) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for _, p := range m {
		if v, ok := in[p.Internal]; ok {
			out[p.Legacy] = v
		}
	}
	return out
}

// Mapping tables, one per entity.
var (
	YearFieldMap = FieldMap{
		{"id", "id"},
		{"nom", "name"},
		{"debut", "start_date"},
		{"fin", "end_date"},
		{"closed", "closed"},
	}
	StudentFieldMap = FieldMap{
		{"id", "id"},
		{"firstName", "first_name"},
		{"lastName", "last_name"},
		{"birthDate", "birth_date"},
		{"birthPlace", "birth_place"},
		{"gender", "gender"},
		{"studentNumber", "student_number"},
	}
	EnrollmentFieldMap = FieldMap{
		{"studentId", "student_id"},
		{"yearId", "year_id"},
		{"classId", "class_id"},
		{"status", "status"},
		{"date", "enrollment_date"},
	}
)

// YearToLegacy converts a stored year into the legacy shape.
func YearToLegacy(y models.AcademicYear) LegacyYear {
	var out LegacyYear
	fill(YearFieldMap.ToLegacy(fieldsOf(y)), &out)
	return out
}

// YearFromLegacy converts a legacy year into the stored shape.
func YearFromLegacy(y LegacyYear) models.AcademicYear {
	var out models.AcademicYear
	fill(YearFieldMap.ToInternal(fieldsOf(y)), &out)
	return out
}

// StudentToLegacy converts a stored student. The class is not part of the
// student row and is left empty.
func StudentToLegacy(s models.Student) LegacyStudent {
	var out LegacyStudent
	fill(StudentFieldMap.ToLegacy(fieldsOf(s)), &out)
	return out
}

// StudentFromLegacy converts a legacy student. Empty optional fields become NULL.
func StudentFromLegacy(s LegacyStudent) models.Student {
	var out models.Student
	fill(StudentFieldMap.ToInternal(fieldsOf(s)), &out)
	return out
}

// StudentUpdate lists the columns a legacy student overwrites on an existing
// row: every mapped column but the id, NULL where the legacy field is empty.
func StudentUpdate(s LegacyStudent) models.Fields {
	row := fieldsOf(StudentFromLegacy(s))
	update := make(models.Fields, len(StudentFieldMap)-1)
	for _, p := range StudentFieldMap {
		if p.Internal != "id" {
			update[p.Internal] = row[p.Internal]
		}
	}
	return update
}

// EnrollmentToLegacy converts a stored enrollment.
func EnrollmentToLegacy(e models.Enrollment) LegacyEnrollment {
	var out LegacyEnrollment
	fill(EnrollmentFieldMap.ToLegacy(fieldsOf(e)), &out)
	return out
}

// EnrollmentFromLegacy converts a legacy enrollment. The date keeps only its
// calendar part.
func EnrollmentFromLegacy(e LegacyEnrollment) models.Enrollment {
	var out models.Enrollment
	fill(EnrollmentFieldMap.ToInternal(fieldsOf(e)), &out)
	out.ID = models.EnrollmentID(out.StudentID, out.YearID)
	out.EnrollmentDate = DatePart(out.EnrollmentDate)
	return out
}

// fieldsOf flattens a legacy or stored record into its json-tagged members.
// Omitted-when-empty members are left out.
func fieldsOf(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	decode(v, &out)
	return out
}

// fill decodes mapped fields into a legacy or stored record.
func fill(fields map[string]interface{}, dst interface{}) {
	decode(fields, dst)
}

// decode panics on failure: the records and tables in this file are fixed,
// so an error means a table names a member of the wrong type.
func decode(in, out interface{}) {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		DecodeHook: emptyStringToNil,
	})
	if err == nil {
		err = dec.Decode(in)
	}
	if err != nil {
		panic(fmt.Sprintf("dto: %v", err))
	}
}

// emptyStringToNil maps "" onto a nil pointer so optional columns stay NULL.
func emptyStringToNil(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() == reflect.Ptr && from.Kind() == reflect.String && reflect.ValueOf(data).String() == "" {
		return nil, nil
	}
	return data, nil
}

// DatePart strips the time from an ISO timestamp.
func DatePart(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}


func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
