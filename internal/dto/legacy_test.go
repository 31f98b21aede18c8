package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/noah-isme/sma-records/internal/models"
)

func TestFieldMapsRoundTrip(t *testing.T) {
	cases := map[string]struct {
		table  FieldMap
		legacy map[string]interface{}
	}{
		"year": {YearFieldMap, map[string]interface{}{
			"id": "2024-2025", "nom": "2024/2025", "debut": "2024-09-01", "fin": "2025-08-31", "closed": false,
		}},
		"student": {StudentFieldMap, map[string]interface{}{
			"id": "7", "firstName": "Awa", "lastName": "Diallo", "birthDate": "2012-02-03",
			"birthPlace": "Dakar", "gender": "femme", "studentNumber": "S-7",
		}},
		"enrollment": {EnrollmentFieldMap, map[string]interface{}{
			"studentId": "7", "yearId": "2024-2025", "classId": "3", "status": "active", "date": "2024-09-02",
		}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			internal := tc.table.ToInternal(tc.legacy)
			assert.Len(t, internal, len(tc.legacy))
			assert.Equal(t, tc.legacy, tc.table.ToLegacy(internal))
		})
	}
}

func TestFieldMapDropsUnknownKeys(t *testing.T) {
	internal := StudentFieldMap.ToInternal(map[string]interface{}{
		"firstName": "Awa",
		"classId":   "3",
		"contact":   "x",
	})
	assert.Equal(t, models.Fields{"first_name": "Awa"}, internal)

	legacy := StudentFieldMap.ToLegacy(models.Fields{"last_name": "Diallo", "created_at": "now"})
	assert.Equal(t, map[string]interface{}{"lastName": "Diallo"}, legacy)
}

func TestStudentConversionRoundTrip(t *testing.T) {
	in := LegacyStudent{ID: "7", FirstName: "Awa", LastName: "Diallo", Gender: "femme", BirthDate: "2012-02-03"}
	stored := StudentFromLegacy(in)
	assert.Nil(t, stored.BirthPlace)
	require.NotNil(t, stored.Gender)
	assert.Equal(t, "femme", *stored.Gender)
	assert.Equal(t, in, StudentToLegacy(stored))

	update := StudentUpdate(in)
	assert.Equal(t, "Awa", update["first_name"])
	assert.Nil(t, update["birth_place"])
	assert.NotContains(t, update, "id")
	for _, p := range StudentFieldMap[1:] {
		assert.Contains(t, update, p.Internal)
	}
}

func TestConvertersFollowFieldMaps(t *testing.T) {
	gender := "homme"
	stored := models.Student{ID: "9", FirstName: "Ali", LastName: "Sow", Gender: &gender, CreatedAt: "2024-10-01 08:00:00"}
	assert.Equal(t, LegacyStudent{ID: "9", FirstName: "Ali", LastName: "Sow", Gender: "homme"}, StudentToLegacy(stored))

	year := YearFromLegacy(LegacyYear{ID: "2023-2024", Nom: "2023/2024", Debut: "2023-09-01", Fin: "2024-08-31", Closed: true})
	assert.Equal(t, models.AcademicYear{ID: "2023-2024", Name: "2023/2024", StartDate: "2023-09-01", EndDate: "2024-08-31", Closed: true}, year)

	e := EnrollmentFromLegacy(LegacyEnrollment{StudentID: "9", YearID: "2023-2024", ClassID: "2", Status: "left"})
	assert.Equal(t, models.EnrollmentStatus("left"), e.Status)
	assert.Empty(t, e.EnrollmentDate)
}

func TestYearAndEnrollmentConversion(t *testing.T) {
	year := LegacyYear{ID: "2024-2025", Nom: "2024/2025", Debut: "2024-09-01", Fin: "2025-08-31"}
	assert.Equal(t, year, YearToLegacy(YearFromLegacy(year)))

	e := EnrollmentFromLegacy(LegacyEnrollment{StudentID: "7", YearID: "2024-2025", ClassID: "3", Status: "active", Date: "2024-09-02T08:15:00.000Z"})
	assert.Equal(t, "7-2024-2025", e.ID)
	assert.Equal(t, "2024-09-02", e.EnrollmentDate)
	assert.Equal(t, LegacyEnrollment{StudentID: "7", YearID: "2024-2025", ClassID: "3", Status: "active", Date: "2024-09-02"}, EnrollmentToLegacy(e))
}

func TestPickPrefersCanonicalKey(t *testing.T) {
	rec := gjson.Parse(`{"name":"6e A","nom":"Sixième A"}`)
	assert.Equal(t, "6e A", Pick(rec, "class.name").String())

	rec = gjson.Parse(`{"name":"","nom":"Sixième A"}`)
	assert.Equal(t, "Sixième A", Pick(rec, "class.name").String())

	assert.False(t, Pick(gjson.Parse(`{}`), "class.name").Exists())
}

func TestDecodeYearAliases(t *testing.T) {
	y := DecodeYear(gjson.Parse(`{"id":"2024-2025","nom":"2024/2025","debut":"2024-09-01","endDate":"2025-08-31"}`))
	assert.Equal(t, ImportYear{ID: "2024-2025", Name: "2024/2025", StartDate: "2024-09-01", EndDate: "2025-08-31"}, y)
}

func TestDecodeTeacherDefaults(t *testing.T) {
	tch := DecodeTeacher(gjson.Parse(`{"id":"4","prenom":"Ali","nom":"Sow","salary":"150000"}`))
	assert.Equal(t, "Ali", tch.FirstName)
	assert.Equal(t, "Sow", tch.LastName)
	assert.Equal(t, models.TeacherPaymentFixed, tch.PaymentType)
	assert.Equal(t, models.ContactPhone, tch.ContactType)
	assert.Zero(t, tch.YearsExperience)
	require.NotNil(t, tch.Salary)
	assert.Equal(t, 150000.0, *tch.Salary)
	assert.Nil(t, tch.HourlyRate)
}

func TestDecodeClassDefaultsCapacity(t *testing.T) {
	c := DecodeClass(gjson.Parse(`{"id":"3","nom":"CM2"}`), "2024-2025")
	assert.Equal(t, models.DefaultClassCapacity, c.Capacity)
	assert.Equal(t, "CM2", c.Name)
	assert.Equal(t, "2024-2025", c.YearID)
}

func TestDecodeEnrollmentDefaults(t *testing.T) {
	e := DecodeEnrollment(gjson.Parse(`{"studentId":"7","classId":"3"}`), "2024-2025", "2024-10-01")
	assert.Equal(t, "7-2024-2025", e.ID)
	assert.Equal(t, "active", e.Status)
	assert.Equal(t, "2024-10-01", e.EnrollmentDate)

	fromClass := EnrollmentFromStudentClass(ImportStudent{ID: "8", ClassID: "3"}, "2024-2025", "2024-10-01")
	assert.Equal(t, "8-2024-2025", fromClass.ID)
	assert.Equal(t, "3", fromClass.ClassID)
}

func TestDecodePaymentAliases(t *testing.T) {
	p := DecodePayment(gjson.Parse(`{"id":"9","studentId":"7","type":"mensualite","classeId":"3","mois":"2024-10","amount":25,"date":"2024-10-05T10:00:00Z"}`), "2024-2025", "2024-10-01")
	require.NotNil(t, p.ClassID)
	assert.Equal(t, "3", *p.ClassID)
	require.NotNil(t, p.Month)
	assert.Equal(t, "2024-10", *p.Month)
	assert.Equal(t, "2024-10-05", p.PaymentDate)
	assert.Nil(t, p.ItemID)
}

func TestDecodeItemAliases(t *testing.T) {
	item := DecodeItem(gjson.Parse(`{"id":"1","nom":"Cantine","montant":12.5}`), "2024-2025")
	assert.Equal(t, "Cantine", item.Name)
	assert.Equal(t, 12.5, item.Amount)
	assert.Equal(t, models.PeriodicityMonthly, item.Service().Periodicity)
	assert.Equal(t, "Cantine", item.ExtraFee().Name)
}

func TestImportValidation(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Struct(DecodeStudent(gjson.Parse(`{"id":"1","firstName":"A","lastName":"B","gender":"homme"}`))))
	assert.Error(t, v.Struct(DecodeStudent(gjson.Parse(`{"id":"1","firstName":"A","lastName":"B","gender":"x"}`))))
	assert.Error(t, v.Struct(DecodeStudent(gjson.Parse(`{"firstName":"A","lastName":"B"}`))))
	assert.Error(t, v.Struct(DecodePayment(gjson.Parse(`{"id":"1","studentId":"1","type":"don","amount":1}`), "2024-2025", "2024-10-01")))
	assert.Error(t, v.Struct(DecodeTeacher(gjson.Parse(`{"id":"1","firstName":"A","lastName":"B","contactType":"fax"}`))))
}
