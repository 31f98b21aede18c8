package models

// AcademicYear is the partition key for every year-scoped record.
type AcademicYear struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	StartDate string `db:"start_date" json:"start_date"`
	EndDate   string `db:"end_date" json:"end_date"`
	Closed    bool   `db:"closed" json:"closed"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
