package models

// DefaultClassCapacity applies when a class is created without a capacity.
const DefaultClassCapacity = 30

// Class is a group of students within one academic year.
type Class struct {
	ID            string  `db:"id" json:"id"`
	YearID        string  `db:"year_id" json:"year_id"`
	Name          string  `db:"name" json:"name"`
	Level         *string `db:"level" json:"level,omitempty"`
	Description   *string `db:"description" json:"description,omitempty"`
	Capacity      int     `db:"capacity" json:"capacity"`
	MainTeacherID *string `db:"main_teacher_id" json:"main_teacher_id,omitempty"`
	CreatedAt     string  `db:"created_at" json:"created_at"`
}

// ClassWithCount augments a class with its active enrollment count.
type ClassWithCount struct {
	Class
	StudentCount int `db:"student_count" json:"student_count"`
}
