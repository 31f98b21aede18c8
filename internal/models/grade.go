package models

// GradeItem is an assessment within a class, subject and term.
type GradeItem struct {
	ID        string  `db:"id" json:"id"`
	YearID    string  `db:"year_id" json:"year_id"`
	SubjectID string  `db:"subject_id" json:"subject_id"`
	ClassID   string  `db:"class_id" json:"class_id"`
	Name      string  `db:"name" json:"name"`
	MaxPoints float64 `db:"max_points" json:"max_points"`
	Weight    float64 `db:"weight" json:"weight"`
	Term      string  `db:"term" json:"term"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// Grade is a student's score on a grade item. A nil score means not graded.
type Grade struct {
	ID          string   `db:"id" json:"id"`
	YearID      string   `db:"year_id" json:"year_id"`
	GradeItemID string   `db:"grade_item_id" json:"grade_item_id"`
	StudentID   string   `db:"student_id" json:"student_id"`
	Score       *float64 `db:"score" json:"score,omitempty"`
	Date        string   `db:"date" json:"date"`
	CreatedAt   string   `db:"created_at" json:"created_at"`
}

// ClassGrade is a grade joined with its item, subject and student names.
type ClassGrade struct {
	Grade
	GradeItemName string  `db:"grade_item_name" json:"grade_item_name"`
	MaxPoints     float64 `db:"max_points" json:"max_points"`
	Weight        float64 `db:"weight" json:"weight"`
	SubjectName   string  `db:"subject_name" json:"subject_name"`
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
}

// StudentAverage is one row of the student_grades_summary view.
type StudentAverage struct {
	StudentID       string  `db:"student_id" json:"student_id"`
	YearID          string  `db:"year_id" json:"year_id"`
	ClassID         string  `db:"class_id" json:"class_id"`
	SubjectID       string  `db:"subject_id" json:"subject_id"`
	Term            string  `db:"term" json:"term"`
	WeightedAverage float64 `db:"weighted_average" json:"weighted_average"`
	GradeCount      int     `db:"grade_count" json:"grade_count"`
}
