package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const guardianColumns = `id, first_name, last_name, phone, email, relationship, address, created_at`

var guardianMutable = columns("first_name", "last_name", "phone", "email", "relationship", "address")

// GuardianRepository stores guardians and their links to students.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs a GuardianRepository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

func (r *GuardianRepository) Create(ctx context.Context, guardian *models.Guardian) (*models.Guardian, error) {
	const query = `INSERT INTO guardians (id, first_name, last_name, phone, email, relationship, address)
        VALUES (:id, :first_name, :last_name, :phone, :email, :relationship, :address)`
	if err := insertNamed(ctx, r.db, "guardian", query, guardian); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, guardian.ID)
}

func (r *GuardianRepository) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	return getOne[models.Guardian](ctx, r.db, "guardian", `SELECT `+guardianColumns+` FROM guardians WHERE id = ?`, id)
}

func (r *GuardianRepository) List(ctx context.Context) ([]models.Guardian, error) {
	return selectAll[models.Guardian](ctx, r.db, "guardians",
		`SELECT `+guardianColumns+` FROM guardians ORDER BY last_name, first_name`)
}

func (r *GuardianRepository) Update(ctx context.Context, id string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "guardians", guardianMutable, fields, "id = ?", id)
}

func (r *GuardianRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByKey(ctx, r.db, "guardians", "id = ?", id)
}

// Link attaches a guardian to a student, updating the primary flag when the
// link already exists.
func (r *GuardianRepository) Link(ctx context.Context, link models.StudentGuardian) error {
	const query = `INSERT INTO student_guardians (student_id, guardian_id, is_primary)
        VALUES (:student_id, :guardian_id, :is_primary)
        ON CONFLICT (student_id, guardian_id) DO UPDATE SET is_primary = excluded.is_primary`
	return insertNamed(ctx, r.db, "student guardian", query, link)
}

func (r *GuardianRepository) Unlink(ctx context.Context, studentID, guardianID string) (int64, error) {
	return deleteByKey(ctx, r.db, "student_guardians", "student_id = ? AND guardian_id = ?", studentID, guardianID)
}

// ListForStudent returns a student's guardians, primary first.
func (r *GuardianRepository) ListForStudent(ctx context.Context, studentID string) ([]models.StudentGuardianDetail, error) {
	const query = `SELECT g.id, g.first_name, g.last_name, g.phone, g.email, g.relationship, g.address, g.created_at, sg.is_primary
        FROM guardians g
        JOIN student_guardians sg ON sg.guardian_id = g.id
        WHERE sg.student_id = ?
        ORDER BY sg.is_primary DESC, g.last_name, g.first_name`
	return selectAll[models.StudentGuardianDetail](ctx, r.db, "student guardians", query, studentID)
}
