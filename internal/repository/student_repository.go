package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/alumnos-crm-api/internal/models"
)

const studentColumns = "id, email, full_name, phone, country, city, external_contact_id, status, last_interaction_at, created_at, updated_at"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"full_name":           "full_name",
		"email":               "email",
		"status":              "status",
		"last_interaction_at": "last_interaction_at",
		"created_at":          "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM students %s ORDER BY %s %s NULLS LAST, id LIMIT %d OFFSET %d", studentColumns, where, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail fetches a student by email, compared case-insensitively.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE email = LOWER($1)", email); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListByStatus returns every student whose status is in statuses, oldest first.
func (r *StudentRepository) ListByStatus(ctx context.Context, statuses []models.StudentStatus) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE status = ANY($1) ORDER BY id"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, pq.Array(statusStrings(statuses))); err != nil {
		return nil, fmt.Errorf("list students by status: %w", err)
	}
	return students, nil
}

// Create inserts a new student record and fills its generated ID.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	student.Email = strings.ToLower(strings.TrimSpace(student.Email))
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}

	const query = `INSERT INTO students (email, full_name, phone, country, city, external_contact_id, status, last_interaction_at, created_at, updated_at)
        VALUES (:email, :full_name, :phone, :country, :city, :external_contact_id, :status, :last_interaction_at, :created_at, :updated_at)
        RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&student.ID); err != nil {
			return fmt.Errorf("scan student id: %w", err)
		}
	}
	return rows.Err()
}

// Update modifies the editable fields of an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	student.Email = strings.ToLower(strings.TrimSpace(student.Email))
	const query = `UPDATE students SET email = :email, full_name = :full_name, phone = :phone, country = :country, city = :city,
        external_contact_id = :external_contact_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateStatus writes a new status.
func (r *StudentRepository) UpdateStatus(ctx context.Context, id int64, status models.StudentStatus) error {
	const query = `UPDATE students SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}

// TouchLastInteraction records the time of the student's latest submission.
func (r *StudentRepository) TouchLastInteraction(ctx context.Context, id int64, at time.Time) error {
	const query = `UPDATE students SET last_interaction_at = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("touch student interaction: %w", err)
	}
	return nil
}

// UpsertByEmail inserts the student or refreshes the contact fields of the
// row with the same email. An existing status is only replaced when the
// incoming status is inactive. It reports whether a new row was inserted.
func (r *StudentRepository) UpsertByEmail(ctx context.Context, student *models.Student) (bool, error) {
	now := time.Now().UTC()
	student.Email = strings.ToLower(strings.TrimSpace(student.Email))
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	const query = `INSERT INTO students (email, full_name, phone, country, city, external_contact_id, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
        ON CONFLICT (email) DO UPDATE SET
            full_name = EXCLUDED.full_name,
            phone = EXCLUDED.phone,
            country = EXCLUDED.country,
            city = EXCLUDED.city,
            external_contact_id = EXCLUDED.external_contact_id,
            status = CASE WHEN EXCLUDED.status = 'inactive' THEN 'inactive' ELSE students.status END,
            updated_at = EXCLUDED.updated_at
        RETURNING id, status, created_at, (xmax = 0) AS inserted`
	var row struct {
		ID        int64                `db:"id"`
		Status    models.StudentStatus `db:"status"`
		CreatedAt time.Time            `db:"created_at"`
		Inserted  bool                 `db:"inserted"`
	}
	err := r.db.GetContext(ctx, &row, query,
		student.Email, student.FullName, student.Phone, student.Country, student.City,
		student.ExternalContactID, student.Status, now)
	if err != nil {
		return false, fmt.Errorf("upsert student: %w", err)
	}
	student.ID = row.ID
	student.Status = row.Status
	student.CreatedAt = row.CreatedAt
	student.UpdatedAt = now
	return row.Inserted, nil
}

// Delete removes a student; links and reports cascade.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// ListAll returns every student for audit views.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, "SELECT "+studentColumns+" FROM students ORDER BY full_name"); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

func statusStrings(statuses []models.StudentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
