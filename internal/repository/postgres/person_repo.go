package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"attendanceingest/internal/domain"
)

type personRepository struct {
	DB DBTX
}

// NewPersonRepository returns a domain.PersonRepository implemented with Postgres.
func NewPersonRepository(db DBTX) domain.PersonRepository {
	return &personRepository{DB: db}
}

func (r *personRepository) Create(ctx context.Context, p *domain.Person) error {
	query := `
		INSERT INTO people (first_name, last_name, gender, class_year, school, preferred_name, referral_count, event_attendance_count)
		VALUES ($1, $2, $3, $4, $5, NULL, 0, 0)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		p.FirstName, p.LastName, nullIfEmpty(string(p.Gender)), p.ClassYear, nullIfEmpty(string(p.School)),
	).Scan(&p.ID)
}

func (r *personRepository) GetByID(ctx context.Context, id int64) (*domain.Person, error) {
	query := `
		SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''), preferred_name, gender, school, class_year,
			school_email, personal_email, phone_number,
			COALESCE(referral_count, 0), COALESCE(event_attendance_count, 0)
		FROM people
		WHERE id = $1
	`
	p := &domain.Person{}
	var preferredNull, genderNull, schoolNull, schoolEmailNull, personalEmailNull, phoneNull sql.NullString
	var classYearNull sql.NullInt64
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &preferredNull, &genderNull, &schoolNull, &classYearNull,
		&schoolEmailNull, &personalEmailNull, &phoneNull,
		&p.ReferralCount, &p.EventAttendanceCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p.PreferredName = stringPtr(preferredNull)
	p.Gender = domain.Gender(genderNull.String)
	p.School = domain.School(schoolNull.String)
	if classYearNull.Valid {
		y := int(classYearNull.Int64)
		p.ClassYear = &y
	}
	p.SchoolEmail = stringPtr(schoolEmailNull)
	p.PersonalEmail = stringPtr(personalEmailNull)
	p.PhoneNumber = stringPtr(phoneNull)
	return p, nil
}

func (r *personRepository) FindIDByEmail(ctx context.Context, email string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	query := `
		SELECT id FROM people
		WHERE LOWER(school_email) = $1 OR LOWER(personal_email) = $1
		ORDER BY id
		LIMIT 1
	`
	return r.scanID(ctx, query, email)
}

func (r *personRepository) FindIDByPhone(ctx context.Context, phone string) (int64, error) {
	query := `
		SELECT id FROM people
		WHERE phone_number = $1
		ORDER BY id
		LIMIT 1
	`
	return r.scanID(ctx, query, strings.TrimSpace(phone))
}

func (r *personRepository) scanID(ctx context.Context, query string, arg any) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, query, arg).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (r *personRepository) FindByExactName(ctx context.Context, firstName, lastName string) ([]domain.PersonName, error) {
	query := `
		SELECT id, first_name, last_name FROM people
		WHERE LOWER(first_name) = LOWER($1) AND LOWER(last_name) = LOWER($2)
		ORDER BY id
	`
	var out []domain.PersonName
	if err := sqlx.SelectContext(ctx, r.DB, &out, query, firstName, lastName); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personRepository) ListNames(ctx context.Context) ([]domain.PersonName, error) {
	query := `
		SELECT id, COALESCE(first_name, '') AS first_name, COALESCE(last_name, '') AS last_name
		FROM people
		ORDER BY id
	`
	var out []domain.PersonName
	if err := sqlx.SelectContext(ctx, r.DB, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *personRepository) FillContact(ctx context.Context, id int64, u domain.ContactUpdate) error {
	setClauses := []string{}
	args := []any{}
	n := 1
	if u.SchoolEmail != nil {
		setClauses = append(setClauses, fmt.Sprintf("school_email = COALESCE(school_email, $%d)", n))
		args = append(args, *u.SchoolEmail)
		n++
	}
	if u.PersonalEmail != nil {
		setClauses = append(setClauses, fmt.Sprintf("personal_email = COALESCE(personal_email, $%d)", n))
		args = append(args, *u.PersonalEmail)
		n++
	}
	if u.PhoneNumber != nil {
		setClauses = append(setClauses, fmt.Sprintf("phone_number = COALESCE(phone_number, $%d)", n))
		args = append(args, *u.PhoneNumber)
		n++
	}
	if n == 1 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE people SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), n)
	return r.execOne(ctx, query, args...)
}

func (r *personRepository) UpdateNames(ctx context.Context, id int64, u domain.NameUpdate) error {
	setClauses := []string{}
	args := []any{}
	n := 1
	if u.FirstName != nil {
		setClauses = append(setClauses, fmt.Sprintf("first_name = $%d", n))
		args = append(args, *u.FirstName)
		n++
	}
	if u.LastName != nil {
		setClauses = append(setClauses, fmt.Sprintf("last_name = $%d", n))
		args = append(args, *u.LastName)
		n++
	}
	if n == 1 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE people SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), n)
	return r.execOne(ctx, query, args...)
}

func (r *personRepository) IncrementReferralCount(ctx context.Context, id int64) error {
	return r.execOne(ctx, `UPDATE people SET referral_count = COALESCE(referral_count, 0) + 1 WHERE id = $1`, id)
}

func (r *personRepository) RecountAttendance(ctx context.Context, eventID int64) (int, error) {
	query := `
		UPDATE people
		SET event_attendance_count = (
			SELECT COUNT(*)
			FROM attendance
			WHERE attendance.person_id = people.id
			  AND attendance.checked_in = TRUE
		)
		WHERE id IN (
			SELECT DISTINCT person_id
			FROM attendance
			WHERE event_id = $1
		)
	`
	result, err := r.DB.ExecContext(ctx, query, eventID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *personRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
