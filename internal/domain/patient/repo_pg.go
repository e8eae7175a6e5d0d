package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const patientCols = `id, name, age, sex, mobile, full_name, date_of_birth, gender,
	email, emergency_contact, address, height_cm, weight_kg, blood_type,
	waist_cm, hip_cm, dominant_hand, skin_tone, hair_color, eye_color,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient (id, name, age, sex, mobile)
		VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Name, p.Age, p.Sex, p.Mobile,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Patient, error) {
	return scanPatient(r.pool.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE LOWER(name) = LOWER($1)`, name))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+patientCols+` FROM patient ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM patient ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient SET
			name=$2, age=$3, sex=$4, mobile=$5, full_name=$6, date_of_birth=$7,
			gender=$8, email=$9, emergency_contact=$10, address=$11, height_cm=$12,
			weight_kg=$13, blood_type=$14, waist_cm=$15, hip_cm=$16,
			dominant_hand=$17, skin_tone=$18, hair_color=$19, eye_color=$20,
			updated_at=NOW()
		WHERE id=$1`,
		p.ID, p.Name, p.Age, p.Sex, p.Mobile, nullStr(p.FullName), p.DateOfBirth,
		nullStr(p.Gender), nullStr(p.Email), nullStr(p.EmergencyContact),
		nullStr(p.Address), p.HeightCM, p.WeightKG, nullStr(p.BloodType),
		p.WaistCM, p.HipCM, nullStr(p.DominantHand), nullStr(p.SkinTone),
		nullStr(p.HairColor), nullStr(p.EyeColor),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var fullName, gender, email, emergency, address *string
	var bloodType, hand, skin, hair, eye *string
	err := row.Scan(
		&p.ID, &p.Name, &p.Age, &p.Sex, &p.Mobile, &fullName, &p.DateOfBirth,
		&gender, &email, &emergency, &address, &p.HeightCM, &p.WeightKG,
		&bloodType, &p.WaistCM, &p.HipCM, &hand, &skin, &hair, &eye,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.FullName = deref(fullName)
	p.Gender = deref(gender)
	p.Email = deref(email)
	p.EmergencyContact = deref(emergency)
	p.Address = deref(address)
	p.BloodType = deref(bloodType)
	p.DominantHand = deref(hand)
	p.SkinTone = deref(skin)
	p.HairColor = deref(hair)
	p.EyeColor = deref(eye)
	return &p, nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
