package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRecordNotFound is returned when no record has the requested id.
var ErrRecordNotFound = errors.New("attendance record not found")

// DBTX is the subset of pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists attendance records in Postgres.
type Repository struct {
	db DBTX
}

// NewRepository creates a repo.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, captured_at, driver_rut, driver_name, driver_role, present_crew, absent_crew, plate,
	aux_present, aux_rut, aux_first_name, aux_second_name, aux_first_surname, aux_second_surname, status, created_at`

// Save writes a confirmed record and returns it with id, status and created_at set.
func (r *Repository) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	var (
		aux       AuxiliaryWorker
		createdAt time.Time
	)
	if rec.Auxiliary != nil {
		aux = *rec.Auxiliary
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO attendance_records (id, captured_at, driver_rut, driver_name, driver_role, present_crew, absent_crew, plate,
			aux_present, aux_rut, aux_first_name, aux_second_name, aux_first_surname, aux_second_surname, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING created_at
	`, rec.ID, rec.Timestamp, rec.Driver.RUT, rec.Driver.Name, rec.Driver.Role,
		joinNames(rec.PresentCrew), joinNames(rec.AbsentCrew), rec.Plate,
		rec.Auxiliary != nil, aux.RUT, aux.FirstName, aux.SecondName, aux.FirstSurname, aux.SecondSurname,
		rec.Status,
	).Scan(&createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert attendance record: %w", err)
	}
	rec.CreatedAt = &createdAt
	return rec, nil
}

// GetRecord returns a single record by id.
func (r *Repository) GetRecord(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return rec, nil
}

// UpdateStatus moves a record to status.
func (r *Repository) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE attendance_records SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update attendance record status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Filter narrows ListRecords. Zero values mean no constraint.
type Filter struct {
	DriverRUT string
	Plate     string
	Status    string
	Limit     int
	Offset    int
}

// ListRecords returns records newest first.
func (r *Repository) ListRecords(ctx context.Context, f Filter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var q strings.Builder
	q.WriteString(`SELECT ` + recordColumns + ` FROM attendance_records`)
	var args []any
	var clauses []string
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.DriverRUT != "" {
		add("driver_rut = $%d", f.DriverRUT)
	}
	if f.Plate != "" {
		add("plate = $%d", strings.ToUpper(strings.TrimSpace(f.Plate)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if len(clauses) > 0 {
		q.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	fmt.Fprintf(&q, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	res := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec             Record
		present, absent string
		hasAux          bool
		aux             AuxiliaryWorker
		createdAt       time.Time
	)
	err := row.Scan(&rec.ID, &rec.Timestamp, &rec.Driver.RUT, &rec.Driver.Name, &rec.Driver.Role,
		&present, &absent, &rec.Plate,
		&hasAux, &aux.RUT, &aux.FirstName, &aux.SecondName, &aux.FirstSurname, &aux.SecondSurname,
		&rec.Status, &createdAt)
	if err != nil {
		return Record{}, err
	}
	rec.PresentCrew = splitNames(present)
	rec.AbsentCrew = splitNames(absent)
	rec.CreatedAt = &createdAt
	if hasAux {
		rec.Auxiliary = &aux
	}
	return rec, nil
}

// Crew lists are stored one name per line.
func joinNames(names []string) string { return strings.Join(names, "\n") }

func splitNames(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
