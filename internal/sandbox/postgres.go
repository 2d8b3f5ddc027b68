package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"permisconnect/internal/models"
)

// PostgresStore persists the sandbox in PostgreSQL (see migrations/).
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *Account) error {
	var aeID *int64
	if a.AutoEcole != nil {
		aeID = nullableID(a.AutoEcole.ID)
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO clients (nom,prenom,email,telephone,adresse,date_naissance,numero_permis,type_permis,auto_ecole_id,password_hash,role)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		a.Nom, a.Prenom, a.Email, a.Telephone, a.Adresse, a.DateNaissance, a.NumeroPermis, a.TypePermis,
		aeID, a.PasswordHash, a.Role).Scan(&a.ID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

const accountColumns = `c.id,c.nom,c.prenom,c.email,c.telephone,c.adresse,c.date_naissance,c.numero_permis,
	c.type_permis,c.password_hash,c.role,a.id,a.nom`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var aeID *int64
	var aeNom *string
	err := row.Scan(&a.ID, &a.Nom, &a.Prenom, &a.Email, &a.Telephone, &a.Adresse, &a.DateNaissance,
		&a.NumeroPermis, &a.TypePermis, &a.PasswordHash, &a.Role, &aeID, &aeNom)
	if err != nil {
		return nil, notFound(err)
	}
	if aeID != nil {
		a.AutoEcole = &models.AutoEcoleRef{ID: *aeID}
		if aeNom != nil {
			a.AutoEcole.Nom = *aeNom
		}
	}
	return &a, nil
}

func (s *PostgresStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM clients c LEFT JOIN auto_ecoles a ON a.id=c.auto_ecole_id
		 WHERE lower(c.email)=lower($1)`, email))
}

func (s *PostgresStore) Account(ctx context.Context, id int64) (*Account, error) {
	return scanAccount(s.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM clients c LEFT JOIN auto_ecoles a ON a.id=c.auto_ecole_id
		 WHERE c.id=$1`, id))
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, p models.Profile) error {
	var aeID *int64
	if p.AutoEcole != nil {
		aeID = nullableID(p.AutoEcole.ID)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE clients SET nom=$1, prenom=$2, email=$3, telephone=$4, adresse=$5, auto_ecole_id=$6
		 WHERE id=$7`,
		p.Nom, p.Prenom, p.Email, p.Telephone, p.Adresse, aeID, p.ID)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const autoEcoleColumns = `id,nom,adresse,telephone,email,siret,code_postal,ville,site_web,description,horaires`

func scanAutoEcole(row pgx.Row) (models.AutoEcole, error) {
	var ae models.AutoEcole
	err := row.Scan(&ae.ID, &ae.Nom, &ae.Adresse, &ae.Telephone, &ae.Email, &ae.Siret,
		&ae.CodePostal, &ae.Ville, &ae.SiteWeb, &ae.Description, &ae.Horaires)
	return ae, err
}

func (s *PostgresStore) AutoEcoles(ctx context.Context) ([]models.AutoEcole, error) {
	rows, err := s.db.Query(ctx, `SELECT `+autoEcoleColumns+` FROM auto_ecoles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.AutoEcole{}
	for rows.Next() {
		ae, err := scanAutoEcole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ae)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AutoEcole(ctx context.Context, id int64) (*models.AutoEcole, error) {
	ae, err := scanAutoEcole(s.db.QueryRow(ctx, `SELECT `+autoEcoleColumns+` FROM auto_ecoles WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &ae, nil
}

const moniteurColumns = `id,nom,prenom,email,telephone,auto_ecole_id`

func (s *PostgresStore) Moniteurs(ctx context.Context, autoEcoleID int64) ([]models.Moniteur, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+moniteurColumns+` FROM moniteurs WHERE auto_ecole_id=$1 ORDER BY id`, autoEcoleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Moniteur{}
	for rows.Next() {
		var m models.Moniteur
		if err := rows.Scan(&m.ID, &m.Nom, &m.Prenom, &m.Email, &m.Telephone, &m.AutoEcoleID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Moniteur(ctx context.Context, id int64) (*models.Moniteur, error) {
	var m models.Moniteur
	err := s.db.QueryRow(ctx, `SELECT `+moniteurColumns+` FROM moniteurs WHERE id=$1`, id).
		Scan(&m.ID, &m.Nom, &m.Prenom, &m.Email, &m.Telephone, &m.AutoEcoleID)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

const slotColumns = `id,moniteur_id,start_time,end_time,status,COALESCE(client_id,0)`

func scanSlot(row pgx.Row) (TimeSlot, error) {
	var t TimeSlot
	err := row.Scan(&t.ID, &t.MoniteurID, &t.Start, &t.End, &t.Status, &t.ClientID)
	return t, err
}

func (s *PostgresStore) TimeSlots(ctx context.Context, moniteurID int64) ([]TimeSlot, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+slotColumns+` FROM time_slots WHERE moniteur_id=$1 ORDER BY start_time`, moniteurID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []TimeSlot{}
	for rows.Next() {
		t, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TimeSlot(ctx context.Context, id int64) (*TimeSlot, error) {
	t, err := scanSlot(s.db.QueryRow(ctx, `SELECT `+slotColumns+` FROM time_slots WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// Transition runs the guarded update and the reservation change in one
// transaction. Zero rows updated means the slot moved meanwhile.
func (s *PostgresStore) Transition(ctx context.Context, slotID int64, from, to models.SlotStatus, clientID int64) (*TimeSlot, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	holder := nullableID(clientID)
	if to != models.SlotBooked {
		holder = nil
	}
	t, err := scanSlot(tx.QueryRow(ctx,
		`UPDATE time_slots SET status=$1, client_id=$2
		 WHERE id=$3 AND status=$4
		 RETURNING `+slotColumns,
		to, holder, slotID, from))
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM time_slots WHERE id=$1)`, slotID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("update slot %d: %w", slotID, err)
	}

	if to == models.SlotBooked {
		_, err = tx.Exec(ctx, `INSERT INTO reservations (client_id, time_slot_id) VALUES ($1,$2)`, clientID, slotID)
	} else {
		_, err = tx.Exec(ctx, `DELETE FROM reservations WHERE time_slot_id=$1`, slotID)
	}
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("reservation for slot %d: %w", slotID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) Reservations(ctx context.Context, clientID int64) ([]models.Reservation, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id,client_id,time_slot_id FROM reservations WHERE client_id=$1 ORDER BY id`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Reservation{}
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.ClientID, &r.TimeSlotID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const courseColumns = `id,titre,description,cloudinary_url,course_type,file_type,prix::float8,est_gratuit,COALESCE(auto_ecole_id,0)`

func scanCourse(row pgx.Row) (models.Course, error) {
	var c models.Course
	err := row.Scan(&c.ID, &c.Titre, &c.Description, &c.CloudinaryURL, &c.CourseType, &c.FileType,
		&c.Prix, &c.EstGratuit, &c.AutoEcoleID)
	return c, err
}

func (s *PostgresStore) Courses(ctx context.Context, kind models.CourseType, autoEcoleID int64) ([]models.Course, error) {
	q := `SELECT ` + courseColumns + ` FROM courses WHERE course_type=$1`
	args := []any{kind}
	if kind == models.CoursePrivate {
		q += ` AND auto_ecole_id=$2`
		args = append(args, autoEcoleID)
	}
	rows, err := s.db.Query(ctx, q+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Course(ctx context.Context, id int64) (*models.Course, error) {
	c, err := scanCourse(s.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
