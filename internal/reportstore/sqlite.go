package reportstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang/geo/s2"
	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-lostfound/internal/models"
)

const earthRadiusMeters = 6371000

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS stray_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL DEFAULT '',
			lat REAL,
			lng REAL,
			address TEXT NOT NULL DEFAULT '',
			report_time TEXT NOT NULL,
			photo_path TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS lost_announcements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			breed TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			lost_time TEXT NOT NULL,
			lat REAL,
			lng REAL,
			address TEXT NOT NULL DEFAULT '',
			contact TEXT NOT NULL DEFAULT '',
			photo_path TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending'
		);

		CREATE INDEX IF NOT EXISTS idx_stray_reports_report_time ON stray_reports(report_time);
		CREATE INDEX IF NOT EXISTS idx_lost_announcements_lost_time ON lost_announcements(lost_time);
		CREATE INDEX IF NOT EXISTS idx_lost_announcements_status ON lost_announcements(status);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) AddStray(ctx context.Context, r *models.RawStrayReport) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stray_reports (description, lat, lng, address, report_time, photo_path)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Description, nullFloat(r.Lat), nullFloat(r.Lng), r.Address, r.ReportTime, r.PhotoPath,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stray report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read stray report id: %w", err)
	}
	r.ID = models.RecordID(strconv.FormatInt(id, 10))
	return nil
}

// ListStray returns reports newest first.
func (s *SQLiteDB) ListStray(ctx context.Context, opts Filter) ([]models.RawStrayReport, error) {
	query := `SELECT id, description, lat, lng, address, report_time, photo_path FROM stray_reports`
	var args []any
	if opts.Since != nil {
		query += ` WHERE report_time >= ?`
		args = append(args, FormatTime(*opts.Since))
	}
	query += ` ORDER BY report_time DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stray reports: %w", err)
	}
	defer rows.Close()

	reports := []models.RawStrayReport{}
	for rows.Next() {
		var (
			r        models.RawStrayReport
			id       int64
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&id, &r.Description, &lat, &lng, &r.Address, &r.ReportTime, &r.PhotoPath); err != nil {
			return nil, fmt.Errorf("failed to scan stray report: %w", err)
		}
		r.ID = models.RecordID(strconv.FormatInt(id, 10))
		r.Lat, r.Lng = floatPtr(lat), floatPtr(lng)
		if !opts.Near.contains(r.Lat, r.Lng) {
			continue
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stray reports: %w", err)
	}
	return reports, nil
}

func (s *SQLiteDB) AddLost(ctx context.Context, a *models.RawLostAnnouncement) error {
	if a.Status == "" {
		a.Status = models.LostStatusPending
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO lost_announcements (breed, description, lost_time, lat, lng, address, contact, photo_path, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Breed, a.Description, a.LostTime, nullFloat(a.Lat), nullFloat(a.Lng), a.Address, a.Contact, a.PhotoPath, a.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lost announcement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read lost announcement id: %w", err)
	}
	a.ID = models.RecordID(strconv.FormatInt(id, 10))
	return nil
}

const lostColumns = `id, breed, description, lost_time, lat, lng, address, contact, photo_path, status`

// ListLost returns announcements newest first.
func (s *SQLiteDB) ListLost(ctx context.Context, opts Filter) ([]models.RawLostAnnouncement, error) {
	query := `SELECT ` + lostColumns + ` FROM lost_announcements WHERE 1=1`
	var args []any
	if opts.ExcludeFound {
		query += ` AND status != ?`
		args = append(args, models.LostStatusFound)
	}
	if opts.Since != nil {
		query += ` AND lost_time >= ?`
		args = append(args, FormatTime(*opts.Since))
	}
	query += ` ORDER BY lost_time DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lost announcements: %w", err)
	}
	defer rows.Close()

	out := []models.RawLostAnnouncement{}
	for rows.Next() {
		a, err := scanLost(rows)
		if err != nil {
			return nil, err
		}
		if !opts.Near.contains(a.Lat, a.Lng) {
			continue
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lost announcements: %w", err)
	}
	return out, nil
}

func (s *SQLiteDB) SetLostStatus(ctx context.Context, id, status string) (*models.RawLostAnnouncement, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `UPDATE lost_announcements SET status = ? WHERE id = ?`, status, n)
	if err != nil {
		return nil, fmt.Errorf("failed to update lost announcement %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+lostColumns+` FROM lost_announcements WHERE id = ?`, n)
	a, err := scanLost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLost(row scanner) (models.RawLostAnnouncement, error) {
	var (
		a        models.RawLostAnnouncement
		id       int64
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&id, &a.Breed, &a.Description, &a.LostTime, &lat, &lng, &a.Address, &a.Contact, &a.PhotoPath, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return a, err
	}
	if err != nil {
		return a, fmt.Errorf("failed to scan lost announcement: %w", err)
	}
	a.ID = models.RecordID(strconv.FormatInt(id, 10))
	a.Lat, a.Lng = floatPtr(lat), floatPtr(lng)
	return a, nil
}

// contains reports whether the point lies within the circle by great-circle
// distance. A nil circle contains everything; a missing point nothing.
func (c *Circle) contains(lat, lng *float64) bool {
	if c == nil || c.RadiusMeters <= 0 {
		return true
	}
	if lat == nil || lng == nil {
		return false
	}
	return DistanceMeters(c.Lat, c.Lng, *lat, *lng) <= c.RadiusMeters
}

func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return a.Distance(b).Radians() * earthRadiusMeters
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
