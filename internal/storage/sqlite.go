package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/folio/internal/profile"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding the seeded profile record.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "folio.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Profile ---

// SaveProfile replaces the stored profile with p in a single transaction.
// Sequence order is preserved through each row's position.
func (s *Store) SaveProfile(ctx context.Context, p profile.Profile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"profile", "profile_skills", "profile_collaborations", "profile_products", "profile_testimonials"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profile (id, name, current_role, current_company, location, about, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.CurrentRole, p.CurrentCompany, p.Location, p.About,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}

	for i, skill := range p.Skills {
		if _, err := tx.ExecContext(ctx, `INSERT INTO profile_skills (position, skill) VALUES (?, ?)`, i, skill); err != nil {
			return fmt.Errorf("inserting skill %d: %w", i, err)
		}
	}
	for i, c := range p.Collaborations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO profile_collaborations (position, collaborator) VALUES (?, ?)`, i, c); err != nil {
			return fmt.Errorf("inserting collaboration %d: %w", i, err)
		}
	}
	for i, pr := range p.Products {
		if _, err := tx.ExecContext(ctx, `INSERT INTO profile_products (position, name, description) VALUES (?, ?, ?)`, i, pr.Name, pr.Description); err != nil {
			return fmt.Errorf("inserting product %d: %w", i, err)
		}
	}
	for i, t := range p.Testimonials {
		if _, err := tx.ExecContext(ctx, `INSERT INTO profile_testimonials (position, author, review) VALUES (?, ?, ?)`, i, t.Name, t.Review); err != nil {
			return fmt.Errorf("inserting testimonial %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing profile: %w", err)
	}
	return nil
}

// LoadProfile returns the stored profile, or ErrNotFound when none has been saved.
func (s *Store) LoadProfile(ctx context.Context) (profile.Profile, error) {
	var p profile.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT name, current_role, current_company, location, about
		FROM profile WHERE id = 1`,
	).Scan(&p.Name, &p.CurrentRole, &p.CurrentCompany, &p.Location, &p.About)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("reading profile: %w", err)
	}

	if p.Skills, err = s.loadStrings(ctx, `SELECT skill FROM profile_skills ORDER BY position ASC`); err != nil {
		return profile.Profile{}, fmt.Errorf("reading skills: %w", err)
	}
	if p.Collaborations, err = s.loadStrings(ctx, `SELECT collaborator FROM profile_collaborations ORDER BY position ASC`); err != nil {
		return profile.Profile{}, fmt.Errorf("reading collaborations: %w", err)
	}
	if p.Products, err = s.loadProducts(ctx); err != nil {
		return profile.Profile{}, fmt.Errorf("reading products: %w", err)
	}
	if p.Testimonials, err = s.loadTestimonials(ctx); err != nil {
		return profile.Profile{}, fmt.Errorf("reading testimonials: %w", err)
	}
	return p, nil
}

func (s *Store) loadStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) loadProducts(ctx context.Context) ([]profile.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, description FROM profile_products ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []profile.Product{}
	for rows.Next() {
		var pr profile.Product
		if err := rows.Scan(&pr.Name, &pr.Description); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (s *Store) loadTestimonials(ctx context.Context) ([]profile.Testimonial, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT author, review FROM profile_testimonials ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []profile.Testimonial{}
	for rows.Next() {
		var t profile.Testimonial
		if err := rows.Scan(&t.Name, &t.Review); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
