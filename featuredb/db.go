package featuredb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	// ErrFeatureNotFound is returned by Get when no feature has the ID.
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrNoDatabase is returned by Open when the database file is missing.
	ErrNoDatabase = errors.New("feature database does not exist")

	// ErrNoGenes is returned by Build when the GFF3 file holds no gene
	// records with an ID.
	ErrNoGenes = errors.New("no gene records found")
)

const schema = `
CREATE TABLE features (
	id TEXT PRIMARY KEY,
	seqid TEXT NOT NULL,
	source TEXT NOT NULL,
	featuretype TEXT NOT NULL,
	start_pos INTEGER NOT NULL,
	end_pos INTEGER NOT NULL,
	score TEXT NOT NULL,
	strand TEXT NOT NULL,
	phase TEXT NOT NULL,
	attributes TEXT NOT NULL,
	file_order INTEGER NOT NULL
);
CREATE INDEX idx_features_region ON features(seqid, start_pos, end_pos);
CREATE INDEX idx_features_type ON features(featuretype);
CREATE TABLE meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const featureColumns = `id, seqid, source, featuretype, start_pos, end_pos, score, strand, phase, attributes`

// BuildOptions controls how a feature database is built.
type BuildOptions struct {
	// Force rebuilds the database even when a usable one exists.
	Force bool

	// IDPattern normalizes gene IDs; see NormalizeID.
	IDPattern string

	// Logger receives build progress. Nil disables logging.
	Logger *zap.Logger
}

// Build creates the feature database at dbPath from the genes in
// gffPath. An existing non-empty database is reused unless opts.Force
// is set. Genes without an ID attribute are skipped; genes sharing an ID
// after normalization are merged into the first occurrence with their
// attribute values unioned. A failed build leaves no file behind.
func Build(ctx context.Context, gffPath, dbPath string, opts BuildOptions) (err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if info, statErr := os.Stat(dbPath); statErr == nil && info.Size() > 0 && !opts.Force {
		logger.Debug("feature database exists, reusing it", zap.String("db", filepath.Base(dbPath)))
		return nil
	}

	idPattern, err := CompileIDPattern(opts.IDPattern)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing old database: %w", err)
	}

	logger.Info("building gene-only feature database",
		zap.String("db", filepath.Base(dbPath)),
		zap.String("gff", filepath.Base(gffPath)))

	defer func() {
		if err != nil {
			if rmErr := os.Remove(dbPath); rmErr != nil && !os.IsNotExist(rmErr) {
				logger.Warn("could not remove partial database", zap.String("db", dbPath), zap.Error(rmErr))
			}
		}
	}()

	started := time.Now()
	byID := make(map[string]*Feature)
	var order []*Feature
	var noID, merged int
	err = ReadGenes(gffPath, logger, func(f *Feature) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := f.Attributes.Get("ID")
		if raw == "" {
			noID++
			return nil
		}
		f.ID = NormalizeID(raw, idPattern)
		if existing, ok := byID[f.ID]; ok {
			existing.Attributes.merge(f.Attributes)
			merged++
			return nil
		}
		byID[f.ID] = f
		order = append(order, f)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading genes: %w", err)
	}
	if len(order) == 0 {
		return fmt.Errorf("%w in %s", ErrNoGenes, filepath.Base(gffPath))
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err = writeFeatures(ctx, db, order, gffPath, opts.IDPattern); err != nil {
		return err
	}

	logger.Info("feature database created",
		zap.String("db", filepath.Base(dbPath)),
		zap.Int("genes", len(order)),
		zap.Int("merged", merged),
		zap.Int("without_id", noID),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

func writeFeatures(ctx context.Context, db *sql.DB, features []*Feature, gffPath, idPattern string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO features (`+featureColumns+`, file_order) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range features {
		attrs, err := encodeAttributes(f.Attributes)
		if err != nil {
			return fmt.Errorf("encoding attributes of %s: %w", f.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, f.ID, f.SeqID, f.Source, f.Type, f.Start, f.End,
			f.Score, f.Strand, f.Phase, attrs, i); err != nil {
			return fmt.Errorf("inserting %s: %w", f.ID, err)
		}
	}

	meta := map[string]string{
		"source_file": gffPath,
		"id_pattern":  idPattern,
		"created_at":  time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing features: %w", err)
	}
	return nil
}

// encodeAttributes stores attributes as JSON text. HTML escaping is off
// so the keyword filter sees "&", "<" and ">" as written.
func encodeAttributes(attrs Attributes) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(attrs); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// DB is an open feature database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens an existing feature database.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoDatabase, path)
		}
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Meta returns a build metadata value, or "" when unset.
func (d *DB) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

// Get returns the feature with the given ID.
func (d *DB) Get(ctx context.Context, id string) (*Feature, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+featureColumns+` FROM features WHERE id = ?`, id)
	f, err := scanFeature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFeatureNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", id, err)
	}
	return f, nil
}

// SeqIDs returns the distinct sequence IDs in the order they first
// appear in the source file.
func (d *DB) SeqIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT seqid FROM features GROUP BY seqid ORDER BY MIN(file_order)`)
	if err != nil {
		return nil, fmt.Errorf("listing sequence IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Region returns the features on seqid overlapping the closed interval
// [start, end], ordered by start position. An empty featureType matches
// every type.
func (d *DB) Region(ctx context.Context, seqid string, start, end int, featureType string) ([]*Feature, error) {
	q := NewQuery().
		Eq("seqid", seqid).
		Le("start", fmt.Sprint(end)).
		Ge("end", fmt.Sprint(start)).
		Sort("start", false)
	if featureType != "" {
		q.Eq("featuretype", featureType)
	}
	return d.Query(ctx, q)
}

// Query returns the features matching q.
func (d *DB) Query(ctx context.Context, q *Query) ([]*Feature, error) {
	where, args, err := q.where()
	if err != nil {
		return nil, err
	}
	order, err := q.orderBy()
	if err != nil {
		return nil, err
	}

	stmt := `SELECT ` + featureColumns + ` FROM features WHERE ` + where + ` ORDER BY ` + order
	if q.LimitValue > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.LimitValue)
	}

	rows, err := d.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying features: %w", err)
	}
	defer rows.Close()

	var features []*Feature
	for rows.Next() {
		f, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, rows.Err()
}

// Count returns the number of features matching q, ignoring its limit.
func (d *DB) Count(ctx context.Context, q *Query) (int, error) {
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM features WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting features: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeature(s scanner) (*Feature, error) {
	var (
		f     Feature
		attrs string
	)
	if err := s.Scan(&f.ID, &f.SeqID, &f.Source, &f.Type, &f.Start, &f.End,
		&f.Score, &f.Strand, &f.Phase, &attrs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(attrs), &f.Attributes); err != nil {
		return nil, fmt.Errorf("decoding attributes of %s: %w", f.ID, err)
	}
	return &f, nil
}
