package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	sqlite3 "github.com/mattn/go-sqlite3"

	"evade.gg/keyserver/internal/logger"
	"evade.gg/keyserver/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent validations
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{
		db:   db,
		path: path,
	}

	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// isUniqueViolation checks for the sqlite unique-constraint error so callers
// see a sentinel instead of driver details.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *SQLiteStorage) CreateKey(ctx context.Context, key *models.Key) (*models.Key, error) {
	query := `INSERT INTO keys (key, note, max_uses, uses, expires_at, is_revoked, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`

	createdAt := key.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, query,
		key.Key,
		key.Note,
		key.MaxUses,
		key.Uses,
		key.ExpiresAt,
		key.IsRevoked,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to create key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new key id: %w", err)
	}

	created := *key
	created.ID = id
	created.CreatedAt = createdAt
	return &created, nil
}

func (s *SQLiteStorage) FindKeyByCode(ctx context.Context, code string) (*models.Key, error) {
	query := `SELECT id, key, note, max_uses, uses, expires_at, is_revoked, created_at FROM keys WHERE key = ?`

	key, err := scanKey(s.db.QueryRowContext(ctx, query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return key, nil
}

func (s *SQLiteStorage) ListKeys(ctx context.Context) ([]*models.Key, error) {
	query := `SELECT id, key, note, max_uses, uses, expires_at, is_revoked, created_at FROM keys ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query keys: %w", err)
	}
	defer closeRows(rows)

	var keys []*models.Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}

	return keys, nil
}

func (s *SQLiteStorage) DeleteKey(ctx context.Context, id int64) error {
	// Silent no-op when the id does not exist. Validation rows referencing
	// the key are kept; the reference is deliberately weak.
	_, err := s.db.ExecContext(ctx, `DELETE FROM keys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) IncrementKeyUses(ctx context.Context, id int64) error {
	// Relative update so concurrent validations of the same key never lose
	// an increment.
	_, err := s.db.ExecContext(ctx, `UPDATE keys SET uses = uses + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment key uses: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) AddToBlacklist(ctx context.Context, entry *models.BlacklistEntry) (*models.BlacklistEntry, error) {
	query := `INSERT INTO blacklist (hwid, ip, reason, banned_at) VALUES (?, ?, ?, ?)`

	bannedAt := entry.BannedAt
	if bannedAt.IsZero() {
		bannedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, query, entry.HWID, entry.IP, entry.Reason, bannedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateHWID
		}
		return nil, fmt.Errorf("failed to add blacklist entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new blacklist id: %w", err)
	}

	created := *entry
	created.ID = id
	created.BannedAt = bannedAt
	return &created, nil
}

func (s *SQLiteStorage) FindBlacklistByHWID(ctx context.Context, hwid string) (*models.BlacklistEntry, error) {
	query := `SELECT id, hwid, ip, reason, banned_at FROM blacklist WHERE hwid = ?`

	entry, err := scanBlacklistEntry(s.db.QueryRowContext(ctx, query, hwid))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *SQLiteStorage) ListBlacklist(ctx context.Context) ([]*models.BlacklistEntry, error) {
	query := `SELECT id, hwid, ip, reason, banned_at FROM blacklist ORDER BY banned_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	defer closeRows(rows)

	var entries []*models.BlacklistEntry
	for rows.Next() {
		entry, err := scanBlacklistEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blacklist entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist: %w", err)
	}

	return entries, nil
}

func (s *SQLiteStorage) RemoveFromBlacklist(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM blacklist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove blacklist entry: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LogValidation(ctx context.Context, keyID int64, hwid, ip, userAgent string) (*models.Validation, error) {
	query := `INSERT INTO validations (key_id, hwid, ip, user_agent, timestamp) VALUES (?, ?, ?, ?, ?)`

	timestamp := time.Now().UTC()

	var hwidValue any
	if hwid != "" {
		hwidValue = hwid
	}

	result, err := s.db.ExecContext(ctx, query, keyID, hwidValue, ip, userAgent, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to log validation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new validation id: %w", err)
	}

	validation := &models.Validation{
		ID:        id,
		KeyID:     &keyID,
		Timestamp: timestamp,
	}
	if hwid != "" {
		validation.HWID = &hwid
	}
	if ip != "" {
		validation.IP = &ip
	}
	if userAgent != "" {
		validation.UserAgent = &userAgent
	}

	return validation, nil
}

func (s *SQLiteStorage) CountValidations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM validations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count validations: %w", err)
	}
	return count, nil
}

func (s *SQLiteStorage) GetStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM keys`, &stats.TotalKeys},
		{`SELECT COUNT(*) FROM keys WHERE is_revoked = 0`, &stats.ActiveKeys},
		{`SELECT COUNT(*) FROM validations`, &stats.TotalValidations},
		{`SELECT COUNT(*) FROM blacklist`, &stats.BannedUsers},
	}

	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	return &stats, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*models.Key, error) {
	var key models.Key
	var note sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.Key,
		&note,
		&key.MaxUses,
		&key.Uses,
		&expiresAt,
		&key.IsRevoked,
		&key.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if note.Valid {
		key.Note = &note.String
	}
	if expiresAt.Valid {
		key.ExpiresAt = &expiresAt.Time
	}

	return &key, nil
}

func scanBlacklistEntry(row rowScanner) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	var hwid, ip, reason sql.NullString

	err := row.Scan(&entry.ID, &hwid, &ip, &reason, &entry.BannedAt)
	if err != nil {
		return nil, err
	}

	if hwid.Valid {
		entry.HWID = &hwid.String
	}
	if ip.Valid {
		entry.IP = &ip.String
	}
	if reason.Valid {
		entry.Reason = &reason.String
	}

	return &entry, nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.Warn("Failed to close rows", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
