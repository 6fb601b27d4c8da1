package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/msntech/reports-api/internal/pkg/crypto"
)

// Repository defines encrypted report storage over either backend.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	MigrateLegacySchema(ctx context.Context) error

	Insert(ctx context.Context, r *Report) (int64, error)
	GetByID(ctx context.Context, id int64) (*Report, error)
	List(ctx context.Context, filter *ListFilter) ([]*Summary, error)
	Count(ctx context.Context, statusFilter string) (int, error)
	GetComments(ctx context.Context, id int64) ([]string, error)
	AppendComment(ctx context.Context, id int64, line string) error
	SetStatus(ctx context.Context, id int64, status Status, handler string) (Status, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db    *sqlx.DB
	codec *crypto.Codec
	d     dialect
}

// NewRepository creates a report repository for the given driver
// ("mysql" or "sqlite").
func NewRepository(db *sqlx.DB, codec *crypto.Codec, driver string) Repository {
	return &repository{db: db, codec: codec, d: dialectFor(driver)}
}

const reportsTable = "bug_reports"

// reportColumns keeps explicit column order so both backends scan into
// the same struct. comments and handler predate NOT NULL enforcement on
// migrated tables, hence the COALESCE.
const reportColumns = `id, player_name, player_uuid, description, world, x, y, z,
	ip_address, game_mode, health, level, inventory,
	COALESCE(comments, '') AS comments, status,
	COALESCE(handler, '') AS handler, created_at, updated_at`

// EnsureSchema creates the report table if absent. Safe to call on every
// startup.
func (r *repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.d.CreateReportsTable()); err != nil {
		return fmt.Errorf("create %s: %w", reportsTable, err)
	}
	return nil
}

// migrationColumns are the current-revision columns a legacy table may be
// missing, with per-dialect definitions. SQLite cannot ADD COLUMN with a
// non-constant default, so updated_at is added nullable there.
func (r *repository) migrationColumns() [][2]string {
	if _, ok := r.d.(mysqlDialect); ok {
		return [][2]string{
			{"inventory", "LONGTEXT"},
			{"comments", "LONGTEXT"},
			{"handler", "VARCHAR(64)"},
			{"updated_at", "TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP"},
		}
	}
	return [][2]string{
		{"inventory", "TEXT"},
		{"comments", "TEXT"},
		{"handler", "TEXT"},
		{"updated_at", "TIMESTAMP"},
	}
}

// MigrateLegacySchema upgrades a pre-rename table in place. The legacy
// revision stored the inventory dump in full_inventory; when that column
// is present the current columns are added (ignoring "already exists")
// and inventory is backfilled where empty. Data is never deleted.
func (r *repository) MigrateLegacySchema(ctx context.Context) error {
	legacy, err := r.d.HasColumn(ctx, r.db, reportsTable, "full_inventory")
	if err != nil {
		return fmt.Errorf("inspect %s: %w", reportsTable, err)
	}
	if !legacy {
		return nil
	}

	log.Info().Msg("Legacy report schema detected, migrating")

	for _, col := range r.migrationColumns() {
		name, definition := col[0], col[1]
		exists, err := r.d.HasColumn(ctx, r.db, reportsTable, name)
		if err != nil {
			return fmt.Errorf("inspect column %s: %w", name, err)
		}
		if exists {
			continue
		}
		if _, err := r.db.ExecContext(ctx, r.d.AddColumn(reportsTable, name, definition)); err != nil {
			// Concurrent startup may have added it already.
			if strings.Contains(strings.ToLower(err.Error()), "duplicate") ||
				strings.Contains(strings.ToLower(err.Error()), "already exists") {
				continue
			}
			return fmt.Errorf("add column %s: %w", name, err)
		}
		log.Info().Str("column", name).Msg("Added missing report column")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE bug_reports SET inventory = full_inventory
		WHERE (inventory IS NULL OR inventory = '')
		  AND full_inventory IS NOT NULL AND full_inventory != ''
	`)
	if err != nil {
		return fmt.Errorf("backfill inventory: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		log.Info().Int64("rows", rows).Msg("Backfilled inventory from legacy column")
	}
	return nil
}

// Insert encrypts the sensitive fields and stores one row, returning the
// backend-generated id.
func (r *repository) Insert(ctx context.Context, rep *Report) (int64, error) {
	enc, err := r.encryptFields(rep)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bug_reports (player_name, player_uuid, description, world, x, y, z,
			ip_address, game_mode, health, level, inventory, comments, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		enc.PlayerName, enc.PlayerUUID, enc.Description, enc.World,
		rep.X, rep.Y, rep.Z,
		enc.IPAddress, enc.GameMode, rep.Health, rep.Level,
		enc.Inventory, enc.Comments, string(StatusOpen),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID returns the decrypted report, or (nil, nil) when absent.
func (r *repository) GetByID(ctx context.Context, id int64) (*Report, error) {
	var rep Report
	err := r.db.GetContext(ctx, &rep,
		`SELECT `+reportColumns+` FROM bug_reports WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.decryptReport(&rep)
	return &rep, nil
}

// List returns report summaries ordered newest-created first.
func (r *repository) List(ctx context.Context, filter *ListFilter) ([]*Summary, error) {
	page, perPage := 1, 10
	var status string
	if filter != nil {
		if filter.Page > 0 {
			page = filter.Page
		}
		if filter.PerPage > 0 {
			perPage = filter.PerPage
		}
		status = filter.Status
	}

	query := `SELECT id, player_name, description, status, created_at FROM bug_reports`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, perPage, (page-1)*perPage)

	var rows []*Summary
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	for _, s := range rows {
		s.PlayerName = r.decryptField("player_name", s.PlayerName)
		s.Description = r.decryptField("description", s.Description)
	}
	return rows, nil
}

func (r *repository) Count(ctx context.Context, statusFilter string) (int, error) {
	query := `SELECT COUNT(*) FROM bug_reports`
	args := []interface{}{}
	if statusFilter != "" {
		query += ` WHERE status = ?`
		args = append(args, statusFilter)
	}
	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	return count, err
}

// GetComments returns the decrypted comment log split into lines.
func (r *repository) GetComments(ctx context.Context, id int64) ([]string, error) {
	var blob sql.NullString
	err := r.db.GetContext(ctx, &blob, `SELECT comments FROM bug_reports WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	if !blob.Valid || blob.String == "" {
		return []string{}, nil
	}

	decrypted := r.decryptField("comments", blob.String)
	var comments []string
	for _, line := range strings.Split(decrypted, "\n") {
		if strings.TrimSpace(line) != "" {
			comments = append(comments, line)
		}
	}
	return comments, nil
}

// AppendComment appends one formatted line to the comment blob. This is
// a read-modify-write: concurrent appends against the same report race
// and the later write wins.
func (r *repository) AppendComment(ctx context.Context, id int64, line string) error {
	var blob sql.NullString
	err := r.db.GetContext(ctx, &blob, `SELECT comments FROM bug_reports WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReportNotFound
		}
		return err
	}

	existing := ""
	if blob.Valid && blob.String != "" {
		existing = r.decryptField("comments", blob.String)
	}

	updated := line
	if existing != "" {
		updated = existing + "\n" + line
	}
	encrypted, err := r.codec.Encrypt(updated)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE bug_reports SET comments = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		encrypted, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrReportNotFound
	}
	return nil
}

// SetStatus updates status, handler and updated_at, returning the prior
// status so callers can report the transition.
func (r *repository) SetStatus(ctx context.Context, id int64, status Status, handler string) (Status, error) {
	var old string
	err := r.db.GetContext(ctx, &old, `SELECT status FROM bug_reports WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrReportNotFound
		}
		return "", err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE bug_reports SET status = ?, handler = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(status), handler, id)
	if err != nil {
		return "", err
	}
	return StatusFromString(old), nil
}

// Delete removes the row inside an explicit transaction. The comment log
// lives in the same row, so comments go atomically with the report.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM bug_reports WHERE id = ?`, id)
	if err != nil {
		tx.Rollback()
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if rows == 0 {
		tx.Rollback()
		return ErrReportNotFound
	}
	return tx.Commit()
}

// encryptedFields holds the ciphertext forms of every sensitive column.
type encryptedFields struct {
	PlayerName  string
	PlayerUUID  string
	Description string
	World       string
	IPAddress   string
	GameMode    string
	Inventory   string
	Comments    string
}

func (r *repository) encryptFields(rep *Report) (*encryptedFields, error) {
	enc := &encryptedFields{}
	for _, f := range []struct {
		dst   *string
		value string
	}{
		{&enc.PlayerName, rep.PlayerName},
		{&enc.PlayerUUID, rep.PlayerUUID},
		{&enc.Description, rep.Description},
		{&enc.World, rep.World},
		{&enc.IPAddress, rep.IPAddress},
		{&enc.GameMode, rep.GameMode},
		{&enc.Inventory, rep.Inventory},
	} {
		v, err := r.codec.Encrypt(f.value)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	if rep.Comments != "" {
		v, err := r.codec.Encrypt(rep.Comments)
		if err != nil {
			return nil, err
		}
		enc.Comments = v
	}
	return enc, nil
}

func (r *repository) decryptReport(rep *Report) {
	rep.PlayerName = r.decryptField("player_name", rep.PlayerName)
	rep.PlayerUUID = r.decryptField("player_uuid", rep.PlayerUUID)
	rep.Description = r.decryptField("description", rep.Description)
	rep.World = r.decryptField("world", rep.World)
	rep.IPAddress = r.decryptField("ip_address", rep.IPAddress)
	rep.GameMode = r.decryptField("game_mode", rep.GameMode)
	rep.Inventory = r.decryptField("inventory", rep.Inventory)
	if rep.Comments != "" {
		rep.Comments = r.decryptField("comments", rep.Comments)
	}
}

// decryptField decrypts one stored value. Rows written before encryption
// was enabled (or with a rotated key) fail to decrypt; those are passed
// through as-is rather than corrupted or dropped.
func (r *repository) decryptField(column, stored string) string {
	if stored == "" {
		return stored
	}
	plain, err := r.codec.Decrypt(stored)
	if err != nil {
		log.Warn().Err(err).Str("column", column).Msg("Field decryption failed, treating value as plaintext")
		return stored
	}
	return plain
}
