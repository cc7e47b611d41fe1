package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"github.com/ZaguanLabs/gotmt"
)

type translationModel struct {
	bun.BaseModel `bun:"table:translations"`

	ID        string            `bun:"id,pk"`
	Key       string            `bun:"key,notnull,unique"`
	Values    map[string]string `bun:"values_json,type:jsonb,notnull"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`
}

func (m *translationModel) entry() gotmt.TranslationEntry {
	values := m.Values
	if values == nil {
		values = map[string]string{}
	}
	return gotmt.TranslationEntry{
		ID:        m.ID,
		Key:       m.Key,
		Values:    values,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type languageModel struct {
	bun.BaseModel `bun:"table:languages"`

	Code      string `bun:"code,pk"`
	Name      string `bun:"name,notnull"`
	IsDefault bool   `bun:"is_default,notnull"`
}

// BunStore persists entries and languages in SQLite or PostgreSQL through Bun.
type BunStore struct {
	db *bun.DB
}

// NewBunStore wraps an open Bun database. Call CreateSchema before use on a
// fresh database.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// CreateSchema creates the tables when they do not exist yet.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	models := []any{(*translationModel)(nil), (*languageModel)(nil)}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return storeErr("create schema", err)
		}
	}
	return nil
}

// FindByID implements gotmt.TranslationStore.
func (s *BunStore) FindByID(ctx context.Context, id string) (gotmt.TranslationEntry, error) {
	return s.findOne(ctx, "find by id", "id = ?", id)
}

// FindByKey implements gotmt.TranslationStore.
func (s *BunStore) FindByKey(ctx context.Context, key string) (gotmt.TranslationEntry, error) {
	return s.findOne(ctx, "find by key", "key = ?", key)
}

func (s *BunStore) findOne(ctx context.Context, op, where string, arg any) (gotmt.TranslationEntry, error) {
	var m translationModel
	if err := s.db.NewSelect().Model(&m).Where(where, arg).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return gotmt.TranslationEntry{}, gotmt.ErrNotFound
		}
		return gotmt.TranslationEntry{}, storeErr(op, err)
	}
	return m.entry(), nil
}

// Insert implements gotmt.TranslationStore.
func (s *BunStore) Insert(ctx context.Context, entry gotmt.TranslationEntry) error {
	m := translationModel{
		ID:        entry.ID,
		Key:       entry.Key,
		Values:    entry.Values,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
	if m.Values == nil {
		m.Values = map[string]string{}
	}

	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert %s: %w", entry.Key, gotmt.ErrKeyExists)
		}
		return storeErr("insert", err)
	}
	return nil
}

// PatchValues implements gotmt.TranslationStore. The read-modify-write runs
// in one transaction; on PostgreSQL the row is locked for its duration.
func (s *BunStore) PatchValues(ctx context.Context, id string, patch map[string]string, at time.Time) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var m translationModel
		q := tx.NewSelect().Model(&m).Where("id = ?", id)
		if s.db.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return gotmt.ErrNotFound
			}
			return storeErr("patch", err)
		}

		if m.Values == nil {
			m.Values = make(map[string]string, len(patch))
		}
		for code, v := range patch {
			m.Values[code] = v
		}
		m.UpdatedAt = at

		if _, err := tx.NewUpdate().Model(&m).Column("values_json", "updated_at").WherePK().Exec(ctx); err != nil {
			return storeErr("patch", err)
		}
		return nil
	})
}

// ReplaceValues implements gotmt.TranslationStore.
func (s *BunStore) ReplaceValues(ctx context.Context, id string, values map[string]string, at time.Time) error {
	m := translationModel{ID: id, Values: values, UpdatedAt: at}
	if m.Values == nil {
		m.Values = map[string]string{}
	}

	res, err := s.db.NewUpdate().Model(&m).Column("values_json", "updated_at").WherePK().Exec(ctx)
	if err != nil {
		return storeErr("replace", err)
	}
	return requireAffected(res)
}

// Delete implements gotmt.TranslationStore.
func (s *BunStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.NewDelete().Model((*translationModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return storeErr("delete", err)
	}
	return requireAffected(res)
}

// List implements gotmt.TranslationStore.
func (s *BunStore) List(ctx context.Context, lq gotmt.ListQuery) ([]gotmt.TranslationEntry, int, error) {
	lq = lq.Normalized()

	var models []translationModel
	q := s.db.NewSelect().Model(&models)

	if lq.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(lq.Search)) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where(`LOWER(key) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(s.valueMatchExpr(), pattern)
		})
	}

	dir := "ASC"
	if lq.Order == gotmt.SortDesc {
		dir = "DESC"
	}
	q = q.OrderExpr("? "+dir, bun.Ident(lq.SortBy)).
		OrderExpr("id ASC").
		Limit(lq.PerPage).
		Offset(lq.Offset())

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, storeErr("list", err)
	}

	entries := make([]gotmt.TranslationEntry, len(models))
	for i := range models {
		entries[i] = models[i].entry()
	}
	return entries, total, nil
}

// valueMatchExpr matches any language value of the row against a LIKE pattern.
func (s *BunStore) valueMatchExpr() string {
	if s.db.Dialect().Name() == dialect.PG {
		return `EXISTS (SELECT 1 FROM jsonb_each_text(values_json) AS v WHERE LOWER(v.value) LIKE ? ESCAPE '\')`
	}
	return `EXISTS (SELECT 1 FROM json_each(values_json) AS v WHERE LOWER(v.value) LIKE ? ESCAPE '\')`
}

// All implements gotmt.TranslationStore.
func (s *BunStore) All(ctx context.Context) ([]gotmt.TranslationEntry, error) {
	var models []translationModel
	if err := s.db.NewSelect().Model(&models).OrderExpr("key ASC").Scan(ctx); err != nil {
		return nil, storeErr("all", err)
	}

	entries := make([]gotmt.TranslationEntry, len(models))
	for i := range models {
		entries[i] = models[i].entry()
	}
	return entries, nil
}

// ListLanguages implements gotmt.LanguageStore.
func (s *BunStore) ListLanguages(ctx context.Context) ([]gotmt.Language, error) {
	var models []languageModel
	if err := s.db.NewSelect().Model(&models).OrderExpr("is_default DESC, code ASC").Scan(ctx); err != nil {
		return nil, storeErr("list languages", err)
	}

	langs := make([]gotmt.Language, len(models))
	for i, m := range models {
		langs[i] = gotmt.Language{Code: m.Code, Name: m.Name, IsDefault: m.IsDefault}
	}
	return langs, nil
}

// InsertLanguage implements gotmt.LanguageStore.
func (s *BunStore) InsertLanguage(ctx context.Context, lang gotmt.Language) error {
	m := languageModel{Code: lang.Code, Name: lang.Name, IsDefault: lang.IsDefault}
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert language %s: %w", lang.Code, gotmt.ErrLanguageExists)
		}
		return storeErr("insert language", err)
	}
	return nil
}

// CountLanguages implements gotmt.LanguageStore.
func (s *BunStore) CountLanguages(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*languageModel)(nil)).Count(ctx)
	if err != nil {
		return 0, storeErr("count languages", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *BunStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &gotmt.StoreError{Op: "ping", Cause: err, Retryable: true}
	}
	return nil
}

// Close closes the database.
func (s *BunStore) Close() error {
	return s.db.Close()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return gotmt.ErrNotFound
	}
	return nil
}

func storeErr(op string, err error) error {
	return &gotmt.StoreError{Op: op, Cause: err}
}

// isUniqueViolation reports whether err is a unique or primary key
// constraint failure on SQLite or PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Verify BunStore implements gotmt.Store
var _ gotmt.Store = (*BunStore)(nil)
