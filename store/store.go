// Package store persists portal client state in a local sqlite database, so
// credentials and registration drafts survive process restarts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	portal "github.com/goliatone/go-clinic-portal"
)

// Record is one persisted key/value row.
type Record struct {
	bun.BaseModel `bun:"table:portal_state,alias:pst"`

	ID        uuid.UUID `bun:"id,pk,notnull"`
	Key       string    `bun:"key,notnull,unique"`
	Value     []byte    `bun:"value"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Store is a sqlite-backed portal.TokenStore.
type Store struct {
	db *bun.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to open state database").
			WithMetadata(map[string]any{"path": path})
	}

	return NewWithDB(bun.NewDB(sqldb, sqlitedialect.New()))
}

// NewWithDB wraps an existing bun handle, ensuring the schema.
func NewWithDB(db *bun.DB) (*Store, error) {
	s := &Store{db: db}

	_, err := db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to ensure state table")
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) value(ctx context.Context, key string) ([]byte, error) {
	rec := &Record{}

	err := s.db.NewSelect().
		Model(rec).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to read state").
			WithMetadata(map[string]any{"key": key})
	}

	return rec.Value, nil
}

func (s *Store) put(ctx context.Context, id uuid.UUID, key string, value []byte) error {
	rec := &Record{
		ID:        id,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	_, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to write state").
			WithMetadata(map[string]any{"key": key})
	}

	return nil
}

func (s *Store) del(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*Record)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to delete state").
			WithMetadata(map[string]any{"key": key})
	}
	return nil
}

func (s *Store) Token(ctx context.Context) (string, error) {
	val, err := s.value(ctx, portal.CredentialKey)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.put(ctx, uuid.New(), portal.CredentialKey, []byte(token))
}

func (s *Store) ClearToken(ctx context.Context) error {
	return s.del(ctx, portal.CredentialKey)
}

func (s *Store) Registration(ctx context.Context) (*portal.Registration, error) {
	val, err := s.value(ctx, portal.RegistrationKey)
	if err != nil {
		return nil, err
	}
	if len(val) == 0 {
		return nil, nil
	}

	reg := &portal.Registration{}
	if err := json.Unmarshal(val, reg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to decode registration draft")
	}

	return reg, nil
}

func (s *Store) SetRegistration(ctx context.Context, reg *portal.Registration) error {
	if reg == nil {
		return s.del(ctx, portal.RegistrationKey)
	}

	// Derive the row id from the email so re-registering the same address
	// overwrites the prior draft.
	id, err := hashid.NewUUID(reg.Email)
	if err != nil {
		id = uuid.New()
	}

	encoded, err := json.Marshal(reg)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to encode registration draft")
	}

	return s.put(ctx, id, portal.RegistrationKey, encoded)
}

func (s *Store) ScrubPassword(ctx context.Context) error {
	reg, err := s.Registration(ctx)
	if err != nil {
		return err
	}
	if reg == nil || reg.Password == "" {
		return nil
	}

	reg.Scrub()
	return s.SetRegistration(ctx, reg)
}

func (s *Store) ClearRegistration(ctx context.Context) error {
	return s.del(ctx, portal.RegistrationKey)
}

var _ portal.TokenStore = (*Store)(nil)
