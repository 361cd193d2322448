package postgres

import (
	"context"
	"fmt"

	"feedo/internal/domain"
	"feedo/internal/storage"
)

// ProfileStore implements storage.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *Pool
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(pool *Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProfileStore = (*ProfileStore)(nil)

// GetByUsername retrieves a cached profile. Returns ErrNotFound if not exists.
func (s *ProfileStore) GetByUsername(ctx context.Context, username string) (*domain.CreatorProfile, error) {
	query := `
		SELECT username, full_name, followers, avatar_path, avatar_url, fetched_at, created_at
		FROM creator_profiles
		WHERE username = $1
	`

	var p domain.CreatorProfile
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&p.Username,
		&p.FullName,
		&p.Followers,
		&p.AvatarPath,
		&p.AvatarURL,
		&p.FetchedAt,
		&p.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get profile by username: %w", err)
	}
	return &p, nil
}

// Put stores a profile. Returns ErrDuplicateKey if the username is already cached.
func (s *ProfileStore) Put(ctx context.Context, p *domain.CreatorProfile) error {
	if p == nil || p.Username == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO creator_profiles (
			username, full_name, followers, avatar_path, avatar_url, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		p.Username,
		p.FullName,
		p.Followers,
		p.AvatarPath,
		p.AvatarURL,
		p.FetchedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}
