package domain

// CreatorProfile holds the scraped identity of a commenter.
// Corresponds to creator_profiles table in PostgreSQL.
// Created on first successful acquisition, read-reused afterwards,
// never mutated.
type CreatorProfile struct {
	Username   string // PRIMARY KEY, handle without leading @
	FullName   string
	Followers  int64
	AvatarPath string // local path to downloaded avatar image
	AvatarURL  string // source URL the avatar was fetched from
	FetchedAt  int64  // Unix timestamp in milliseconds
	CreatedAt  int64  // record creation timestamp (ms)
}
