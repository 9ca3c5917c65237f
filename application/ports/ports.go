// Package ports declares the narrow interfaces behind which external
// collaborators sit. Handlers depend on these, never on SDK clients.
package ports

import (
	"context"
	"time"
)

// BlobStore stores receipt and export artifacts and hands out
// time-limited signed links to them.
type BlobStore interface {
	// PutBlob writes an artifact under key with the given content type.
	PutBlob(ctx context.Context, key string, body []byte, contentType string) error
	// SignedURL returns a link to key that expires after ttl.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// DirectoryAccount is the identity-directory view of a user.
type DirectoryAccount struct {
	UserID string
	Email  string
	Active bool
}

// Directory is the external identity provider. The local user profile
// remains the system of record for roles; the directory only manages
// accounts and credentials.
type Directory interface {
	// CreateAccount provisions a directory account and returns it.
	CreateAccount(ctx context.Context, email, name string) (*DirectoryAccount, error)
	// DisableAccount blocks sign-in for the account. Disabling an
	// already-disabled or unknown account succeeds.
	DisableAccount(ctx context.Context, userID string) error
}
