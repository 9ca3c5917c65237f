// Package directory implements the identity-directory port. The static
// implementation backs development and tests; production wires a real
// provider behind the same interface.
package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"savinggrace-backend/application/ports"
)

// Static is an in-memory directory. Accounts exist only for the process
// lifetime.
type Static struct {
	mu       sync.Mutex
	accounts map[string]*ports.DirectoryAccount
	logger   *zap.Logger
}

// NewStatic creates an empty in-memory directory.
func NewStatic(logger *zap.Logger) *Static {
	return &Static{
		accounts: make(map[string]*ports.DirectoryAccount),
		logger:   logger,
	}
}

// CreateAccount provisions an account with a fresh id.
func (d *Static) CreateAccount(ctx context.Context, email, name string) (*ports.DirectoryAccount, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	account := &ports.DirectoryAccount{
		UserID: uuid.NewString(),
		Email:  strings.ToLower(strings.TrimSpace(email)),
		Active: true,
	}
	d.accounts[account.UserID] = account

	d.logger.Debug("created directory account", zap.String("user_id", account.UserID))

	return account, nil
}

// DisableAccount blocks sign-in. Unknown accounts succeed so user
// disablement stays idempotent.
func (d *Static) DisableAccount(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if account, ok := d.accounts[userID]; ok {
		account.Active = false
	}

	return nil
}
