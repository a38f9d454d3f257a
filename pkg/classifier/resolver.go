package classifier

import (
	"context"
	"strings"

	"github.com/shunichi-ikebuchi/bookkeeper/pkg/model"
	"github.com/shunichi-ikebuchi/bookkeeper/pkg/store"
)

// Resolver turns an account code into an active account of one tenant.
type Resolver struct {
	accounts store.AccountStore
}

// NewResolver creates a Resolver backed by accounts.
func NewResolver(accounts store.AccountStore) *Resolver {
	return &Resolver{accounts: accounts}
}

// Resolve looks up the active account with code in tenantID's chart only.
// It returns an error wrapping model.ErrNotFound when there is none.
func (r *Resolver) Resolve(ctx context.Context, tenantID int64, code string) (*model.Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, model.NotFoundf("empty account code for tenant %d", tenantID)
	}

	account, err := r.accounts.FindActiveAccountByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	// Stores are expected to scope by tenant; this guards against one that doesn't.
	if account.TenantID != tenantID {
		return nil, model.NotFoundf("active account %q for tenant %d", code, tenantID)
	}
	return account, nil
}
