// Package token lazily materializes token records from the external index.
package token

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ambrosus/ambrodeo-backend/api"
)

// A Store holds the locally materialized token records.
type Store interface {
	GetToken(ctx context.Context, tokenAddress string) (api.Token, bool, error)
	UpsertToken(ctx context.Context, t api.Token) error
}

// An Index is the upstream source of truth for token existence.
type Index interface {
	TokenExists(ctx context.Context, tokenAddress string) (bool, error)
}

// A Resolver ensures a token record exists locally before it is referenced,
// consulting the index for tokens seen for the first time.
type Resolver struct {
	Store  Store
	Index  Index
	Logger *slog.Logger
}

// EnsureExists reports whether the token is known, creating the local
// record on a first confirmed reference. An upstream failure is treated the
// same as not found: the caller rejects the reference either way, and the
// next request retries the lookup.
func (r *Resolver) EnsureExists(ctx context.Context, tokenAddress string) (bool, error) {
	_, ok, err := r.Store.GetToken(ctx, tokenAddress)
	if err != nil {
		return false, fmt.Errorf("get token: %w", err)
	}
	if ok {
		return true, nil
	}

	exists, err := r.Index.TokenExists(ctx, tokenAddress)
	if err != nil {
		r.Logger.Warn("Token index lookup failed", "tokenAddress", tokenAddress, "error", err.Error())
		return false, nil
	}
	if !exists {
		return false, nil
	}

	err = r.Store.UpsertToken(ctx, api.Token{
		TokenAddress: tokenAddress,
		Like:         0,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return false, fmt.Errorf("upsert token: %w", err)
	}
	return true, nil
}
