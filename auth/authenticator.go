// Package auth implements the challenge-response authentication for
// wallet-address-identified users. A mutating request carries the claimed
// address and a signature over the secret previously issued to that address;
// proof of key possession is re-derived on every request rather than kept in
// a session.
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidAddress reports an absent or malformed account address.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrMissingCredential reports an absent signature or an address that
	// never requested a secret.
	ErrMissingCredential = errors.New("missing address or signature")
	// ErrInvalidSignature reports a signature that does not recover to the
	// claimed address.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Users provisions profiles for addresses that authenticate for the first
// time.
type Users interface {
	EnsureUser(ctx context.Context, address string) error
}

// An Authenticator validates the (address, signature) pair of a mutating
// request against the issued secret.
type Authenticator struct {
	Secrets SecretStore
	Users   Users
}

// Authenticate checks that signature was produced by the key owning address,
// over the secret issued to that address. On success it guarantees a user
// row exists and returns the normalized (lower-cased) address.
func (a *Authenticator) Authenticate(ctx context.Context, address, signature string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" || !common.IsHexAddress(addr) {
		return "", ErrInvalidAddress
	}

	secret, ok, err := a.Secrets.Get(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("get secret: %w", err)
	}
	if signature == "" || !ok {
		return "", ErrMissingCredential
	}

	recovered, err := RecoverAddress(secret, signature)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !strings.EqualFold(recovered.Hex(), addr) {
		return "", ErrInvalidSignature
	}

	if err := a.Users.EnsureUser(ctx, addr); err != nil {
		return "", fmt.Errorf("ensure user: %w", err)
	}
	return addr, nil
}

// RecoverAddress returns the address whose key signed the EIP-191 personal
// message. The signature is hex-encoded, 65 bytes, with the recovery id
// either raw (0/1) or offset by 27 as wallets produce it.
func RecoverAddress(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature is %d bytes, want %d", len(sig), crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = bytes.Clone(sig)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
