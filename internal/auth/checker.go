package auth

import "context"

var _ Checker = (*LoginChecker)(nil)
var _ Checker = (*LoginTestChecker)(nil)

// Checker resolves a session token to the account it belongs to.
type Checker interface {
	AccountID(ctx context.Context, token string) (string, error)
}
