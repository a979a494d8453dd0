package auth

import "context"

type contextKey string

const accountIDContextKey contextKey = "accountID"

func ContextWithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDContextKey, accountID)
}

// AccountIDFromContext returns the account id stored by the auth middleware.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(accountIDContextKey).(string)
	return accountID, ok && accountID != ""
}
