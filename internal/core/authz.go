package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/vpanel/internal/model"
)

// Principal is one identity in a session stack.
type Principal struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	// Admin is the direct capability flag captured when the principal was
	// pushed onto the session.
	Admin bool `json:"admin"`
}

// PrincipalFor builds the session principal for an account.
func PrincipalFor(a *model.Account) Principal {
	return Principal{ID: a.ID, Login: a.Login, Admin: a.ACL.IsAdmin()}
}

// Caller is the acting identity of a request as the services see it.
type Caller interface {
	ActorID() int64
	HasAdminCapability(ctx context.Context) bool
}

// AuthorizationContext answers capability queries for the acting principal
// of a session while keeping the true identity underneath it.
type AuthorizationContext struct {
	db     DB
	True   Principal
	Acting Principal

	decided bool
	admin   bool
}

// NewAuthorizationContext builds a context from a session stack. The bottom
// of the stack is the true identity, the top is the acting one.
func NewAuthorizationContext(db DB, stack []Principal) *AuthorizationContext {
	a := &AuthorizationContext{db: db}
	if len(stack) > 0 {
		a.True = stack[0]
		a.Acting = stack[len(stack)-1]
	}
	return a
}

func (a *AuthorizationContext) ActorID() int64 { return a.Acting.ID }

// Impersonating reports whether the acting identity differs from the true one.
func (a *AuthorizationContext) Impersonating() bool { return a.True.ID != a.Acting.ID }

// HasAdminCapability resolves admin capability for the acting principal:
// the direct flag first, then an account lookup by id, then by login. Any
// lookup error resolves to false. The answer is memoized per context.
func (a *AuthorizationContext) HasAdminCapability(ctx context.Context) bool {
	if a.decided {
		return a.admin
	}
	a.admin = a.resolveAdmin(ctx)
	a.decided = true
	return a.admin
}

func (a *AuthorizationContext) resolveAdmin(ctx context.Context) bool {
	if a.Acting.Admin {
		return true
	}
	if a.db == nil {
		return false
	}

	var ok bool
	var err error
	switch {
	case a.Acting.ID != 0:
		err = a.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1 AND acl IN (0, 1))`, a.Acting.ID,
		).Scan(&ok)
	case a.Acting.Login != "":
		err = a.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE login = $1 AND acl IN (0, 1))`, a.Acting.Login,
		).Scan(&ok)
	default:
		return false
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("account_id", a.Acting.ID).Msg("admin capability lookup failed, denying")
		return false
	}
	return ok
}

// canAccessAccount reports whether caller may view or update account id.
func canAccessAccount(ctx context.Context, caller Caller, id int64) bool {
	return caller.ActorID() == id || caller.HasAdminCapability(ctx)
}
