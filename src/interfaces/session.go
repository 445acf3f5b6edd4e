package interfaces

import (
	"context"

	"kiwoom-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// ITokenSource hands out the access token used by broker calls.
// -----------------------------------------------------------------------------

type ITokenSource interface {
	Token(ctx context.Context) (string, error)

	// Refresh replaces the token only if the current one still equals stale.
	Refresh(ctx context.Context, stale string) (string, error)

	// Invalidate drops the session if its token is still stale.
	Invalidate(stale string)
}

// -----------------------------------------------------------------------------
// ITokenCache persists the last issued token between restarts.
// -----------------------------------------------------------------------------

type ITokenCache interface {
	Load() (*models.MToken, error)
	Save(token *models.MToken) error
	Clear() error
}

// -----------------------------------------------------------------------------
// ISessionGate is the process-wide session as seen by the HTTP facade.
// -----------------------------------------------------------------------------

type ISessionGate interface {
	Login(ctx context.Context) models.MAuthResult

	// Logout always clears the session, even if revocation fails.
	Logout(ctx context.Context) models.MAuthResult

	// Status has no side effects.
	Status() models.MAuthStatus

	// Authorize returns an AuthError when no usable session exists.
	Authorize(ctx context.Context) error

	ServerInfo() models.MServerInfo
}
