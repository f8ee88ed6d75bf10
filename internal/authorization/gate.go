package authorization

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// Logger defines the logging interface used by the Gate.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Gate validates idTags presented by charge points. It holds no state
// between calls.
type Gate struct {
	repo   Repository
	logger Logger
	now    func() time.Time
}

// NewGate creates a Gate over repo.
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo, logger: noopLogger{}, now: time.Now}
}

// SetLogger sets the logger for the gate.
func (g *Gate) SetLogger(logger Logger) {
	g.logger = logger
}

// SetClock replaces the time source used for expiry checks.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Authorize returns the IdTagInfo for key. It never fails: unknown tags and
// store faults both yield Invalid.
func (g *Gate) Authorize(ctx context.Context, key string) ocpp.IDTagInfo {
	if key == "" {
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationInvalid}
	}

	tok, err := g.repo.GetToken(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrTokenNotFound) {
			g.logger.Error("token lookup failed", "id_tag", key, "error", err)
		}
		return ocpp.IDTagInfo{Status: ocpp.AuthorizationInvalid}
	}

	info := ocpp.IDTagInfo{Status: tok.Status, ParentIDTag: tok.ParentKey}
	if tok.ExpiryDate != nil {
		exp := ocpp.NewDateTime(*tok.ExpiryDate)
		info.ExpiryDate = &exp
	}

	switch {
	case !tok.Status.Valid():
		g.logger.Warn("token has unrecognised status", "id_tag", key, "status", tok.Status)
		info.Status = ocpp.AuthorizationInvalid
	case tok.Status != ocpp.AuthorizationAccepted:
		// Blocked, Expired, Invalid and ConcurrentTx are passed through.
	case tok.ExpiryDate != nil && !g.now().Before(*tok.ExpiryDate):
		info.Status = ocpp.AuthorizationExpired
	}
	return info
}
