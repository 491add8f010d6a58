package rooms

import (
	"context"

	"pet-adoption-hub/internal/platform/apperr"
)

// ParticipantsResolver traduce un applicationID a la tripleta de la sala.
// Se usa para evitar ciclos de imports (rooms <-> applications/archive).
type ParticipantsResolver interface {
	Participants(ctx context.Context, applicationID string) (Participants, error)
}

type chain []ParticipantsResolver

// ChainResolvers prueba cada resolver en orden hasta que uno encuentre la
// solicitud (p.ej. working set primero y después el archivo).
func ChainResolvers(rs ...ParticipantsResolver) ParticipantsResolver {
	return chain(rs)
}

func (c chain) Participants(ctx context.Context, applicationID string) (Participants, error) {
	var lastErr error = ErrNotFound
	for _, r := range c {
		if r == nil {
			continue
		}
		p, err := r.Participants(ctx, applicationID)
		if err == nil {
			return p, nil
		}
		lastErr = err
		if !isNotFound(err) {
			return Participants{}, err
		}
	}
	if isNotFound(lastErr) {
		return Participants{}, ErrNotFound
	}
	return Participants{}, lastErr
}

// Los resolvers señalan ausencia con NOT_FOUND o NOT_FOUND_OR_ALREADY_PROCESSED.
func isNotFound(err error) bool {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound, apperr.CodeNotFoundOrAlreadyProcessed:
		return true
	}
	return false
}
