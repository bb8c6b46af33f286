package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/domain/models"
	"github.com/athebyme/gomarket-sync/services/sync-service/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
)

var ErrNoWorkingEndpoint = errors.New("no working endpoint")

// Candidate версия эндпоинта в списке замен
type Candidate interface {
	CandidateName() string
}

// Resolver выбирает первую работающую версию эндпоинта и запоминает выбор
// до конца запуска. Экземпляр создаётся на каждый запуск.
type Resolver struct {
	chosen *gocache.Cache
	logger interfaces.LoggerPort
}

func NewResolver(logger interfaces.LoggerPort) *Resolver {
	return &Resolver{
		chosen: gocache.New(gocache.NoExpiration, 0),
		logger: logger,
	}
}

func resolverKey(scope, op string) string {
	return scope + "/" + op
}

// Chosen возвращает имя выбранной версии операции op в области scope (client id)
func (r *Resolver) Chosen(scope, op string) (string, bool) {
	v, ok := r.chosen.Get(resolverKey(scope, op))
	if !ok {
		return "", false
	}
	c, ok := v.(Candidate)
	if !ok {
		return "", false
	}
	return c.CandidateName(), true
}

// resolve вызывает attempt для кандидатов по порядку до первого успеха.
// Если выбор уже сделан, вызывается только выбранный кандидат.
func resolve[C Candidate](ctx context.Context, r *Resolver, scope, op string, candidates []C, attempt func(context.Context, C) error) (C, error) {
	var zero C
	key := resolverKey(scope, op)

	if v, ok := r.chosen.Get(key); ok {
		if c, ok := v.(C); ok {
			return c, attempt(ctx, c)
		}
	}

	if len(candidates) == 0 {
		return zero, fmt.Errorf("%w: %s: no candidates", ErrNoWorkingEndpoint, op)
	}

	var lastErr error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		err := attempt(ctx, c)
		if err == nil {
			r.chosen.Set(key, c, gocache.NoExpiration)
			r.logger.InfoWithContext(ctx, "Выбрана версия эндпоинта",
				interfaces.LogField{Key: "operation", Value: op},
				interfaces.LogField{Key: "endpoint", Value: c.CandidateName()},
			)
			return c, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}

		lastErr = err
		metrics.EndpointFallbacks.WithLabelValues(op, c.CandidateName()).Inc()
		r.logger.WarnWithContext(ctx, "Версия эндпоинта недоступна",
			interfaces.LogField{Key: "operation", Value: op},
			interfaces.LogField{Key: "endpoint", Value: c.CandidateName()},
			interfaces.LogField{Key: "kind", Value: string(models.KindOf(err))},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}

	return zero, fmt.Errorf("%w: %s: %w", ErrNoWorkingEndpoint, op, lastErr)
}
