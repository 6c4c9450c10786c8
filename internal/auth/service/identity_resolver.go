package service

import (
	"context"
	"errors"
	"time"

	"github.com/microblog-go/microblog/internal/common/clock"
	"github.com/microblog-go/microblog/internal/common/constants"
	"github.com/microblog-go/microblog/internal/common/logger"
	"github.com/microblog-go/microblog/internal/common/resilience"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
	userrepo "github.com/microblog-go/microblog/internal/user/repository"
)

type IdentityResolverConfig struct {
	LivenessTimeout  time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

// IdentityResolver turns the user id carried by a session into the
// request's Identity and keeps last_seen fresh.
type IdentityResolver struct {
	repo    userrepo.Repository
	clock   clock.Clock
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

func NewIdentityResolver(repo userrepo.Repository, c clock.Clock, log *logger.Logger, cfg IdentityResolverConfig) *IdentityResolver {
	if c == nil {
		c = clock.NewRealClock()
	}
	if cfg.LivenessTimeout <= 0 {
		cfg.LivenessTimeout = constants.DefaultLivenessTimeout
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = constants.LivenessBreakerThreshold
	}
	if cfg.BreakerReset <= 0 {
		cfg.BreakerReset = constants.LivenessBreakerResetAfter
	}
	return &IdentityResolver{
		repo:  repo,
		clock: c,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Threshold:  cfg.BreakerThreshold,
			Timeout:    cfg.LivenessTimeout,
			ResetAfter: cfg.BreakerReset,
			Name:       "user_last_seen",
			Clock:      c,
			Logger:     log,
		}),
		log: log,
	}
}

// LoadUser looks a user up by id. A missing user is reported as false
// with a nil error; only persistence failures return an error.
func (r *IdentityResolver) LoadUser(ctx context.Context, id userdomain.ID) (userdomain.User, bool, error) {
	if id == "" {
		return userdomain.User{}, false, nil
	}
	user, err := r.repo.FindBy(ctx, userrepo.FieldID, string(id))
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return userdomain.User{}, false, nil
		}
		return userdomain.User{}, false, newDatabaseError("failed to load user", err)
	}
	return user, true, nil
}

// TouchLiveness moves user.LastSeen forward to now and persists it. A
// failed write is logged and dropped.
func (r *IdentityResolver) TouchLiveness(ctx context.Context, user *userdomain.User) {
	if !user.IsAuthenticated() {
		return
	}

	now := r.clock.Now()
	if now.After(user.LastSeen) {
		user.LastSeen = now
	}
	seenAt := user.LastSeen

	err := r.breaker.Call(ctx, func(ctx context.Context) error {
		return r.repo.UpdateLastSeen(ctx, user.ID, seenAt)
	})
	if err != nil {
		incrementLivenessUpdates("failed")
		r.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "liveness_update_failed",
		}).Warnf("failed to persist last_seen: %v", err)
		return
	}
	incrementLivenessUpdates("ok")
}

// Resolve yields the request identity: Anonymous when there is no session
// user id or it no longer matches a user, otherwise the loaded user with
// liveness already refreshed.
func (r *IdentityResolver) Resolve(ctx context.Context, sessionUserID userdomain.ID, present bool) (userdomain.Identity, error) {
	if !present || sessionUserID == "" {
		return userdomain.Anonymous{}, nil
	}

	user, found, err := r.LoadUser(ctx, sessionUserID)
	if err != nil {
		return userdomain.Anonymous{}, err
	}
	if !found {
		r.log.WithFields(ctx, logger.Fields{
			"user_id": string(sessionUserID),
			"action":  "session_user_missing",
		}).Debug("session references unknown user")
		return userdomain.Anonymous{}, nil
	}

	r.TouchLiveness(ctx, &user)
	return &user, nil
}
