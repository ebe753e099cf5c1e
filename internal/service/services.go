package service

import (
	"log/slog"

	"github.com/kirinyoku/ceylontix/internal/payhere"
	redisrepo "github.com/kirinyoku/ceylontix/internal/repository/redis"
	"github.com/kirinyoku/ceylontix/internal/service/admin"
	"github.com/kirinyoku/ceylontix/internal/service/booking"
	"github.com/kirinyoku/ceylontix/internal/service/payment"
	"github.com/kirinyoku/ceylontix/internal/service/query"
	"github.com/kirinyoku/ceylontix/internal/uow"
)

type Services struct {
	Booking *booking.Service
	Payment *payment.Service
	Query   *query.Service
	Admin   *admin.Service
}

type Config struct {
	Booking booking.Config
	Payment payment.Config
	Query   query.Config
}

// Deps are the optional Redis and broker collaborators. Nil fields switch
// the matching feature off.
type Deps struct {
	Cache    *redisrepo.Cache
	PubSub   *redisrepo.EventsPubSub
	Limiter  *redisrepo.SlidingWindowLimiter
	Notifier booking.ConfirmationPublisher
}

func NewServices(
	runner uow.Runner,
	signer *payhere.Signer,
	deps Deps,
	logger *slog.Logger,
	cfg Config,
) *Services {
	// Typed nil pointers must not end up inside the interfaces below.
	var (
		cache   booking.EventInvalidator
		pubsub  booking.EventPublisher
		limiter payment.Limiter
	)
	if deps.Cache != nil {
		cache = deps.Cache
	}
	if deps.PubSub != nil {
		pubsub = deps.PubSub
	}
	if deps.Limiter != nil {
		limiter = deps.Limiter
	}

	bookings := booking.New(runner, cache, pubsub, deps.Notifier, logger, cfg.Booking)

	return &Services{
		Booking: bookings,
		Payment: payment.New(signer, bookings, runner, limiter, logger, cfg.Payment),
		Query:   query.New(runner, deps.Cache, cfg.Query),
		Admin:   admin.New(runner, cache, pubsub),
	}
}
