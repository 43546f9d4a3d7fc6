package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/config"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
	"github.com/jsamuelsen/authorclock/internal/platform/telemetry"
	"github.com/jsamuelsen/authorclock/internal/ports"
)

// errNoNetworkSource is returned when the policy asks for network time but no
// source was wired.
var errNoNetworkSource = errors.New("no network time source configured")

// TimePolicy decides which clock is authoritative.
type TimePolicy struct {
	// UseNetwork enables the network time source.
	UseNetwork bool

	// MaxDiscrepancySeconds is the largest local/network disagreement that
	// still trusts the device clock.
	MaxDiscrepancySeconds int

	// FallbackToLocal uses the device clock when the network source fails.
	FallbackToLocal bool

	// Timeout bounds the single network request.
	Timeout time.Duration

	// Source names the network endpoint in errors and logs.
	Source string
}

// TimePolicyFromConfig builds the policy from the time_sync config section.
func TimePolicyFromConfig(cfg config.TimeSyncConfig) TimePolicy {
	return TimePolicy{
		UseNetwork:            cfg.UseWebTime,
		MaxDiscrepancySeconds: cfg.MaxDiscrepancySeconds,
		FallbackToLocal:       cfg.FallbackToSystemTime,
		Timeout:               cfg.Timeout,
		Source:                cfg.WebTimeAPI,
	}
}

// TimeResolver reconciles the device clock with an optional network clock.
type TimeResolver struct {
	clock   ports.Clock
	network ports.NetworkTimeSource
	loc     *time.Location
	metrics *telemetry.ClockMetrics
	logger  *slog.Logger
}

// TimeResolverConfig contains the resolver's dependencies.
// Network may be nil when network time is never enabled.
type TimeResolverConfig struct {
	Clock    ports.Clock
	Network  ports.NetworkTimeSource
	Location *time.Location
	Metrics  *telemetry.ClockMetrics
	Logger   *slog.Logger
}

// NewTimeResolver creates a resolver. It panics without a clock.
func NewTimeResolver(cfg TimeResolverConfig) *TimeResolver {
	if cfg.Clock == nil {
		panic("app: TimeResolver requires a clock")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TimeResolver{
		clock:   cfg.Clock,
		network: cfg.Network,
		loc:     loc,
		metrics: cfg.Metrics,
		logger:  logger.With(slog.String("component", "app.TimeResolver")),
	}
}

// Resolve returns the authoritative time of day under policy.
//
// The device clock is always read first. With network time disabled it is
// returned as is. Otherwise the network source is queried once: on failure the
// device clock is a fallback when the policy allows it, and the result fails
// with a domain.TimeUnavailableError when it does not. On success the network
// time wins only when the two clocks disagree by more than
// MaxDiscrepancySeconds, compared as whole minutes of the day.
func (r *TimeResolver) Resolve(ctx context.Context, policy TimePolicy) domain.Result[domain.ResolvedTime] {
	res := r.resolve(ctx, policy)

	r.metrics.TimeResolved(ctx, res.Value.Source.String(), res.Kind.String())

	return res
}

func (r *TimeResolver) resolve(ctx context.Context, policy TimePolicy) domain.Result[domain.ResolvedTime] {
	local := domain.ResolvedTimeOf(r.clock.Now().In(r.loc), domain.SourceLocal)

	if !policy.UseNetwork {
		return domain.OK(local)
	}

	remote, err := r.fetch(ctx, policy)
	if err != nil {
		if policy.FallbackToLocal {
			r.logger.WarnContext(ctx, "network time failed, using device clock",
				slog.String("source", policy.Source),
				slog.Any("error", err),
			)

			return domain.Fallback(local, err)
		}

		r.logger.ErrorContext(ctx, "network time failed and fallback is disabled",
			slog.String("source", policy.Source),
			slog.Any("error", err),
		)

		return domain.Fail[domain.ResolvedTime](domain.NewTimeUnavailableError(policy.Source, err))
	}

	network := domain.ResolvedTimeOf(remote.In(r.loc), domain.SourceNetwork)
	discrepancy := Discrepancy(local, network)

	logging.Trace(ctx, r.logger, "compared clocks",
		slog.String("local", local.Key()),
		slog.String("network", network.Key()),
		slog.Duration("discrepancy", discrepancy),
	)

	if discrepancy > time.Duration(policy.MaxDiscrepancySeconds)*time.Second {
		r.logger.InfoContext(ctx, "device clock disagrees with network time, using network",
			slog.Duration("discrepancy", discrepancy),
		)

		return domain.OK(network)
	}

	return domain.OK(local)
}

func (r *TimeResolver) fetch(ctx context.Context, policy TimePolicy) (time.Time, error) {
	if r.network == nil {
		return time.Time{}, errNoNetworkSource
	}

	if policy.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	return r.network.Now(ctx)
}

// Discrepancy is the distance between two times of day in whole minutes,
// expressed as a duration. Seconds are ignored and the comparison does not
// wrap around midnight, so 23:59 and 00:00 are 1439 minutes apart.
func Discrepancy(a, b domain.ResolvedTime) time.Duration {
	delta := a.MinutesOfDay() - b.MinutesOfDay()
	if delta < 0 {
		delta = -delta
	}

	return time.Duration(delta) * time.Minute
}
