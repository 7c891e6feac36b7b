package instrumented

import (
	"context"
	"errors"
	"expvar"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/internal/domain/repository"
)

const instrumentationName = "github.com/oksasatya/user-directory/internal/infrastructure/instrumented"

// Exposed on /debug/vars.
var (
	opCount  = expvar.NewMap("user_store_ops")
	opErrors = expvar.NewMap("user_store_errors")
)

// Metrics holds the OpenTelemetry metric instruments
type Metrics struct {
	OpCount    metric.Int64Counter
	OpDuration metric.Float64Histogram
	OpErrors   metric.Int64Counter
}

// initMetrics creates the instruments. An instrument the provider refuses is
// logged and replaced by a noop one so store calls keep working.
func initMetrics(meter metric.Meter, logger *logrus.Logger) *Metrics {
	report := func(name string, err error) {
		if err != nil && logger != nil {
			logger.WithError(err).WithField("instrument", name).Warn("metric instrument unavailable; using noop")
		}
	}

	count, err := meter.Int64Counter("user_store.op.count",
		metric.WithDescription("Total number of user store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil || count == nil {
		report("user_store.op.count", err)
		count = noop.Int64Counter{}
	}
	duration, err := meter.Float64Histogram("user_store.op.duration",
		metric.WithDescription("User store operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil || duration == nil {
		report("user_store.op.duration", err)
		duration = noop.Float64Histogram{}
	}
	errs, err := meter.Int64Counter("user_store.op.errors",
		metric.WithDescription("Total number of failed user store operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil || errs == nil {
		report("user_store.op.errors", err)
		errs = noop.Int64Counter{}
	}
	return &Metrics{OpCount: count, OpDuration: duration, OpErrors: errs}
}

// UserRepository decorates a repository with spans, metrics and slow-operation logging.
type UserRepository struct {
	next    repository.UserRepository
	backend string
	tracer  trace.Tracer
	metrics *Metrics
	logger  *logrus.Logger
	slow    time.Duration
}

// Wrap instruments next using the global OpenTelemetry providers.
func Wrap(next repository.UserRepository, backend string, logger *logrus.Logger, slow time.Duration) *UserRepository {
	return &UserRepository{
		next:    next,
		backend: backend,
		tracer:  otel.Tracer(instrumentationName),
		metrics: initMetrics(otel.Meter(instrumentationName), logger),
		logger:  logger,
		slow:    slow,
	}
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	return r.observe(ctx, "insert", func(ctx context.Context) error {
		return r.next.Insert(ctx, u)
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.observe(ctx, "find_one", func(ctx context.Context) error {
		var err error
		out, err = r.next.FindByID(ctx, id)
		return err
	})
	return out, err
}

func (r *UserRepository) Find(ctx context.Context, f entity.ListFilter, p entity.Page) ([]entity.User, error) {
	var out []entity.User
	err := r.observe(ctx, "find_many", func(ctx context.Context) error {
		var err error
		out, err = r.next.Find(ctx, f, p)
		return err
	})
	return out, err
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, patch entity.UserPatch) (*entity.User, error) {
	var out *entity.User
	err := r.observe(ctx, "update_one", func(ctx context.Context) error {
		var err error
		out, err = r.next.UpdateByID(ctx, id, patch)
		return err
	})
	return out, err
}

func (r *UserRepository) DeleteByID(ctx context.Context, id string) error {
	return r.observe(ctx, "delete_one", func(ctx context.Context) error {
		return r.next.DeleteByID(ctx, id)
	})
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	return r.observe(ctx, "ensure_indexes", r.next.EnsureIndexes)
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

func (r *UserRepository) observe(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "user_store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", r.backend),
			attribute.String("db.operation", op),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	attrs := metric.WithAttributes(
		attribute.String("db.operation", op),
		attribute.String("db.system", r.backend),
	)
	opCount.Add(op, 1)
	r.metrics.OpCount.Add(ctx, 1, attrs)
	r.metrics.OpDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)

	// Missing records and duplicate emails are outcomes, not failures.
	if err != nil && !errors.Is(err, repository.ErrNotFound) && !errors.Is(err, repository.ErrDuplicateEmail) {
		opErrors.Add(op, 1)
		r.metrics.OpErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if r.logger != nil && r.slow > 0 && elapsed > r.slow {
		r.logger.WithFields(logrus.Fields{
			"operation": op,
			"backend":   r.backend,
			"duration":  elapsed.String(),
		}).Warn("slow user store operation")
	}
	return err
}

var _ repository.UserRepository = (*UserRepository)(nil)
