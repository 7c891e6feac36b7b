package instrumented

import (
	"context"
	"errors"
	"expvar"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/oksasatya/user-directory/internal/domain/entity"
	"github.com/oksasatya/user-directory/internal/domain/repository"
	"github.com/oksasatya/user-directory/internal/infrastructure/memory"
)

func counter(m *expvar.Map, key string) int64 {
	v, ok := m.Get(key).(*expvar.Int)
	if !ok {
		return 0
	}
	return v.Value()
}

type slowRepo struct {
	*memory.UserRepository
	delay time.Duration
}

func (r slowRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	time.Sleep(r.delay)
	return r.UserRepository.FindByID(ctx, id)
}

type brokenRepo struct {
	*memory.UserRepository
}

func (brokenRepo) DeleteByID(context.Context, string) error { return errors.New("socket closed") }

func TestWrap_PassesThroughAndCounts(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := Wrap(memory.NewUserRepository(), "memory", logger, 0)
	ctx := context.Background()

	insertsBefore := counter(opCount, "insert")
	findErrsBefore := counter(opErrors, "find_one")
	insertErrsBefore := counter(opErrors, "insert")

	u := &entity.User{Name: "Alice", Email: "alice@example.com", Age: 30, IsActive: true}
	require.NoError(t, repo.Insert(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, *u, *got)

	_, err = repo.FindByID(ctx, entity.NewID())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.Insert(ctx, &entity.User{Name: "Other", Email: "alice@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	assert.Equal(t, insertsBefore+2, counter(opCount, "insert"))
	// not-found and duplicates are not counted as failures
	assert.Equal(t, findErrsBefore, counter(opErrors, "find_one"))
	assert.Equal(t, insertErrsBefore, counter(opErrors, "insert"))
}

func TestWrap_CountsFailures(t *testing.T) {
	repo := Wrap(brokenRepo{memory.NewUserRepository()}, "memory", nil, 0)
	before := counter(opErrors, "delete_one")

	err := repo.DeleteByID(context.Background(), entity.NewID())
	assert.EqualError(t, err, "socket closed")
	assert.Equal(t, before+1, counter(opErrors, "delete_one"))
}

func TestWrap_LogsSlowOperations(t *testing.T) {
	logger, hook := test.NewNullLogger()
	repo := Wrap(slowRepo{UserRepository: memory.NewUserRepository(), delay: 5 * time.Millisecond}, "memory", logger, time.Millisecond)

	_, _ = repo.FindByID(context.Background(), entity.NewID())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "slow user store operation", entry.Message)
	assert.Equal(t, "find_one", entry.Data["operation"])
	assert.Equal(t, "memory", entry.Data["backend"])
}

func TestWrap_FastOperationsAreQuiet(t *testing.T) {
	logger, hook := test.NewNullLogger()
	repo := Wrap(memory.NewUserRepository(), "memory", logger, time.Minute)

	_, err := repo.Find(context.Background(), entity.ListFilter{}, entity.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}

// refusingMeter fails every instrument it is asked for.
type refusingMeter struct {
	noop.Meter
}

func (refusingMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return nil, errors.New("instrument name rejected")
}

func (refusingMeter) Float64Histogram(string, ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	return nil, errors.New("instrument name rejected")
}

func TestInitMetrics_FallsBackToNoop(t *testing.T) {
	logger, hook := test.NewNullLogger()

	m := initMetrics(refusingMeter{}, logger)

	require.NotNil(t, m.OpCount)
	require.NotNil(t, m.OpDuration)
	require.NotNil(t, m.OpErrors)
	require.Len(t, hook.AllEntries(), 3)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, e.Level)
		assert.Equal(t, "instrument name rejected", e.Data[logrus.ErrorKey].(error).Error())
	}
	assert.Equal(t, "user_store.op.duration", hook.AllEntries()[1].Data["instrument"])

	// the noop instruments are usable by the decorator
	repo := &UserRepository{
		next:    memory.NewUserRepository(),
		backend: "memory",
		tracer:  otel.Tracer(instrumentationName),
		metrics: m,
		logger:  logger,
	}
	assert.NoError(t, repo.Insert(context.Background(), &entity.User{Name: "Al", Email: "al@example.com"}))
}

func TestInitMetrics_NoWarningsWithWorkingProvider(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := initMetrics(noop.NewMeterProvider().Meter("test"), logger)
	require.NotNil(t, m.OpCount)
	assert.Empty(t, hook.AllEntries())
}
