package workers

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natek434/gardenit/config"
	"github.com/natek434/gardenit/models"
)

type evalCall struct {
	script string
	keys   []string
	args   []interface{}
}

type fakeSweepLocker struct {
	acquire   bool
	setCalls  int
	lastValue interface{}
	lastTTL   time.Duration
	evalCalls []evalCall
}

func (f *fakeSweepLocker) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.setCalls++
	f.lastValue = value
	f.lastTTL = expiration
	return redis.NewBoolResult(f.acquire, nil)
}

func (f *fakeSweepLocker) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.evalCalls = append(f.evalCalls, evalCall{script: script, keys: keys, args: args})
	return redis.NewCmdResult(int64(1), nil)
}

type fakeUserStore struct {
	users     []models.User
	listCalls int
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, nil
}

func (f *fakeUserStore) ListNotifiable(ctx context.Context) ([]models.User, error) {
	f.listCalls++
	return f.users, nil
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		EvaluationInterval: 15 * time.Minute,
		SweepTimeout:       30 * time.Second,
		UserWorkers:        2,
	}
}

func TestSweepSkippedWhenLockHeld(t *testing.T) {
	locker := &fakeSweepLocker{acquire: false}
	users := &fakeUserStore{}
	worker := NewEvaluationWorker(locker, nil, users, testEngineConfig())

	worker.runSweep()

	stats := worker.GetStats()
	assert.Equal(t, int64(1), stats.SweepsSkipped)
	assert.Equal(t, int64(0), stats.SweepsRun)
	assert.Zero(t, users.listCalls)
	// A skipped sweep never owned the lock, so it must not touch it.
	assert.Empty(t, locker.evalCalls)
}

func TestSweepReleasesOnlyItsOwnLock(t *testing.T) {
	locker := &fakeSweepLocker{acquire: true}
	users := &fakeUserStore{}
	worker := NewEvaluationWorker(locker, nil, users, testEngineConfig())

	worker.runSweep()

	stats := worker.GetStats()
	assert.Equal(t, int64(1), stats.SweepsRun)
	assert.Equal(t, 1, users.listCalls)
	assert.Equal(t, 30*time.Second, locker.lastTTL)

	// Release goes through the compare-and-delete script keyed on this
	// sweep's own ID, so a sweep that outlived the lock TTL cannot
	// delete a lock a newer sweep acquired.
	require.Len(t, locker.evalCalls, 1)
	call := locker.evalCalls[0]
	assert.Equal(t, releaseSweepLockScript, call.script)
	assert.Equal(t, []string{sweepLockKey}, call.keys)
	require.Len(t, call.args, 1)
	assert.Equal(t, locker.lastValue, call.args[0])
}
