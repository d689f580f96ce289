package workers

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/natek434/gardenit/config"
	"github.com/natek434/gardenit/interfaces"
	"github.com/natek434/gardenit/models"
	"github.com/natek434/gardenit/services"
)

// sweepLockKey guards a sweep across replicas: whichever instance
// claims it runs the sweep, the others skip the tick.
const sweepLockKey = "engine:sweep:lock"

// releaseSweepLockScript deletes the lock only while it still holds
// this sweep's ID. A sweep that outlived the lock TTL must not remove
// a lock another replica has since acquired.
const releaseSweepLockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) end return 0`

// sweepLocker is the slice of the redis API the worker needs for the
// cross-replica sweep lock. *redis.Client satisfies it.
type sweepLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// EvaluationWorker drives the notification engine: every interval it
// sweeps all notifiable users and evaluates their enabled rules.
type EvaluationWorker struct {
	// Dependencies
	redis sweepLocker

	// Services
	evaluationService *services.EvaluationService

	// Repositories
	userStore interfaces.UserStore

	// Worker configuration
	config config.EngineConfig

	// Worker state
	isRunning bool
	mutex     sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	stats      EvaluationWorkerStats
	statsMutex sync.RWMutex
}

type EvaluationWorkerStats struct {
	SweepsRun       int64      `json:"sweepsRun"`
	SweepsSkipped   int64      `json:"sweepsSkipped"`
	UsersEvaluated  int64      `json:"usersEvaluated"`
	UserFailures    int64      `json:"userFailures"`
	LastSweepAt     *time.Time `json:"lastSweepAt,omitempty"`
	LastSweepMillis int64      `json:"lastSweepMillis"`
}

func NewEvaluationWorker(
	redis sweepLocker,
	evaluationService *services.EvaluationService,
	userStore interfaces.UserStore,
	cfg config.EngineConfig,
) *EvaluationWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &EvaluationWorker{
		redis:             redis,
		evaluationService: evaluationService,
		userStore:         userStore,
		config:            cfg,
		ctx:               ctx,
		cancel:            cancel,
	}
}

func (ew *EvaluationWorker) Start() error {
	ew.mutex.Lock()
	defer ew.mutex.Unlock()

	if ew.isRunning {
		return nil
	}

	ew.isRunning = true

	logrus.Info("Starting Evaluation Worker...")

	ew.wg.Add(1)
	go ew.sweepLoop()

	logrus.Infof("Evaluation Worker started with %v interval", ew.config.EvaluationInterval)
	return nil
}

func (ew *EvaluationWorker) Stop() error {
	ew.mutex.Lock()
	defer ew.mutex.Unlock()

	if !ew.isRunning {
		return nil
	}

	logrus.Info("Stopping Evaluation Worker...")

	ew.cancel()
	ew.isRunning = false
	ew.wg.Wait()

	logrus.Info("Evaluation Worker stopped successfully")
	return nil
}

func (ew *EvaluationWorker) IsRunning() bool {
	ew.mutex.RLock()
	defer ew.mutex.RUnlock()
	return ew.isRunning
}

func (ew *EvaluationWorker) GetStats() EvaluationWorkerStats {
	ew.statsMutex.RLock()
	defer ew.statsMutex.RUnlock()
	return ew.stats
}

func (ew *EvaluationWorker) sweepLoop() {
	defer ew.wg.Done()

	ticker := time.NewTicker(ew.config.EvaluationInterval)
	defer ticker.Stop()

	// First sweep happens immediately so a fresh deployment does not
	// sit idle for a full interval.
	ew.runSweep()

	for {
		select {
		case <-ew.ctx.Done():
			return
		case <-ticker.C:
			ew.runSweep()
		}
	}
}

// runSweep claims the distributed lock and evaluates every notifiable
// user. The lock expires with the sweep timeout, so a crashed instance
// cannot wedge the engine.
func (ew *EvaluationWorker) runSweep() {
	sweepID := uuid.New().String()[:8]

	ctx, cancel := context.WithTimeout(ew.ctx, ew.config.SweepTimeout)
	defer cancel()

	if ew.redis != nil {
		acquired, err := ew.redis.SetNX(ctx, sweepLockKey, sweepID, ew.config.SweepTimeout).Result()
		if err != nil {
			logrus.Errorf("Sweep %s: failed to acquire lock: %v", sweepID, err)
			return
		}
		if !acquired {
			logrus.Debugf("Sweep %s skipped: another instance holds the lock", sweepID)
			ew.statsMutex.Lock()
			ew.stats.SweepsSkipped++
			ew.statsMutex.Unlock()
			return
		}
		defer ew.releaseSweepLock(sweepID)
	}

	started := time.Now()
	ref := started.UTC().Truncate(time.Minute)

	users, err := ew.userStore.ListNotifiable(ctx)
	if err != nil {
		logrus.Errorf("Sweep %s: failed to list users: %v", sweepID, err)
		return
	}

	logrus.Debugf("Sweep %s: evaluating %d users", sweepID, len(users))

	evaluated, failed := ew.evaluateUsers(ctx, ref, users)

	elapsed := time.Since(started)

	ew.statsMutex.Lock()
	ew.stats.SweepsRun++
	ew.stats.UsersEvaluated += evaluated
	ew.stats.UserFailures += failed
	ew.stats.LastSweepAt = &started
	ew.stats.LastSweepMillis = elapsed.Milliseconds()
	ew.statsMutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"sweep_id": sweepID,
		"users":    evaluated,
		"failures": failed,
		"elapsed":  elapsed.String(),
	}).Info("Evaluation sweep completed")
}

// releaseSweepLock runs the compare-and-delete script under a fresh
// context so shutdown of the sweep context cannot leave the lock held
// for the full TTL.
func (ew *EvaluationWorker) releaseSweepLock(sweepID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ew.redis.Eval(ctx, releaseSweepLockScript, []string{sweepLockKey}, sweepID).Err(); err != nil && err != redis.Nil {
		logrus.Errorf("Sweep %s: failed to release lock: %v", sweepID, err)
	}
}

// evaluateUsers fans the user list across a bounded pool. A failing
// user is logged and counted but never aborts the sweep.
func (ew *EvaluationWorker) evaluateUsers(ctx context.Context, ref time.Time, users []models.User) (evaluated, failed int64) {
	workers := ew.config.UserWorkers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan models.User)
	var wg sync.WaitGroup
	var evalCount, failCount int64
	var countMutex sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				err := ew.evaluationService.EvaluateUser(ctx, ref, user)

				countMutex.Lock()
				if err != nil {
					failCount++
				} else {
					evalCount++
				}
				countMutex.Unlock()

				if err != nil {
					logrus.Errorf("Failed to evaluate user %s: %v", user.ID.Hex(), err)
				}
			}
		}()
	}

	for _, user := range users {
		select {
		case <-ctx.Done():
			logrus.Warn("Sweep cancelled before all users were evaluated")
			close(jobs)
			wg.Wait()
			return evalCount, failCount
		case jobs <- user:
		}
	}
	close(jobs)
	wg.Wait()

	return evalCount, failCount
}
