package mirror

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wasifali/investpkr/cmd/config"
	"github.com/wasifali/investpkr/internal/logger"
	"github.com/wasifali/investpkr/internal/models"
	"github.com/wasifali/investpkr/internal/storage"
	"go.uber.org/zap"
)

// The mirror keeps a best-effort JSON copy of the authoritative state in
// Redis, bucketed the same way the platform's clients expect it:
//
//	investpkr:data:<phone>  per-user stats, investments and ledger
//	investpkr:users         user directory
//	investpkr:plans         VIP plan catalog
//
// Writes are debounced: rapid mutations for one key collapse into a single
// write shortly after the last change. A failed write is logged and dropped,
// never surfaced to the caller; the database stays authoritative.

// DebounceWindow collapses bursts of mutations into one write.
const DebounceWindow = 1500 * time.Millisecond

const (
	userKeyPrefix = "investpkr:data:"
	usersKey      = "investpkr:users"
	plansKey      = "investpkr:plans"
)

type userData struct {
	Stats        models.UserStats        `json:"stats"`
	Investments  []models.UserInvestment `json:"investments"`
	Transactions []models.Transaction    `json:"transactions"`
}

type Mirror struct {
	mu       sync.Mutex
	pending  map[string]*time.Timer
	debounce time.Duration
	write    func(key string, payload []byte)
	fetchers map[string]func() ([]byte, error)
}

var std *Mirror

// Init connects to Redis and enables mirroring. With no address configured
// the mirror stays disabled and every Sync call is a no-op.
func Init() {
	if config.RedisAddress == "" {
		logger.Log.Info("Redis mirror disabled")
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Log.Warn("Redis mirror unreachable, continuing without it", zap.Error(err))
		return
	}

	std = newMirror(DebounceWindow, func(key string, payload []byte) {
		wctx, wcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer wcancel()
		if err := client.Set(wctx, key, payload, 0).Err(); err != nil {
			logger.Log.Warn("Mirror write failed", zap.String("key", key), zap.Error(err))
		}
	})

	logger.Log.Info("Redis mirror enabled", zap.String("address", config.RedisAddress))
}

func newMirror(debounce time.Duration, write func(key string, payload []byte)) *Mirror {
	return &Mirror{
		pending:  make(map[string]*time.Timer),
		debounce: debounce,
		write:    write,
		fetchers: make(map[string]func() ([]byte, error)),
	}
}

// schedule registers the snapshot fetcher for key and (re)arms its debounce
// timer. The snapshot is taken at flush time so the freshest state wins.
func (m *Mirror) schedule(key string, fetch func() ([]byte, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchers[key] = fetch

	if timer, ok := m.pending[key]; ok {
		timer.Reset(m.debounce)
		return
	}

	m.pending[key] = time.AfterFunc(m.debounce, func() {
		m.flush(key)
	})
}

func (m *Mirror) flush(key string) {
	m.mu.Lock()
	fetch := m.fetchers[key]
	delete(m.pending, key)
	delete(m.fetchers, key)
	m.mu.Unlock()

	if fetch == nil {
		return
	}

	payload, err := fetch()
	if err != nil {
		logger.Log.Warn("Mirror snapshot failed", zap.String("key", key), zap.Error(err))
		return
	}
	m.write(key, payload)
}

// SyncUser schedules a mirror write of one user's bucket.
func SyncUser(phone string) {
	if std == nil {
		return
	}
	std.schedule(userKeyPrefix+phone, func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		stats, err := storage.GetUserStats(ctx, phone)
		if err != nil {
			return nil, err
		}
		investments, err := storage.GetUserInvestments(ctx, phone)
		if err != nil {
			return nil, err
		}
		transactions, err := storage.GetUserTransactions(ctx, phone)
		if err != nil {
			return nil, err
		}
		return json.Marshal(userData{Stats: stats, Investments: investments, Transactions: transactions})
	})
}

// SyncUsers schedules a mirror write of the user directory.
func SyncUsers() {
	if std == nil {
		return
	}
	std.schedule(usersKey, func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		users, err := storage.GetAllUsers(ctx)
		if err != nil {
			return nil, err
		}
		type entry struct {
			Username   string `json:"username"`
			Phone      string `json:"phone"`
			ReferredBy string `json:"referredBy,omitempty"`
		}
		directory := make([]entry, 0, len(users))
		for _, u := range users {
			directory = append(directory, entry{Username: u.Username, Phone: u.Phone, ReferredBy: u.ReferredBy})
		}
		return json.Marshal(directory)
	})
}

// SyncPlans schedules a mirror write of the plan catalog.
func SyncPlans() {
	if std == nil {
		return
	}
	std.schedule(plansKey, func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		plans, err := storage.GetVIPPlans(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(plans)
	})
}
