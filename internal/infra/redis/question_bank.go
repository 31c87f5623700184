package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

// QuestionBankKey holds the JSON-encoded question bank.
const QuestionBankKey = "quiz:questions"

// QuestionBankVersionKey is bumped on every invalidation. A load only writes the cache
// when the version it started under is still current.
const QuestionBankVersionKey = "quiz:questions:version"

// QuestionBank caches the question bank in Redis and falls back to a loader on cache miss,
// so every instance behind a load balancer shares one cached copy.
type QuestionBank struct {
	client *redis.Client
	loader app.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader app.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Questions(ctx context.Context) ([]domain.QuizQuestion, error) {
	if questions, ok := b.cached(ctx); ok {
		return questions, nil
	}

	result, err, _ := b.sf.Do(QuestionBankKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := b.cached(ctx); ok {
			return questions, nil
		}

		version, err := b.version(ctx, b.client)
		if err != nil {
			// without a version the write below cannot be fenced, so skip caching
			return b.loader.LoadQuestions(ctx)
		}

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			// best-effort: a failed or aborted write only costs the next reader a reload
			_ = b.store(ctx, data, version)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuizQuestion), nil
}

func (b *QuestionBank) Invalidate(ctx context.Context) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, QuestionBankVersionKey)
		pipe.Del(ctx, QuestionBankKey)
		return nil
	})
	b.sf.Forget(QuestionBankKey)
	return err
}

// store writes the bank only if no invalidation happened since version was read.
func (b *QuestionBank) store(ctx context.Context, data []byte, version int64) error {
	return b.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := b.version(ctx, tx)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, QuestionBankKey, data, b.ttlWithJitter())
			return nil
		})
		return err
	}, QuestionBankVersionKey)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (b *QuestionBank) version(ctx context.Context, c getter) (int64, error) {
	v, err := c.Get(ctx, QuestionBankVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (b *QuestionBank) cached(ctx context.Context) ([]domain.QuizQuestion, bool) {
	// redis.Nil and connection errors alike fall through to the loader
	data, err := b.client.Get(ctx, QuestionBankKey).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.QuizQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	b.rndMu.Lock()
	defer b.rndMu.Unlock()
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
