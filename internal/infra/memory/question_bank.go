package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"faculty-eval-service/internal/app"
	"faculty-eval-service/internal/domain"
)

const bankKey = "bank"

// QuestionBank caches the question bank with a TTL to avoid repeated store hits.
type QuestionBank struct {
	loader app.QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.QuizQuestion
	expiresAt time.Time
	cached    bool
	// generation advances on every Invalidate; loads started under an older one are not cached.
	generation uint64
}

func NewQuestionBank(loader app.QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Questions(ctx context.Context) ([]domain.QuizQuestion, error) {
	if questions, ok := b.fresh(b.clock()); ok {
		return questions, nil
	}

	result, err, _ := b.sf.Do(bankKey, func() (interface{}, error) {
		now := b.clock()
		if questions, ok := b.fresh(now); ok {
			return questions, nil
		}

		b.mu.RLock()
		gen := b.generation
		b.mu.RUnlock()

		questions, err := b.loader.LoadQuestions(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		if b.generation == gen {
			b.questions = questions
			b.expiresAt = now.Add(b.ttlWithJitter())
			b.cached = true
		}
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.QuizQuestion), nil
}

// Invalidate drops the cached bank so the next read reloads it.
func (b *QuestionBank) Invalidate(context.Context) error {
	b.mu.Lock()
	b.cached = false
	b.questions = nil
	b.generation++
	b.mu.Unlock()
	b.sf.Forget(bankKey)
	return nil
}

func (b *QuestionBank) fresh(now time.Time) ([]domain.QuizQuestion, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.cached && b.expiresAt.After(now) {
		return b.questions, true
	}
	return nil, false
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
