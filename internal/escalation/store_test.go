package escalation

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/ledger"
	"github.com/guildcare/internal/triage"
)

func storedCase(id string, created time.Time) *Case {
	return &Case{
		ID:        id,
		State:     StateIntake,
		Message:   "my gems vanished",
		Player:    triage.PlayerContext{PlayerID: "p-" + id, VIPLevel: 3},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// exerciseStore runs the behavior every Store must share
func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	first, ok, err := store.Create(ctx, storedCase("a", created))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateIntake, first.State)

	dup := storedCase("a", created)
	dup.Message = "something else"
	existing, ok, err := store.Create(ctx, dup)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "my gems vanished", existing.Message)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)
	_, _, err = store.Update(ctx, "missing", func(*Case) bool { return true })
	assert.ErrorIs(t, err, ErrCaseNotFound)

	updated, ok, err := store.Update(ctx, "a", func(c *Case) bool {
		c.moveTo(StateAnalyzing, "", "", created.Add(time.Second))
		return true
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateAnalyzing, updated.State)
	assert.Equal(t, first.Version+1, updated.Version)

	unchanged, ok, err := store.Update(ctx, "a", func(c *Case) bool {
		c.State = StateRejected
		return false
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateAnalyzing, unchanged.State)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StateAnalyzing, got.State)
	require.Len(t, got.History, 1)
	assert.Equal(t, StateIntake, got.History[0].From)

	_, _, err = store.Create(ctx, storedCase("b", created.Add(-time.Hour)))
	require.NoError(t, err)
	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	c, _, err := store.Create(ctx, storedCase("a", time.Now()))
	require.NoError(t, err)
	c.State = StateApproved

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, StateIntake, got.State)
}

func TestMemoryStoreConcurrentUpdatesApplyOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _, err := store.Create(ctx, storedCase("a", time.Now()))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := store.Update(ctx, "a", func(c *Case) bool {
				if c.State != StateIntake {
					return false
				}
				c.moveTo(StateAnalyzing, "", "", time.Now())
				return true
			})
			if err == nil && ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, applied)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("ESCALATION_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ESCALATION_TEST_REDIS_ADDR not set")
	}

	cfg := config.Default().Redis
	cfg.Addr = addr
	client := ledger.NewRedisClient(cfg)
	defer client.Close()

	store := NewRedisStore(client, "guildcare-test:"+time.Now().Format("150405.000000"))
	require.NoError(t, store.Ping(context.Background()))
	exerciseStore(t, store)

	analysis := analysisFor(triage.IssueTechnical, triage.ToneNeutral, grant(true))
	_, ok, err := store.Update(context.Background(), "a", func(c *Case) bool {
		c.Analysis = analysis
		return true
	})
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, triage.TierP3, got.Analysis.Recommendation.Tier)
}
