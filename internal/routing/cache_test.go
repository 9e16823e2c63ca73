package routing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/feeflow/internal/routing"
	"github.com/MrJamesThe3rd/feeflow/internal/storage"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type lookups map[string]int

func (l lookups) RoutingLookup(result string) { l[result]++ }

func settings(payee string) *routing.Settings {
	return &routing.Settings{PayeeAddress: payee, DisplayName: "Greenfield School", Primary: true}
}

func newCache(t *testing.T, setup func(m *routing.MockStore), opts ...routing.Option) (*routing.Cache, *clock) {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := routing.NewMockStore(ctrl)

	if setup != nil {
		setup(store)
	}

	clk := &clock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]routing.Option{routing.WithClock(clk.Now)}, opts...)

	return routing.NewCache(store, opts...), clk
}

func TestCache_Payload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(m *routing.MockStore)
		between func(c *routing.Cache, clk *clock)
		want    routing.Payload
	}{
		{
			name: "HitWithinTTL",
			setup: func(m *routing.MockStore) {
				m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("school@okaxis"), nil).Times(1)
			},
			between: func(_ *routing.Cache, clk *clock) { clk.Advance(4 * time.Minute) },
			want:    routing.Payload{RoutingID: "school@okaxis", DisplayName: "Greenfield School"},
		},
		{
			name: "RefetchAfterTTL",
			setup: func(m *routing.MockStore) {
				gomock.InOrder(
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("old@okaxis"), nil),
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("new@okaxis"), nil),
				)
			},
			between: func(_ *routing.Cache, clk *clock) { clk.Advance(routing.DefaultTTL) },
			want:    routing.Payload{RoutingID: "new@okaxis", DisplayName: "Greenfield School"},
		},
		{
			name: "RefetchAfterInvalidate",
			setup: func(m *routing.MockStore) {
				gomock.InOrder(
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("old@okaxis"), nil),
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("new@okaxis"), nil),
				)
			},
			between: func(c *routing.Cache, _ *clock) { c.Invalidate("org-1") },
			want:    routing.Payload{RoutingID: "new@okaxis", DisplayName: "Greenfield School"},
		},
		{
			name: "RefetchAfterInvalidateAll",
			setup: func(m *routing.MockStore) {
				gomock.InOrder(
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("old@okaxis"), nil),
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("new@okaxis"), nil),
				)
			},
			between: func(c *routing.Cache, _ *clock) { c.Invalidate(routing.AllOrganizations) },
			want:    routing.Payload{RoutingID: "new@okaxis", DisplayName: "Greenfield School"},
		},
		{
			name: "InvalidateOtherOrganizationKeepsEntry",
			setup: func(m *routing.MockStore) {
				m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("school@okaxis"), nil).Times(1)
			},
			between: func(c *routing.Cache, _ *clock) { c.Invalidate("org-2") },
			want:    routing.Payload{RoutingID: "school@okaxis", DisplayName: "Greenfield School"},
		},
		{
			name: "StaleEntryWhenStoreUnreachable",
			setup: func(m *routing.MockStore) {
				gomock.InOrder(
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("school@okaxis"), nil),
					m.EXPECT().ActiveSettings(gomock.Any(), "org-1").
						Return(nil, fmt.Errorf("query: %w", storage.ErrUnreachable)),
				)
			},
			between: func(_ *routing.Cache, clk *clock) { clk.Advance(10 * time.Minute) },
			want:    routing.Payload{RoutingID: "school@okaxis", DisplayName: "Greenfield School"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clk := newCache(t, tt.setup)

			_, err := c.Payload(ctx, "org-1")
			require.NoError(t, err)

			tt.between(c, clk)

			got, err := c.Payload(ctx, "org-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCache_InvalidateAllResumesTTL(t *testing.T) {
	ctx := context.Background()

	c, _ := newCache(t, func(m *routing.MockStore) {
		m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("a@okaxis"), nil).Times(2)
		m.EXPECT().ActiveSettings(gomock.Any(), "org-2").Return(settings("b@okaxis"), nil).Times(2)
	})

	for _, org := range []string{"org-1", "org-2"} {
		_, err := c.Payload(ctx, org)
		require.NoError(t, err)
	}

	c.Invalidate(routing.AllOrganizations)

	// One bypass per organization, then cached again.
	for range 3 {
		for _, org := range []string{"org-1", "org-2"} {
			_, err := c.Payload(ctx, org)
			require.NoError(t, err)
		}
	}
}

func TestCache_FallbackWhenNotConfigured(t *testing.T) {
	ctx := context.Background()
	rec := lookups{}

	c, _ := newCache(t, func(m *routing.MockStore) {
		// Fallbacks are not cached, so a later configuration shows up immediately.
		m.EXPECT().ActiveSettings(gomock.Any(), "org-9").
			Return(nil, fmt.Errorf("active settings: %w", storage.ErrNotFound)).Times(2)
	}, routing.WithFallback("fallback@okhdfcbank", "Fees Office"), routing.WithRecorder(rec))

	for range 2 {
		got, err := c.Payload(ctx, "org-9")
		require.NoError(t, err)
		assert.Equal(t, routing.Payload{RoutingID: "fallback@okhdfcbank", DisplayName: "Fees Office", Fallback: true}, got)
	}

	assert.Equal(t, 2, rec[routing.LookupFallback])
}

func TestCache_DefaultFallback(t *testing.T) {
	c, _ := newCache(t, func(m *routing.MockStore) {
		m.EXPECT().ActiveSettings(gomock.Any(), "org-9").Return(nil, storage.ErrNotFound)
	})

	id, err := c.RoutingID(context.Background(), "org-9")
	require.NoError(t, err)
	assert.Equal(t, routing.DefaultFallback.PayeeAddress, id)
}

func TestCache_FallbackWhenUnreachableWithoutEntry(t *testing.T) {
	c, _ := newCache(t, func(m *routing.MockStore) {
		m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(nil, storage.ErrUnreachable)
	})

	got, err := c.Payload(context.Background(), "org-1")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
}

func TestCache_EmptyOrganization(t *testing.T) {
	c, _ := newCache(t, nil)

	got, err := c.Payload(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
}

func TestCache_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newCache(t, func(m *routing.MockStore) {
		m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(nil, context.Canceled)
	})

	_, err := c.Payload(ctx, "org-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCache_ForceRefresh(t *testing.T) {
	ctx := context.Background()
	rec := lookups{}

	c, clk := newCache(t, func(m *routing.MockStore) {
		gomock.InOrder(
			m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("old@okaxis"), nil),
			m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("new@okaxis"), nil),
		)
	}, routing.WithRecorder(rec))

	_, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)

	clk.Advance(time.Minute)

	got, err := c.ForceRefresh(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "new@okaxis", got.PayeeAddress)
	assert.Equal(t, "org-1", got.OrganizationID)
	assert.Equal(t, clk.Now(), got.FetchedAt)

	p, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "new@okaxis", p.RoutingID)
	assert.Equal(t, 1, rec[routing.LookupHit])
}

func TestCache_ForceRefreshNotConfigured(t *testing.T) {
	ctx := context.Background()

	c, _ := newCache(t, func(m *routing.MockStore) {
		gomock.InOrder(
			m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("old@okaxis"), nil),
			m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(nil, storage.ErrNotFound),
			m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(nil, storage.ErrUnreachable),
		)
	})

	_, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)

	_, err = c.ForceRefresh(ctx, "org-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// The removed entry is not served as stale.
	got, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
}

func TestCache_CustomTTL(t *testing.T) {
	ctx := context.Background()

	c, clk := newCache(t, func(m *routing.MockStore) {
		m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("a@okaxis"), nil).Times(2)
	}, routing.WithTTL(30*time.Second))

	_, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)

	clk.Advance(31 * time.Second)

	_, err = c.Payload(ctx, "org-1")
	require.NoError(t, err)
}

func TestLocal(t *testing.T) {
	ctx := context.Background()

	c, _ := newCache(t, func(m *routing.MockStore) {
		m.EXPECT().ActiveSettings(gomock.Any(), "org-1").Return(settings("a@okaxis"), nil).Times(2)
	})

	_, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)

	require.NoError(t, routing.Local(c).Invalidate(ctx, "org-1"))

	_, err = c.Payload(ctx, "org-1")
	require.NoError(t, err)
}

// hangingStore answers until hang is set, then blocks until the query's
// context ends.
type hangingStore struct {
	mu   sync.Mutex
	hang bool
}

func (s *hangingStore) stopAnswering() {
	s.mu.Lock()
	s.hang = true
	s.mu.Unlock()
}

func (s *hangingStore) ActiveSettings(ctx context.Context, _ string) (*routing.Settings, error) {
	s.mu.Lock()
	hang := s.hang
	s.mu.Unlock()

	if !hang {
		return settings("school@okaxis"), nil
	}

	<-ctx.Done()

	return nil, ctx.Err()
}

func TestCache_FetchDeadline(t *testing.T) {
	store := &hangingStore{}
	store.stopAnswering()

	c := routing.NewCache(store, routing.WithFetchTimeout(20*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	got, err := c.Payload(ctx, "org-1")

	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCache_FetchDeadlineServesStale(t *testing.T) {
	store := &hangingStore{}
	clk := &clock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	c := routing.NewCache(store, routing.WithClock(clk.Now), routing.WithFetchTimeout(20*time.Millisecond))
	ctx := context.Background()

	_, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)

	store.stopAnswering()
	clk.Advance(routing.DefaultTTL)

	got, err := c.Payload(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, routing.Payload{RoutingID: "school@okaxis", DisplayName: "Greenfield School"}, got)
}

func TestCache_CallerDeadline(t *testing.T) {
	store := &hangingStore{}
	store.stopAnswering()

	c := routing.NewCache(store, routing.WithFetchTimeout(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Payload(ctx, "org-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
