package pagesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

func newTestSession(t *testing.T, remote RemoteStore, cache LocalCache, autosave bool) *Session {
	t.Helper()
	s := NewSynchronizer(cache, remote, logging.Default())
	sess := NewSession(s, SessionOptions{LoadTimeout: time.Second, SaveTimeout: time.Second, Autosave: autosave}, logging.Default())
	t.Cleanup(sess.Close)
	return sess
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("load did not settle")
	}
}

func TestSessionStartsUninitialized(t *testing.T) {
	sess := newTestSession(t, NewMemoryRemote(), nil, false)
	assert.Equal(t, StateUninitialized, sess.State())
	assert.Nil(t, sess.Store())
	assert.ErrorIs(t, sess.Save(context.Background()), ErrNoTenant)
}

func TestSessionOpenWithoutRemoteRecordKeepsDefaults(t *testing.T) {
	sess := newTestSession(t, NewMemoryRemote(), nil, false)

	waitDone(t, sess.Open(context.Background(), "biz-1"))
	assert.Equal(t, StateReady, sess.State())
	assert.NoError(t, sess.LastLoadError())
	assert.Equal(t, bookingpage.DefaultSettings("biz-1").Steps, sess.Store().Steps())
}

func TestSessionHydratesThenRemoteWins(t *testing.T) {
	remote := newFlakyRemote()
	cache := NewMemoryCache()

	cached := bookingpage.DefaultSettings("biz-1")
	cached.BusinessName = "Cached Name"
	rec, err := EncodeRecord(cached)
	require.NoError(t, err)
	require.NoError(t, cache.Set(context.Background(), rec))

	authoritative := bookingpage.DefaultSettings("biz-1")
	authoritative.BusinessName = "Remote Name"
	remote.seed(t, authoritative)
	gate := remote.gate("biz-1")

	sess := newTestSession(t, remote, cache, false)
	done := sess.Open(context.Background(), "biz-1")

	assert.Equal(t, StateLoading, sess.State())
	assert.Equal(t, "Cached Name", sess.Store().BusinessName())

	close(gate)
	waitDone(t, done)
	assert.Equal(t, StateReady, sess.State())
	assert.Equal(t, "Remote Name", sess.Store().BusinessName())

	got, ok, err := cache.Get(context.Background(), "biz-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Remote Name", got.BusinessName)
}

func TestSessionLoadErrorKeepsCurrentValues(t *testing.T) {
	remote := newFlakyRemote()
	remote.loadErr = errors.New("network unreachable")
	cache := NewMemoryCache()

	cached := bookingpage.DefaultSettings("biz-1")
	cached.WelcomeMessage = "From cache"
	rec, err := EncodeRecord(cached)
	require.NoError(t, err)
	require.NoError(t, cache.Set(context.Background(), rec))

	sess := newTestSession(t, remote, cache, false)
	waitDone(t, sess.Open(context.Background(), "biz-1"))

	assert.Equal(t, StateReady, sess.State())
	assert.Error(t, sess.LastLoadError())
	assert.Equal(t, "From cache", sess.Store().WelcomeMessage())
}

func TestSessionDiscardsStaleLoad(t *testing.T) {
	remote := newFlakyRemote()
	first := bookingpage.DefaultSettings("biz-a")
	first.BusinessName = "Alpha"
	remote.seed(t, first)
	second := bookingpage.DefaultSettings("biz-b")
	second.BusinessName = "Beta"
	remote.seed(t, second)

	gateA := remote.gate("biz-a")
	sess := newTestSession(t, remote, nil, false)

	doneA := sess.Open(context.Background(), "biz-a")
	doneB := sess.Open(context.Background(), "biz-b")
	waitDone(t, doneB)
	assert.Equal(t, "Beta", sess.Store().BusinessName())

	close(gateA)
	waitDone(t, doneA)
	assert.Equal(t, "biz-b", sess.BusinessID())
	assert.Equal(t, "biz-b", sess.Store().BusinessID())
	assert.Equal(t, "Beta", sess.Store().BusinessName())
}

func TestSessionTenantSwitchNeverMerges(t *testing.T) {
	sess := newTestSession(t, NewMemoryRemote(), nil, false)
	waitDone(t, sess.Open(context.Background(), "biz-a"))
	sess.Store().SetBusinessName("Edited A")
	require.NoError(t, sess.Store().ToggleStep(bookingpage.StepPayment, false))

	waitDone(t, sess.Open(context.Background(), "biz-b"))
	assert.Equal(t, bookingpage.DefaultSettings("biz-b"), withVersion(sess.Store().Snapshot(), 0))
}

func withVersion(s bookingpage.Settings, v int64) bookingpage.Settings {
	s.Version = v
	return s
}

func TestSessionSaveSkipsSupersededSnapshot(t *testing.T) {
	remote := newFlakyRemote()
	sess := newTestSession(t, remote, nil, false)
	ctx := context.Background()
	waitDone(t, sess.Open(ctx, "biz-1"))

	sess.Store().SetBusinessName("Saved Once")
	require.NoError(t, sess.Save(ctx))
	require.NoError(t, sess.Save(ctx))

	stored, err := remote.Load(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "Saved Once", stored.BusinessName)
	assert.Equal(t, sess.Store().Version(), stored.Version)
	assert.False(t, sess.Saving())
}

func TestSessionSavePropagatesRemoteError(t *testing.T) {
	remote := newFlakyRemote()
	sess := newTestSession(t, remote, nil, false)
	ctx := context.Background()
	waitDone(t, sess.Open(ctx, "biz-1"))

	remote.mu.Lock()
	remote.saveErr = errors.New("write refused")
	remote.mu.Unlock()

	sess.Store().SetBusinessName("Unsaved")
	err := sess.Save(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write refused")

	remote.mu.Lock()
	remote.saveErr = nil
	remote.mu.Unlock()
	require.NoError(t, sess.Save(ctx))
	stored, err := remote.Load(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "Unsaved", stored.BusinessName)
}

func TestSessionAutosaveOnEdit(t *testing.T) {
	remote := newFlakyRemote()
	sess := newTestSession(t, remote, nil, true)
	ctx := context.Background()
	waitDone(t, sess.Open(ctx, "biz-1"))

	sess.Store().SetBusinessName("Autosaved")

	assert.Eventually(t, func() bool {
		rec, err := remote.Load(ctx, "biz-1")
		return err == nil && rec.BusinessName == "Autosaved"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionSubscribeFollowsTenantSwitch(t *testing.T) {
	sess := newTestSession(t, NewMemoryRemote(), nil, false)
	changes := make(chan bookingpage.Change, 16)
	cancel := sess.Subscribe(func(c bookingpage.Change) { changes <- c })
	defer cancel()

	waitDone(t, sess.Open(context.Background(), "biz-a"))
	first := <-changes
	assert.Equal(t, "biz-a", first.Settings.BusinessID)
	assert.Equal(t, bookingpage.SourceReload, first.Source)

	sess.Store().SetBusinessName("Edited")
	edit := <-changes
	assert.Equal(t, bookingpage.SourceEdit, edit.Source)
	assert.Equal(t, "Edited", edit.Settings.BusinessName)

	waitDone(t, sess.Open(context.Background(), "biz-b"))
	switched := <-changes
	assert.Equal(t, "biz-b", switched.Settings.BusinessID)
}

func TestSessionEndToEndScenario(t *testing.T) {
	remote := newFlakyRemote()
	cache := NewMemoryCache()
	ctx := context.Background()

	sess := newTestSession(t, remote, cache, false)
	waitDone(t, sess.Open(ctx, "biz-1"))
	store := sess.Store()

	require.NoError(t, store.ToggleStep(bookingpage.StepPayment, false))
	require.NoError(t, store.MoveStep(1, 0))
	colors, ok := store.ApplyTemplate(bookingpage.TemplateMinimal)
	require.True(t, ok)
	assert.Equal(t, "#111827", colors.Primary)

	enabled := bookingpage.EnabledSteps(store.Steps())
	require.Len(t, enabled, 4)
	assert.Equal(t, bookingpage.StepDate, enabled[0].ID)
	assert.Equal(t, bookingpage.StepDate, bookingpage.FirstEnabled(store.Steps()).ID)

	require.NoError(t, sess.Save(ctx))
	saved := store.Snapshot()

	fresh := newTestSession(t, remote, NewMemoryCache(), false)
	waitDone(t, fresh.Open(ctx, "biz-1"))
	reloaded := fresh.Store().Snapshot()
	assert.True(t, saved.Equal(reloaded), "changed: %v", bookingpage.ChangedFields(saved, reloaded))
	assert.Equal(t, bookingpage.TemplateMinimal, reloaded.TemplateID)
	assert.Equal(t, "#6B7280", reloaded.SecondaryColor)
}

func seedSalon(t *testing.T, remote *flakyRemote, businessID string) {
	t.Helper()
	salon := bookingpage.DefaultSettings(businessID)
	salon.BusinessName = "Real Salon"
	salon.PrimaryColor = "#ABCDEF"
	salon.LayoutType = bookingpage.LayoutAllInOne
	remote.seed(t, salon)
}

func TestSessionSaveDuringLoadNeverOverwritesRemote(t *testing.T) {
	remote := newFlakyRemote()
	seedSalon(t, remote, "biz-1")
	gate := remote.gate("biz-1")
	ctx := context.Background()

	sess := newTestSession(t, remote, nil, false)
	done := sess.Open(ctx, "biz-1")
	require.Equal(t, StateLoading, sess.State())
	sess.Store().SetWelcomeMessage("typed while loading")

	saved := make(chan error, 1)
	go func() { saved <- sess.Save(ctx) }()

	select {
	case err := <-saved:
		t.Fatalf("save finished before the load settled: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	waitDone(t, done)
	select {
	case err := <-saved:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("save did not finish")
	}

	stored, err := remote.Load(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "Real Salon", stored.BusinessName)
	assert.Equal(t, "#ABCDEF", stored.PrimaryColor)
	assert.Equal(t, string(bookingpage.LayoutAllInOne), stored.LayoutType)
	assert.Equal(t, "Real Salon", sess.Store().BusinessName())
}

func TestSessionAutosaveDuringLoadWaitsForRemote(t *testing.T) {
	remote := newFlakyRemote()
	seedSalon(t, remote, "biz-1")
	gate := remote.gate("biz-1")
	ctx := context.Background()

	sess := newTestSession(t, remote, nil, true)
	done := sess.Open(ctx, "biz-1")
	sess.Store().SetBusinessName("Defaults Overwrite")

	close(gate)
	waitDone(t, done)

	sess.Store().SetWelcomeMessage("after load")
	assert.Eventually(t, func() bool {
		rec, err := remote.Load(ctx, "biz-1")
		return err == nil && rec.WelcomeMessage == "after load"
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := remote.Load(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "Real Salon", stored.BusinessName)
	assert.Equal(t, "#ABCDEF", stored.PrimaryColor)
}

func TestSessionSaveRefusedAfterFailedLoad(t *testing.T) {
	remote := newFlakyRemote()
	seedSalon(t, remote, "biz-1")
	remote.loadErr = errors.New("network unreachable")
	ctx := context.Background()

	sess := newTestSession(t, remote, nil, false)
	waitDone(t, sess.Open(ctx, "biz-1"))
	sess.Store().SetBusinessName("Blind Write")

	err := sess.Save(ctx)
	require.ErrorIs(t, err, ErrLoadFailed)

	stored, err := remote.MemoryRemote.Load(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "Real Salon", stored.BusinessName)
}

func TestSessionSaveForLeftBusinessReportsSwitch(t *testing.T) {
	remote := newFlakyRemote()
	ctx := context.Background()
	sess := newTestSession(t, remote, nil, false)
	waitDone(t, sess.Open(ctx, "biz-a"))
	sess.Store().SetBusinessName("Edited A")

	gen := sess.generation.Load()
	waitDone(t, sess.Open(ctx, "biz-b"))

	assert.ErrorIs(t, sess.save(ctx, gen), ErrSessionSwitched)
	exists, err := remote.Exists(ctx, "biz-a")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSessionEditDuringLoadCommitIsPersisted(t *testing.T) {
	remote := newFlakyRemote()
	seedSalon(t, remote, "biz-1")
	gate := remote.gate("biz-1")
	ctx := context.Background()

	sess := newTestSession(t, remote, nil, true)
	var once sync.Once
	cancel := sess.Subscribe(func(c bookingpage.Change) {
		if c.Source == bookingpage.SourceReload && c.Settings.BusinessName == "Real Salon" {
			once.Do(func() { sess.Store().SetWelcomeMessage("typed as the load landed") })
		}
	})
	defer cancel()

	done := sess.Open(ctx, "biz-1")
	close(gate)
	waitDone(t, done)

	assert.Eventually(t, func() bool {
		rec, err := remote.Load(ctx, "biz-1")
		return err == nil && rec.WelcomeMessage == "typed as the load landed"
	}, 2*time.Second, 10*time.Millisecond)
}
