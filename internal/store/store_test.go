package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jamen1147/socialApp/internal/domain"
)

type mockGateway struct {
	mu           sync.Mutex
	listResult   []domain.Activity
	listErr      error
	detailsMap   map[string]*domain.Activity
	detailsErr   error
	detailsCalls int
	createErr    error
	updateErr    error
	deleteErr    error
	attendErr    error
	withdrawErr  error

	// deleteStarted/deleteRelease let a test hold a delete call in flight.
	deleteStarted chan struct{}
	deleteRelease chan struct{}
}

func (g *mockGateway) List(ctx context.Context) ([]domain.Activity, error) {
	return g.listResult, g.listErr
}

func (g *mockGateway) Details(ctx context.Context, id string) (*domain.Activity, error) {
	g.mu.Lock()
	g.detailsCalls++
	g.mu.Unlock()
	if g.detailsErr != nil {
		return nil, g.detailsErr
	}
	return g.detailsMap[id], nil
}

func (g *mockGateway) Create(ctx context.Context, activity domain.Activity) error {
	return g.createErr
}

func (g *mockGateway) Update(ctx context.Context, activity domain.Activity) error {
	return g.updateErr
}

func (g *mockGateway) Delete(ctx context.Context, id string) error {
	if g.deleteStarted != nil {
		close(g.deleteStarted)
		<-g.deleteRelease
	}
	return g.deleteErr
}

func (g *mockGateway) Attend(ctx context.Context, id string) error   { return g.attendErr }
func (g *mockGateway) Withdraw(ctx context.Context, id string) error { return g.withdrawErr }

func (g *mockGateway) DetailsCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.detailsCalls
}

type fixedIdentity struct {
	identity Identity
	present  bool
}

func (f fixedIdentity) Current() (Identity, bool) { return f.identity, f.present }

type recordingNav struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNav) NavigateTo(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(message string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func maryIdentity() fixedIdentity {
	return fixedIdentity{
		identity: Identity{Username: "mary", DisplayName: "Mary", Image: "mary.png"},
		present:  true,
	}
}

func TestLoadAllPopulatesRegistry(t *testing.T) {
	gateway := &mockGateway{listResult: []domain.Activity{
		activityFixture("a1", time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)),
		activityFixture("a2", time.Date(2024, time.March, 1, 18, 0, 0, 0, time.UTC)),
	}}
	s := New(gateway, maryIdentity())

	require.NoError(t, s.LoadAll(context.Background()))

	assert.Equal(t, 2, s.Registry().Len())
	assert.False(t, s.State().LoadingInitial())

	groups := s.ByDate()
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Activities, 2)
	assert.Equal(t, "a1", groups[0].Activities[0].ID)
	assert.Equal(t, "a2", groups[0].Activities[1].ID)
}

func TestLoadAllFailureLeavesRegistryUntouched(t *testing.T) {
	gateway := &mockGateway{listErr: errors.New("boom")}
	s := New(gateway, maryIdentity())

	err := s.LoadAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Equal(t, 0, s.Registry().Len())
	assert.False(t, s.State().LoadingInitial())
}

func TestLoadOneCacheFirstSkipsGateway(t *testing.T) {
	gateway := &mockGateway{}
	s := New(gateway, maryIdentity())
	cached := activityFixture("a1", time.Now())
	s.Registry().Upsert(cached)

	got, err := s.LoadOne(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, cached.ID, got.ID)
	assert.Equal(t, 0, gateway.DetailsCalls())

	selected, ok := s.State().Selected()
	require.True(t, ok)
	assert.Equal(t, "a1", selected.ID)
}

func TestLoadOneFetchesOnMiss(t *testing.T) {
	remote := activityFixture("a9", time.Now())
	gateway := &mockGateway{detailsMap: map[string]*domain.Activity{"a9": &remote}}
	s := New(gateway, maryIdentity())

	got, err := s.LoadOne(context.Background(), "a9")
	require.NoError(t, err)
	assert.Equal(t, "a9", got.ID)
	assert.Equal(t, 1, gateway.DetailsCalls())

	_, ok := s.Registry().Get("a9")
	assert.True(t, ok)
}

func TestLoadOneNotFound(t *testing.T) {
	gateway := &mockGateway{detailsMap: map[string]*domain.Activity{}}
	s := New(gateway, maryIdentity())

	_, err := s.LoadOne(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, s.Registry().Len())
}

func TestCreateSynthesizesHostRoster(t *testing.T) {
	gateway := &mockGateway{}
	nav := &recordingNav{}
	s := New(gateway, maryIdentity(), WithNavigator(nav))

	activity := activityFixture("x1", time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Create(context.Background(), activity))

	stored, ok := s.Registry().Get("x1")
	require.True(t, ok)
	require.Len(t, stored.Attendees, 1)
	assert.True(t, stored.Attendees[0].IsHost)
	assert.Equal(t, "mary", stored.Attendees[0].Username)
	assert.True(t, stored.IsGoing)
	assert.True(t, stored.IsHost)
	assert.Equal(t, []string{"/activities/x1"}, nav.paths)
}

func TestCreateFailureWritesNothingAndNotifies(t *testing.T) {
	gateway := &mockGateway{createErr: errors.New("500")}
	notifier := &recordingNotifier{}
	s := New(gateway, maryIdentity(), WithNotifier(notifier))

	err := s.Create(context.Background(), activityFixture("x1", time.Now()))
	require.Error(t, err)
	assert.Equal(t, 0, s.Registry().Len())
	assert.Len(t, notifier.messages, 1)
	assert.False(t, s.State().Submitting())
}

func TestCreateWithoutIdentityIsPrecondition(t *testing.T) {
	s := New(&mockGateway{}, fixedIdentity{})

	err := s.Create(context.Background(), activityFixture("x1", time.Now()))
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
	assert.True(t, errors.Is(err, ErrNoIdentity))
}

func TestEditOverwritesCacheAndSelects(t *testing.T) {
	gateway := &mockGateway{}
	s := New(gateway, maryIdentity())
	original := activityFixture("a1", time.Now())
	s.Registry().Upsert(original)

	edited := original
	edited.Title = "new title"
	require.NoError(t, s.Edit(context.Background(), edited))

	stored, _ := s.Registry().Get("a1")
	assert.Equal(t, "new title", stored.Title)
	selected, ok := s.State().Selected()
	require.True(t, ok)
	assert.Equal(t, "new title", selected.Title)
}

func TestDeleteFailureKeepsEntityAndClearsTarget(t *testing.T) {
	gateway := &mockGateway{deleteErr: errors.New("503")}
	s := New(gateway, maryIdentity())
	s.Registry().Upsert(activityFixture("a1", time.Now()))

	err := s.Delete(context.Background(), "a1")
	require.Error(t, err)

	_, ok := s.Registry().Get("a1")
	assert.True(t, ok)
	assert.Equal(t, "", s.State().Target())
	assert.False(t, s.State().Submitting())
}

func TestDeleteIsNotOptimistic(t *testing.T) {
	gateway := &mockGateway{
		deleteStarted: make(chan struct{}),
		deleteRelease: make(chan struct{}),
	}
	s := New(gateway, maryIdentity())
	s.Registry().Upsert(activityFixture("a1", time.Now()))

	done := make(chan error, 1)
	go func() {
		done <- s.Delete(context.Background(), "a1")
	}()

	<-gateway.deleteStarted
	// The remote call is still pending: the entity must still be readable
	// and Target must gate its row.
	_, ok := s.Registry().Get("a1")
	assert.True(t, ok)
	assert.Equal(t, "a1", s.State().Target())

	close(gateway.deleteRelease)
	require.NoError(t, <-done)

	_, ok = s.Registry().Get("a1")
	assert.False(t, ok)
	assert.Equal(t, "", s.State().Target())
}

func TestConcurrentMutationSameIDRejected(t *testing.T) {
	gateway := &mockGateway{
		deleteStarted: make(chan struct{}),
		deleteRelease: make(chan struct{}),
	}
	s := New(gateway, maryIdentity())
	s.Registry().Upsert(activityFixture("a1", time.Now()))

	done := make(chan error, 1)
	go func() {
		done <- s.Delete(context.Background(), "a1")
	}()
	<-gateway.deleteStarted

	err := s.Edit(context.Background(), activityFixture("a1", time.Now()))
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	close(gateway.deleteRelease)
	require.NoError(t, <-done)
}

func TestAttendCancelRoundTrip(t *testing.T) {
	gateway := &mockGateway{}
	s := New(gateway, maryIdentity())

	activity := activityFixture("a1", time.Now())
	activity.Attendees = []domain.Attendee{{Username: "bob", DisplayName: "Bob", IsHost: true}}
	s.Registry().Upsert(activity)
	s.Select("a1")

	require.NoError(t, s.Attend(context.Background()))

	joined, _ := s.Registry().Get("a1")
	require.Len(t, joined.Attendees, 2)
	assert.Equal(t, "mary", joined.Attendees[1].Username)
	assert.False(t, joined.Attendees[1].IsHost)
	assert.True(t, joined.IsGoing)

	require.NoError(t, s.CancelAttendance(context.Background()))

	left, _ := s.Registry().Get("a1")
	require.Len(t, left.Attendees, 1)
	assert.Equal(t, "bob", left.Attendees[0].Username)
	assert.False(t, left.IsGoing)
}

func TestCancelAttendanceLeavesHeldCopiesIntact(t *testing.T) {
	gateway := &mockGateway{}
	s := New(gateway, maryIdentity())

	activity := activityFixture("a1", time.Now())
	activity.Attendees = []domain.Attendee{
		{Username: "mary", DisplayName: "Mary"},
		{Username: "bob", DisplayName: "Bob", IsHost: true},
	}
	s.Registry().Upsert(activity)
	s.Select("a1")

	// A copy handed out before the mutation must keep its roster even
	// though its slice header points at the same backing array.
	held, ok := s.Registry().Get("a1")
	require.True(t, ok)

	require.NoError(t, s.CancelAttendance(context.Background()))

	require.Len(t, held.Attendees, 2)
	assert.Equal(t, "mary", held.Attendees[0].Username)
	assert.Equal(t, "bob", held.Attendees[1].Username)

	stored, _ := s.Registry().Get("a1")
	require.Len(t, stored.Attendees, 1)
	assert.Equal(t, "bob", stored.Attendees[0].Username)
}

func TestAttendFailureLeavesRosterUnchanged(t *testing.T) {
	gateway := &mockGateway{attendErr: errors.New("409")}
	notifier := &recordingNotifier{}
	s := New(gateway, maryIdentity(), WithNotifier(notifier))

	activity := activityFixture("a1", time.Now())
	activity.Attendees = []domain.Attendee{{Username: "bob", IsHost: true}}
	s.Registry().Upsert(activity)
	s.Select("a1")

	err := s.Attend(context.Background())
	require.Error(t, err)

	stored, _ := s.Registry().Get("a1")
	assert.Len(t, stored.Attendees, 1)
	assert.False(t, stored.IsGoing)
	assert.Len(t, notifier.messages, 1)
}

func TestAttendWithoutSelectionIsPrecondition(t *testing.T) {
	s := New(&mockGateway{}, maryIdentity())

	err := s.Attend(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindPrecondition, KindOf(err))
	assert.True(t, errors.Is(err, ErrNoSelection))
}

func TestSubscribeObservesTransitions(t *testing.T) {
	gateway := &mockGateway{listResult: []domain.Activity{activityFixture("a1", time.Now())}}
	s := New(gateway, maryIdentity())

	var mu sync.Mutex
	calls := 0
	s.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	require.NoError(t, s.LoadAll(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
}
