package store

import (
	"context"
	"log"
	"sync"

	"github.com/Jamen1147/socialApp/internal/domain"
)

// Gateway is the remote API consumed by the Store. Details returns (nil, nil)
// when the record does not exist remotely; any other failure is uniform.
type Gateway interface {
	List(ctx context.Context) ([]domain.Activity, error)
	Details(ctx context.Context, id string) (*domain.Activity, error)
	Create(ctx context.Context, activity domain.Activity) error
	Update(ctx context.Context, activity domain.Activity) error
	Delete(ctx context.Context, id string) error
	Attend(ctx context.Context, id string) error
	Withdraw(ctx context.Context, id string) error
}

// Identity is the signed-in user as seen by the store.
type Identity struct {
	Username    string
	DisplayName string
	Image       string
}

// IdentityProvider exposes the current signed-in identity, if any.
type IdentityProvider interface {
	Current() (Identity, bool)
}

// Navigator receives fire-and-forget navigation intents after successful
// create/edit operations.
type Navigator interface {
	NavigateTo(path string)
}

// Notifier receives user-visible error notifications for failed mutations.
type Notifier interface {
	Notify(message string, err error)
}

// Store coordinates activity operations against the Gateway and owns the
// Registry. Mutations are confirm-then-apply: the cache changes only after
// the remote call has succeeded, so every failure is trivially atomic.
type Store struct {
	registry *Registry
	state    *Tracker

	gateway  Gateway
	identity IdentityProvider
	nav      Navigator
	notifier Notifier
	logger   *log.Logger

	mu        sync.Mutex
	inflight  map[string]struct{}
	observers []func()
}

// Option configures optional collaborators on the Store.
type Option func(*Store)

// WithNavigator injects the navigation collaborator.
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// WithNotifier injects the user-visible notification sink.
func WithNotifier(notifier Notifier) Option {
	return func(s *Store) { s.notifier = notifier }
}

// WithLogger overrides the logger used for read-path failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New constructs a Store around the provided gateway and identity source.
func New(gateway Gateway, identity IdentityProvider, opts ...Option) *Store {
	s := &Store{
		registry: NewRegistry(),
		state:    &Tracker{},
		gateway:  gateway,
		identity: identity,
		logger:   log.New(log.Writer(), "[store] ", log.LstdFlags),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the cache for read access.
func (s *Store) Registry() *Registry { return s.registry }

// State exposes the operation state tracker.
func (s *Store) State() *Tracker { return s.state }

// ByDate derives the date-bucketed listing from the current cache contents.
func (s *Store) ByDate() []DayGroup {
	return GroupByDate(s.registry.Values())
}

// Subscribe registers an observer invoked after every registry or state
// transition. Observers must not mutate the store.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) changed() {
	s.mu.Lock()
	observers := s.observers
	s.mu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

// Select marks the activity with id as open for detail/edit, from cache only.
func (s *Store) Select(id string) {
	if cached, ok := s.registry.Get(id); ok {
		s.state.setSelected(&cached)
	} else {
		s.state.setSelected(nil)
	}
	s.changed()
}

// Deselect clears the current selection.
func (s *Store) Deselect() {
	s.state.setSelected(nil)
	s.changed()
}

// LoadAll fetches the full collection and replaces cached copies with the
// remote state. On failure the registry is untouched.
func (s *Store) LoadAll(ctx context.Context) error {
	s.state.setLoadingInitial(true)
	s.changed()

	activities, err := s.gateway.List(ctx)
	if err != nil {
		s.state.setLoadingInitial(false)
		s.changed()
		s.logger.Printf("load activities: %v", err)
		return failure("loadAll", KindTransport, err)
	}

	for _, activity := range activities {
		s.registry.Upsert(activity)
	}
	s.state.setLoadingInitial(false)
	s.changed()
	return nil
}

// LoadOne resolves the activity cache-first: a cached copy is returned and
// selected without any remote call. A cache miss fetches the record, caching
// it on success.
func (s *Store) LoadOne(ctx context.Context, id string) (domain.Activity, error) {
	if cached, ok := s.registry.Get(id); ok {
		s.state.setSelected(&cached)
		s.changed()
		return cached, nil
	}

	s.state.setLoadingInitial(true)
	s.changed()

	fetched, err := s.gateway.Details(ctx, id)
	s.state.setLoadingInitial(false)
	if err != nil {
		s.changed()
		s.logger.Printf("load activity %s: %v", id, err)
		return domain.Activity{}, failure("loadOne", KindTransport, err)
	}
	if fetched == nil {
		s.changed()
		return domain.Activity{}, failure("loadOne", KindNotFound, nil)
	}

	s.registry.Upsert(*fetched)
	s.state.setSelected(fetched)
	s.changed()
	return *fetched, nil
}

// Create submits a new activity. The caller supplies the client-generated id.
// On success the creating identity becomes the sole (host) attendee and the
// store signals navigation to the detail path.
func (s *Store) Create(ctx context.Context, activity domain.Activity) error {
	ident, ok := s.identity.Current()
	if !ok {
		return failure("create", KindPrecondition, ErrNoIdentity)
	}
	if err := s.beginMutation("create", activity.ID); err != nil {
		return err
	}
	defer s.endMutation(activity.ID)

	s.state.setSubmitting(true)
	s.changed()

	err := s.gateway.Create(ctx, activity)
	s.state.setSubmitting(false)
	if err != nil {
		s.changed()
		s.notify("problem creating activity", err)
		return failure("create", KindTransport, err)
	}

	activity.Attendees = []domain.Attendee{{
		Username:    ident.Username,
		DisplayName: ident.DisplayName,
		Image:       ident.Image,
		IsHost:      true,
	}}
	activity.IsHost = true
	activity.IsGoing = true

	s.registry.Upsert(activity)
	s.changed()
	s.navigate("/activities/" + activity.ID)
	return nil
}

// Edit submits a full replacement of the activity. On success the cached copy
// is overwritten and becomes the current selection.
func (s *Store) Edit(ctx context.Context, activity domain.Activity) error {
	if err := s.beginMutation("edit", activity.ID); err != nil {
		return err
	}
	defer s.endMutation(activity.ID)

	s.state.setSubmitting(true)
	s.changed()

	err := s.gateway.Update(ctx, activity)
	s.state.setSubmitting(false)
	if err != nil {
		s.changed()
		s.notify("problem saving activity", err)
		return failure("edit", KindTransport, err)
	}

	s.registry.Upsert(activity)
	s.state.setSelected(&activity)
	s.changed()
	s.navigate("/activities/" + activity.ID)
	return nil
}

// Delete removes the activity remotely and, only once confirmed, from the
// cache. Target carries the id for row-level UI gating and is cleared on both
// paths.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.beginMutation("delete", id); err != nil {
		return err
	}
	defer s.endMutation(id)

	s.state.setSubmitting(true)
	s.state.setTarget(id)
	s.changed()

	err := s.gateway.Delete(ctx, id)
	s.state.setSubmitting(false)
	s.state.setTarget("")
	if err != nil {
		s.changed()
		s.logger.Printf("delete activity %s: %v", id, err)
		return failure("delete", KindTransport, err)
	}

	s.registry.Remove(id)
	s.changed()
	return nil
}

// Attend joins the currently selected activity. Once the remote call
// confirms, the identity is appended to the cached roster with the host flag
// unset and the activity is re-upserted.
func (s *Store) Attend(ctx context.Context) error {
	return s.attendance(ctx, "attend", func(activity *domain.Activity, ident Identity) {
		activity.Attendees = append(activity.Attendees, domain.Attendee{
			Username:    ident.Username,
			DisplayName: ident.DisplayName,
			Image:       ident.Image,
		})
		activity.IsGoing = true
	})
}

// CancelAttendance withdraws from the currently selected activity. Once
// confirmed, the identity's roster entry is removed and IsGoing cleared.
func (s *Store) CancelAttendance(ctx context.Context) error {
	return s.attendance(ctx, "cancelAttendance", func(activity *domain.Activity, ident Identity) {
		// The roster's backing array is shared with cached copies, so
		// compact into a fresh slice rather than in place.
		kept := make([]domain.Attendee, 0, len(activity.Attendees))
		for _, att := range activity.Attendees {
			if att.Username != ident.Username {
				kept = append(kept, att)
			}
		}
		activity.Attendees = kept
		activity.IsGoing = false
	})
}

func (s *Store) attendance(ctx context.Context, op string, apply func(*domain.Activity, Identity)) error {
	ident, ok := s.identity.Current()
	if !ok {
		return failure(op, KindPrecondition, ErrNoIdentity)
	}
	selected, ok := s.state.Selected()
	if !ok {
		return failure(op, KindPrecondition, ErrNoSelection)
	}
	if err := s.beginMutation(op, selected.ID); err != nil {
		return err
	}
	defer s.endMutation(selected.ID)

	s.state.setSubmitting(true)
	s.changed()

	call := s.gateway.Attend
	if op == "cancelAttendance" {
		call = s.gateway.Withdraw
	}
	err := call(ctx, selected.ID)
	s.state.setSubmitting(false)
	if err != nil {
		s.changed()
		s.notify("problem updating attendance", err)
		return failure(op, KindTransport, err)
	}

	apply(&selected, ident)
	s.registry.Upsert(selected)
	s.state.setSelected(&selected)
	s.changed()
	return nil
}

// beginMutation rejects overlapping mutations against the same activity id so
// two in-flight writes cannot race to a silent last-writer-wins outcome.
func (s *Store) beginMutation(op, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return failure(op, KindConflict, ErrMutationInFlight)
	}
	s.inflight[id] = struct{}{}
	return nil
}

func (s *Store) endMutation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

func (s *Store) notify(message string, err error) {
	if s.notifier != nil {
		s.notifier.Notify(message, err)
		return
	}
	s.logger.Printf("%s: %v", message, err)
}

func (s *Store) navigate(path string) {
	if s.nav != nil {
		s.nav.NavigateTo(path)
	}
}
