// Package flow drives a creation session from image selection to a saved or
// shared result.
package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cartoonify/internal/catalog"
	"cartoonify/internal/domain"
	"cartoonify/internal/entitlement"
	"cartoonify/internal/history"
	"cartoonify/internal/infra"
	"cartoonify/internal/processing"
)

// ErrUnknownPlatform is returned by Share for a platform outside Platforms.
var ErrUnknownPlatform = errors.New("flow: unknown share platform")

// Platforms lists the share targets, in display order.
var Platforms = []string{"instagram", "whatsapp", "tiktok", "facebook", "twitter"}

// Gallery persists a finished creation on the user's device or storage.
type Gallery interface {
	Save(ctx context.Context, session domain.CreationSession) (string, error)
}

// Options configures a Controller. Catalog, Ledger and Submitter are required.
type Options struct {
	Catalog   *catalog.Catalog
	Ledger    *entitlement.Ledger
	Submitter *processing.Submitter
	History   *history.Store
	Gallery   Gallery

	// SavePolicy and SharePolicy default to Never.
	SavePolicy  InterstitialPolicy
	SharePolicy InterstitialPolicy

	// IdleTTL evicts sessions untouched for longer than this on Sweep.
	// Zero keeps idle sessions until they are closed or ended.
	IdleTTL time.Duration

	Sink   Sink
	Logger *infra.Logger
	Now    func() time.Time
	NewID  func() string
}

// Controller owns every live creation session. All transitions are
// serialised by a single mutex; processing runs outside it.
type Controller struct {
	catalog     *catalog.Catalog
	ledger      *entitlement.Ledger
	submitter   *processing.Submitter
	history     *history.Store
	gallery     Gallery
	savePolicy  InterstitialPolicy
	sharePolicy InterstitialPolicy
	idleTTL     time.Duration
	sink        Sink
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string

	mu        sync.Mutex
	sessions  map[string]*sessionState
	sinceLast int
	shown     int
}

type sessionState struct {
	session     domain.CreationSession
	handle      *processing.Handle
	reservation *entitlement.Reservation
	// settled is closed when the current submission leaves Processing.
	settled chan struct{}
	// exiting is set while Save talks to the gallery.
	exiting bool
}

// NewController validates opts and returns a controller with no sessions.
func NewController(opts Options) (*Controller, error) {
	if opts.Catalog == nil || opts.Ledger == nil || opts.Submitter == nil {
		return nil, errors.New("flow: catalog, ledger and submitter are required")
	}
	c := &Controller{
		catalog:     opts.Catalog,
		ledger:      opts.Ledger,
		submitter:   opts.Submitter,
		history:     opts.History,
		gallery:     opts.Gallery,
		savePolicy:  opts.SavePolicy,
		sharePolicy: opts.SharePolicy,
		idleTTL:     opts.IdleTTL,
		sink:        opts.Sink,
		logger:      zerolog.Nop(),
		now:         opts.Now,
		newID:       opts.NewID,
		sessions:    make(map[string]*sessionState),
	}
	if opts.Logger != nil {
		c.logger = *opts.Logger
	}
	if c.history == nil {
		c.history = history.NewStore(history.Options{})
	}
	if c.savePolicy == nil {
		c.savePolicy = Never
	}
	if c.sharePolicy == nil {
		c.sharePolicy = Never
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c, nil
}

// History returns the store completed creations are appended to.
func (c *Controller) History() *history.Store { return c.history }

// Catalog returns the style catalog.
func (c *Controller) Catalog() *catalog.Catalog { return c.catalog }

// Ledger returns the entitlement ledger.
func (c *Controller) Ledger() *entitlement.Ledger { return c.ledger }

// NewSession starts an Idle session.
func (c *Controller) NewSession() domain.CreationSession {
	now := c.now()
	st := &sessionState{session: domain.CreationSession{
		ID:        c.newID(),
		Status:    domain.SessionStatusIdle,
		Intensity: domain.DefaultIntensity,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	c.mu.Lock()
	c.sessions[st.session.ID] = st
	snap := st.session.Clone()
	c.mu.Unlock()

	c.publish(Event{Kind: EventSessionStarted, SessionID: snap.ID})
	return snap
}

// Session returns a snapshot of the session.
func (c *Controller) Session(id string) (domain.CreationSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.lookupLocked(id)
	if err != nil {
		return domain.CreationSession{}, err
	}
	return st.session.Clone(), nil
}

// ProvideImage acquires the source image. A denied permission leaves the
// session untouched and is not reported as an error. Providing a new image
// while a request is in flight cancels it.
func (c *Controller) ProvideImage(ctx context.Context, id string, src ImageSource) (domain.CreationSession, error) {
	if _, err := c.mutable(id); err != nil {
		return domain.CreationSession{}, err
	}

	ref, err := src.Acquire(ctx)
	if errors.Is(err, domain.ErrPermissionDenied) {
		c.logger.Info().Str("session_id", id).Msg("flow: image permission denied")
		c.publish(Event{Kind: EventImageUnavailable, SessionID: id, Reason: "permission denied"})
		return c.Session(id)
	}
	if err != nil {
		return domain.CreationSession{}, fmt.Errorf("flow: acquire image: %w", err)
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.CreationSession{}, domain.ErrInvalidImageRef
	}

	c.mu.Lock()
	st, err := c.mutableLocked(id)
	if err != nil {
		c.mu.Unlock()
		return domain.CreationSession{}, err
	}
	var events []Event
	if ev, ok := c.cancelInflightLocked(st); ok {
		events = append(events, ev)
	}
	st.session.OriginalImageRef = ref
	st.session.ProcessedImageRef = ""
	st.session.FailureReason = ""
	c.transitionLocked(st, domain.SessionStatusSelecting)
	snap := st.session.Clone()
	c.mu.Unlock()

	c.syncLedger(ctx)
	events = append(events, Event{Kind: EventImageProvided, SessionID: id})
	c.publish(events...)
	return snap, nil
}

// SelectStyle applies a style and intensity and dispatches processing. When
// the style is gated the session is left unchanged, an upgrade event is
// published and RequiresUpgrade is returned with a nil error.
func (c *Controller) SelectStyle(ctx context.Context, id string, styleID domain.StyleID, intensity float64) (domain.CreationSession, entitlement.Decision, error) {
	style, err := c.catalog.Lookup(styleID)
	if err != nil {
		return domain.CreationSession{}, "", err
	}
	if !domain.ValidIntensity(intensity) {
		return domain.CreationSession{}, "", fmt.Errorf("%w: %v", domain.ErrInvalidIntensity, intensity)
	}

	c.mu.Lock()
	st, err := c.mutableLocked(id)
	if err != nil {
		c.mu.Unlock()
		return domain.CreationSession{}, "", err
	}
	if st.session.Status == domain.SessionStatusIdle {
		c.mu.Unlock()
		return domain.CreationSession{}, "", fmt.Errorf("%w: no image provided", domain.ErrInvalidTransition)
	}

	// A request for the same style already holds its gate reservation; carry
	// it over instead of asking the ledger for a second unlock.
	var res *entitlement.Reservation
	carried := st.handle != nil && st.session.SelectedStyleID == style.ID && st.reservation != nil
	if carried {
		res = st.reservation
		st.reservation = nil
	} else {
		var decision entitlement.Decision
		res, decision = c.ledger.Reserve(style)
		if decision != entitlement.Allowed {
			snap := st.session.Clone()
			c.mu.Unlock()
			c.logger.Debug().Str("session_id", id).Str("style_id", string(style.ID)).Msg("flow: style requires upgrade")
			c.publish(Event{Kind: EventUpgradeRequired, SessionID: id, StyleID: style.ID})
			return snap, decision, nil
		}
	}

	var events []Event
	if ev, ok := c.cancelInflightLocked(st); ok {
		events = append(events, ev)
	}
	events = append(events, c.submitLocked(ctx, st, style.ID, intensity, res))
	snap := st.session.Clone()
	c.mu.Unlock()

	c.syncLedger(ctx)
	c.publish(events...)
	return snap, entitlement.Allowed, nil
}

// Retry resubmits a failed session with its last style and intensity.
func (c *Controller) Retry(ctx context.Context, id string) (domain.CreationSession, entitlement.Decision, error) {
	snap, err := c.Session(id)
	if err != nil {
		return domain.CreationSession{}, "", err
	}
	if snap.Status != domain.SessionStatusFailed {
		return domain.CreationSession{}, "", fmt.Errorf("%w: retry from %s", domain.ErrInvalidTransition, snap.Status)
	}
	return c.SelectStyle(ctx, id, snap.SelectedStyleID, snap.Intensity)
}

// Back leaves Processing, Ready or Failed for Selecting. An in-flight request
// is cancelled and its result discarded.
func (c *Controller) Back(ctx context.Context, id string) (domain.CreationSession, error) {
	c.mu.Lock()
	st, err := c.mutableLocked(id)
	if err != nil {
		c.mu.Unlock()
		return domain.CreationSession{}, err
	}
	switch st.session.Status {
	case domain.SessionStatusProcessing, domain.SessionStatusReady, domain.SessionStatusFailed:
	default:
		c.mu.Unlock()
		return domain.CreationSession{}, fmt.Errorf("%w: back from %s", domain.ErrInvalidTransition, st.session.Status)
	}
	var events []Event
	if ev, ok := c.cancelInflightLocked(st); ok {
		events = append(events, ev)
	}
	st.session.ProcessedImageRef = ""
	st.session.FailureReason = ""
	c.transitionLocked(st, domain.SessionStatusSelecting)
	snap := st.session.Clone()
	c.mu.Unlock()

	c.syncLedger(ctx)
	c.publish(events...)
	return snap, nil
}

// Await blocks until the session is no longer Processing or ctx is done.
func (c *Controller) Await(ctx context.Context, id string) (domain.CreationSession, error) {
	for {
		c.mu.Lock()
		st, err := c.lookupLocked(id)
		if err != nil {
			c.mu.Unlock()
			return domain.CreationSession{}, err
		}
		if st.session.Status != domain.SessionStatusProcessing {
			snap := st.session.Clone()
			c.mu.Unlock()
			return snap, nil
		}
		settled := st.settled
		c.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return domain.CreationSession{}, ctx.Err()
		}
	}
}

// SaveResult describes the outcome of Save.
type SaveResult struct {
	Session      domain.CreationSession
	GalleryKey   string
	Interstitial bool
}

// Save stores a ready creation in the gallery and closes the session to
// further edits. The save interstitial policy is consulted afterwards.
func (c *Controller) Save(ctx context.Context, id string) (SaveResult, error) {
	c.mu.Lock()
	st, err := c.exitableLocked(id)
	if err != nil {
		c.mu.Unlock()
		return SaveResult{}, err
	}
	prevExit := st.session.Exit
	if prevExit == domain.ExitNone {
		st.session.Exit = domain.ExitSaved
		st.session.UpdatedAt = c.now()
	}
	st.exiting = true
	snap := st.session.Clone()
	c.mu.Unlock()

	var key string
	if c.gallery != nil {
		key, err = c.gallery.Save(ctx, snap)
		if err != nil {
			c.mu.Lock()
			st.exiting = false
			if prevExit == domain.ExitNone {
				st.session.Exit = domain.ExitNone
			}
			c.mu.Unlock()
			return SaveResult{}, fmt.Errorf("flow: save: %w", err)
		}
	}

	c.mu.Lock()
	st.exiting = false
	show := c.interstitialLocked(st, TriggerSave, c.savePolicy)
	snap = st.session.Clone()
	c.mu.Unlock()

	events := []Event{{Kind: EventSaved, SessionID: id, StyleID: snap.SelectedStyleID}}
	if show {
		events = append(events, Event{Kind: EventInterstitialShown, SessionID: id, Reason: string(TriggerSave)})
	}
	c.publish(events...)
	return SaveResult{Session: snap, GalleryKey: key, Interstitial: show}, nil
}

// ShareResult describes the outcome of Share.
type ShareResult struct {
	Session      domain.CreationSession
	Platform     string
	Interstitial bool
}

// Share hands a ready creation to a platform and closes the session to
// further edits. The share interstitial policy is consulted afterwards.
func (c *Controller) Share(ctx context.Context, id, platform string) (ShareResult, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if !knownPlatform(platform) {
		return ShareResult{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}

	c.mu.Lock()
	st, err := c.exitableLocked(id)
	if err != nil {
		c.mu.Unlock()
		return ShareResult{}, err
	}
	st.session.Exit = domain.ExitShared
	st.session.SharedTo = append(st.session.SharedTo, platform)
	st.session.UpdatedAt = c.now()
	show := c.interstitialLocked(st, TriggerShare, c.sharePolicy)
	snap := st.session.Clone()
	c.mu.Unlock()

	c.logger.Info().Str("session_id", id).Str("platform", platform).Msg("flow: shared")
	events := []Event{{Kind: EventShared, SessionID: id, StyleID: snap.SelectedStyleID, Reason: platform}}
	if show {
		events = append(events, Event{Kind: EventInterstitialShown, SessionID: id, Reason: string(TriggerShare)})
	}
	c.publish(events...)
	return ShareResult{Session: snap, Platform: platform, Interstitial: show}, nil
}

// DismissInterstitial clears a pending interstitial.
func (c *Controller) DismissInterstitial(id string) (domain.CreationSession, error) {
	c.mu.Lock()
	st, err := c.lookupLocked(id)
	if err != nil {
		c.mu.Unlock()
		return domain.CreationSession{}, err
	}
	was := st.session.InterstitialPending
	st.session.InterstitialPending = false
	snap := st.session.Clone()
	c.mu.Unlock()

	if was {
		c.publish(Event{Kind: EventInterstitialDismissed, SessionID: id})
	}
	return snap, nil
}

// End discards the session, cancelling any in-flight request.
func (c *Controller) End(ctx context.Context, id string) error {
	c.mu.Lock()
	st, err := c.lookupLocked(id)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	ev, cancelled := c.cancelInflightLocked(st)
	delete(c.sessions, id)
	c.mu.Unlock()

	if cancelled {
		c.syncLedger(ctx)
		c.publish(ev)
	}
	return nil
}

// Sweep evicts closed sessions once no interstitial is pending and, when
// IdleTTL is set, sessions untouched for longer than IdleTTL. It returns the
// number of sessions removed.
func (c *Controller) Sweep(ctx context.Context) int {
	now := c.now()
	var events []Event
	c.mu.Lock()
	evicted := 0
	for id, st := range c.sessions {
		if st.exiting {
			continue
		}
		closed := st.session.Closed() && !st.session.InterstitialPending
		idle := c.idleTTL > 0 && now.Sub(st.session.UpdatedAt) > c.idleTTL
		if !closed && !idle {
			continue
		}
		if ev, ok := c.cancelInflightLocked(st); ok {
			events = append(events, ev)
		}
		delete(c.sessions, id)
		evicted++
	}
	remaining := len(c.sessions)
	c.mu.Unlock()

	if evicted > 0 {
		c.logger.Debug().Int("evicted", evicted).Int("sessions", remaining).Msg("flow: sessions swept")
	}
	c.syncLedger(ctx)
	c.publish(events...)
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *Controller) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Len returns the number of live sessions.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Controller) lookupLocked(id string) (*sessionState, error) {
	st, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return st, nil
}

func (c *Controller) mutable(id string) (*sessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutableLocked(id)
}

// mutableLocked returns a session that still accepts image and style changes.
func (c *Controller) mutableLocked(id string) (*sessionState, error) {
	st, err := c.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	if st.session.InterstitialPending {
		return nil, domain.ErrInterstitialPending
	}
	if st.session.Closed() {
		return nil, domain.ErrSessionClosed
	}
	return st, nil
}

// exitableLocked returns a Ready session that may be saved or shared.
func (c *Controller) exitableLocked(id string) (*sessionState, error) {
	st, err := c.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	if st.session.InterstitialPending {
		return nil, domain.ErrInterstitialPending
	}
	if st.session.Status != domain.SessionStatusReady {
		return nil, fmt.Errorf("%w: exit from %s", domain.ErrInvalidTransition, st.session.Status)
	}
	if st.exiting {
		return nil, fmt.Errorf("%w: save in progress", domain.ErrInvalidTransition)
	}
	return st, nil
}

func (c *Controller) transitionLocked(st *sessionState, to domain.SessionStatus) {
	from := st.session.Status
	st.session.Status = to
	st.session.UpdatedAt = c.now()
	c.logger.Debug().
		Str("session_id", st.session.ID).
		Str("from", string(from)).
		Str("status", string(to)).
		Uint64("generation", st.session.Generation).
		Msg("flow: transition")
}

// cancelInflightLocked cancels the current request, hands its reservation
// back to the ledger and wakes Await callers. It reports whether a request
// was in flight.
func (c *Controller) cancelInflightLocked(st *sessionState) (Event, bool) {
	if st.handle == nil {
		return Event{}, false
	}
	h := st.handle
	h.Cancel()
	st.reservation.Release()
	st.handle = nil
	st.reservation = nil
	close(st.settled)
	st.settled = nil
	return Event{
		Kind:       EventProcessingCancelled,
		SessionID:  st.session.ID,
		StyleID:    st.session.SelectedStyleID,
		Generation: h.Generation(),
	}, true
}

func (c *Controller) submitLocked(ctx context.Context, st *sessionState, styleID domain.StyleID, intensity float64, res *entitlement.Reservation) Event {
	st.session.Generation++
	st.session.SelectedStyleID = styleID
	st.session.Intensity = intensity
	st.session.ProcessedImageRef = ""
	st.session.FailureReason = ""
	c.transitionLocked(st, domain.SessionStatusProcessing)

	h := c.submitter.Submit(ctx, st.session.Generation, st.session.OriginalImageRef, styleID, intensity)
	st.handle = h
	st.reservation = res
	st.settled = make(chan struct{})
	go c.watch(st.session.ID, h)

	return Event{
		Kind:       EventProcessingStarted,
		SessionID:  st.session.ID,
		StyleID:    styleID,
		Generation: h.Generation(),
	}
}

func (c *Controller) watch(id string, h *processing.Handle) {
	<-h.Done()
	c.complete(id, h)
}

// complete applies a resolved handle to its session unless the handle has
// been superseded, in which case the result is dropped.
func (c *Controller) complete(id string, h *processing.Handle) {
	c.mu.Lock()
	st, ok := c.sessions[id]
	if !ok || st.handle != h || st.session.Generation != h.Generation() {
		c.mu.Unlock()
		c.logger.Debug().Str("session_id", id).Uint64("generation", h.Generation()).Msg("flow: stale result dropped")
		return
	}

	outcome := h.Poll()
	res := st.reservation
	st.handle = nil
	st.reservation = nil

	var (
		ev    Event
		entry *domain.HistoryEntry
	)
	switch outcome.State {
	case processing.StateSucceeded:
		res.Commit()
		st.session.ProcessedImageRef = outcome.ProcessedImageRef
		st.session.FailureReason = ""
		c.transitionLocked(st, domain.SessionStatusReady)
		entry = &domain.HistoryEntry{
			ID:                c.newID(),
			SessionID:         st.session.ID,
			OriginalImageRef:  st.session.OriginalImageRef,
			ProcessedImageRef: outcome.ProcessedImageRef,
			StyleID:           st.session.SelectedStyleID,
			Intensity:         st.session.Intensity,
			CreatedAt:         st.session.UpdatedAt,
		}
		ev = Event{Kind: EventProcessingReady, SessionID: id, StyleID: st.session.SelectedStyleID, Generation: h.Generation()}
	case processing.StateCancelled:
		res.Release()
		c.transitionLocked(st, domain.SessionStatusSelecting)
		ev = Event{Kind: EventProcessingCancelled, SessionID: id, StyleID: st.session.SelectedStyleID, Generation: h.Generation()}
	default:
		res.Release()
		st.session.FailureReason = outcome.Reason()
		c.transitionLocked(st, domain.SessionStatusFailed)
		c.logger.Warn().Err(outcome.Err).
			Str("session_id", id).
			Str("style_id", string(st.session.SelectedStyleID)).
			Uint64("generation", h.Generation()).
			Msg("flow: processing failed")
		ev = Event{Kind: EventProcessingFailed, SessionID: id, StyleID: st.session.SelectedStyleID, Generation: h.Generation(), Reason: outcome.Reason()}
	}
	if entry != nil {
		// Recorded before Await callers wake; the repository write follows
		// outside the lock.
		c.history.Record(*entry)
	}
	close(st.settled)
	st.settled = nil
	c.mu.Unlock()

	ctx := context.Background()
	if entry != nil {
		if err := c.history.Persist(ctx, *entry); err != nil {
			c.logger.Warn().Err(err).Str("session_id", id).Msg("flow: persist history entry failed")
		}
	}
	c.syncLedger(ctx)
	c.publish(ev)
}

// syncLedger writes reservation changes made under c.mu. Failures stay dirty
// in the ledger and are retried by the next sync.
func (c *Controller) syncLedger(ctx context.Context) {
	if err := c.ledger.Sync(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("flow: persist entitlements failed")
	}
}

func (c *Controller) interstitialLocked(st *sessionState, trigger Trigger, policy InterstitialPolicy) bool {
	c.sinceLast++
	show := policy.ShouldShow(PolicyInput{
		Trigger:   trigger,
		SessionID: st.session.ID,
		SinceLast: c.sinceLast,
		Shown:     c.shown,
	})
	if show {
		c.shown++
		c.sinceLast = 0
		st.session.InterstitialPending = true
	}
	return show
}

func (c *Controller) publish(events ...Event) {
	if c.sink == nil {
		return
	}
	now := c.now()
	for _, e := range events {
		if e.At.IsZero() {
			e.At = now
		}
		c.sink.Publish(e)
	}
}

func knownPlatform(p string) bool {
	return slices.Contains(Platforms, p)
}
