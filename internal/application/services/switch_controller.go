package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
	domainservices "github.com/dualfolio/dualfolio/internal/domain/services"
	"github.com/dualfolio/dualfolio/internal/domain/values"
)

// ErrControllerClosed is returned when a controller is used after Close.
var ErrControllerClosed = errors.New("switch controller is closed")

// TransitionTiming holds the two phase delays of a persona switch.
type TransitionTiming struct {
	// Cover is the delay between the toggle and the flag flip, while the
	// screen is covered.
	Cover time.Duration
	// Reveal is the delay between the flip and the end of the transition.
	Reveal time.Duration
}

// DefaultTransitionTiming returns the 500ms/500ms pacing.
func DefaultTransitionTiming() TransitionTiming {
	return TransitionTiming{
		Cover:  500 * time.Millisecond,
		Reveal: 500 * time.Millisecond,
	}
}

// SwitchState is a snapshot of the switch.
type SwitchState struct {
	IsSwitchOn      bool `json:"isSwitchOn"`
	IsLoaded        bool `json:"isLoaded"`
	IsTransitioning bool `json:"isTransitioning"`
}

// Theme projects IsSwitchOn onto the document theme.
func (s SwitchState) Theme() values.Theme {
	return values.ThemeFor(s.IsSwitchOn)
}

// SwitchControllerDeps are the collaborators of a SwitchController.
// Theme and Announcer are optional.
type SwitchControllerDeps struct {
	Resolver  *domainservices.PersonaResolver
	Storage   ports.SwitchStorage
	Scheduler ports.Scheduler
	Theme     ports.ThemeMarker
	Announcer ports.Announcer
	Logger    *slog.Logger
}

// SwitchController owns the persona switch of one visitor session.
//
// The machine cycles Idle -> Transitioning -> Idle. A toggle marks the
// session as transitioning immediately, flips and persists the flag after the
// cover delay, and ends the transition after a further reveal delay. Toggles
// that arrive while a transition is in flight are dropped.
//
// Collaborators are called with the controller lock held and must not call
// back into the controller.
type SwitchController struct {
	ctx       context.Context
	cancel    context.CancelFunc
	resolver  *domainservices.PersonaResolver
	storage   ports.SwitchStorage
	scheduler ports.Scheduler
	theme     ports.ThemeMarker
	announcer ports.Announcer
	logger    *slog.Logger
	timers    map[uint64]ports.Timer
	announced string
	timing    TransitionTiming
	nextTimer uint64
	state     SwitchState
	mu        sync.Mutex
	closed    bool
	markerSet bool
}

// NewSwitchController creates a controller in the unloaded Idle(false) state.
func NewSwitchController(deps SwitchControllerDeps, timing TransitionTiming) (*SwitchController, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("switch controller requires a persona resolver")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("switch controller requires storage")
	}
	if deps.Scheduler == nil {
		return nil, fmt.Errorf("switch controller requires a scheduler")
	}
	if timing.Cover < 0 || timing.Reveal < 0 {
		return nil, fmt.Errorf("transition delays must not be negative")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SwitchController{
		ctx:       ctx,
		cancel:    cancel,
		resolver:  deps.Resolver,
		storage:   deps.Storage,
		scheduler: deps.Scheduler,
		theme:     deps.Theme,
		announcer: deps.Announcer,
		logger:    deps.Logger,
		timing:    timing,
		timers:    make(map[uint64]ports.Timer),
	}, nil
}

// Load reads the persisted flag. It only has an effect the first time.
// A missing flag means the primary persona; a corrupted one is logged and
// treated the same way.
func (c *SwitchController) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrControllerClosed
	}
	if c.state.IsLoaded {
		return nil
	}

	value, found, err := c.storage.LookupBool(ctx, ports.SwitchKey)
	switch {
	case err != nil:
		c.logger.Warn("stored persona switch is unreadable, using default",
			"key", ports.SwitchKey,
			"default", false,
			"error", err)
		value = false
	case !found:
		value = false
	}

	c.state.IsSwitchOn = value
	c.state.IsLoaded = true
	c.logger.Debug("persona switch loaded", "is_switch_on", value)

	c.applyTheme()
	c.announce()
	return nil
}

// Toggle starts a transition to the other persona.
// It returns false when the toggle was dropped because a transition is
// already in flight or the flag has not been loaded yet.
func (c *SwitchController) Toggle() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrControllerClosed
	}
	if !c.state.IsLoaded || c.state.IsTransitioning {
		c.logger.Debug("toggle dropped",
			"loaded", c.state.IsLoaded,
			"transitioning", c.state.IsTransitioning)
		return false, nil
	}

	c.state.IsTransitioning = true
	previous := c.state.IsSwitchOn
	c.schedule(c.timing.Cover, func() {
		c.commit(previous)
	})
	return true, nil
}

// commit runs at the cover/reveal boundary with the lock held.
func (c *SwitchController) commit(previous bool) {
	next := !previous

	if err := c.storage.SetBool(c.ctx, ports.SwitchKey, next); err != nil {
		// The animation has already started; the visitor ends up back on the
		// original persona once it completes.
		c.logger.Error("failed to persist persona switch, reverting",
			"key", ports.SwitchKey,
			"is_switch_on", previous,
			"error", err)
		c.state.IsSwitchOn = previous
	} else {
		c.state.IsSwitchOn = next
		c.applyTheme()
		c.announce()
	}

	c.schedule(c.timing.Reveal, func() {
		c.state.IsTransitioning = false
	})
}

// schedule registers a phase callback. The callback runs with the lock held
// and only if the timer is still registered and the controller is open.
func (c *SwitchController) schedule(d time.Duration, f func()) {
	c.nextTimer++
	id := c.nextTimer
	c.timers[id] = c.scheduler.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			return
		}
		if _, ok := c.timers[id]; !ok {
			return
		}
		delete(c.timers, id)
		f()
	})
}

func (c *SwitchController) applyTheme() {
	if c.theme == nil || !c.state.IsLoaded {
		return
	}
	c.theme.SetDark(c.state.IsSwitchOn)
	c.markerSet = c.state.IsSwitchOn
}

// announce publishes the live-region sentence when the resolved persona
// differs from the last announced one.
func (c *SwitchController) announce() {
	if !c.state.IsLoaded {
		return
	}
	persona := c.resolver.GetCurrentPersona(c.state.IsSwitchOn)
	if persona.ID.String() == c.announced {
		return
	}
	c.announced = persona.ID.String()

	if c.announcer != nil {
		c.announcer.Announce(Announcement(persona))
	}
}

// Announcement is the screen reader sentence for a persona change.
func Announcement(p entities.Persona) string {
	return fmt.Sprintf("Switched to %s's profile. %s.", p.Name, p.Bio)
}

// State returns the current switch state.
func (c *SwitchController) State() (SwitchState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return SwitchState{}, ErrControllerClosed
	}
	return c.state, nil
}

// CurrentPersona resolves the persona for the current flag.
func (c *SwitchController) CurrentPersona() (entities.Persona, error) {
	state, err := c.State()
	if err != nil {
		return entities.Persona{}, err
	}
	return c.resolver.GetCurrentPersona(state.IsSwitchOn), nil
}

// Close cancels every pending phase timer and releases the theme marker.
// No state changes after Close returns. Close is idempotent.
func (c *SwitchController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.cancel()

	if c.markerSet && c.theme != nil {
		c.theme.SetDark(false)
		c.markerSet = false
	}
}
