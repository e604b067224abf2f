package session

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/ayusman/skelid/internal/biometric"
	"github.com/ayusman/skelid/internal/monitoring"
	"github.com/ayusman/skelid/internal/skeleton"
)

// Defaults for Config.
const (
	DefaultGestureFrames = 20
)

// TemplateStore is the persistence the machine needs: a band query for
// verification and an append for finished enrolments.
type TemplateStore interface {
	Query(ctx context.Context, lower, upper biometric.Fingerprint) iter.Seq2[biometric.Template, error]
	Insert(ctx context.Context, name string, t *biometric.Template) error
}

// SampleRecorder keeps the raw samples of a finished enrolment.
type SampleRecorder interface {
	Create(ctx context.Context, s *biometric.Session, personID string) error
}

// Presence receives accepted identifications.
type Presence interface {
	Set(name string) bool
}

// Config holds the machine's thresholds.
type Config struct {
	// GestureFrames is how many consecutive enrol-gesture frames start an
	// enrolment.
	GestureFrames int
	// SampleTarget is how many samples an enrolment needs before the stop
	// gesture finalizes it.
	SampleTarget int
	// QueryBandCm is the half-width of the store pre-filter band.
	QueryBandCm float64
	Divisor     biometric.DivisorPolicy
}

// DefaultConfig returns the stock thresholds: 20 gesture frames, 50 samples,
// a 0.1cm query band, and averaging over all samples.
func DefaultConfig() Config {
	return Config{
		GestureFrames: DefaultGestureFrames,
		SampleTarget:  biometric.DefaultSampleTarget,
		QueryBandCm:   biometric.DefaultQueryBandCm,
		Divisor:       biometric.DivideByTotal,
	}
}

// Status is a point-in-time view of the machine.
type Status struct {
	State        State  `json:"state"`
	GestureCount int    `json:"gesture_count"`
	Prompting    bool   `json:"prompting,omitempty"`
	Enrolling    string `json:"enrolling,omitempty"`
	Samples      int    `json:"samples"`
	SampleTarget int    `json:"sample_target"`
}

// Machine is the enrolment/verification state machine. All bodies of a
// frame share one state, so two people enrolling at once interleave their
// samples into a single session.
type Machine struct {
	config   Config
	store    TemplateStore
	prompter NamePrompter
	presence Presence
	matcher  *biometric.Matcher
	agg      *biometric.Aggregator

	samples    SampleRecorder
	onEnrolled []func(biometric.Template)

	mu           sync.Mutex
	state        State
	gestureCount int
	session      *biometric.Session
	prompting    bool
}

// New creates a Machine in the Verifying state. A nil matcher uses
// biometric.NewMatcher().
func New(config Config, store TemplateStore, prompter NamePrompter, presence Presence, matcher *biometric.Matcher) *Machine {
	if config.GestureFrames <= 0 {
		config.GestureFrames = DefaultGestureFrames
	}
	if config.SampleTarget <= 0 {
		config.SampleTarget = biometric.DefaultSampleTarget
	}
	if config.QueryBandCm <= 0 {
		config.QueryBandCm = biometric.DefaultQueryBandCm
	}
	if matcher == nil {
		matcher = biometric.NewMatcher()
	}

	return &Machine{
		config:   config,
		store:    store,
		prompter: prompter,
		presence: presence,
		matcher:  matcher,
		agg:      biometric.NewAggregator(config.SampleTarget, config.Divisor),
		state:    Verifying,
	}
}

// SetSampleRecorder makes the machine persist raw samples after each
// successful enrolment.
func (m *Machine) SetSampleRecorder(r SampleRecorder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = r
}

// OnEnrolled registers fn to be called with every stored template.
func (m *Machine) OnEnrolled(fn func(biometric.Template)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnrolled = append(m.onEnrolled, fn)
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current state together with enrolment progress.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:        m.state,
		Prompting:    m.prompting,
		GestureCount: m.gestureCount,
		SampleTarget: m.config.SampleTarget,
	}
	if m.session != nil {
		st.Enrolling = m.session.Name
		st.Samples = m.session.Len()
	}
	return st
}

// ProcessFrame runs every tracked body of f through ProcessBody in order.
func (m *Machine) ProcessFrame(ctx context.Context, f *skeleton.Frame) error {
	entered := m.State()
	for _, body := range f.TrackedBodies() {
		if err := m.processBody(ctx, body, entered); err != nil {
			return err
		}
	}
	return nil
}

// ProcessBody advances the machine by one tracked body, treated as a frame
// of its own. Store failures are logged and never returned; the only error
// is a failed name prompt.
func (m *Machine) ProcessBody(ctx context.Context, body *skeleton.Body) error {
	return m.processBody(ctx, body, m.State())
}

// processBody advances the machine for one body. entered is the state at
// the start of the frame the body belongs to.
func (m *Machine) processBody(ctx context.Context, body *skeleton.Body, entered State) error {
	fp := biometric.Extract(body)

	m.mu.Lock()

	// Left closed with right open, held while verifying, starts an enrolment.
	if m.state == Verifying && enrolGesture(body) {
		m.gestureCount++
		if m.gestureCount >= m.config.GestureFrames {
			monitoring.Logf("starting enrolment")
			m.state = StartEnrolment
			m.gestureCount = 0
			m.session = nil
		}
	} else {
		m.gestureCount = 0
	}

	// Left open with right closed records a sample, or finishes once the
	// session is full.
	if m.state == CollectingData && stopGesture(body) {
		if m.agg.Complete(m.session) {
			m.finish(ctx)
		} else {
			monitoring.Logf("saving sample %d/%d", m.session.Len()+1, m.session.Target)
			m.agg.Add(m.session, fp)
		}
	}

	switch m.state {
	case StartEnrolment:
		// The prompt waits for the frame after the one that completed the
		// gesture.
		if entered == StartEnrolment && !m.prompting {
			m.prompting = true
			m.mu.Unlock()
			return m.promptName(ctx)
		}
	case Verifying:
		m.verify(ctx, fp)
	}
	m.mu.Unlock()
	return nil
}

func enrolGesture(b *skeleton.Body) bool {
	return b.HandLeft == skeleton.HandClosed && b.HandRight == skeleton.HandOpen
}

func stopGesture(b *skeleton.Body) bool {
	return b.HandLeft == skeleton.HandOpen && b.HandRight == skeleton.HandClosed
}

// promptName asks for the enrolment name without holding the lock, so
// Status and State stay readable while the operator types. The prompting
// flag keeps a second caller from prompting meanwhile.
func (m *Machine) promptName(ctx context.Context) error {
	name, err := m.prompter.PromptName(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompting = false

	if err != nil {
		m.state = Verifying
		return fmt.Errorf("prompt name: %w", err)
	}
	if name == "" {
		monitoring.Logf("enrolment cancelled: empty name")
		m.state = Verifying
		return nil
	}

	m.session = m.agg.Begin(name)
	m.state = CollectingData
	monitoring.Logf("collecting data for %s", name)
	return nil
}

// finish averages the session, stores it, and returns to Verifying whatever
// the outcome.
func (m *Machine) finish(ctx context.Context) {
	session := m.session
	m.session = nil
	m.state = Verifying

	monitoring.Logf("enrolment complete")

	tmpl, err := m.agg.Finalize(session)
	if err != nil {
		monitoring.Logf("enrolment of %s discarded: %v", session.Name, err)
		return
	}
	if err := m.store.Insert(ctx, session.Name, &tmpl); err != nil {
		monitoring.Logf("enrolment of %s discarded: %v", session.Name, err)
		return
	}

	if m.samples != nil {
		if err := m.samples.Create(ctx, session, tmpl.ID); err != nil {
			monitoring.Logf("failed to save samples for %s: %v", session.Name, err)
		}
	}

	for _, fn := range m.onEnrolled {
		fn(tmpl)
	}
}

func (m *Machine) verify(ctx context.Context, fp biometric.Fingerprint) {
	lower, upper := biometric.Band(fp, m.config.QueryBandCm)

	name, ok, results, err := m.matcher.Identify(fp, m.store.Query(ctx, lower, upper))
	if err != nil {
		monitoring.Logf("verification failed: %v", err)
		return
	}

	for _, r := range results {
		if r.Accepted {
			monitoring.Logf("very likely %s detected, %d features matched", r.Name, r.Count)
		}
	}

	if ok && m.presence != nil {
		m.presence.Set(name)
	}
}
