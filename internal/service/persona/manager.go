package persona

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/zhouzirui/help-center/backend/internal/model/persona"
)

var (
	ErrVisitorRequired = errors.New("visitor id is required")
	ErrInvalidPersona  = errors.New("invalid persona")
)

// State is the persona of a visitor together with its identification phase.
type State struct {
	Persona     persona.Persona `json:"persona"`
	Phase       persona.Phase   `json:"phase"`
	IsExploring bool            `json:"isExploring"`
	HasSelected bool            `json:"hasSelected"`
	Detecting   bool            `json:"detecting"`
}

// sessionIdle is how long an identification attempt is remembered without
// activity. Forgetting it re-enables automatic identification for the visitor.
const sessionIdle = 30 * time.Minute

// visitorSession exists only once identification was attempted.
type visitorSession struct {
	identifying bool
	lastSeen    time.Time
}

// Manager owns persona state per visitor. Every change is persisted through
// Storage and published to subscribers of that visitor.
//
// Storage I/O runs under a per-visitor stripe lock; mu guards only the maps
// and is never held across I/O. Lock order is stripe, then mu.
type Manager struct {
	storage persona.Storage
	logger  *slog.Logger
	now     func() time.Time

	stripes [64]sync.Mutex

	mu          sync.Mutex
	sessions    map[string]*visitorSession
	lastSweep   time.Time
	subscribers map[string]map[uint64]chan persona.Persona
	nextSubID   uint64
}

// NewManager creates a Manager backed by storage.
func NewManager(storage persona.Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage:     storage,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*visitorSession),
		subscribers: make(map[string]map[uint64]chan persona.Persona),
	}
}

// Get returns the visitor's persona, falling back to the default persona
// when nothing usable is stored.
func (m *Manager) Get(ctx context.Context, visitorID string) (persona.Persona, error) {
	state, err := m.State(ctx, visitorID)
	if err != nil {
		return persona.Persona{}, err
	}
	return state.Persona, nil
}

// State returns the persona along with its derived flags.
func (m *Manager) State(ctx context.Context, visitorID string) (State, error) {
	if visitorID == "" {
		return State{}, ErrVisitorRequired
	}

	unlock := m.lockVisitor(visitorID)
	defer unlock()

	p, err := m.load(ctx, visitorID)
	if err != nil {
		return State{}, err
	}
	return newState(p, m.phase(visitorID, p)), nil
}

// Set replaces the persona wholesale and marks it as an explicit choice.
// A pending identification loses: its result will be discarded.
func (m *Manager) Set(ctx context.Context, visitorID string, p persona.Persona) (State, error) {
	if visitorID == "" {
		return State{}, ErrVisitorRequired
	}
	if err := p.Validate(); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidPersona, err)
	}
	p.HasSelected = true

	unlock := m.lockVisitor(visitorID)
	defer unlock()

	if err := m.save(ctx, visitorID, p); err != nil {
		return State{}, err
	}
	m.forget(visitorID)

	m.logger.Info("persona selected", "visitor", visitorID, "role", p.Role)
	return newState(p, persona.PhaseManualSelected), nil
}

// Clear resets the visitor to the default persona and re-enables automatic identification.
func (m *Manager) Clear(ctx context.Context, visitorID string) (State, error) {
	if visitorID == "" {
		return State{}, ErrVisitorRequired
	}

	unlock := m.lockVisitor(visitorID)
	defer unlock()

	p := persona.Default()
	if err := m.save(ctx, visitorID, p); err != nil {
		return State{}, err
	}
	m.forget(visitorID)

	m.logger.Info("persona cleared", "visitor", visitorID)
	return newState(p, persona.PhaseUnset), nil
}

// BeginIdentification moves unset → identifying. It reports false when the
// visitor already chose, was already identified, or used up this session's attempt.
func (m *Manager) BeginIdentification(ctx context.Context, visitorID string) (bool, error) {
	if visitorID == "" {
		return false, ErrVisitorRequired
	}

	unlock := m.lockVisitor(visitorID)
	defer unlock()

	p, err := m.load(ctx, visitorID)
	if err != nil {
		return false, err
	}
	if !p.IsExploring() || p.HasSelected || p.Identified {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) >= sessionIdle {
		m.sweepLocked(now)
	}
	if session, ok := m.sessions[visitorID]; ok {
		session.lastSeen = now
		return false, nil
	}
	m.sessions[visitorID] = &visitorSession{identifying: true, lastSeen: now}
	return true, nil
}

// CompleteIdentification moves identifying → auto-identified and stores the
// company persona. It reports false, changing nothing, once the visitor has
// left the identifying phase.
func (m *Manager) CompleteIdentification(ctx context.Context, visitorID string, company persona.Company) (bool, error) {
	unlock := m.lockVisitor(visitorID)
	defer unlock()

	if !m.identifying(visitorID) {
		return false, nil
	}

	p := persona.FromCompany(company)
	err := m.save(ctx, visitorID, p)
	m.settle(visitorID)
	if err != nil {
		return false, err
	}

	m.logger.Info("visitor identified", "visitor", visitorID, "company", company.Name)
	return true, nil
}

// AbandonIdentification moves identifying → unset without touching the persona.
func (m *Manager) AbandonIdentification(visitorID string) {
	unlock := m.lockVisitor(visitorID)
	defer unlock()

	m.settle(visitorID)
}

// Subscribe returns a channel receiving the persona after every change for
// visitorID. The returned function unsubscribes and closes the channel.
func (m *Manager) Subscribe(visitorID string) (<-chan persona.Persona, func()) {
	ch := make(chan persona.Persona, 4)

	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	if m.subscribers[visitorID] == nil {
		m.subscribers[visitorID] = make(map[uint64]chan persona.Persona)
	}
	m.subscribers[visitorID][id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers[visitorID], id)
			if len(m.subscribers[visitorID]) == 0 {
				delete(m.subscribers, visitorID)
			}
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) lockVisitor(visitorID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(visitorID))
	mu := &m.stripes[h.Sum32()%uint32(len(m.stripes))]
	mu.Lock()
	return mu.Unlock
}

func (m *Manager) phase(visitorID string, p persona.Persona) persona.Phase {
	if m.identifying(visitorID) {
		return persona.PhaseIdentifying
	}
	return persona.PhaseOf(p)
}

func (m *Manager) identifying(visitorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[visitorID]
	return ok && session.identifying
}

// settle ends identification but keeps the attempt on record.
func (m *Manager) settle(visitorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[visitorID]; ok {
		session.identifying = false
		session.lastSeen = m.now()
	}
}

func (m *Manager) forget(visitorID string) {
	m.mu.Lock()
	delete(m.sessions, visitorID)
	m.mu.Unlock()
}

func (m *Manager) sweepLocked(now time.Time) {
	for id, session := range m.sessions {
		if !session.identifying && now.Sub(session.lastSeen) >= sessionIdle {
			delete(m.sessions, id)
		}
	}
	m.lastSweep = now
}

func (m *Manager) load(ctx context.Context, visitorID string) (persona.Persona, error) {
	raw, err := m.storage.Load(ctx, persona.KeyFor(visitorID))
	if err != nil && !errors.Is(err, persona.ErrNotFound) {
		return persona.Persona{}, fmt.Errorf("load persona: %w", err)
	}
	return persona.Decode(raw), nil
}

func (m *Manager) save(ctx context.Context, visitorID string, p persona.Persona) error {
	raw, err := persona.Encode(p)
	if err != nil {
		return fmt.Errorf("encode persona: %w", err)
	}
	if err := m.storage.Save(ctx, persona.KeyFor(visitorID), raw); err != nil {
		return fmt.Errorf("save persona: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[visitorID] {
		select {
		case ch <- p:
		default:
			m.logger.Warn("dropping persona update for slow subscriber", "visitor", visitorID)
		}
	}
	return nil
}

func newState(p persona.Persona, phase persona.Phase) State {
	return State{
		Persona:     p,
		Phase:       phase,
		IsExploring: p.IsExploring(),
		HasSelected: p.HasSelected,
		Detecting:   phase == persona.PhaseIdentifying,
	}
}
