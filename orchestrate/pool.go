package orchestrate

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/latticeforge/kernel/capability"
	"github.com/latticeforge/kernel/construct"
)

// AgentID identifies one live agent handle.
type AgentID uuid.UUID

// NewAgentID returns a fresh random agent identifier.
func NewAgentID() AgentID { return AgentID(uuid.New()) }

func (a AgentID) String() string { return uuid.UUID(a).String() }

// AgentSpec is the role, directives, autonomy, and resource envelope an
// agent is instantiated with.
type AgentSpec struct {
	Role       string
	Directives construct.DirectiveSet
	Autonomy   capability.AutonomyLevel
	Resources  capability.ResourceCaps
}

// NewAgentSpec returns a default agent spec for role.
func NewAgentSpec(role string) AgentSpec {
	return AgentSpec{
		Role:       role,
		Directives: construct.NewDirectiveSet(),
		Autonomy:   capability.L3,
		Resources:  DefaultTaskResources(),
	}
}

// AgentSpecFromTask derives the spec an agent executing t would need.
func AgentSpecFromTask(t Task) AgentSpec {
	return AgentSpec{
		Role:       t.Role,
		Directives: t.Directives,
		Autonomy:   t.Autonomy,
		Resources:  t.Resources,
	}
}

// AgentMessageKind is the kind of message sent to a running agent.
type AgentMessageKind int

const (
	MsgExecute AgentMessageKind = iota
	MsgShutdown
	MsgPause
	MsgResume
)

// AgentMessage is sent to an agent's handle; Task is populated only for
// MsgExecute.
type AgentMessage struct {
	Kind AgentMessageKind
	Task *Task
}

// ExecutionMetrics records what executing one task cost.
type ExecutionMetrics struct {
	ExecutionTimeMs int64
	MemoryUsedMB    int
	TokensConsumed  *int
}

// TaskResult is what a completed task reports back.
type TaskResult struct {
	DeltaRef *string
	Metrics  ExecutionMetrics
}

// AgentResponseKind is the kind of message an agent emits.
type AgentResponseKind int

const (
	RespTaskCompleted AgentResponseKind = iota
	RespTaskFailed
	RespReady
	RespShuttingDown
)

// AgentResponse is emitted by a running agent back to whatever drives it.
type AgentResponse struct {
	Kind   AgentResponseKind
	TaskID TaskID
	Result *TaskResult
	Err    string
}

// PoolExhaustedError is returned when Acquire is called with every slot
// up to max already active.
type PoolExhaustedError struct{ Max int }

func (e *PoolExhaustedError) Error() string {
	return fmt.Sprintf("orchestrate: agent pool exhausted (max %d)", e.Max)
}

// CommunicationFailedError wraps a failed send to an agent's channel.
type CommunicationFailedError struct{ Detail string }

func (e *CommunicationFailedError) Error() string {
	return "orchestrate: agent communication failed: " + e.Detail
}

// AgentHandle is a live reference to a running agent.
type AgentHandle struct {
	ID       AgentID
	Spec     AgentSpec
	messages chan AgentMessage

	// SessionToken authenticates the transport session between the
	// orchestrator and this agent process. It authorizes nothing about
	// node execution — that is capability.Token's job — and is reissued
	// on every Acquire.
	SessionToken string
}

// Send delivers msg to the agent, blocking until accepted or ctx is done.
func (h *AgentHandle) Send(ctx context.Context, msg AgentMessage) error {
	select {
	case h.messages <- msg:
		return nil
	case <-ctx.Done():
		return &CommunicationFailedError{Detail: ctx.Err().Error()}
	}
}

// PoolStats summarizes an AgentPool's lifetime activity.
type PoolStats struct {
	TotalCreated       int
	ActiveCount        int
	AvailableCount     int
	TotalTasksExecuted int
	ReuseRate          float64
}

// AgentPool manages agent lifecycle: reuse of released handles by role,
// bounded creation of new ones, and graceful shutdown. It also owns the
// transport-session authentication for pooled agents: a dedicated EdDSA
// keypair signs short-lived session tokens (separate from the kernel's
// construction/execution signing key), and an optional Argon2id-hashed
// admission secret gates which agent processes may register with it at
// all.
type AgentPool struct {
	maxSize int

	mu        sync.Mutex
	available []*AgentHandle
	active    map[AgentID]*AgentHandle
	stats     PoolStats

	sessionPub    ed25519.PublicKey
	sessionPriv   ed25519.PrivateKey
	sessionTTL    time.Duration
	admissionHash string
	now           func() time.Time
}

// NewAgentPool returns a pool that allows at most maxSize concurrently
// active agents. It generates its own session-signing keypair; session
// tokens it issues are invalidated on restart, same as any other
// ephemeral credential.
func NewAgentPool(maxSize int) *AgentPool {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		// crypto/rand failure means the platform's entropy source is
		// broken; nothing downstream would be trustworthy either.
		panic(fmt.Sprintf("orchestrate: generate session signing key: %v", err))
	}
	return &AgentPool{
		maxSize:     maxSize,
		active:      make(map[AgentID]*AgentHandle),
		sessionPub:  pub,
		sessionPriv: priv,
		sessionTTL:  defaultSessionTokenTTL,
		now:         time.Now,
	}
}

// SetAdmissionSecret hashes secret with Argon2id and stores it as the
// pool's admission check. Subsequent Admit calls verify against it.
func (p *AgentPool) SetAdmissionSecret(secret string) error {
	encoded, err := hashAdmissionSecret(secret)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.admissionHash = encoded
	p.mu.Unlock()
	return nil
}

// Admit reports whether secret matches the pool's configured admission
// secret. With no secret configured it still runs the timing-equalized
// dummy verification path and returns false, rather than admitting
// everyone by default.
func (p *AgentPool) Admit(secret string) bool {
	p.mu.Lock()
	h := p.admissionHash
	p.mu.Unlock()
	if h == "" {
		dummyVerifyAdmissionSecret(secret)
		return false
	}
	return verifyAdmissionSecret(secret, h)
}

// VerifySessionToken checks a session token issued by this pool and
// returns the agent id and role it authenticates.
func (p *AgentPool) VerifySessionToken(tokenStr string) (AgentID, string, error) {
	return verifySessionToken(p.sessionPub, tokenStr)
}

// Acquire reuses a released handle whose role matches spec.Role, else
// creates a new one if under capacity, else returns PoolExhaustedError.
func (p *AgentPool) Acquire(spec AgentSpec) (*AgentHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, h := range p.available {
		if h.Spec.Role == spec.Role {
			p.available = append(p.available[:i], p.available[i+1:]...)
			p.active[h.ID] = h
			if err := p.reissueSessionToken(h); err != nil {
				return nil, err
			}
			p.stats.ActiveCount = len(p.active)
			p.stats.AvailableCount = len(p.available)
			return h, nil
		}
	}

	if len(p.active) >= p.maxSize {
		return nil, &PoolExhaustedError{Max: p.maxSize}
	}

	h := p.createAgent(spec)
	if err := p.reissueSessionToken(h); err != nil {
		return nil, err
	}
	p.active[h.ID] = h
	p.stats.TotalCreated++
	p.stats.ActiveCount = len(p.active)
	return h, nil
}

// reissueSessionToken signs a fresh session token for h, valid for the
// pool's sessionTTL from now. Called with p.mu held.
func (p *AgentPool) reissueSessionToken(h *AgentHandle) error {
	token, err := issueSessionToken(p.sessionPriv, h.ID, h.Spec.Role, p.now(), p.sessionTTL)
	if err != nil {
		return fmt.Errorf("orchestrate: issue session token: %w", err)
	}
	h.SessionToken = token
	return nil
}

// Release returns handle to the pool, up to capacity; beyond capacity it
// is shut down and dropped.
func (p *AgentPool) Release(handle *AgentHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.active, handle.ID)

	if len(p.available) < p.maxSize {
		p.available = append(p.available, handle)
	} else {
		close(handle.messages)
	}

	p.stats.ActiveCount = len(p.active)
	p.stats.AvailableCount = len(p.available)
}

// ShutdownAgent removes id from either active or available and closes its
// channel, ending its goroutine.
func (p *AgentPool) ShutdownAgent(id AgentID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.active[id]; ok {
		delete(p.active, id)
		close(h.messages)
	}
	for i, h := range p.available {
		if h.ID == id {
			p.available = append(p.available[:i], p.available[i+1:]...)
			close(h.messages)
			break
		}
	}

	p.stats.ActiveCount = len(p.active)
	p.stats.AvailableCount = len(p.available)
}

// ShutdownAll shuts down every active and available agent.
func (p *AgentPool) ShutdownAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, h := range p.active {
		close(h.messages)
	}
	for _, h := range p.available {
		close(h.messages)
	}
	p.active = make(map[AgentID]*AgentHandle)
	p.available = nil
	p.stats.ActiveCount = 0
	p.stats.AvailableCount = 0
}

// Stats returns a snapshot of pool statistics.
func (p *AgentPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// ActiveCount returns the number of currently active agents.
func (p *AgentPool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

func (p *AgentPool) createAgent(spec AgentSpec) *AgentHandle {
	h := &AgentHandle{
		ID:       NewAgentID(),
		Spec:     spec,
		messages: make(chan AgentMessage, 16),
	}
	go agentLoop(h.ID, spec, h.messages)
	return h
}

// agentLoop is the lifecycle goroutine behind one handle. Actual task
// execution is delegated to whatever transport the orchestrator wires in
// (see AgentTransport); this loop only manages pause/resume/shutdown
// bookkeeping and logs what it receives.
func agentLoop(id AgentID, spec AgentSpec, messages <-chan AgentMessage) {
	paused := false
	for msg := range messages {
		switch msg.Kind {
		case MsgExecute:
			if paused {
				continue
			}
			slog.Debug("agent received execute", "agent", id.String(), "role", spec.Role)
		case MsgShutdown:
			return
		case MsgPause:
			paused = true
		case MsgResume:
			paused = false
		}
	}
}
