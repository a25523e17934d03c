package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

type SyncState int

const (
	SyncIdle SyncState = iota
	SyncDragging
	SyncDropped
	SyncSyncing
	SyncSettled
	SyncRolledBack
)

var syncStateNames = map[SyncState]string{
	SyncIdle:       "idle",
	SyncDragging:   "dragging",
	SyncDropped:    "dropped",
	SyncSyncing:    "syncing",
	SyncSettled:    "settled",
	SyncRolledBack: "rolled_back",
}

func (s SyncState) String() string {
	if name, ok := syncStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SyncState(%d)", int(s))
}

func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var transitions = map[SyncState][]SyncState{
	SyncIdle:     {SyncDragging},
	SyncDragging: {SyncDropped, SyncIdle},
	SyncDropped:  {SyncSyncing, SyncRolledBack},
	SyncSyncing:  {SyncSettled, SyncRolledBack},
}

var ErrInvalidTransition = errors.New("invalid gesture transition")

// Gesture is the lifecycle of one drag: Idle, Dragging, Dropped (the surface
// already shows the new order), Syncing, then Settled or RolledBack.
type Gesture struct {
	mu      sync.Mutex
	state   SyncState
	history []SyncState
}

func NewGesture() *Gesture {
	return &Gesture{history: []SyncState{SyncIdle}}
}

func (g *Gesture) State() SyncState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// History lists every state the gesture went through, starting with Idle.
func (g *Gesture) History() []SyncState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]SyncState(nil), g.history...)
}

func (g *Gesture) Transition(to SyncState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, allowed := range transitions[g.state] {
		if allowed == to {
			g.state = to
			g.history = append(g.history, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.state, to)
}

// Actor is the viewer a gesture belongs to.
type Actor struct {
	Scope   string
	IsAdmin bool
}

// ResolveActor asks the backend who the viewer is. The cached user only
// stands in when the backend cannot be reached.
func ResolveActor(ctx context.Context, api ports.OnePanelAPI, session *Session) Actor {
	actor := Actor{Scope: session.Namespace()}
	user, err := api.Me(ctx)
	if errors.Is(err, ports.ErrUnavailable) {
		user, err = session.CachedUser(ctx)
	}
	if err == nil && user != nil {
		actor.IsAdmin = user.IsAdmin
	}
	return actor
}

// LinkDrop describes a finished link drag. The orders are the containers'
// contents after the drop; the Previous snapshots are their contents before
// the drag started and may be nil when unknown.
type LinkDrop struct {
	LinkID       int64   `json:"link_id"`
	FromGroupID  int64   `json:"from_group_id"`
	ToGroupID    int64   `json:"to_group_id"`
	FromOrder    []int64 `json:"from_order"`
	ToOrder      []int64 `json:"to_order"`
	PreviousFrom []int64 `json:"previous_from"`
	PreviousTo   []int64 `json:"previous_to"`
}

func (d LinkDrop) CrossGroup() bool {
	return d.FromGroupID != d.ToGroupID
}

// SyncOutcome tells the surface how to reconcile after a gesture.
type SyncOutcome struct {
	State   SyncState
	History []SyncState
	// Reload asks for a full refresh from the server.
	Reload bool
	// Restore maps group id to the link order to put back.
	Restore map[int64][]int64
	// RestoreGroups is the group order to put back.
	RestoreGroups []int64
	Err           error
}

const (
	MessagePublicReadonly = "Only admins can change the public group"
	MessageInvalidOrder   = "Invalid order"
	MessageReorderFailed  = "Failed to save order"
	MessageGroupsSaved    = "Group order saved"
)

// OrderSync pushes reorder gestures to the backend. Gestures of one actor are
// synced one at a time; different actors do not wait for each other, and the
// backend applies the last write.
type OrderSync struct {
	mu    sync.Mutex
	locks map[string]*actorLock
}

type actorLock struct {
	mu   sync.Mutex
	refs int
}

func NewOrderSync() *OrderSync {
	return &OrderSync{locks: make(map[string]*actorLock)}
}

func (s *OrderSync) acquire(scope string) func() {
	s.mu.Lock()
	l, ok := s.locks[scope]
	if !ok {
		l = &actorLock{}
		s.locks[scope] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, scope)
		}
		s.mu.Unlock()
	}
}

type container struct {
	groupID  int64
	order    []int64
	previous []int64
}

// DropLinks syncs a link drop. The destination is submitted as a full
// replacement and, for a move between groups, the source as well. On failure
// the containers that were already written are put back to their snapshots.
func (s *OrderSync) DropLinks(ctx context.Context, api ports.OnePanelAPI, notifier ports.Notifier, actor Actor, drop LinkDrop) SyncOutcome {
	g := droppedGesture()

	if !actor.IsAdmin && (drop.ToGroupID == domain.PublicGroupID || drop.FromGroupID == domain.PublicGroupID) {
		notifier.Toast(ctx, MessagePublicReadonly, true)
		return rollback(g, SyncOutcome{Reload: true})
	}
	if err := validateLinkDrop(drop); err != nil {
		slog.Warn("Rejected link drop", "scope", actor.Scope, "error", err)
		notifier.Toast(ctx, MessageInvalidOrder, true)
		return rollback(g, SyncOutcome{Reload: true, Err: err})
	}

	release := s.acquire(actor.Scope)
	defer release()

	mustTransition(g, SyncSyncing)

	containers := []container{{groupID: drop.ToGroupID, order: drop.ToOrder, previous: drop.PreviousTo}}
	if drop.CrossGroup() {
		containers = append(containers, container{groupID: drop.FromGroupID, order: drop.FromOrder, previous: drop.PreviousFrom})
	}

	var written []container
	for _, c := range containers {
		if len(c.order) == 0 {
			continue
		}
		err := api.ReorderLinks(ctx, domain.LinkOrder{LinkIDs: c.order, GroupID: c.groupID})
		if err != nil {
			slog.Error("Failed to sync link order", "scope", actor.Scope, "group", c.groupID, "error", err)
			notifier.Toast(ctx, Describe(err, MessageReorderFailed), true)
			return rollback(g, s.compensate(ctx, api, actor, drop, containers, written, err))
		}
		written = append(written, c)
	}

	mustTransition(g, SyncSettled)
	return SyncOutcome{State: g.State(), History: g.History()}
}

// compensate re-submits the snapshots of the containers already written. When
// the link moved and the destination was written, the source snapshot goes
// first so the link is returned to its group.
func (s *OrderSync) compensate(ctx context.Context, api ports.OnePanelAPI, actor Actor, drop LinkDrop, all, written []container, cause error) SyncOutcome {
	out := SyncOutcome{Err: cause, Restore: make(map[int64][]int64, len(all))}
	for _, c := range all {
		if c.previous == nil {
			return SyncOutcome{Err: cause, Reload: true}
		}
		restored := make([]int64, len(c.previous))
		copy(restored, c.previous)
		out.Restore[c.groupID] = restored
	}

	var undo []container
	if drop.CrossGroup() && len(written) > 0 {
		undo = append(undo, all[1])
	}
	for _, c := range written {
		if len(undo) > 0 && c.groupID == undo[0].groupID {
			continue
		}
		undo = append(undo, c)
	}

	for _, c := range undo {
		if len(c.previous) == 0 {
			continue
		}
		if err := api.ReorderLinks(ctx, domain.LinkOrder{LinkIDs: c.previous, GroupID: c.groupID}); err != nil {
			slog.Error("Failed to restore link order", "scope", actor.Scope, "group", c.groupID, "error", err)
			return SyncOutcome{Err: cause, Reload: true}
		}
	}
	return out
}

// DropGroups syncs a group drag with one call carrying the full order.
func (s *OrderSync) DropGroups(ctx context.Context, api ports.OnePanelAPI, notifier ports.Notifier, actor Actor, order, previous []int64) SyncOutcome {
	g := droppedGesture()

	if dup, ok := firstDuplicate(order); ok {
		err := fmt.Errorf("group %d listed twice", dup)
		notifier.Toast(ctx, MessageInvalidOrder, true)
		return rollback(g, SyncOutcome{Reload: previous == nil, RestoreGroups: previous, Err: err})
	}

	release := s.acquire(actor.Scope)
	defer release()

	mustTransition(g, SyncSyncing)
	if len(order) > 0 {
		if err := api.ReorderGroups(ctx, order); err != nil {
			slog.Error("Failed to sync group order", "scope", actor.Scope, "error", err)
			notifier.Toast(ctx, Describe(err, MessageReorderFailed), true)
			return rollback(g, SyncOutcome{Reload: previous == nil, RestoreGroups: previous, Err: err})
		}
	}
	notifier.Toast(ctx, MessageGroupsSaved, false)

	mustTransition(g, SyncSettled)
	return SyncOutcome{State: g.State(), History: g.History()}
}

func validateLinkDrop(d LinkDrop) error {
	if dup, ok := firstDuplicate(d.ToOrder); ok {
		return fmt.Errorf("link %d listed twice in group %d", dup, d.ToGroupID)
	}
	if !d.CrossGroup() {
		return nil
	}
	if dup, ok := firstDuplicate(d.FromOrder); ok {
		return fmt.Errorf("link %d listed twice in group %d", dup, d.FromGroupID)
	}
	seen := make(map[int64]struct{}, len(d.ToOrder))
	for _, id := range d.ToOrder {
		seen[id] = struct{}{}
	}
	for _, id := range d.FromOrder {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("link %d is in both group %d and group %d", id, d.FromGroupID, d.ToGroupID)
		}
	}
	return nil
}

func firstDuplicate(ids []int64) (int64, bool) {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return 0, false
}

func droppedGesture() *Gesture {
	g := NewGesture()
	mustTransition(g, SyncDragging)
	mustTransition(g, SyncDropped)
	return g
}

func rollback(g *Gesture, out SyncOutcome) SyncOutcome {
	mustTransition(g, SyncRolledBack)
	out.State = g.State()
	out.History = g.History()
	return out
}

func mustTransition(g *Gesture, to SyncState) {
	if err := g.Transition(to); err != nil {
		panic(err)
	}
}
