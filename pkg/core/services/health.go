package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/view"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// HealthResult is the outcome of probing one link.
type HealthResult struct {
	Scope     string    `json:"-"`
	NodeID    string    `json:"node_id"`
	LinkID    int64     `json:"link_id"`
	Reachable bool      `json:"reachable"`
	Icon      string    `json:"icon"`
	Refresh   bool      `json:"refresh"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthChecker probes links for their viewers. Concurrent checks of one URL
// share a single probe, and at most DefaultHealthConcurrency probes run at
// once.
type HealthChecker struct {
	prober    ports.Prober
	board     *HealthBoard
	timeout   time.Duration
	errorIcon string

	flights singleflight.Group
	slots   *semaphore.Weighted
}

func NewHealthChecker(prober ports.Prober, board *HealthBoard, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = config.DefaultHealthTimeout
	}
	return &HealthChecker{
		prober:    prober,
		board:     board,
		timeout:   timeout,
		errorIcon: config.DefaultErrorIcon,
		slots:     semaphore.NewWeighted(config.DefaultHealthConcurrency),
	}
}

func (h *HealthChecker) Board() *HealthBoard {
	return h.board
}

// Check probes one link and publishes the result. It never panics and never
// fails: an unreachable link is a result, not an error.
func (h *HealthChecker) Check(ctx context.Context, scope string, link view.Link) (res HealthResult) {
	res = HealthResult{Scope: scope, NodeID: link.NodeID, LinkID: link.ID, CheckedAt: time.Now()}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Health check panicked", "node", link.NodeID, "panic", fmt.Sprint(r))
			res.Reachable = false
			res.Icon = h.errorIcon
		}
		if h.board != nil {
			h.board.Publish(res)
		}
	}()

	if err := h.probe(ctx, link.URL); err != nil {
		slog.Debug("Health check failed", "node", link.NodeID, "url", link.URL, "error", err)
		res.Icon = h.errorIcon
		return res
	}
	res.Reachable = true
	res.Icon = link.Icon
	if h.board != nil {
		if prev, ok := h.board.Status(scope, link.NodeID); ok && !prev.Reachable {
			res.Refresh = true
		}
	}
	return res
}

// probe waits for a free slot before the timeout starts, so a queued probe is
// not failed for the time it spent waiting.
func (h *HealthChecker) probe(ctx context.Context, url string) error {
	_, err, _ := h.flights.Do(url, func() (any, error) {
		if err := h.slots.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer h.slots.Release(1)

		probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
		defer cancel()
		return nil, h.safeProbe(probeCtx, url)
	})
	return err
}

func (h *HealthChecker) safeProbe(ctx context.Context, url string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Health probe panicked", "url", url, "panic", fmt.Sprint(r))
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return h.prober.Probe(ctx, url)
}

// Start checks every link in the background. The checks outlive ctx's
// cancellation, as a render returns long before they finish.
func (h *HealthChecker) Start(ctx context.Context, scope string, links []view.Link) {
	go h.CheckAll(context.WithoutCancel(ctx), scope, links)
}

// CheckAll checks every link concurrently and waits for all results, in the
// order of links.
func (h *HealthChecker) CheckAll(ctx context.Context, scope string, links []view.Link) []HealthResult {
	results := make([]HealthResult, len(links))
	var wg sync.WaitGroup
	for i, l := range links {
		wg.Add(1)
		go func(i int, l view.Link) {
			defer wg.Done()
			results[i] = h.Check(ctx, scope, l)
		}(i, l)
	}
	wg.Wait()
	return results
}

// HealthBoard tracks the latest health result of every node a scope (one
// viewer) currently shows, and fans results out to subscribers.
type HealthBoard struct {
	mu     sync.Mutex
	nodes  map[string]map[string]*HealthResult
	subs   map[string]map[int]chan HealthResult
	seen   map[string]time.Time
	nextID int
}

func NewHealthBoard() *HealthBoard {
	return &HealthBoard{
		nodes: make(map[string]map[string]*HealthResult),
		subs:  make(map[string]map[int]chan HealthResult),
		seen:  make(map[string]time.Time),
	}
}

// Register records the nodes of a scope's latest render. Known results of
// nodes still present are kept; everything else is forgotten.
func (b *HealthBoard) Register(scope string, nodeIDs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.nodes[scope]
	next := make(map[string]*HealthResult, len(nodeIDs))
	for _, id := range nodeIDs {
		next[id] = prev[id]
	}
	b.nodes[scope] = next
	b.seen[scope] = time.Now()
}

// Forget drops a scope entirely, closing its subscriptions.
func (b *HealthBoard) Forget(scope string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.forget(scope)
}

func (b *HealthBoard) forget(scope string) {
	delete(b.nodes, scope)
	delete(b.seen, scope)
	for id, ch := range b.subs[scope] {
		close(ch)
		delete(b.subs[scope], id)
	}
	delete(b.subs, scope)
}

// Sweep forgets the scopes without subscribers that nobody rendered or
// listened to for idle, and returns how many it dropped.
func (b *HealthBoard) Sweep(idle time.Duration) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	dropped := 0
	for scope := range b.nodes {
		if len(b.subs[scope]) > 0 || b.seen[scope].After(cutoff) {
			continue
		}
		b.forget(scope)
		dropped++
	}
	return dropped
}

// Len is the number of scopes the board tracks.
func (b *HealthBoard) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// Publish stores a result and notifies subscribers. Results for nodes the
// scope no longer shows are dropped; it reports whether r was accepted.
func (b *HealthBoard) Publish(r HealthResult) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	nodes, ok := b.nodes[r.Scope]
	if !ok {
		return false
	}
	if _, ok := nodes[r.NodeID]; !ok {
		return false
	}
	stored := r
	nodes[r.NodeID] = &stored

	for _, ch := range b.subs[r.Scope] {
		select {
		case ch <- r:
		default:
			// slow subscriber, it will catch up on the next render
		}
	}
	return true
}

func (b *HealthBoard) Status(scope, nodeID string) (HealthResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r := b.nodes[scope][nodeID]
	if r == nil {
		return HealthResult{}, false
	}
	return *r, true
}

// Snapshot returns the known results of a scope.
func (b *HealthBoard) Snapshot(scope string) []HealthResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []HealthResult
	for _, r := range b.nodes[scope] {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// Subscribe streams the results published for scope until cancel is called.
func (b *HealthBoard) Subscribe(scope string) (<-chan HealthResult, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan HealthResult, 64)
	id := b.nextID
	b.nextID++
	if b.subs[scope] == nil {
		b.subs[scope] = make(map[int]chan HealthResult)
	}
	b.subs[scope][id] = ch
	b.seen[scope] = time.Now()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[scope][id]; ok {
				close(sub)
				delete(b.subs[scope], id)
				if len(b.subs[scope]) == 0 {
					delete(b.subs, scope)
				}
				if _, ok := b.nodes[scope]; ok {
					b.seen[scope] = time.Now()
				} else if len(b.subs[scope]) == 0 {
					delete(b.seen, scope)
				}
			}
		})
	}
	return ch, cancel
}
