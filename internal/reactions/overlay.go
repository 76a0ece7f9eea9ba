package reactions

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
)

// DefaultTTL is how long a floating reaction stays on screen.
const DefaultTTL = 3000 * time.Millisecond

// highWater is the active-instance count above which the overlay logs a
// warning once. There is no cap: a sustained burst grows the set until
// expiry catches up.
const highWater = 200

// Instance is one floating reaction currently displayed.
type Instance struct {
	ID        string
	Type      string
	CreatedAt time.Time
}

// Overlay owns the set of floating-reaction instances for one session
// view. Each instance expires independently, a fixed TTL after creation.
// Close cancels all pending expiries; the overlay is then dead.
type Overlay struct {
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	order  []string
	active map[string]Instance
	timers map[string]*time.Timer
	warned bool
	closed bool
}

// NewOverlay creates an overlay with the given display duration.
// A non-positive ttl falls back to DefaultTTL.
func NewOverlay(ttl time.Duration, logger *zap.Logger) *Overlay {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Overlay{
		ttl:    ttl,
		logger: logger,
		active: make(map[string]Instance),
		timers: make(map[string]*time.Timer),
	}
}

// Add creates one floating instance for a reaction event and schedules
// its removal. The id is unique across the instance's lifetime even for
// same-kind reactions within the same millisecond, so siblings can be
// removed independently.
func (o *Overlay) Add(r models.Reaction) (Instance, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return Instance{}, false
	}

	now := time.Now()
	id := fmt.Sprintf("%s-%d-%s", r.Type, now.UnixNano(), uuid.NewString()[:8])
	inst := Instance{ID: id, Type: r.Type, CreatedAt: now}
	o.active[id] = inst
	o.order = append(o.order, id)
	o.timers[id] = time.AfterFunc(o.ttl, func() { o.Remove(id) })

	if len(o.active) > highWater && !o.warned {
		o.warned = true
		o.logger.Warn("floating reactions exceed high-water mark",
			zap.Int("active", len(o.active)))
	}
	return inst, true
}

// Remove removes exactly the named instance. No-op if already gone.
func (o *Overlay) Remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.active[id]; !ok {
		return
	}
	delete(o.active, id)
	if t, ok := o.timers[id]; ok {
		t.Stop()
		delete(o.timers, id)
	}
	for i, v := range o.order {
		if v == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// Active returns the current instances in insertion order.
func (o *Overlay) Active() []Instance {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Instance, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.active[id])
	}
	return out
}

// Close cancels all pending expiry timers and drops the active set.
// Further Add calls are rejected; a removal must never fire against a
// destroyed view.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for id, t := range o.timers {
		t.Stop()
		delete(o.timers, id)
	}
	o.active = make(map[string]Instance)
	o.order = nil
}
