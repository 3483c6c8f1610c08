package monitor

import (
	"math"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// NotificationEngine raises replacement alerts when a garden's remaining
// mulch depth falls to or below the threshold.
//
// At most one unacknowledged notification exists per garden. Acknowledging
// it re-arms the alert for the next threshold crossing.
type NotificationEngine struct {
	admin       ledger.Identity
	threshold   int64
	costPerUnit int64

	gardens *GardenRegistry
	tracker *DecompositionTracker

	seq           ledger.Sequence
	notifications map[ledger.ID]Notification
	open          map[ledger.ID]ledger.ID // garden → unacknowledged notification
}

// NotificationOptions configures a NotificationEngine.
type NotificationOptions struct {
	Admin       ledger.Identity
	Threshold   int64 // zero means DefaultThreshold
	CostPerUnit int64 // zero means DefaultCostPerUnit
}

// NewNotificationEngine creates an engine reading gardens and depths through
// the given registry and tracker.
func NewNotificationEngine(gardens *GardenRegistry, tracker *DecompositionTracker, opts NotificationOptions) *NotificationEngine {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.CostPerUnit == 0 {
		opts.CostPerUnit = DefaultCostPerUnit
	}
	return &NotificationEngine{
		admin:         opts.Admin,
		threshold:     opts.Threshold,
		costPerUnit:   opts.CostPerUnit,
		gardens:       gardens,
		tracker:       tracker,
		notifications: make(map[ledger.ID]Notification),
		open:          make(map[ledger.ID]ledger.ID),
	}
}

// Threshold returns the configured alert threshold.
func (e *NotificationEngine) Threshold() int64 { return e.threshold }

// RemainingPercent returns latest depth × 100 / initial depth, truncated.
func (e *NotificationEngine) RemainingPercent(gardenID ledger.ID) (int64, error) {
	g, err := e.gardens.Get(gardenID)
	if err != nil {
		return 0, err
	}
	depth, err := e.tracker.CurrentDepth(gardenID)
	if err != nil {
		return 0, err
	}
	return depth * 100 / g.InitialDepth, nil
}

// CheckAndNotify evaluates the garden against threshold (zero selects the
// configured threshold) and creates a replacement notification if the
// remaining percentage is at or below it and no unacknowledged notification
// exists. It returns the new notification id and whether one was created.
func (e *NotificationEngine) CheckAndNotify(env ledger.Env, gardenID ledger.ID, threshold int64) (ledger.ID, bool, error) {
	if err := env.Validate(); err != nil {
		return 0, false, err
	}
	if threshold == 0 {
		threshold = e.threshold
	}
	if err := validateThreshold(threshold); err != nil {
		return 0, false, err
	}
	g, err := e.gardens.active(gardenID)
	if err != nil {
		return 0, false, err
	}
	depth, err := e.tracker.CurrentDepth(gardenID)
	if err != nil {
		return 0, false, err
	}
	remaining := depth * 100 / g.InitialDepth
	if remaining > threshold {
		return 0, false, nil
	}
	if _, pending := e.open[gardenID]; pending {
		return 0, false, nil
	}

	cost, ok := ReplacementCost(g.GardenSize, e.costPerUnit)
	if !ok {
		return 0, false, ledger.Errorf(ledger.CodeInvalidInput,
			"replacement cost of size %d at %d per unit overflows", g.GardenSize, e.costPerUnit)
	}

	id := e.seq.Next()
	e.notifications[id] = Notification{
		ID:                id,
		GardenID:          gardenID,
		Date:              env.Height,
		CurrentDepth:      depth,
		RemainingPercent:  remaining,
		Threshold:         threshold,
		RecommendedAction: ActionReplacementNeeded,
		UrgencyLevel:      Urgency(remaining),
		EstimatedCost:     cost,
	}
	e.open[gardenID] = id
	return id, true, nil
}

// ReplacementCost returns gardenSize × costPerUnit / 100. It reports false
// when an operand is not positive or the product overflows int64.
func ReplacementCost(gardenSize, costPerUnit int64) (int64, bool) {
	if gardenSize <= 0 || costPerUnit <= 0 {
		return 0, false
	}
	if costPerUnit > math.MaxInt64/gardenSize {
		return 0, false
	}
	return gardenSize * costPerUnit / 100, true
}

// Urgency maps the remaining percentage to a level from 1 (mild) to 5
// (bare soil): one level per ten points of remaining depth below 50.
func Urgency(remaining int64) int64 {
	u := 5 - remaining/10
	switch {
	case u < 1:
		return 1
	case u > 5:
		return 5
	}
	return u
}

// SetThreshold changes the configured threshold. Administrator only.
func (e *NotificationEngine) SetThreshold(env ledger.Env, threshold int64) error {
	if err := env.Validate(); err != nil {
		return err
	}
	if env.Caller != e.admin {
		return ledger.Errorf(ledger.CodeUnauthorized, "%s may not set the threshold", env.Caller)
	}
	if err := validateThreshold(threshold); err != nil {
		return err
	}
	e.threshold = threshold
	return nil
}

func validateThreshold(threshold int64) error {
	if threshold <= 0 || threshold > 100 {
		return ledger.Errorf(ledger.CodeInvalidThreshold, "threshold must be within (0, 100], got %d", threshold)
	}
	return nil
}

// Acknowledge marks a notification handled. Only the garden's owner may do
// this; acknowledging twice succeeds without change.
func (e *NotificationEngine) Acknowledge(env ledger.Env, id ledger.ID) error {
	if err := env.Validate(); err != nil {
		return err
	}
	n, err := e.Get(id)
	if err != nil {
		return err
	}
	g, err := e.gardens.Get(n.GardenID)
	if err != nil {
		return err
	}
	if g.Owner != env.Caller {
		return ledger.Errorf(ledger.CodeUnauthorized, "%s does not own garden %d", env.Caller, g.ID)
	}
	if n.Acknowledged {
		return nil
	}
	n.Acknowledged = true
	e.notifications[id] = n
	if e.open[n.GardenID] == id {
		delete(e.open, n.GardenID)
	}
	return nil
}

// NeedsReplacement reports whether the garden's remaining percentage is at or
// below the configured threshold.
func (e *NotificationEngine) NeedsReplacement(gardenID ledger.ID) (bool, error) {
	remaining, err := e.RemainingPercent(gardenID)
	if err != nil {
		return false, err
	}
	return remaining <= e.threshold, nil
}

// Get returns the notification record.
func (e *NotificationEngine) Get(id ledger.ID) (Notification, error) {
	n, ok := e.notifications[id]
	if !ok {
		return Notification{}, ledger.Errorf(ledger.CodeNotFound, "notification %d not found", id)
	}
	return n, nil
}

// Active returns the garden's unacknowledged notification, if any.
func (e *NotificationEngine) Active(gardenID ledger.ID) (Notification, bool) {
	id, ok := e.open[gardenID]
	if !ok {
		return Notification{}, false
	}
	return e.notifications[id], true
}

// List returns all notifications in id order.
func (e *NotificationEngine) List() []Notification {
	out := make([]Notification, 0, len(e.notifications))
	for id := ledger.ID(1); id <= e.seq.Current(); id++ {
		if n, ok := e.notifications[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

func (e *NotificationEngine) clone(gardens *GardenRegistry, tracker *DecompositionTracker) *NotificationEngine {
	cp := *e
	cp.gardens = gardens
	cp.tracker = tracker
	cp.notifications = make(map[ledger.ID]Notification, len(e.notifications))
	for id, n := range e.notifications {
		cp.notifications[id] = n
	}
	cp.open = make(map[ledger.ID]ledger.ID, len(e.open))
	for g, id := range e.open {
		cp.open[g] = id
	}
	return &cp
}
