package monitor

import (
	"strings"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// GardenRequest carries the caller-supplied fields of a new garden.
type GardenRequest struct {
	Location        string
	MulchType       string
	InitialDepth    int64
	ApplicationDate int64
	GardenSize      int64
	SoilType        string
}

// GardenRegistry stores monitored gardens keyed by sequential id.
type GardenRegistry struct {
	seq     ledger.Sequence
	gardens map[ledger.ID]Garden
}

// NewGardenRegistry creates an empty registry.
func NewGardenRegistry() *GardenRegistry {
	return &GardenRegistry{gardens: make(map[ledger.ID]Garden)}
}

// Register creates a garden owned by the caller and returns its id.
func (r *GardenRegistry) Register(env ledger.Env, req GardenRequest) (ledger.ID, error) {
	if err := env.Validate(); err != nil {
		return 0, err
	}
	if req.InitialDepth <= 0 || req.InitialDepth > MaxInitialDepth {
		return 0, ledger.Errorf(ledger.CodeInvalidDepth, "initial depth must be within [1, %d], got %d", MaxInitialDepth, req.InitialDepth)
	}
	if strings.TrimSpace(req.MulchType) == "" {
		return 0, ledger.Errorf(ledger.CodeInvalidInput, "mulch type is required")
	}
	if req.GardenSize <= 0 || req.GardenSize > MaxGardenSize {
		return 0, ledger.Errorf(ledger.CodeInvalidInput, "garden size must be within [1, %d], got %d", MaxGardenSize, req.GardenSize)
	}
	if req.ApplicationDate < 0 {
		return 0, ledger.Errorf(ledger.CodeInvalidInput, "application date must be non-negative, got %d", req.ApplicationDate)
	}

	id := r.seq.Next()
	r.gardens[id] = Garden{
		ID:              id,
		Owner:           env.Caller,
		Location:        req.Location,
		MulchType:       req.MulchType,
		InitialDepth:    req.InitialDepth,
		ApplicationDate: req.ApplicationDate,
		GardenSize:      req.GardenSize,
		SoilType:        req.SoilType,
		Active:          true,
		CreatedAt:       env.Height,
	}
	return id, nil
}

// Get returns the garden record.
func (r *GardenRegistry) Get(id ledger.ID) (Garden, error) {
	g, ok := r.gardens[id]
	if !ok {
		return Garden{}, ledger.Errorf(ledger.CodeNotFound, "garden %d not found", id)
	}
	return g, nil
}

// active returns the garden if it exists and is active.
func (r *GardenRegistry) active(id ledger.ID) (Garden, error) {
	g, err := r.Get(id)
	if err != nil {
		return Garden{}, err
	}
	if !g.Active {
		return Garden{}, ledger.Errorf(ledger.CodeInactive, "garden %d is not active", id)
	}
	return g, nil
}

// List returns all gardens in id order.
func (r *GardenRegistry) List() []Garden {
	out := make([]Garden, 0, len(r.gardens))
	for id := ledger.ID(1); id <= r.seq.Current(); id++ {
		if g, ok := r.gardens[id]; ok {
			out = append(out, g)
		}
	}
	return out
}

// Deactivate stops monitoring the garden. Owner only.
func (r *GardenRegistry) Deactivate(env ledger.Env, id ledger.ID) error {
	if err := env.Validate(); err != nil {
		return err
	}
	g, err := r.Get(id)
	if err != nil {
		return err
	}
	if g.Owner != env.Caller {
		return ledger.Errorf(ledger.CodeUnauthorized, "%s does not own garden %d", env.Caller, id)
	}
	g.Active = false
	r.gardens[id] = g
	return nil
}

func (r *GardenRegistry) clone() *GardenRegistry {
	cp := &GardenRegistry{
		seq:     r.seq,
		gardens: make(map[ledger.ID]Garden, len(r.gardens)),
	}
	for id, g := range r.gardens {
		cp.gardens[id] = g
	}
	return cp
}
