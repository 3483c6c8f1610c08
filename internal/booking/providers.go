package booking

import (
	"slices"
	"strings"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// ProviderRegistry stores service providers keyed by sequential id.
type ProviderRegistry struct {
	seq       ledger.Sequence
	providers map[ledger.ID]Provider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[ledger.ID]Provider)}
}

// Register creates a provider owned by the caller and returns its id.
func (r *ProviderRegistry) Register(env ledger.Env, name, serviceArea string, hourlyRate int64, equipment []string) (ledger.ID, error) {
	if err := env.Validate(); err != nil {
		return 0, err
	}
	if hourlyRate <= 0 {
		return 0, ledger.Errorf(ledger.CodeInvalidRate, "hourly rate must be positive, got %d", hourlyRate)
	}
	if strings.TrimSpace(name) == "" {
		return 0, ledger.Errorf(ledger.CodeInvalidInput, "provider name is required")
	}
	for i, tag := range equipment {
		if strings.TrimSpace(tag) == "" {
			return 0, ledger.Errorf(ledger.CodeInvalidInput, "equipment[%d] is empty", i)
		}
	}

	id := r.seq.Next()
	r.providers[id] = Provider{
		ID:          id,
		Owner:       env.Caller,
		Name:        name,
		ServiceArea: serviceArea,
		HourlyRate:  hourlyRate,
		Equipment:   slices.Clone(equipment),
		Rating:      InitialRating,
		Active:      true,
		CreatedAt:   env.Height,
	}
	return id, nil
}

// Get returns a copy of the provider record.
func (r *ProviderRegistry) Get(id ledger.ID) (Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return Provider{}, ledger.Errorf(ledger.CodeNotFound, "provider %d not found", id)
	}
	return p.clone(), nil
}

// List returns all providers in id order.
func (r *ProviderRegistry) List() []Provider {
	out := make([]Provider, 0, len(r.providers))
	for id := ledger.ID(1); id <= r.seq.Current(); id++ {
		if p, ok := r.providers[id]; ok {
			out = append(out, p.clone())
		}
	}
	return out
}

// Deactivate marks the provider inactive. Only the owner may do this.
// Deactivating an inactive provider succeeds without change.
func (r *ProviderRegistry) Deactivate(env ledger.Env, id ledger.ID) error {
	p, err := r.owned(env, id)
	if err != nil {
		return err
	}
	p.Active = false
	r.providers[id] = p
	return nil
}

// UpdateEquipment replaces the provider's equipment list. Owner only.
func (r *ProviderRegistry) UpdateEquipment(env ledger.Env, id ledger.ID, equipment []string) error {
	p, err := r.owned(env, id)
	if err != nil {
		return err
	}
	for i, tag := range equipment {
		if strings.TrimSpace(tag) == "" {
			return ledger.Errorf(ledger.CodeInvalidInput, "equipment[%d] is empty", i)
		}
	}
	p.Equipment = slices.Clone(equipment)
	r.providers[id] = p
	return nil
}

// SetHourlyRate changes the rate quoted for future bookings. Owner only.
// Existing bookings keep the total cost computed when they were made.
func (r *ProviderRegistry) SetHourlyRate(env ledger.Env, id ledger.ID, hourlyRate int64) error {
	p, err := r.owned(env, id)
	if err != nil {
		return err
	}
	if hourlyRate <= 0 {
		return ledger.Errorf(ledger.CodeInvalidRate, "hourly rate must be positive, got %d", hourlyRate)
	}
	p.HourlyRate = hourlyRate
	r.providers[id] = p
	return nil
}

// owned loads a provider and checks the caller is its owner.
func (r *ProviderRegistry) owned(env ledger.Env, id ledger.ID) (Provider, error) {
	if err := env.Validate(); err != nil {
		return Provider{}, err
	}
	p, err := r.Get(id)
	if err != nil {
		return Provider{}, err
	}
	if p.Owner != env.Caller {
		return Provider{}, ledger.Errorf(ledger.CodeUnauthorized, "%s does not own provider %d", env.Caller, id)
	}
	return p, nil
}

func (r *ProviderRegistry) recordCompletedJob(id ledger.ID) {
	p := r.providers[id]
	p.JobsCompleted++
	r.providers[id] = p
}

func (r *ProviderRegistry) setRating(id ledger.ID, rating int64) {
	p := r.providers[id]
	p.Rating = rating
	r.providers[id] = p
}

func (r *ProviderRegistry) clone() *ProviderRegistry {
	cp := &ProviderRegistry{
		seq:       r.seq,
		providers: make(map[ledger.ID]Provider, len(r.providers)),
	}
	for id, p := range r.providers {
		cp.providers[id] = p.clone()
	}
	return cp
}
