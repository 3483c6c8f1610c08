package booking

import (
	"math"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// BookingRequest carries the caller-supplied fields of a new booking.
type BookingRequest struct {
	ProviderID     ledger.ID
	GardenSize     int64
	ServiceType    string
	ScheduledDate  int64
	EstimatedHours int64
	PaymentAmount  int64
}

// BookingLedger stores bookings and enforces their lifecycle.
type BookingLedger struct {
	providers *ProviderRegistry
	seq       ledger.Sequence
	bookings  map[ledger.ID]Booking
}

// NewBookingLedger creates an empty ledger resolving providers through reg.
func NewBookingLedger(reg *ProviderRegistry) *BookingLedger {
	return &BookingLedger{
		providers: reg,
		bookings:  make(map[ledger.ID]Booking),
	}
}

// Book creates a booking in the requested state and returns its id.
//
// The provider must exist and be active, the schedule must lie strictly
// after the current height, and the payment must cover
// HourlyRate × EstimatedHours. The product is frozen on the booking.
func (l *BookingLedger) Book(env ledger.Env, req BookingRequest) (ledger.ID, error) {
	if err := env.Validate(); err != nil {
		return 0, err
	}
	p, err := l.providers.Get(req.ProviderID)
	if err != nil {
		return 0, err
	}
	if !p.Active {
		return 0, ledger.Errorf(ledger.CodeInactive, "provider %d is not active", p.ID)
	}
	if req.GardenSize <= 0 {
		return 0, ledger.Errorf(ledger.CodeInvalidInput, "garden size must be positive, got %d", req.GardenSize)
	}
	if req.EstimatedHours <= 0 {
		return 0, ledger.Errorf(ledger.CodeInvalidInput, "estimated hours must be positive, got %d", req.EstimatedHours)
	}
	serviceType, err := ParseServiceType(req.ServiceType)
	if err != nil {
		return 0, err
	}
	if req.ScheduledDate <= env.Height {
		return 0, ledger.Errorf(ledger.CodeInvalidInput,
			"scheduled date %d must be after current height %d", req.ScheduledDate, env.Height)
	}
	cost, ok := TotalCost(p.HourlyRate, req.EstimatedHours)
	if !ok {
		return 0, ledger.Errorf(ledger.CodeInvalidInput,
			"total cost overflows: %d × %d", p.HourlyRate, req.EstimatedHours)
	}
	if req.PaymentAmount < cost {
		return 0, ledger.Errorf(ledger.CodeInsufficientPayment,
			"payment %d is below total cost %d", req.PaymentAmount, cost)
	}

	id := l.seq.Next()
	l.bookings[id] = Booking{
		ID:             id,
		Customer:       env.Caller,
		ProviderID:     p.ID,
		GardenSize:     req.GardenSize,
		ServiceType:    serviceType,
		ScheduledDate:  req.ScheduledDate,
		EstimatedHours: req.EstimatedHours,
		TotalCost:      cost,
		PaymentAmount:  req.PaymentAmount,
		Status:         StatusRequested,
		CreatedAt:      env.Height,
	}
	return id, nil
}

// TotalCost returns rate × hours, or false if the product overflows int64.
func TotalCost(hourlyRate, hours int64) (int64, bool) {
	if hourlyRate <= 0 || hours <= 0 {
		return 0, false
	}
	if hourlyRate > math.MaxInt64/hours {
		return 0, false
	}
	return hourlyRate * hours, true
}

// Get returns a copy of the booking record.
func (l *BookingLedger) Get(id ledger.ID) (Booking, error) {
	b, ok := l.bookings[id]
	if !ok {
		return Booking{}, ledger.Errorf(ledger.CodeNotFound, "booking %d not found", id)
	}
	return b.clone(), nil
}

// List returns all bookings in id order.
func (l *BookingLedger) List() []Booking {
	out := make([]Booking, 0, len(l.bookings))
	for id := ledger.ID(1); id <= l.seq.Current(); id++ {
		if b, ok := l.bookings[id]; ok {
			out = append(out, b.clone())
		}
	}
	return out
}

// SetPreparation attaches the preparation record. It may be set once, by the
// customer, while the booking is still requested.
func (l *BookingLedger) SetPreparation(env ledger.Env, id ledger.ID, prep Preparation) error {
	if err := env.Validate(); err != nil {
		return err
	}
	b, err := l.Get(id)
	if err != nil {
		return err
	}
	if b.Customer != env.Caller {
		return ledger.Errorf(ledger.CodeUnauthorized, "%s is not the customer of booking %d", env.Caller, id)
	}
	if b.Status != StatusRequested {
		return ledger.Errorf(ledger.CodeInvalidStatus, "booking %d is %s, preparation requires %s", id, b.Status, StatusRequested)
	}
	if b.Preparation != nil {
		return ledger.Errorf(ledger.CodeAlreadySet, "preparation for booking %d is already set", id)
	}
	if len(prep.SpecialInstructions) > MaxInstructionsLen {
		return ledger.Errorf(ledger.CodeInvalidInput,
			"special instructions exceed %d bytes", MaxInstructionsLen)
	}

	b.Preparation = &prep
	l.bookings[id] = b
	return nil
}

// actor is the party entitled to take a lifecycle edge.
type actor int

const (
	actorProvider actor = iota
	actorCustomer
)

// edges lists every legal transition and who may take it.
var edges = map[Status]map[Status]actor{
	StatusRequested: {
		StatusConfirmed: actorProvider,
		StatusCancelled: actorCustomer,
	},
	StatusConfirmed: {
		StatusInProgress: actorProvider,
		StatusCancelled:  actorCustomer,
	},
	StatusInProgress: {
		StatusCompleted: actorProvider,
		StatusCancelled: actorCustomer,
	},
}

// UpdateStatus moves the booking along its lifecycle.
//
// The provider's owner advances requested → confirmed → in-progress →
// completed; the customer may cancel any booking that is not terminal. Every
// other edge fails with CodeInvalidStatus. Entering completed stamps the
// completion date and credits the provider with one completed job.
func (l *BookingLedger) UpdateStatus(env ledger.Env, id ledger.ID, next Status) error {
	if err := env.Validate(); err != nil {
		return err
	}
	b, err := l.Get(id)
	if err != nil {
		return err
	}
	who, ok := edges[b.Status][next]
	if !ok {
		return ledger.Errorf(ledger.CodeInvalidStatus, "booking %d cannot move from %s to %s", id, b.Status, next)
	}

	switch who {
	case actorCustomer:
		if b.Customer != env.Caller {
			return ledger.Errorf(ledger.CodeUnauthorized, "only the customer may move booking %d to %s", id, next)
		}
	case actorProvider:
		p, err := l.providers.Get(b.ProviderID)
		if err != nil {
			return err
		}
		if p.Owner != env.Caller {
			return ledger.Errorf(ledger.CodeUnauthorized, "only the provider may move booking %d to %s", id, next)
		}
	}

	b.Status = next
	if next == StatusCompleted {
		b.CompletionDate = env.Height
		l.providers.recordCompletedJob(b.ProviderID)
	}
	l.bookings[id] = b
	return nil
}

func (l *BookingLedger) markRated(id ledger.ID) {
	b := l.bookings[id]
	b.Rated = true
	l.bookings[id] = b
}

func (l *BookingLedger) clone(providers *ProviderRegistry) *BookingLedger {
	cp := &BookingLedger{
		providers: providers,
		seq:       l.seq,
		bookings:  make(map[ledger.ID]Booking, len(l.bookings)),
	}
	for id, b := range l.bookings {
		cp.bookings[id] = b.clone()
	}
	return cp
}
