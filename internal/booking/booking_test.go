package booking

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

const (
	owner    ledger.Identity = "provider-owner"
	customer ledger.Identity = "customer"
	stranger ledger.Identity = "stranger"
)

func env(caller ledger.Identity, height int64) ledger.Env {
	return ledger.NewEnv(caller, height)
}

// setup registers one provider at rate 50 and books 4 hours of work for it.
func setup(t *testing.T) (*Service, ledger.ID, ledger.ID) {
	t.Helper()
	svc := NewService()
	pid, err := svc.Providers.Register(env(owner, 1), "Green Thumb", "north", 50, []string{"mower", "spreader"})
	require.NoError(t, err)

	bid, err := svc.Bookings.Book(env(customer, 2), BookingRequest{
		ProviderID:     pid,
		GardenSize:     300,
		ServiceType:    string(ServiceMulchApplication),
		ScheduledDate:  10,
		EstimatedHours: 4,
		PaymentAmount:  200,
	})
	require.NoError(t, err)
	return svc, pid, bid
}

func complete(t *testing.T, svc *Service, bid ledger.ID, height int64) {
	t.Helper()
	for _, s := range []Status{StatusConfirmed, StatusInProgress, StatusCompleted} {
		require.NoError(t, svc.Bookings.UpdateStatus(env(owner, height), bid, s))
	}
}

func assertCode(t *testing.T, want ledger.Code, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := ledger.CodeOf(err)
	require.True(t, ok, "expected ledger failure, got %v", err)
	assert.Equal(t, want, code, "error: %v", err)
}

func TestRegister_AssignsSequentialIDs(t *testing.T) {
	reg := NewProviderRegistry()
	for want := ledger.ID(1); want <= 3; want++ {
		id, err := reg.Register(env(owner, 0), "p", "area", 10, nil)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}

	p, err := reg.Get(2)
	require.NoError(t, err)
	assert.Equal(t, InitialRating, p.Rating)
	assert.True(t, p.Active)
	assert.Equal(t, owner, p.Owner)
	assert.Len(t, reg.List(), 3)
}

func TestRegister_Validation(t *testing.T) {
	reg := NewProviderRegistry()

	_, err := reg.Register(env(owner, 0), "p", "area", 0, nil)
	assertCode(t, ledger.CodeInvalidRate, err)

	_, err = reg.Register(env(owner, 0), "p", "area", -5, nil)
	assertCode(t, ledger.CodeInvalidRate, err)

	_, err = reg.Register(env(owner, 0), "  ", "area", 5, nil)
	assertCode(t, ledger.CodeInvalidInput, err)

	_, err = reg.Register(env(owner, 0), "p", "area", 5, []string{"rake", ""})
	assertCode(t, ledger.CodeInvalidInput, err)

	// Rejected registrations consume no ids.
	id, err := reg.Register(env(owner, 0), "p", "area", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.ID(1), id)
}

func TestGet_NotFound(t *testing.T) {
	reg := NewProviderRegistry()
	_, err := reg.Get(42)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
}

func TestGet_ReturnsIndependentCopies(t *testing.T) {
	reg := NewProviderRegistry()
	id, err := reg.Register(env(owner, 0), "p", "area", 5, []string{"rake"})
	require.NoError(t, err)

	first, err := reg.Get(id)
	require.NoError(t, err)
	first.Equipment[0] = "mutated"

	second, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, []string{"rake"}, second.Equipment)
}

func TestDeactivate_OwnerOnly(t *testing.T) {
	svc, pid, _ := setup(t)

	err := svc.Providers.Deactivate(env(stranger, 3), pid)
	assertCode(t, ledger.CodeUnauthorized, err)

	require.NoError(t, svc.Providers.Deactivate(env(owner, 3), pid))
	p, err := svc.Providers.Get(pid)
	require.NoError(t, err)
	assert.False(t, p.Active)

	_, err = svc.Bookings.Book(env(customer, 4), BookingRequest{
		ProviderID: pid, GardenSize: 10, ServiceType: string(ServiceSoilTesting),
		ScheduledDate: 9, EstimatedHours: 1, PaymentAmount: 50,
	})
	assertCode(t, ledger.CodeInactive, err)
}

func TestUpdateEquipment(t *testing.T) {
	svc, pid, _ := setup(t)

	err := svc.Providers.UpdateEquipment(env(stranger, 3), pid, []string{"tiller"})
	assertCode(t, ledger.CodeUnauthorized, err)

	require.NoError(t, svc.Providers.UpdateEquipment(env(owner, 3), pid, []string{"tiller"}))
	p, err := svc.Providers.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, []string{"tiller"}, p.Equipment)
}

func TestBook_TotalCostIsRateTimesHours(t *testing.T) {
	svc, _, bid := setup(t)

	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	assert.Equal(t, int64(200), b.TotalCost)
	assert.Equal(t, StatusRequested, b.Status)
	assert.Equal(t, customer, b.Customer)
	assert.Equal(t, int64(2), b.CreatedAt)
	assert.Zero(t, b.CompletionDate)
}

func TestBook_TotalCostFrozenAfterRateChange(t *testing.T) {
	svc, pid, bid := setup(t)

	require.NoError(t, svc.Providers.SetHourlyRate(env(owner, 3), pid, 75))

	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	assert.Equal(t, int64(200), b.TotalCost)

	// New bookings use the new rate.
	id, err := svc.Bookings.Book(env(customer, 3), BookingRequest{
		ProviderID: pid, GardenSize: 10, ServiceType: string(ServiceMulchRemoval),
		ScheduledDate: 20, EstimatedHours: 4, PaymentAmount: 300,
	})
	require.NoError(t, err)
	b, err = svc.Bookings.Get(id)
	require.NoError(t, err)
	assert.Equal(t, int64(300), b.TotalCost)
}

func TestSetHourlyRate_Validation(t *testing.T) {
	svc, pid, _ := setup(t)
	assertCode(t, ledger.CodeInvalidRate, svc.Providers.SetHourlyRate(env(owner, 3), pid, 0))
	assertCode(t, ledger.CodeUnauthorized, svc.Providers.SetHourlyRate(env(customer, 3), pid, 60))
}

func TestBook_Payment(t *testing.T) {
	svc, pid, _ := setup(t)
	req := BookingRequest{
		ProviderID: pid, GardenSize: 100, ServiceType: string(ServiceBedPreparation),
		ScheduledDate: 50, EstimatedHours: 3,
	}

	req.PaymentAmount = 149
	_, err := svc.Bookings.Book(env(customer, 5), req)
	assertCode(t, ledger.CodeInsufficientPayment, err)
	assert.Equal(t, 204, int(ledger.CodeInsufficientPayment))

	req.PaymentAmount = 150
	_, err = svc.Bookings.Book(env(customer, 5), req)
	assert.NoError(t, err)

	req.PaymentAmount = 500
	_, err = svc.Bookings.Book(env(customer, 5), req)
	assert.NoError(t, err)
}

func TestBook_Validation(t *testing.T) {
	svc, pid, _ := setup(t)
	valid := BookingRequest{
		ProviderID: pid, GardenSize: 100, ServiceType: string(ServiceMaintenance),
		ScheduledDate: 50, EstimatedHours: 1, PaymentAmount: 50,
	}

	tests := []struct {
		name   string
		mutate func(*BookingRequest)
		code   ledger.Code
	}{
		{"unknown provider", func(r *BookingRequest) { r.ProviderID = 99 }, ledger.CodeNotFound},
		{"zero garden size", func(r *BookingRequest) { r.GardenSize = 0 }, ledger.CodeInvalidInput},
		{"zero hours", func(r *BookingRequest) { r.EstimatedHours = 0 }, ledger.CodeInvalidInput},
		{"unknown service", func(r *BookingRequest) { r.ServiceType = "tree-felling" }, ledger.CodeInvalidInput},
		{"schedule at current height", func(r *BookingRequest) { r.ScheduledDate = 5 }, ledger.CodeInvalidInput},
		{"schedule in past", func(r *BookingRequest) { r.ScheduledDate = 1 }, ledger.CodeInvalidInput},
		{"cost overflow", func(r *BookingRequest) { r.EstimatedHours = 1 << 62 }, ledger.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := svc.Bookings.Book(env(customer, 5), req)
			assertCode(t, tt.code, err)
		})
	}

	// Only the booking from setup exists.
	assert.Len(t, svc.Bookings.List(), 1)
}

func TestUpdateStatus_HappyPathCompletes(t *testing.T) {
	svc, pid, bid := setup(t)

	require.NoError(t, svc.Bookings.UpdateStatus(env(owner, 10), bid, StatusConfirmed))
	require.NoError(t, svc.Bookings.UpdateStatus(env(owner, 11), bid, StatusInProgress))
	require.NoError(t, svc.Bookings.UpdateStatus(env(owner, 12), bid, StatusCompleted))

	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, b.Status)
	assert.Equal(t, int64(12), b.CompletionDate)

	p, err := svc.Providers.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.JobsCompleted)
}

func TestUpdateStatus_DisallowedEdges(t *testing.T) {
	svc, _, bid := setup(t)

	// Skipping states.
	assertCode(t, ledger.CodeInvalidStatus, svc.Bookings.UpdateStatus(env(owner, 3), bid, StatusCompleted))
	assertCode(t, ledger.CodeInvalidStatus, svc.Bookings.UpdateStatus(env(owner, 3), bid, StatusInProgress))
	// Self loop.
	assertCode(t, ledger.CodeInvalidStatus, svc.Bookings.UpdateStatus(env(owner, 3), bid, StatusRequested))

	complete(t, svc, bid, 4)
	for _, s := range []Status{StatusRequested, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled} {
		assertCode(t, ledger.CodeInvalidStatus, svc.Bookings.UpdateStatus(env(customer, 5), bid, s))
	}
}

func TestUpdateStatus_Roles(t *testing.T) {
	svc, _, bid := setup(t)

	// Customer cannot confirm; provider cannot cancel.
	assertCode(t, ledger.CodeUnauthorized, svc.Bookings.UpdateStatus(env(customer, 3), bid, StatusConfirmed))
	assertCode(t, ledger.CodeUnauthorized, svc.Bookings.UpdateStatus(env(owner, 3), bid, StatusCancelled))

	require.NoError(t, svc.Bookings.UpdateStatus(env(owner, 3), bid, StatusConfirmed))
	require.NoError(t, svc.Bookings.UpdateStatus(env(customer, 4), bid, StatusCancelled))

	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)
	assert.True(t, b.Status.Terminal())
	assertCode(t, ledger.CodeInvalidStatus, svc.Bookings.UpdateStatus(env(owner, 5), bid, StatusInProgress))
}

func TestSetPreparation(t *testing.T) {
	svc, _, bid := setup(t)
	prep := Preparation{WeedRemoval: true, MulchTypePreference: "cedar-chips", SpecialInstructions: "gate code 12"}

	assertCode(t, ledger.CodeUnauthorized, svc.Bookings.SetPreparation(env(owner, 3), bid, prep))

	require.NoError(t, svc.Bookings.SetPreparation(env(customer, 3), bid, prep))
	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	require.NotNil(t, b.Preparation)
	assert.Equal(t, prep, *b.Preparation)

	assertCode(t, ledger.CodeAlreadySet, svc.Bookings.SetPreparation(env(customer, 4), bid, Preparation{}))
}

func TestSetPreparation_RequiresRequested(t *testing.T) {
	svc, _, bid := setup(t)
	require.NoError(t, svc.Bookings.UpdateStatus(env(owner, 3), bid, StatusConfirmed))
	assertCode(t, ledger.CodeInvalidStatus, svc.Bookings.SetPreparation(env(customer, 4), bid, Preparation{}))
}

func TestSetPreparation_InstructionsBound(t *testing.T) {
	svc, _, bid := setup(t)
	prep := Preparation{SpecialInstructions: strings.Repeat("x", MaxInstructionsLen+1)}
	assertCode(t, ledger.CodeInvalidInput, svc.Bookings.SetPreparation(env(customer, 3), bid, prep))

	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	assert.Nil(t, b.Preparation)
}

func TestRate_BeforeCompletionFails(t *testing.T) {
	svc, _, bid := setup(t)

	_, err := svc.Ratings.Rate(env(customer, 3), bid, 80)
	assertCode(t, ledger.CodeInvalidStatus, err)
	assert.Equal(t, 203, int(ledger.CodeInvalidStatus))

	require.NoError(t, svc.Bookings.UpdateStatus(env(owner, 3), bid, StatusConfirmed))
	_, err = svc.Ratings.Rate(env(customer, 4), bid, 80)
	assertCode(t, ledger.CodeInvalidStatus, err)
}

func TestRate_OnceAfterCompletion(t *testing.T) {
	svc, pid, bid := setup(t)
	complete(t, svc, bid, 5)

	_, err := svc.Ratings.Rate(env(stranger, 6), bid, 80)
	assertCode(t, ledger.CodeUnauthorized, err)

	_, err = svc.Ratings.Rate(env(customer, 6), bid, 101)
	assertCode(t, ledger.CodeInvalidInput, err)

	rating, err := svc.Ratings.Rate(env(customer, 6), bid, 80)
	require.NoError(t, err)
	assert.Equal(t, int64(80), rating)

	p, err := svc.Providers.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, int64(80), p.Rating)

	_, err = svc.Ratings.Rate(env(customer, 7), bid, 10)
	assertCode(t, ledger.CodeAlreadyRated, err)

	p, err = svc.Providers.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, int64(80), p.Rating)
}

func TestRate_RunningAverageAcrossJobs(t *testing.T) {
	svc, pid, first := setup(t)
	complete(t, svc, first, 5)
	_, err := svc.Ratings.Rate(env(customer, 6), first, 90)
	require.NoError(t, err)

	second, err := svc.Bookings.Book(env(customer, 6), BookingRequest{
		ProviderID: pid, GardenSize: 10, ServiceType: string(ServiceMulchApplication),
		ScheduledDate: 30, EstimatedHours: 1, PaymentAmount: 50,
	})
	require.NoError(t, err)
	complete(t, svc, second, 7)

	// (90 × 1 + 75) / 2 = 82.5, rounded half up.
	rating, err := svc.Ratings.Rate(env(customer, 8), second, 75)
	require.NoError(t, err)
	assert.Equal(t, int64(83), rating)
}

func TestRunningAverage(t *testing.T) {
	tests := []struct {
		old, jobs, score, want int64
	}{
		{100, 1, 0, 0},
		{100, 1, 100, 100},
		{90, 2, 75, 83},
		{90, 2, 74, 82},
		{50, 3, 51, 50},
		{100, 0, 40, 40},
	}
	for _, tt := range tests {
		got := RunningAverage(tt.old, tt.jobs, tt.score)
		assert.Equal(t, tt.want, got, "RunningAverage(%d, %d, %d)", tt.old, tt.jobs, tt.score)
		assert.GreaterOrEqual(t, got, int64(0))
		assert.LessOrEqual(t, got, int64(100))
	}
}

func TestService_CloneIsIndependent(t *testing.T) {
	svc, pid, bid := setup(t)
	cp := svc.Clone()

	complete(t, cp, bid, 5)
	_, err := cp.Providers.Register(env(owner, 5), "second", "south", 10, nil)
	require.NoError(t, err)

	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, b.Status)

	p, err := svc.Providers.Get(pid)
	require.NoError(t, err)
	assert.Zero(t, p.JobsCompleted)
	assert.Len(t, svc.Providers.List(), 1)

	// The clone's ledgers reference each other.
	p, err = cp.Providers.Get(pid)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.JobsCompleted)
}

func TestGet_Idempotent(t *testing.T) {
	svc, _, bid := setup(t)
	a, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	b, err := svc.Bookings.Get(bid)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("in-progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("paused")
	assertCode(t, ledger.CodeInvalidStatus, err)
}
