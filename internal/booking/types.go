package booking

import (
	"slices"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// InitialRating is the rating every provider starts with.
const InitialRating int64 = 100

// MaxInstructionsLen bounds Preparation.SpecialInstructions.
const MaxInstructionsLen = 500

// Provider is a registered landscaping service provider.
type Provider struct {
	ID            ledger.ID       `json:"id"`
	Owner         ledger.Identity `json:"owner"`
	Name          string          `json:"name"`
	ServiceArea   string          `json:"service_area"`
	HourlyRate    int64           `json:"hourly_rate"` // currency minor units
	Equipment     []string        `json:"equipment"`
	Rating        int64           `json:"rating"` // 0-100
	JobsCompleted int64           `json:"jobs_completed"`
	Active        bool            `json:"active"`
	CreatedAt     int64           `json:"created_at"`
}

func (p Provider) clone() Provider {
	cp := p
	cp.Equipment = slices.Clone(p.Equipment)
	return cp
}

// Status is a booking lifecycle state.
type Status string

const (
	StatusRequested  Status = "requested"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus validates a status label. An unknown label is reported as
// InvalidStatus: no transition leads to it.
func ParseStatus(label string) (Status, error) {
	switch s := Status(label); s {
	case StatusRequested, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", ledger.Errorf(ledger.CodeInvalidStatus, "unknown booking status %q", label)
}

// ServiceType is the enumerated kind of work requested.
type ServiceType string

const (
	ServiceMulchApplication ServiceType = "mulch-application"
	ServiceMulchRemoval     ServiceType = "mulch-removal"
	ServiceBedPreparation   ServiceType = "bed-preparation"
	ServiceMaintenance      ServiceType = "garden-maintenance"
	ServiceSoilTesting      ServiceType = "soil-testing"
)

// ParseServiceType validates a service-type label.
func ParseServiceType(label string) (ServiceType, error) {
	switch s := ServiceType(label); s {
	case ServiceMulchApplication, ServiceMulchRemoval, ServiceBedPreparation,
		ServiceMaintenance, ServiceSoilTesting:
		return s, nil
	}
	return "", ledger.Errorf(ledger.CodeInvalidInput, "unknown service type %q", label)
}

// Preparation lists what the customer wants done before the visit.
type Preparation struct {
	SoilTestingRequired bool   `json:"soil_testing_required"`
	WeedRemoval         bool   `json:"weed_removal"`
	BedEdging           bool   `json:"bed_edging"`
	IrrigationCheck     bool   `json:"irrigation_check"`
	MulchTypePreference string `json:"mulch_type_preference"`
	SpecialInstructions string `json:"special_instructions"`
}

// Booking is a customer's request for work by a provider.
//
// TotalCost is HourlyRate × EstimatedHours at creation time and never changes.
type Booking struct {
	ID             ledger.ID       `json:"id"`
	Customer       ledger.Identity `json:"customer"`
	ProviderID     ledger.ID       `json:"provider_id"`
	GardenSize     int64           `json:"garden_size"`
	ServiceType    ServiceType     `json:"service_type"`
	ScheduledDate  int64           `json:"scheduled_date"`
	EstimatedHours int64           `json:"estimated_hours"`
	TotalCost      int64           `json:"total_cost"`
	PaymentAmount  int64           `json:"payment_amount"`
	Status         Status          `json:"status"`
	CreatedAt      int64           `json:"created_at"`
	CompletionDate int64           `json:"completion_date,omitempty"` // zero until completed
	Preparation    *Preparation    `json:"preparation,omitempty"`
	Rated          bool            `json:"rated"`
}

func (b Booking) clone() Booking {
	cp := b
	if b.Preparation != nil {
		prep := *b.Preparation
		cp.Preparation = &prep
	}
	return cp
}
