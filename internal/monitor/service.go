package monitor

import "github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"

// Options configures a monitoring Service.
type Options struct {
	// Admin may set rate profiles and the notification threshold.
	Admin ledger.Identity

	Threshold   int64
	CostPerUnit int64
}

// Service groups the monitoring-side registries.
type Service struct {
	Gardens       *GardenRegistry
	Tracker       *DecompositionTracker
	Rates         *RateModel
	Notifications *NotificationEngine
}

// NewService wires empty monitoring registries together.
func NewService(opts Options) *Service {
	gardens := NewGardenRegistry()
	tracker := NewDecompositionTracker(gardens)
	return &Service{
		Gardens: gardens,
		Tracker: tracker,
		Rates:   NewRateModel(opts.Admin),
		Notifications: NewNotificationEngine(gardens, tracker, NotificationOptions{
			Admin:       opts.Admin,
			Threshold:   opts.Threshold,
			CostPerUnit: opts.CostPerUnit,
		}),
	}
}

// Clone returns a deep copy whose components reference each other rather
// than the originals.
func (s *Service) Clone() *Service {
	gardens := s.Gardens.clone()
	tracker := s.Tracker.clone(gardens)
	return &Service{
		Gardens:       gardens,
		Tracker:       tracker,
		Rates:         s.Rates.clone(),
		Notifications: s.Notifications.clone(gardens, tracker),
	}
}
