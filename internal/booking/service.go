package booking

// Service groups the booking-side registries so they can be cloned and
// swapped as one unit.
type Service struct {
	Providers *ProviderRegistry
	Bookings  *BookingLedger
	Ratings   *RatingEngine
}

// NewService wires an empty provider registry, booking ledger and rating
// engine together.
func NewService() *Service {
	providers := NewProviderRegistry()
	bookings := NewBookingLedger(providers)
	return &Service{
		Providers: providers,
		Bookings:  bookings,
		Ratings:   NewRatingEngine(bookings, providers),
	}
}

// Clone returns a deep copy whose components reference each other rather
// than the originals.
func (s *Service) Clone() *Service {
	providers := s.Providers.clone()
	bookings := s.Bookings.clone(providers)
	return &Service{
		Providers: providers,
		Bookings:  bookings,
		Ratings:   NewRatingEngine(bookings, providers),
	}
}
