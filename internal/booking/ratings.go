package booking

import "github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"

// RatingEngine folds customer scores for completed bookings into the
// provider's aggregate rating.
type RatingEngine struct {
	bookings  *BookingLedger
	providers *ProviderRegistry
}

// NewRatingEngine creates a rating engine over the given ledgers.
func NewRatingEngine(bookings *BookingLedger, providers *ProviderRegistry) *RatingEngine {
	return &RatingEngine{bookings: bookings, providers: providers}
}

// Rate records the customer's score for a completed booking and returns the
// provider's new rating.
//
// The rating is a running average weighted by completed jobs:
//
//	new = round((old × (jobs − 1) + score) / jobs)
//
// rounded half up and clamped to [0, 100]. Each booking is rated at most once.
func (e *RatingEngine) Rate(env ledger.Env, bookingID ledger.ID, score int64) (int64, error) {
	if err := env.Validate(); err != nil {
		return 0, err
	}
	b, err := e.bookings.Get(bookingID)
	if err != nil {
		return 0, err
	}
	if b.Customer != env.Caller {
		return 0, ledger.Errorf(ledger.CodeUnauthorized, "%s is not the customer of booking %d", env.Caller, bookingID)
	}
	if b.Status != StatusCompleted {
		return 0, ledger.Errorf(ledger.CodeInvalidStatus, "booking %d is %s, only completed bookings can be rated", bookingID, b.Status)
	}
	if b.Rated {
		return 0, ledger.Errorf(ledger.CodeAlreadyRated, "booking %d is already rated", bookingID)
	}
	if score < 0 || score > 100 {
		return 0, ledger.Errorf(ledger.CodeInvalidInput, "score must be within [0, 100], got %d", score)
	}
	p, err := e.providers.Get(b.ProviderID)
	if err != nil {
		return 0, err
	}

	rating := RunningAverage(p.Rating, p.JobsCompleted, score)
	e.providers.setRating(p.ID, rating)
	e.bookings.markRated(bookingID)
	return rating, nil
}

// RunningAverage computes the weighted rating update. jobs below 1 are
// treated as 1 so the first score replaces the initial rating.
func RunningAverage(old, jobs, score int64) int64 {
	if jobs < 1 {
		jobs = 1
	}
	num := old*(jobs-1) + score
	// Round half up; num and jobs are non-negative.
	rating := (2*num + jobs) / (2 * jobs)
	return clampRating(rating)
}

func clampRating(v int64) int64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
