package engine

import (
	"fmt"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/booking"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/monitor"
)

// State is the complete ledger state the engine mutates: both the booking
// and the monitoring ledgers. It is only reached through the engine, which
// clones it before each transition and swaps the clone in on commit.
type State struct {
	Booking *booking.Service
	Monitor *monitor.Service
}

// NewState creates empty ledgers. Seed rate profiles with
// st.Monitor.Rates.Seed before handing the state to New.
func NewState(opts monitor.Options) *State {
	return &State{
		Booking: booking.NewService(),
		Monitor: monitor.NewService(opts),
	}
}

// Clone returns an independent deep copy.
func (s *State) Clone() *State {
	return &State{
		Booking: s.Booking.Clone(),
		Monitor: s.Monitor.Clone(),
	}
}

// Snapshot renders the state as an IR object with every collection in id
// order, suitable for hashing with ir.StateDigest.
func (s *State) Snapshot() (ir.IRObject, error) {
	snap := ir.IRObject{}

	add := func(key string, v any) error {
		obj, err := ir.Encode(struct {
			V any `json:"v"`
		}{v})
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", key, err)
		}
		val, ok := obj["v"]
		if !ok {
			val = ir.IRArray{}
		}
		snap[key] = val
		return nil
	}

	var measurements []monitor.Measurement
	for _, g := range s.Monitor.Gardens.List() {
		ms, err := s.Monitor.Tracker.List(g.ID)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, ms...)
	}
	var profiles []monitor.RateProfile
	for _, mt := range s.Monitor.Rates.MulchTypes() {
		p, _ := s.Monitor.Rates.Profile(mt)
		profiles = append(profiles, p)
	}

	parts := []struct {
		key string
		v   any
	}{
		{"providers", nonNil(s.Booking.Providers.List())},
		{"bookings", nonNil(s.Booking.Bookings.List())},
		{"gardens", nonNil(s.Monitor.Gardens.List())},
		{"measurements", nonNil(measurements)},
		{"rate_profiles", nonNil(profiles)},
		{"notifications", nonNil(s.Monitor.Notifications.List())},
	}
	for _, p := range parts {
		if err := add(p.key, p.v); err != nil {
			return nil, err
		}
	}
	snap["threshold"] = ir.IRInt(s.Monitor.Notifications.Threshold())
	return snap, nil
}

// Digest hashes the snapshot. Two engines that applied the same log from
// the same genesis agree on it.
func (s *State) Digest() (string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	return ir.StateDigest(snap)
}

func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}
