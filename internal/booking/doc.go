// Package booking implements the service-booking ledger: the provider
// registry, bookings with their status machine, and customer ratings.
//
// Registries are not safe for concurrent use. The engine serializes every
// call and applies it to a clone obtained from Service.Clone.
package booking
