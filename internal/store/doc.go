// Package store holds the in-memory application state written by the
// message router and the booking saga: booking saga status, the
// notification list and chat conversations.
//
// Each store is safe for concurrent use. Readers get copies.
package store
