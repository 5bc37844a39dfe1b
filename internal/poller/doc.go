// Package poller implements the booking Reconcile Poller.
//
// The Reconcile Poller:
//   - Periodically asks the booking saga to re-read its pending booking over REST
//   - Recovers confirmations lost while the realtime connection was down
//   - Is disabled unless saga.reconcile_interval is set
package poller
