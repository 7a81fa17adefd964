// Package events defines the call and unit lifecycle events emitted by the
// dispatch core and the Hub delivering them.
//
// Available event types:
//   - CallEvent: call added, dispatched, on scene, completed, expired, cancelled or raised
//   - UnitStatusEvent: a unit changed status
//   - ShiftEvent: an agency rotated its roster at a time period change
//
// Listeners registered on the Hub run synchronously on the emitting goroutine.
// The Hub also republishes every event on an asynchronous eventbus.Bus for
// metrics collectors and bridges.
package events
