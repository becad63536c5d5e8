// Package synchronizer owns the current picture of the controller's devices
// and the path for changing them.
//
// A Synchronizer runs discovery passes (session check, concurrent collection
// fetch, aggregation, translation) on a fixed interval and on demand. Each
// successful pass replaces the device snapshot as a whole and pushes every
// device to registered listeners. A failed pass leaves the previous snapshot
// untouched.
//
// Commands go the other way: Apply takes a device.Intent in canonical units,
// validates it against the device in the current snapshot, converts it to
// wire values and issues exactly one write. Commands never trigger a refresh;
// the next scheduled pass picks up the new state.
//
// Passes never overlap. A manual Refresh waits for an in-flight pass; a
// scheduled tick that finds a pass running is skipped and counted in
// hubsync_refresh_skipped_total.
package synchronizer
