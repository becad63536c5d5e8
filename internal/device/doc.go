// Package device holds the canonical device model and the pure functions that
// build and translate it.
//
// # Aggregation
//
// Aggregate joins one hub.CollectionSnapshot into a flat list of Device
// values. Each raw device gets a resolved type (its sub type if set,
// otherwise its type, with thermostat, security panel and door lock spellings
// normalised), a display name of "<room> <name>", and the extension record
// that matches its resolved type. Scenes and door locks reported only by the
// lock collection are appended as devices of their own. The caller's
// allow-list decides which resolved types are kept.
//
// # Translation
//
// The controller speaks deci-degrees, 0-65535 levels and string enums. The
// canonical form uses Celsius with one decimal, percentages and the Mode,
// LockState and SecurityState enums defined here. Translator fills a
// device's State from its wire fields, logging a warning for values it does
// not recognise instead of failing.
//
// # Intents
//
// Writes are expressed as Intent values in canonical units. The synchronizer
// validates and converts them to wire values with the To* functions before
// calling the controller.
//
// Nothing in this package performs I/O.
package device
