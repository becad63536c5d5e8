// Package hub talks to the home-automation controller's REST API.
//
// It owns three concerns:
//   - Session management: the long-lived API token is exchanged for a
//     short-lived session key which is cached and renewed lazily, one minute
//     before it expires.
//   - Collection fetching: rooms, scenes, devices, shades, thermostats, door
//     locks and security devices are read concurrently into a
//     CollectionSnapshot. Door locks and security devices are optional; a
//     controller without them still produces a usable snapshot.
//   - Write endpoints: light levels, shade positions, scene recall,
//     thermostat set points and modes, door locks and security states.
//
// All values in this package are in the controller's native encoding
// (deci-degrees, 0-65535 levels, string enums). Translation to canonical
// units lives in the device package.
//
// Usage:
//
//	client, err := hub.NewClient(hub.Options{Host: "192.168.1.50", APIToken: token})
//	if err != nil {
//	    return err
//	}
//	snap, err := client.FetchAll(ctx)
package hub
