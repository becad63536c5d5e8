package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// FetchAll reads every collection concurrently and waits for all of them.
//
// Rooms, scenes, devices, shades and thermostats are required: if any of them
// fails the whole pass fails with ErrDiscovery and no partial snapshot is
// returned. Door locks and security devices are optional; their failure is
// recorded in the corresponding Optional result and the pass succeeds.
//
// Parameters:
//   - ctx: Cancels all in-flight reads
//
// Returns:
//   - *CollectionSnapshot: Every collection as reported by the controller
//   - error: ErrDiscovery wrapping the first required failure
func (c *Client) FetchAll(ctx context.Context) (*CollectionSnapshot, error) {
	snap := &CollectionSnapshot{}
	g, gctx := errgroup.WithContext(ctx)

	required := func(name string, fetch func(context.Context) error) {
		g.Go(func() error {
			if err := fetch(gctx); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrDiscovery, name, err)
			}
			return nil
		})
	}

	required(CollectionRooms, func(ctx context.Context) (err error) {
		snap.Rooms, err = listCollection[Room](ctx, c, CollectionRooms)
		return err
	})
	required(CollectionScenes, func(ctx context.Context) (err error) {
		snap.Scenes, err = listCollection[Scene](ctx, c, CollectionScenes)
		return err
	})
	required(CollectionDevices, func(ctx context.Context) (err error) {
		snap.Devices, err = listCollection[RawDevice](ctx, c, CollectionDevices)
		return err
	})
	required(CollectionShades, func(ctx context.Context) (err error) {
		snap.Shades, err = listCollection[Shade](ctx, c, CollectionShades)
		return err
	})
	required(CollectionThermostats, func(ctx context.Context) (err error) {
		snap.Thermostats, err = listCollection[Thermostat](ctx, c, CollectionThermostats)
		return err
	})

	g.Go(func() error {
		snap.DoorLocks = fetchOptional[DoorLock](gctx, c, CollectionDoorLocks)
		return nil
	})
	g.Go(func() error {
		snap.SecurityDevices = fetchOptional[SecurityDevice](gctx, c, CollectionSecurityDevices)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.FetchedAt = c.now()
	return snap, nil
}

// fetchOptional reads a collection the controller may not expose.
func fetchOptional[T any](ctx context.Context, c *Client, name string) Optional[T] {
	items, err := listCollection[T](ctx, c, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.logger.Debug("optional collection not supported by controller", "collection", name)
			err = fmt.Errorf("%w: %s: %w", ErrNotSupported, name, err)
		} else {
			c.logger.Warn("optional collection unavailable", "collection", name, "error", err)
		}
		return Optional[T]{Items: []T{}, Err: err}
	}
	return Optional[T]{Items: items, Supported: true}
}

// listCollection reads GET /<name> and unwraps the {"<name>": [...]} envelope.
// A missing or null list decodes as empty.
func listCollection[T any](ctx context.Context, c *Client, name string) ([]T, error) {
	return decodeEnvelope[T](ctx, c, "/"+name, name)
}

// getByID reads GET /<name>/<id>. The controller answers with the same
// envelope as the list endpoint, holding a single entry.
func getByID[T any](ctx context.Context, c *Client, name string, id ID) (T, error) {
	var zero T
	if id == "" {
		return zero, fmt.Errorf("%w: %s: empty id", ErrNotFound, name)
	}
	path := "/" + name + "/" + url.PathEscape(string(id))
	items, err := decodeEnvelope[T](ctx, c, path, name)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, name, id)
	}
	return items[0], nil
}

func decodeEnvelope[T any](ctx context.Context, c *Client, path, key string) ([]T, error) {
	var envelope map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}

	raw, ok := envelope[key]
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}

	// Some firmware returns a bare object for single-entry reads.
	if raw[0] == '{' {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("%w: decoding %s: %w", ErrTransport, key, err)
		}
		return []T{item}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrTransport, key, err)
	}
	return items, nil
}

// GetRoom reads one room by id.
func (c *Client) GetRoom(ctx context.Context, id ID) (Room, error) {
	return getByID[Room](ctx, c, CollectionRooms, id)
}

// GetScene reads one scene by id.
func (c *Client) GetScene(ctx context.Context, id ID) (Scene, error) {
	return getByID[Scene](ctx, c, CollectionScenes, id)
}

// GetDevice reads one raw device by id.
func (c *Client) GetDevice(ctx context.Context, id ID) (RawDevice, error) {
	return getByID[RawDevice](ctx, c, CollectionDevices, id)
}

// GetShade reads one shade by id.
func (c *Client) GetShade(ctx context.Context, id ID) (Shade, error) {
	return getByID[Shade](ctx, c, CollectionShades, id)
}

// GetThermostat reads one thermostat by id.
func (c *Client) GetThermostat(ctx context.Context, id ID) (Thermostat, error) {
	return getByID[Thermostat](ctx, c, CollectionThermostats, id)
}

// GetDoorLock reads one door lock by id.
func (c *Client) GetDoorLock(ctx context.Context, id ID) (DoorLock, error) {
	return getByID[DoorLock](ctx, c, CollectionDoorLocks, id)
}

// GetSecurityDevice reads one security device by id.
func (c *Client) GetSecurityDevice(ctx context.Context, id ID) (SecurityDevice, error) {
	return getByID[SecurityDevice](ctx, c, CollectionSecurityDevices, id)
}

// Get reads one entry of any collection by name, returning it as generic
// JSON-ready data. Unknown collection names return ErrNotFound.
func (c *Client) Get(ctx context.Context, collection string, id ID) (any, error) {
	switch collection {
	case CollectionRooms:
		return c.GetRoom(ctx, id)
	case CollectionScenes:
		return c.GetScene(ctx, id)
	case CollectionDevices:
		return c.GetDevice(ctx, id)
	case CollectionShades:
		return c.GetShade(ctx, id)
	case CollectionThermostats:
		return c.GetThermostat(ctx, id)
	case CollectionDoorLocks:
		return c.GetDoorLock(ctx, id)
	case CollectionSecurityDevices:
		return c.GetSecurityDevice(ctx, id)
	}
	return nil, fmt.Errorf("%w: unknown collection %q", ErrNotFound, collection)
}
