// Package mqtt provides MQTT client connectivity for hubsync.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// The broker is the presentation surface for the synchronised controller:
// the bridge package publishes each device's canonical state retained on
// hubsync/state/{id} and accepts field writes on hubsync/command/{id}.
//
//	controller ↔ hubsync ↔ MQTT broker ↔ dashboards, other hubs, scripts
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        id, _ := mqtt.Topics{}.DeviceID(topic)
//	        ...
//	    })
package mqtt
