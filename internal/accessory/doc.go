// Package accessory binds canonical device fields to a generic get/set
// capability model.
//
// Presentation layers (the MQTT bridge, the REST API) never switch on device
// types themselves: they ask For for an Accessory and address it by field
// name. Reads come from the device's translated State; writes become a
// device.Intent handed to an Applier.
//
//	acc := accessory.For(dev, sync)
//	if err := acc.Set(ctx, accessory.FieldTargetTemperature, 21.5); err != nil {
//	    // errors.Is(err, device.ErrUnsupportedField) etc.
//	}
package accessory
