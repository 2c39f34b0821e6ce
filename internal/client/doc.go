// Package client is the device communication and state-synchronization
// engine. It decides, per command, which transport carries it, encodes
// for that transport, keeps per-device connection state honest, and
// merges asynchronous broker pushes back into the device registry.
//
// # Architecture
//
//	caller ──► Client ──► broker session (cloud, JSON envelopes)
//	                └───► radio pool    (short range, binary frames)
//
//	broker push ──► Client ──► registry merge ──► update event
//
// Commands prefer the broker when the device supports it and is known
// to be reachable there; everything else goes over the short-range
// radio link. Status requests are the exception: they always try the
// broker first, because polling for status is how broker reachability
// is discovered in the first place. The radio link is write-only, so a
// status request that ends up on the radio path fails validation.
//
// # Failure Model
//
// Transport failures never fail the issuing call. They are reported
// through the error event sink, the affected connectivity flag is
// cleared, and the command call returns normally. Only validation
// problems (unknown device, unsupported capability, malformed color,
// no radio encoding) come back to the caller, and authentication
// failures propagate from EnsureBrokerSession.
//
// # Usage
//
//	c, err := client.NewClient(client.Options{
//		Account:  accountClient,
//		Registry: registry,
//		Radio:    pool,
//		Broker:   broker.Options{Host: "broker.example.com", Port: 8883},
//		Events: client.Events{
//			OnDeviceUpdate: func(dev *device.Device, raw []byte) {
//				log.Printf("%s is now %s", dev.Label(), dev.Status)
//			},
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.EnsureBrokerSession(ctx); err != nil {
//		return err
//	}
//	if err := c.RefreshDevices(ctx); err != nil {
//		return err
//	}
//	err = c.SetBrightness(ctx, "AA:BB:CC:DD:EE:FF:11:22", 0.5)
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Session resets are
// serialized against in-flight sends; a send issued during a reset
// waits for the fresh session rather than racing a half-torn-down one.
// Event handlers run synchronously on the goroutine that detected the
// condition and must not call back into the Client.
package client
