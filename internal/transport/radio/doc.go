// Package radio provides the short-range link transport for Lumen Core.
//
// Devices out of broker reach are commanded over a direct radio link.
// This package owns the per-device link pool and the serial gateway
// that carries those links; it never interprets command frames, it
// only moves them.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐   serial   ┌──────────┐
//	│  Client Engine  │  frames  │   Link Pool     │◄──────────►│ Gateway  │ ~~~► devices
//	│                 │◄────────►│   (this pkg)    │            │  dongle  │
//	└─────────────────┘          └─────────────────┘            └──────────┘
//
// # Key Responsibilities
//
//   - Cache one open link per device hardware address
//   - Open links lazily with a bounded attempt loop (10 tries, each
//     with its own timeout)
//   - Drop links on send failure so the next command redials
//   - Frame host requests to the gateway dongle (CONNECT awaits a
//     status response; WRITE and DISCONNECT are fire-and-forget)
//
// # Write-Only Transport
//
// The radio link carries commands to devices but no state back; all
// state reporting arrives through the broker push channel. A link's
// health is therefore only discovered by writing to it.
//
// # Usage
//
//	gw, err := radio.OpenGateway(radio.GatewayConfig{PortPath: "/dev/ttyUSB0"})
//	if err != nil {
//	    return err
//	}
//	defer gw.Close()
//
//	pool := radio.NewPool(gw, radio.PoolOptions{})
//	defer pool.Close()
//
//	link, err := pool.GetOrOpen(ctx, "A4:C1:38:12:34:56")
//	if err != nil {
//	    return err // all attempts spent
//	}
//	if err := link.Write(frame); err != nil {
//	    pool.Drop("A4:C1:38:12:34:56")
//	}
//
// # Thread Safety
//
// Pool and Gateway are safe for concurrent use. Concurrent opens of
// the same address coalesce into a single dial; all gateway exchanges
// serialize on the shared serial port.
package radio
