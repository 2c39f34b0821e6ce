// Package broker maintains the MQTT session to the vendor cloud.
//
// This package manages:
//   - Mutual-TLS connection using the per-account identity certificate
//   - At-most-once message publishing to per-device command topics
//   - Subscription to the account push topic with automatic restoration
//   - Auto-reconnect with fixed exponential backoff
//   - Connection health monitoring
//
// # Architecture
//
// Devices that are cloud-bound do not accept connections directly; all
// commands travel through the vendor broker, which forwards them to the
// device and fans state pushes back to every session on the account.
//
//	Lumen Core ↔ Vendor Broker ↔ Devices
//
// The session is a single shared handle owned by the client engine. It is
// torn down and re-established whenever the account re-authenticates,
// because the broker binds session state to the identity certificate.
//
// # Fixed Policy
//
// The upstream broker dictates the connection parameters, so they are
// package constants rather than configuration:
//   - QoS 0 for every publish and subscription
//   - Reconnect backoff 1s doubling to 32s
//   - 20-second window per connect attempt
//   - TLS 1.2 minimum
//
// Publishing on a disconnected session returns ErrNotConnected immediately
// instead of queueing, so the engine can fall back to the radio transport.
//
// # Usage
//
//	session, err := broker.Connect(broker.Options{
//	    Host:     "aqm3wd1qlc3dy-ats.iot.us-east-1.amazonaws.com",
//	    Port:     8883,
//	    ClientID: clientID,
//	    CertFile: certPath,
//	    KeyFile:  keyPath,
//	})
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	err = session.Subscribe(accountTopic,
//	    func(topic string, payload []byte) error {
//	        return engine.HandlePush(payload)
//	    })
//
// # Thread Safety
//
// All Session methods are safe for concurrent use. Message handlers run on
// paho's goroutines and are wrapped with panic recovery; a panicking
// handler is logged and the session keeps running.
package broker
