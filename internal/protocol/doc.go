// Package protocol implements the two wire encodings used to command
// smart-lighting devices, plus the decoder for inbound broker pushes.
//
// # Encodings
//
// Every logical command has up to two renderings:
//
//	┌───────────────┐     EncodeEnvelope     ┌─────────────────────────┐
//	│    Command    │───────────────────────▶│ broker JSON envelope     │
//	│ (kind+values) │                        │ {"msg":{"cmd":...}}      │
//	│               │     RadioEncoding      ├─────────────────────────┤
//	│               │───────────────────────▶│ radio frame (20 bytes)   │
//	└───────────────┘     + EncodeFrame      │ 0x33 op payload..pad xor │
//	                                         └─────────────────────────┘
//
// The radio frame is fixed at 20 bytes: marker 0x33, a one-byte opcode,
// up to 17 payload bytes zero-padded, and a trailing XOR checksum over
// the first 19 bytes. Status requests have no radio rendering because
// the radio link is write-only.
//
// The broker envelope wraps a command field name and data payload:
//
//	{"msg":{"accountTopic":"...","cmd":"brightness","cmdVersion":0,
//	        "data":{"val":128},"transaction":"1700000000000","type":1}}
//
// # Decoding
//
// DecodePush parses an inbound broker push into a StateUpdate. Power,
// brightness, and connectivity are pointer fields: nil means the push
// did not mention them and the device value is left alone. Color and
// color temperature are mutually exclusive display modes; each push
// either sets or clears them, so nil means cleared.
//
// All functions are pure and safe for concurrent use.
package protocol
