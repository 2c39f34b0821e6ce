package radio

import "fmt"

// Host-link framing between this process and the radio gateway. The
// gateway multiplexes links to many devices over one serial port, so
// every request names the device hardware address it targets.
//
// Raw request layout (before stuffing):
//
//	+--------+----------------+------------------+------------+
//	| op (1) | address (6)    | body (variable)  | crc16 (2)  |
//	+--------+----------------+------------------+------------+
//
// Raw response layout:
//
//	+---------------+------------+------------+
//	| op|0x80 (1)   | status (1) | crc16 (2)  |
//	+---------------+------------+------------+
//
// The CRC is CRC-CCITT (init 0xFFFF, poly 0x1021) over everything
// before it, appended big-endian. The whole raw frame is then byte
// stuffed and terminated with the flag byte.
const (
	// hostFlag terminates every frame on the wire.
	hostFlag = 0x7E

	// hostEscape marks a stuffed byte; the following byte is XORed
	// with hostFlip to recover the original.
	hostEscape = 0x7D
	hostFlip   = 0x20

	// Link operations.
	opConnect    = 0x01
	opWrite      = 0x02
	opDisconnect = 0x03

	// opResponseBit is set on the op byte of gateway responses.
	opResponseBit = 0x80

	// statusOK is the gateway's success status code.
	statusOK = 0x00

	// hardwareAddressLen is the raw device address length.
	hardwareAddressLen = 6

	// minHostFrame is op(1) + crc(2), the smallest decodable frame.
	minHostFrame = 3

	// maxHostFrame bounds inbound frame accumulation. Nothing the
	// gateway sends comes close; larger input means framing desync.
	maxHostFrame = 64
)

// controlAttribute identifies the device attribute all command writes
// target, canonically 00010203-0405-0607-0809-0a0b0c0d2b11. Every
// supported product exposes the same one.
var controlAttribute = [16]byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x2B, 0x11,
}

// encodeHostFrame builds a complete stuffed frame: op, body, CRC,
// terminating flag.
func encodeHostFrame(op byte, body []byte) []byte {
	raw := make([]byte, 0, len(body)+3)
	raw = append(raw, op)
	raw = append(raw, body...)

	crc := crcCCITT(raw)
	raw = append(raw, byte(crc>>8), byte(crc&0xFF))

	frame := hostStuff(raw)
	return append(frame, hostFlag)
}

// decodeHostFrame unstuffs and validates one frame (flag byte already
// stripped by the reader), returning the op byte and body.
func decodeHostFrame(stuffed []byte) (op byte, body []byte, err error) {
	raw := hostUnstuff(stuffed)

	if len(raw) < minHostFrame {
		return 0, nil, fmt.Errorf("%w: frame too short: %d bytes", ErrBadResponse, len(raw))
	}

	payload := raw[:len(raw)-2]
	received := uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1])
	computed := crcCCITT(payload)
	if received != computed {
		return 0, nil, fmt.Errorf("%w: crc %04X, computed %04X", ErrFrameCorrupted, received, computed)
	}

	return payload[0], payload[1:], nil
}

// hostStuff escapes flag and escape bytes so they never appear inside
// a frame body on the wire.
func hostStuff(data []byte) []byte {
	out := make([]byte, 0, len(data)*2)
	for _, b := range data {
		if b == hostFlag || b == hostEscape {
			out = append(out, hostEscape, b^hostFlip)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// hostUnstuff reverses hostStuff.
func hostUnstuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	escaped := false
	for _, b := range data {
		switch {
		case escaped:
			out = append(out, b^hostFlip)
			escaped = false
		case b == hostEscape:
			escaped = true
		default:
			out = append(out, b)
		}
	}
	return out
}

// crcCCITT computes CRC-CCITT (0xFFFF initial, poly 0x1021).
func crcCCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
