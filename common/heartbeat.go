package common

// HeartbeatMessageSize is the exact size of a wallet heartbeat message.
const HeartbeatMessageSize = 16

// IsValidHeartbeatMessage reports whether the message is a well-formed
// heartbeat: exactly 16 bytes whose first 8 bytes are all 0xFF. The prefix
// guarantees a heartbeat can never collide with a real transaction digest
// preimage a wallet would be asked to sign.
func IsValidHeartbeatMessage(message []byte) bool {
	if len(message) != HeartbeatMessageSize {
		return false
	}
	for _, b := range message[:8] {
		if b != 0xff {
			return false
		}
	}
	return true
}
