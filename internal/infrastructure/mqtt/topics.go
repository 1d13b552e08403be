package mqtt

// Topic namespace for Latchwork Core.
//
// latchwork/controller/heartbeat   controller address+mode announcements
// latchwork/system/status          gateway online/offline (retained, LWT)
const (
	// TopicControllerHeartbeat carries controller heartbeat announcements:
	// {"address":"192.168.1.50","mode":"normal"}.
	TopicControllerHeartbeat = "latchwork/controller/heartbeat"

	// TopicSystemStatus carries the gateway's own online/offline status.
	TopicSystemStatus = "latchwork/system/status"
)
