// Package mqtt wraps paho.mqtt.golang for Latchwork Core.
//
// The gateway uses the broker for one thing: listening for controller
// heartbeat announcements on latchwork/controller/heartbeat, an alternative
// to the HTTP heartbeat endpoint for controllers that already speak MQTT.
// The client handles reconnection with subscription restore and publishes
// its own online/offline status (retained + LWT).
package mqtt
