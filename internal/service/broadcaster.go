package service

// Broadcaster pushes session events to connected WebSocket clients. Declared
// here so the service layer does not import the ws transport.
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}
