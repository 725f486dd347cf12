// Package ws owns the realtime surface: the connection registry (Hub),
// one Client per WebSocket connection, and the wire envelope.
//
// Inbound events are decoded by Client.ReadPump and handed, one at a time
// per connection, to the EventHandler installed on the Hub. Services push
// outbound events through the EventPublisher and SessionRegistry
// interfaces, never through the concrete Hub.
package ws

import "github.com/akinalp/safespace/models"

// Event is the envelope of every frame in both directions.
// Seq is set on outbound events only and grows by one per event.
type Event struct {
	Op   string `json:"op"`
	Data any    `json:"d,omitempty"`
	Seq  int64  `json:"seq,omitempty"`
}

// Client -> server.
const (
	OpHeartbeat     = "heartbeat"
	OpIdentify      = "identify"
	OpCreateChannel = "createChannel"
	OpJoinChannel   = "joinChannel"
	OpSendMessage   = "sendMessage"
	OpDisconnect    = "disconnect"
)

// Server -> client.
const (
	OpHeartbeatAck    = "heartbeatAck"
	OpIdentified      = "identified"
	OpChannelList     = "channelList"
	OpChannelMessages = "channelMessages"
	OpReceiveMessage  = "receiveMessage"
	OpUserStatusList  = "userStatusList"
	OpErrorMessage    = "errorMessage"
	OpForceLogout     = "forceLogout"
	OpUsernameUpdated = "usernameUpdated"
)

// IdentifyData is the payload of identify.
type IdentifyData struct {
	Token string `json:"token"`
}

// CreateChannelData is the payload of createChannel.
type CreateChannelData struct {
	Name string `json:"name"`
}

// JoinChannelData is the payload of joinChannel.
type JoinChannelData struct {
	Channel string `json:"channel"`
}

// SendMessageData is the payload of sendMessage.
type SendMessageData struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// ChannelMessagesData answers joinChannel with the recent history.
type ChannelMessagesData struct {
	Channel  string           `json:"channel"`
	Messages []models.Message `json:"messages"`
}

// ErrorData is the payload of errorMessage.
type ErrorData struct {
	Message string `json:"message"`
}

// ForceLogoutData is the payload of forceLogout.
type ForceLogoutData struct {
	Username string `json:"username"`
	Reason   string `json:"reason,omitempty"`
}

// UsernameUpdatedData is the payload of usernameUpdated.
type UsernameUpdatedData struct {
	OldUsername string `json:"oldUsername"`
	NewUsername string `json:"newUsername"`
}
