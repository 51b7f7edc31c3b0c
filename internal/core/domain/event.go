package domain

import (
	"strings"
	"time"
)

// JID servers.
const (
	ServerUser      = "s.whatsapp.net"
	ServerGroup     = "g.us"
	StatusBroadcast = "status@broadcast"
)

// EventKind identifies an InboundEvent variant.
type EventKind int

const (
	EventConnectionUpdate EventKind = iota + 1
	EventCredentialUpdate
	EventMessageBatch
	EventStatusUpdate
)

func (k EventKind) String() string {
	switch k {
	case EventConnectionUpdate:
		return "connection_update"
	case EventCredentialUpdate:
		return "credential_update"
	case EventMessageBatch:
		return "message_batch"
	case EventStatusUpdate:
		return "status_update"
	default:
		return "unknown"
	}
}

// InboundEvent is an event emitted by a transport connection.
// The set of implementations is closed: ConnectionUpdate, CredentialUpdate,
// MessageBatch and StatusUpdate.
type InboundEvent interface {
	Kind() EventKind
	inboundEvent()
}

// ConnectionPhase is the transport-reported connection phase.
type ConnectionPhase int

const (
	PhaseConnecting ConnectionPhase = iota
	PhasePairing
	PhaseOpen
	PhaseClosed
)

func (p ConnectionPhase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhasePairing:
		return "pairing"
	case PhaseOpen:
		return "open"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionUpdate reports a change of the transport connection.
type ConnectionUpdate struct {
	Phase ConnectionPhase

	// QR is the pairing payload to render while Phase is PhasePairing.
	QR string

	// PairingCode is the numeric linking code, when pairing by code.
	PairingCode string

	// StatusCode is the close status when Phase is PhaseClosed.
	StatusCode int

	// Me is the account JID, reported with PhaseOpen.
	Me string

	// IsNewLogin is set on the first open after pairing.
	IsNewLogin bool
}

// CredentialUpdate carries a credential delta that must be persisted before
// it is acknowledged back to the transport by Seq.
type CredentialUpdate struct {
	Seq   uint64
	Patch CredentialPatch
}

// MessageBatch is an ordered batch of inbound messages.
type MessageBatch struct {
	Messages []Message
}

// StatusUpdate is a batch of delivery/read receipts.
type StatusUpdate struct {
	Receipts []Receipt
}

func (ConnectionUpdate) Kind() EventKind { return EventConnectionUpdate }
func (CredentialUpdate) Kind() EventKind { return EventCredentialUpdate }
func (MessageBatch) Kind() EventKind     { return EventMessageBatch }
func (StatusUpdate) Kind() EventKind     { return EventStatusUpdate }

func (ConnectionUpdate) inboundEvent() {}
func (CredentialUpdate) inboundEvent() {}
func (MessageBatch) inboundEvent()     {}
func (StatusUpdate) inboundEvent()     {}

// Message is an inbound chat message.
type Message struct {
	ID          string
	Chat        string
	Participant string
	FromMe      bool
	PushName    string
	Timestamp   time.Time

	// Payload is nil for protocol-level stubs that carry no content.
	Payload *MessagePayload
}

// MessagePayload holds whichever content variant the message carries.
type MessagePayload struct {
	Conversation *string
	ExtendedText *ExtendedText

	// Other names an unsupported content variant (image, sticker, ...).
	Other string
}

// ExtendedText is a text message with context (quotes, link previews).
type ExtendedText struct {
	Text          string
	QuotedMessage string
}

// Body returns the plain-text body, normalising conversation and extended
// text into one string. Non-text payloads yield "".
func (m Message) Body() string {
	if m.Payload == nil {
		return ""
	}
	if m.Payload.Conversation != nil {
		return *m.Payload.Conversation
	}
	if m.Payload.ExtendedText != nil {
		return m.Payload.ExtendedText.Text
	}
	return ""
}

// IsStatusBroadcast reports whether the message came from the status channel.
func (m Message) IsStatusBroadcast() bool {
	return m.Chat == StatusBroadcast || strings.HasSuffix(m.Chat, "@broadcast")
}

// IsGroup reports whether the message was sent to a group chat.
func (m Message) IsGroup() bool {
	return strings.HasSuffix(m.Chat, "@"+ServerGroup)
}

// Sender resolves who sent the message: self for own messages, otherwise the
// group participant, otherwise the chat itself.
func (m Message) Sender(self string) string {
	if m.FromMe {
		return self
	}
	if m.Participant != "" {
		return m.Participant
	}
	return m.Chat
}

// ReceiptStatus mirrors the protocol's message status ladder.
type ReceiptStatus int

const (
	ReceiptError ReceiptStatus = iota
	ReceiptPending
	ReceiptServerAck
	ReceiptDeliveryAck
	ReceiptRead
	ReceiptPlayed
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptError:
		return "error"
	case ReceiptPending:
		return "pending"
	case ReceiptServerAck:
		return "server_ack"
	case ReceiptDeliveryAck:
		return "delivery_ack"
	case ReceiptRead:
		return "read"
	case ReceiptPlayed:
		return "played"
	default:
		return "unknown"
	}
}

// Receipt is a delivery status change for a previously sent message.
type Receipt struct {
	MessageID string
	Chat      string
	Status    ReceiptStatus
}

// OutboundMessage is a message to send through the transport.
type OutboundMessage struct {
	Text string

	// Mentions lists JIDs mentioned in Text.
	Mentions []string
}
