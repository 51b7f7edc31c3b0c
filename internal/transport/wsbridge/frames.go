package wsbridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

// Frame types.
const (
	frameHello            = "hello"
	frameSend             = "send"
	frameCredsAck         = "creds.ack"
	frameConnectionUpdate = "connection.update"
	frameCredsUpdate      = "creds.update"
	frameMessagesUpsert   = "messages.upsert"
	frameMessagesUpdate   = "messages.update"
	frameSendResult       = "send.result"
)

// closeCodeBase is added to a protocol status when it is carried in a
// websocket close frame.
const closeCodeBase = 4000

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encodeFrame(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return json.Marshal(frame{Type: typ, Data: raw})
}

type helloData struct {
	Credentials   *domain.Credentials `json:"credentials"`
	PairingMethod string              `json:"pairing_method"`
	PairingPhone  string              `json:"pairing_phone,omitempty"`
}

type sendData struct {
	ID       string   `json:"id"`
	JID      string   `json:"jid"`
	Text     string   `json:"text"`
	Mentions []string `json:"mentions,omitempty"`
}

type credsAckData struct {
	Seq uint64 `json:"seq"`
}

type connectionUpdateData struct {
	Connection  string `json:"connection"`
	QR          string `json:"qr,omitempty"`
	PairingCode string `json:"pairing_code,omitempty"`
	StatusCode  int    `json:"status_code,omitempty"`
	Me          string `json:"me,omitempty"`
	IsNewLogin  bool   `json:"is_new_login,omitempty"`
}

func (d connectionUpdateData) event() domain.ConnectionUpdate {
	u := domain.ConnectionUpdate{
		QR:          d.QR,
		PairingCode: d.PairingCode,
		StatusCode:  d.StatusCode,
		Me:          d.Me,
		IsNewLogin:  d.IsNewLogin,
	}
	switch {
	case d.Connection == "open":
		u.Phase = domain.PhaseOpen
	case d.Connection == "close":
		u.Phase = domain.PhaseClosed
	case d.QR != "" || d.PairingCode != "":
		u.Phase = domain.PhasePairing
	default:
		u.Phase = domain.PhaseConnecting
	}
	return u
}

type credsUpdateData struct {
	Seq         uint64                 `json:"seq"`
	Credentials domain.CredentialPatch `json:"credentials"`
}

type wireMessage struct {
	ID          string       `json:"id"`
	Chat        string       `json:"chat"`
	Participant string       `json:"participant,omitempty"`
	FromMe      bool         `json:"from_me,omitempty"`
	PushName    string       `json:"push_name,omitempty"`
	Timestamp   int64        `json:"timestamp,omitempty"`
	Message     *wirePayload `json:"message"`
}

type wirePayload struct {
	Conversation *string `json:"conversation,omitempty"`
	ExtendedText *struct {
		Text   string `json:"text"`
		Quoted string `json:"quoted,omitempty"`
	} `json:"extended_text,omitempty"`
	Other string `json:"other,omitempty"`
}

func (m wireMessage) message() domain.Message {
	msg := domain.Message{
		ID:          m.ID,
		Chat:        m.Chat,
		Participant: m.Participant,
		FromMe:      m.FromMe,
		PushName:    m.PushName,
	}
	if m.Timestamp > 0 {
		msg.Timestamp = time.Unix(m.Timestamp, 0)
	}
	if m.Message != nil {
		p := &domain.MessagePayload{Conversation: m.Message.Conversation, Other: m.Message.Other}
		if et := m.Message.ExtendedText; et != nil {
			p.ExtendedText = &domain.ExtendedText{Text: et.Text, QuotedMessage: et.Quoted}
		}
		msg.Payload = p
	}
	return msg
}

type messagesUpsertData struct {
	Messages []wireMessage `json:"messages"`
}

type messageStatus struct {
	ID     string `json:"id"`
	Chat   string `json:"chat"`
	Status int    `json:"status"`
}

type messagesUpdateData struct {
	Updates []messageStatus `json:"updates"`
}

type sendResultData struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// decodeEvent turns a bridge frame into an inbound event. ok is false for
// frames that are not events (send results) or are unknown.
func decodeEvent(f frame) (ev domain.InboundEvent, ok bool, err error) {
	switch f.Type {
	case frameConnectionUpdate:
		var d connectionUpdateData
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, false, err
		}
		return d.event(), true, nil

	case frameCredsUpdate:
		var d credsUpdateData
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, false, err
		}
		return domain.CredentialUpdate{Seq: d.Seq, Patch: d.Credentials}, true, nil

	case frameMessagesUpsert:
		var d messagesUpsertData
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, false, err
		}
		batch := domain.MessageBatch{Messages: make([]domain.Message, 0, len(d.Messages))}
		for _, m := range d.Messages {
			batch.Messages = append(batch.Messages, m.message())
		}
		return batch, true, nil

	case frameMessagesUpdate:
		var d messagesUpdateData
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return nil, false, err
		}
		update := domain.StatusUpdate{Receipts: make([]domain.Receipt, 0, len(d.Updates))}
		for _, u := range d.Updates {
			update.Receipts = append(update.Receipts, domain.Receipt{
				MessageID: u.ID,
				Chat:      u.Chat,
				Status:    domain.ReceiptStatus(u.Status),
			})
		}
		return update, true, nil
	}
	return nil, false, nil
}
