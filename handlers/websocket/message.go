package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Wire message types exchanged over a live connection.
const (
	TypeDocumentUpdate = "document-update"
	TypeGetDocument    = "get-document"
	TypeUserJoined     = "user-joined"
	TypeUserLeft       = "user-left"
	TypeLoadDocument   = "load-document"
)

// Envelope is the JSON frame for all room traffic. Content is opaque editor
// state; User carries a display name on join/leave notices.
type Envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
	User    string          `json:"user,omitempty"`
}

type inboundKind int

const (
	kindUnknown inboundKind = iota
	kindDocumentUpdate
	kindGetDocument
)

// inbound is a message decoded once at the connection boundary. raw keeps the
// verbatim bytes so an edit broadcast echoes exactly what the sender produced.
type inbound struct {
	kind    inboundKind
	content json.RawMessage
	raw     []byte
}

func decodeInbound(data []byte) (inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return inbound{}, fmt.Errorf("malformed message: %w", err)
	}

	switch env.Type {
	case TypeDocumentUpdate:
		return inbound{kind: kindDocumentUpdate, content: env.Content, raw: data}, nil
	case TypeGetDocument:
		return inbound{kind: kindGetDocument, raw: data}, nil
	default:
		return inbound{kind: kindUnknown, raw: data}, nil
	}
}

func marshalEnvelope(env Envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		logrus.WithError(err).WithField("type", env.Type).Error("Failed to encode envelope")
		return nil
	}
	return data
}
