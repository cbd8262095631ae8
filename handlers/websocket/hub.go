package websocket

import (
	"collabdoc-server/core"
	"context"

	"github.com/sirupsen/logrus"
)

// Hub relays room traffic between sessions and keeps the document store in
// step with the latest broadcast edit. All membership changes and fan-out run
// on the hub goroutine; sessions only ever touch their own buffered send
// channels, so no lock is held across a delivery.
type Hub struct {
	store core.DocumentStore
	rooms *registry

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage
}

type inboundMessage struct {
	sender *Client
	msg    inbound
}

func NewHub(store core.DocumentStore) *Hub {
	return &Hub{
		store:      store,
		rooms:      newRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundMessage),
	}
}

// ActiveRooms reports current member counts keyed by document id.
func (h *Hub) ActiveRooms() map[string]int {
	return h.rooms.counts()
}

// Run processes joins, leaves, and room traffic. Call it once, in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addSession(client)
		case client := <-h.unregister:
			h.drop(client)
		case in := <-h.inbound:
			h.dispatch(in.sender, in.msg)
		}
	}
}

// addSession registers the client with its room and announces the arrival to
// the existing members. The new session does not receive its own join notice.
func (h *Hub) addSession(client *Client) {
	count := h.rooms.join(client)
	logrus.WithFields(logrus.Fields{
		"document_id": client.documentID,
		"user":        client.displayName,
		"members":     count,
	}).Info("Session joined room")

	h.broadcast(client.documentID, marshalEnvelope(Envelope{Type: TypeUserJoined, User: client.displayName}), client)
}

func (h *Hub) dispatch(sender *Client, msg inbound) {
	switch msg.kind {
	case kindDocumentUpdate:
		if _, err := h.store.Put(context.Background(), sender.documentID, msg.content); err != nil {
			logrus.WithError(err).WithField("document_id", sender.documentID).Error("Failed to store document update")
		}
		// Everyone in the room gets the edit, the sender included.
		h.broadcast(sender.documentID, msg.raw, nil)

	case kindGetDocument:
		doc, err := h.store.Find(context.Background(), sender.documentID)
		if err != nil || len(doc.Content) == 0 || string(doc.Content) == "null" {
			// No content yet: stay silent rather than pushing an empty load.
			return
		}
		h.send(sender, marshalEnvelope(Envelope{Type: TypeLoadDocument, Content: doc.Content}))

	default:
		// Unrecognized message types are ignored.
	}
}

// drop removes the client from its room and announces the departure to the
// remaining members. Safe to call twice; only the first call does anything.
func (h *Hub) drop(client *Client) {
	name, ok := h.rooms.leave(client)
	if !ok {
		return
	}
	close(client.send)

	logrus.WithFields(logrus.Fields{
		"document_id": client.documentID,
		"user":        name,
	}).Info("Session left room")

	h.broadcast(client.documentID, marshalEnvelope(Envelope{Type: TypeUserLeft, User: name}), nil)
}

// broadcast fans the message out to every member of the room except exclude.
// A member that cannot accept the delivery is treated as disconnected; the
// remaining members still get the message.
func (h *Hub) broadcast(documentID string, message []byte, exclude *Client) {
	if message == nil {
		return
	}
	for _, member := range h.rooms.members(documentID, exclude) {
		h.send(member, message)
	}
}

func (h *Hub) send(member *Client, message []byte) {
	// A failed delivery earlier in the same fan-out may already have evicted
	// this member and closed its channel; the snapshot is stale then, so
	// re-check membership before touching the channel.
	if !h.rooms.contains(member) {
		return
	}

	select {
	case member.send <- message:
	default:
		logrus.WithFields(logrus.Fields{
			"document_id": member.documentID,
			"user":        member.displayName,
		}).Warn("Dropping unresponsive session")
		h.drop(member)
	}
}
