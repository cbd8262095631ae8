package websocket

import (
	"collabdoc-server/stores/memory"
	"context"
	"encoding/json"
	"testing"
)

func newTestHub() *Hub {
	return NewHub(memory.NewDocumentStore())
}

func mustDecode(t *testing.T, raw string) inbound {
	t.Helper()
	msg, err := decodeInbound([]byte(raw))
	if err != nil {
		t.Fatalf("decodeInbound(%s) returned error: %v", raw, err)
	}
	return msg
}

// received drains and returns every message currently buffered for c.
func received(c *Client) []Envelope {
	var envelopes []Envelope
	for {
		select {
		case data := <-c.send:
			var env Envelope
			if json.Unmarshal(data, &env) == nil {
				envelopes = append(envelopes, env)
			}
		default:
			return envelopes
		}
	}
}

func TestHub_JoinNotifiesOthersOnly(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")

	h.addSession(alice)
	if msgs := received(alice); len(msgs) != 0 {
		t.Errorf("first member received %d messages on its own join, want 0", len(msgs))
	}

	h.addSession(bob)
	aliceMsgs := received(alice)
	if len(aliceMsgs) != 1 || aliceMsgs[0].Type != TypeUserJoined || aliceMsgs[0].User != "Bob" {
		t.Errorf("alice received %+v, want one user-joined Bob", aliceMsgs)
	}
	if msgs := received(bob); len(msgs) != 0 {
		t.Errorf("bob received %d messages about its own join, want 0", len(msgs))
	}
}

func TestHub_EditEchoesToEveryoneAndStores(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")
	h.addSession(alice)
	h.addSession(bob)
	received(alice)

	h.dispatch(bob, mustDecode(t, `{"type":"document-update","content":"X"}`))

	for _, tc := range []struct {
		name   string
		client *Client
	}{
		{"alice", alice},
		{"bob", bob},
	} {
		msgs := received(tc.client)
		if len(msgs) != 1 || msgs[0].Type != TypeDocumentUpdate || string(msgs[0].Content) != `"X"` {
			t.Errorf("%s received %+v, want one echoed document-update", tc.name, msgs)
		}
	}

	doc, err := h.store.Find(context.Background(), "doc1")
	if err != nil {
		t.Fatalf("store.Find() returned error: %v", err)
	}
	if string(doc.Content) != `"X"` {
		t.Errorf("store content = %s, want %q", doc.Content, "X")
	}
}

func TestHub_EditDoesNotLeakAcrossRooms(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	carol := newTestClient("doc2", "Carol")
	h.addSession(alice)
	h.addSession(carol)

	h.dispatch(alice, mustDecode(t, `{"type":"document-update","content":1}`))

	if msgs := received(carol); len(msgs) != 0 {
		t.Errorf("carol received %d messages from another room, want 0", len(msgs))
	}
}

func TestHub_GetDocumentEmptyIsSilent(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	h.addSession(alice)

	h.dispatch(alice, mustDecode(t, `{"type":"get-document"}`))

	if msgs := received(alice); len(msgs) != 0 {
		t.Errorf("got %d replies for an empty document, want 0", len(msgs))
	}
}

func TestHub_GetDocumentNullContentIsSilent(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	h.addSession(alice)

	h.dispatch(alice, mustDecode(t, `{"type":"document-update","content":null}`))
	received(alice)

	h.dispatch(alice, mustDecode(t, `{"type":"get-document"}`))
	if msgs := received(alice); len(msgs) != 0 {
		t.Errorf("got %d replies for a null document, want 0", len(msgs))
	}
}

func TestHub_GetDocumentRepliesToRequesterOnly(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")
	h.addSession(alice)
	h.addSession(bob)

	h.dispatch(bob, mustDecode(t, `{"type":"document-update","content":{"v":1}}`))
	received(alice)
	received(bob)

	h.dispatch(alice, mustDecode(t, `{"type":"get-document"}`))

	aliceMsgs := received(alice)
	if len(aliceMsgs) != 1 || aliceMsgs[0].Type != TypeLoadDocument || string(aliceMsgs[0].Content) != `{"v":1}` {
		t.Errorf("alice received %+v, want one load-document", aliceMsgs)
	}
	if msgs := received(bob); len(msgs) != 0 {
		t.Errorf("bob received %d messages for alice's query, want 0", len(msgs))
	}
}

func TestHub_UnknownTypeIgnored(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")
	h.addSession(alice)
	h.addSession(bob)
	received(alice)

	h.dispatch(bob, mustDecode(t, `{"type":"cursor-move","x":1}`))

	if msgs := received(alice); len(msgs) != 0 {
		t.Errorf("alice received %d messages for an unknown type, want 0", len(msgs))
	}
}

func TestHub_DisconnectAnnouncesDeparture(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")
	h.addSession(alice)
	h.addSession(bob)
	received(alice)

	h.drop(alice)

	bobMsgs := received(bob)
	if len(bobMsgs) != 1 || bobMsgs[0].Type != TypeUserLeft || bobMsgs[0].User != "Alice" {
		t.Errorf("bob received %+v, want one user-left Alice", bobMsgs)
	}

	if _, open := <-alice.send; open {
		t.Error("alice's send channel was not closed on drop")
	}
}

func TestHub_DoubleDisconnectIsNoop(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")
	h.addSession(alice)
	h.addSession(bob)
	received(alice)

	h.drop(alice)
	received(bob)

	h.drop(alice)
	if msgs := received(bob); len(msgs) != 0 {
		t.Errorf("bob received %d messages for a double disconnect, want 0", len(msgs))
	}
}

func TestHub_DropNeverJoinedIsNoop(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")
	h.addSession(bob)

	h.drop(alice)

	if msgs := received(bob); len(msgs) != 0 {
		t.Errorf("bob received %d messages for a never-joined session, want 0", len(msgs))
	}
}

func TestHub_UnresponsiveMemberIsEvicted(t *testing.T) {
	h := newTestHub()
	stuck := &Client{send: make(chan []byte), documentID: "doc1", displayName: "Stuck"}
	bob := newTestClient("doc1", "Bob")
	h.addSession(stuck)
	h.addSession(bob)

	h.dispatch(bob, mustDecode(t, `{"type":"document-update","content":"X"}`))

	// The stuck member is treated as disconnected; bob still gets the edit
	// plus the departure notice.
	bobMsgs := received(bob)
	sawEdit, sawLeft := false, false
	for _, msg := range bobMsgs {
		switch msg.Type {
		case TypeDocumentUpdate:
			sawEdit = true
		case TypeUserLeft:
			if msg.User == "Stuck" {
				sawLeft = true
			}
		}
	}
	if !sawEdit || !sawLeft {
		t.Errorf("bob received %+v, want the edit and user-left Stuck", bobMsgs)
	}

	if counts := h.ActiveRooms(); counts["doc1"] != 1 {
		t.Errorf("room count = %d after eviction, want 1", counts["doc1"])
	}
}

func TestHub_MultipleUnresponsiveMembersEvicted(t *testing.T) {
	h := newTestHub()
	stuck1 := &Client{send: make(chan []byte), documentID: "doc1", displayName: "Stuck1"}
	stuck2 := &Client{send: make(chan []byte), documentID: "doc1", displayName: "Stuck2"}
	bob := newTestClient("doc1", "Bob")

	// Seed membership directly so the join notices don't evict anyone before
	// the fan-out under test.
	h.rooms.join(stuck1)
	h.rooms.join(stuck2)
	h.rooms.join(bob)

	// Both stuck members fail during the same fan-out; the broadcast must
	// still complete and reach bob.
	h.broadcast("doc1", marshalEnvelope(Envelope{Type: TypeDocumentUpdate, Content: json.RawMessage(`"X"`)}), nil)

	edits := 0
	for _, msg := range received(bob) {
		if msg.Type == TypeDocumentUpdate {
			edits++
		}
	}
	if edits != 1 {
		t.Errorf("bob received the edit %d times, want 1", edits)
	}

	counts := h.ActiveRooms()
	if counts["doc1"] != 1 {
		t.Errorf("room count = %d after evictions, want 1", counts["doc1"])
	}
	for _, c := range []*Client{stuck1, stuck2} {
		if h.rooms.contains(c) {
			t.Errorf("%s still a member after failed delivery", c.displayName)
		}
	}
}

func TestHub_ScenarioAliceAndBob(t *testing.T) {
	h := newTestHub()
	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")

	h.addSession(alice)
	h.addSession(bob)

	aliceMsgs := received(alice)
	if len(aliceMsgs) != 1 || aliceMsgs[0].Type != TypeUserJoined || aliceMsgs[0].User != "Bob" {
		t.Fatalf("alice received %+v, want user-joined Bob", aliceMsgs)
	}
	if msgs := received(bob); len(msgs) != 0 {
		t.Fatalf("bob received %d messages about its own join, want 0", len(msgs))
	}

	h.dispatch(bob, mustDecode(t, `{"type":"document-update","content":"X"}`))
	for _, c := range []*Client{alice, bob} {
		msgs := received(c)
		if len(msgs) != 1 || msgs[0].Type != TypeDocumentUpdate || string(msgs[0].Content) != `"X"` {
			t.Fatalf("%s received %+v, want the echoed edit", c.displayName, msgs)
		}
	}

	doc, err := h.store.Find(context.Background(), "doc1")
	if err != nil || string(doc.Content) != `"X"` {
		t.Fatalf("store holds %v (%v), want content \"X\"", doc, err)
	}

	h.drop(alice)
	bobMsgs := received(bob)
	if len(bobMsgs) != 1 || bobMsgs[0].Type != TypeUserLeft || bobMsgs[0].User != "Alice" {
		t.Fatalf("bob received %+v, want user-left Alice", bobMsgs)
	}
}

func TestHub_RunProcessesChannels(t *testing.T) {
	h := newTestHub()
	go h.Run()

	alice := newTestClient("doc1", "Alice")
	bob := newTestClient("doc1", "Bob")

	h.register <- alice
	h.register <- bob

	h.inbound <- inboundMessage{sender: bob, msg: mustDecode(t, `{"type":"document-update","content":"Y"}`)}

	// Reading from alice's channel synchronizes with the hub goroutine.
	var got []Envelope
	for len(got) < 2 {
		data := <-alice.send
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("failed to decode delivered message: %v", err)
		}
		got = append(got, env)
	}
	if got[0].Type != TypeUserJoined || got[0].User != "Bob" {
		t.Errorf("first message = %+v, want user-joined Bob", got[0])
	}
	if got[1].Type != TypeDocumentUpdate || string(got[1].Content) != `"Y"` {
		t.Errorf("second message = %+v, want the edit", got[1])
	}

	h.unregister <- bob
	data := <-alice.send
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("failed to decode delivered message: %v", err)
	}
	if env.Type != TypeUserLeft || env.User != "Bob" {
		t.Errorf("got %+v, want user-left Bob", env)
	}
}
