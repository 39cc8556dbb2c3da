package relayclient

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestConversation_MergeDedupesByID(t *testing.T) {
	c := NewConversation()
	t0 := time.Now()
	a := Message{ID: uuid.New(), Content: "a", CreatedAt: t0}
	b := Message{ID: uuid.New(), Content: "b", CreatedAt: t0.Add(time.Second)}

	if n := c.Merge(b); n != 1 {
		t.Fatalf("Merge: want=1 got=%d", n)
	}
	// Same id with different content is still the same message.
	dup := b
	dup.Content = "edited"
	if n := c.Merge(a, dup, a); n != 1 {
		t.Fatalf("Merge with duplicates: want=1 got=%d", n)
	}
	msgs := c.Messages()
	if len(msgs) != 2 || msgs[0].ID != a.ID || msgs[1].Content != "b" {
		t.Fatalf("Messages: want [a b] got=%+v", msgs)
	}
	if !c.Seen(a.ID) || c.Seen(uuid.New()) {
		t.Fatalf("Seen: unexpected result")
	}
}

func TestInbox_RoutesByConversation(t *testing.T) {
	in := NewInbox()
	me, mySanta, myGiftee := uuid.New(), uuid.New(), uuid.New()
	asSanta := Message{ID: uuid.New(), SantaID: me, GifteeID: myGiftee, CreatedAt: time.Now()}
	asGiftee := Message{ID: uuid.New(), SantaID: mySanta, GifteeID: me, CreatedAt: time.Now()}

	fresh := in.Merge(asSanta, asGiftee, asSanta)
	if len(fresh) != 2 {
		t.Fatalf("Merge: want=2 fresh got=%d", len(fresh))
	}
	if n := in.Conversation(asSanta.Key()).Len(); n != 1 {
		t.Fatalf("santa conversation: want=1 got=%d", n)
	}
	if n := in.Conversation(asGiftee.Key()).Len(); n != 1 {
		t.Fatalf("giftee conversation: want=1 got=%d", n)
	}
}

func TestState_Transitions(t *testing.T) {
	cases := []struct {
		from, to State
		ok       bool
	}{
		{Disconnected, Connecting, true},
		{Connected, Erroring, true},
		{Erroring, Reconnecting, true},
		{Reconnecting, Connecting, true},
		{Connected, Closing, true},
		{Closing, Disconnected, true},
		{Connected, Reconnecting, false},
		{Disconnected, Connected, false},
	}
	for _, tc := range cases {
		if got := canTransition(tc.from, tc.to); got != tc.ok {
			t.Fatalf("canTransition(%s, %s): want=%v got=%v", tc.from, tc.to, tc.ok, got)
		}
	}
}
