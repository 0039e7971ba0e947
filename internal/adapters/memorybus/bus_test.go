package memorybus

import (
	"testing"
	"time"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish("session.started", []byte(`{"sessionId":"x"}`))

	select {
	case evt := <-ch:
		if evt.Topic != "session.started" {
			t.Fatalf("topic: got %q", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe()
	cancel()

	if _, open := <-ch; open {
		t.Fatalf("channel should be closed after cancel")
	}

	// Publier après désabonnement ne doit pas paniquer.
	b.Publish("session.progress", nil)
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := New()
	_, cancel := b.Subscribe()
	defer cancel()

	// Le buffer de l'abonné fait 64: au-delà, les événements sont jetés
	// plutôt que de bloquer l'éditeur.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			b.Publish("session.progress", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a slow subscriber")
	}
}
