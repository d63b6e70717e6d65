package events_test

import (
	"testing"
	"time"

	"github.com/flipperdevices/flipper-debug-go/internal/events"
	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test1")

	bus.Publish(models.SettingsEvent(models.Settings{AlwaysUpdate: true}))

	select {
	case got := <-ch:
		if got.Type != models.EventSettings || got.Settings == nil || !got.Settings.AlwaysUpdate {
			t.Errorf("got %+v, want settings event with always_update", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test-unsub")

	bus.Unsubscribe("test-unsub")

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusDropsEventsWhenFull(t *testing.T) {
	bus := events.NewBus()
	bus.Subscribe("slow-reader")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(models.RouteEvent("@stress_test"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked for too long (should drop events)")
	}
	bus.Unsubscribe("slow-reader")
}

func TestBusKeepsLatestWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("slow-reader")
	defer bus.Unsubscribe("slow-reader")

	bus.Publish(models.RouteEvent("@stress_test"))
	const total = 40
	for i := 1; i <= total; i++ {
		bus.Publish(models.SyncEvent(models.SyncStatus{Runs: i}))
	}

	var last models.Event
	n := 0
	for len(ch) > 0 {
		last = <-ch
		n++
	}
	if n == 0 {
		t.Fatal("no events queued")
	}
	if last.Type != models.EventSync || last.Sync == nil || last.Sync.Runs != total {
		t.Errorf("last event = %+v, want sync snapshot with runs=%d", last, total)
	}
}

func TestBusSubscriberCount(t *testing.T) {
	bus := events.NewBus()
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
	bus.Subscribe("s1")
	bus.Subscribe("s2")
	if n := bus.SubscriberCount(); n != 2 {
		t.Errorf("expected 2 subscribers, got %d", n)
	}
	bus.Unsubscribe("s1")
	bus.Unsubscribe("missing")
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}
