package notify_test

import (
	"testing"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
	"github.com/flipperdevices/flipper-debug-go/internal/notify"
)

type recordingBus struct {
	events []models.Event
}

func (b *recordingBus) Publish(ev models.Event) { b.events = append(b.events, ev) }

type countingNotifier struct{ n int }

func (c *countingNotifier) Show(models.MessageID, models.Duration) { c.n++ }

func TestBusNotifier_PublishesToast(t *testing.T) {
	bus := &recordingBus{}
	notify.NewBusNotifier(bus).Show(models.MsgRestartRequired, models.DurationLong)

	if len(bus.events) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.events))
	}
	ev := bus.events[0]
	if ev.Type != models.EventToast || ev.Toast == nil {
		t.Fatalf("event = %+v, want toast", ev)
	}
	if ev.Toast.Message != models.MsgRestartRequired {
		t.Errorf("message = %q", ev.Toast.Message)
	}
	if ev.Toast.DurationMS != 3500 || ev.Toast.Duration != "long" {
		t.Errorf("duration = %s/%d, want long/3500", ev.Toast.Duration, ev.Toast.DurationMS)
	}
	if ev.Toast.Text == "" || ev.Toast.Text == string(models.MsgRestartRequired) {
		t.Errorf("text not resolved from catalog: %q", ev.Toast.Text)
	}
}

func TestText_UnknownFallsBackToID(t *testing.T) {
	if got := notify.Text("some_other_message"); got != "some_other_message" {
		t.Errorf("Text() = %q", got)
	}
}

func TestFanout(t *testing.T) {
	a, b := &countingNotifier{}, &countingNotifier{}
	notify.Fanout{a, b}.Show(models.MsgRestartRequired, models.DurationShort)
	if a.n != 1 || b.n != 1 {
		t.Errorf("fanout calls = %d/%d, want 1/1", a.n, b.n)
	}
}

func TestDBusNotifier_CloseWithoutConnection(t *testing.T) {
	n := notify.NewDBusNotifier("")
	if err := n.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
