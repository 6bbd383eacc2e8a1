package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hamidoujand/usersadmin/internal/notify"
)

func Test_HubDelivers(t *testing.T) {
	hub := notify.NewHub()

	first, cancelFirst := hub.Subscribe(1)
	defer cancelFirst()

	second, cancelSecond := hub.Subscribe(1)
	defer cancelSecond()

	e := notify.NewEvent(notify.EntityAddress, notify.ActionCreated, 42)
	hub.Publish(context.Background(), e)

	for i, ch := range []<-chan notify.Event{first, second} {
		select {
		case got := <-ch:
			if diff := cmp.Diff(e, got); diff != "" {
				t.Errorf("subscriber %d mismatch (-want +got):\n%s", i, diff)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func Test_HubDropsForSlowSubscriber(t *testing.T) {
	hub := notify.NewHub()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(context.Background(), notify.NewEvent(notify.EntityUser, notify.ActionCreated, 1))
	//buffer is full, this one must not block
	hub.Publish(context.Background(), notify.NewEvent(notify.EntityUser, notify.ActionUpdated, 1))

	got := <-ch
	if got.Action != notify.ActionCreated {
		t.Errorf("action=%s, got=%s", notify.ActionCreated, got.Action)
	}

	select {
	case e := <-ch:
		t.Errorf("expected the second event to be dropped, got %s", e.Name())
	default:
	}
}

func Test_HubCancel(t *testing.T) {
	hub := notify.NewHub()

	ch, cancel := hub.Subscribe(1)
	if hub.Subscribers() != 1 {
		t.Fatalf("subscribers=%d, got=%d", 1, hub.Subscribers())
	}

	cancel()
	cancel() //second call is a no-op

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}

	if hub.Subscribers() != 0 {
		t.Errorf("subscribers=%d, got=%d", 0, hub.Subscribers())
	}

	hub.Close()
	late, _ := hub.Subscribe(1)
	if _, ok := <-late; ok {
		t.Error("expected subscriptions after close to be closed")
	}
}

func Test_Fanout(t *testing.T) {
	a := notify.NewHub()
	b := notify.NewHub()

	chA, cancelA := a.Subscribe(1)
	defer cancelA()
	chB, cancelB := b.Subscribe(1)
	defer cancelB()

	f := notify.Fanout{a, b}
	e := notify.NewEvent(notify.EntityUser, notify.ActionDeleted, 9)
	f.Publish(context.Background(), e)

	if got := <-chA; got.ID != e.ID {
		t.Errorf("hub a: id=%s, got=%s", e.ID, got.ID)
	}

	if got := <-chB; got.ID != e.ID {
		t.Errorf("hub b: id=%s, got=%s", e.ID, got.ID)
	}

	if e.Name() != "user.deleted" {
		t.Errorf("name=%s, got=%s", "user.deleted", e.Name())
	}
}
