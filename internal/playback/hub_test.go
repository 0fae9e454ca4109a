package playback

import "testing"

func TestHubPublish(t *testing.T) {
	var h Hub

	if _, ok := h.CurrentState(); ok {
		t.Fatal("CurrentState() on empty hub should report no state")
	}

	var gotA, gotB []string
	cancelA := h.Subscribe(func(sender string, st State) { gotA = append(gotA, sender+":"+st.Title) })
	h.Subscribe(func(sender string, st State) { gotB = append(gotB, st.Title) })

	h.Publish("volumio", State{Title: "one"})
	cancelA()
	cancelA()
	h.Publish("volumio", State{Title: "two"})

	if len(gotA) != 1 || gotA[0] != "volumio:one" {
		t.Errorf("listener A got %v, want [volumio:one]", gotA)
	}
	if len(gotB) != 2 {
		t.Errorf("listener B got %v, want 2 notifications", gotB)
	}

	st, ok := h.CurrentState()
	if !ok || st.Title != "two" {
		t.Errorf("CurrentState() = %+v, %v; want title two", st, ok)
	}
}

func TestHubListenerMayUnsubscribeItself(t *testing.T) {
	var h Hub
	calls := 0
	var cancel func()
	cancel = h.Subscribe(func(string, State) {
		calls++
		cancel()
	})

	h.Publish("s", State{})
	h.Publish("s", State{})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
