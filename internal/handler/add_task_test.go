package handler

import (
	"sync"
	"testing"
)

// Dialog state is stored by value: a handler mutates its own copy and the
// shared map only changes through set, so concurrent messages from the same
// user cannot race on one struct.
func TestAddTaskFlowStateIsolation(t *testing.T) {
	flow := newAddTaskFlow()
	flow.set(7, addTaskState{Step: stepChannel})

	state, ok := flow.get(7)
	if !ok || state.Step != stepChannel {
		t.Fatalf("get() = %+v, %v; want channel step", state, ok)
	}

	state.Step = stepTarget
	state.ChannelUsername = "ch"
	if stored, _ := flow.get(7); stored.Step != stepChannel || stored.ChannelUsername != "" {
		t.Error("mutating the returned copy leaked into the flow")
	}

	flow.set(7, state)
	if stored, _ := flow.get(7); stored.Step != stepTarget || stored.ChannelUsername != "ch" {
		t.Error("set() did not publish the updated state")
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s, _ := flow.get(7)
				s.Step = stepTarget
				flow.set(7, s)
			}
		}()
	}
	wg.Wait()

	flow.drop(7)
	if _, ok := flow.get(7); ok {
		t.Error("state survived drop()")
	}
}

func TestParseChannelRef(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"@mychannel", "mychannel", true},
		{"t.me/mychannel", "mychannel", true},
		{"https://t.me/mychannel", "mychannel", true},
		{"http://t.me/mychannel/123", "mychannel", true},
		{"https://t.me/mychannel?start=x", "mychannel", true},
		{"  @spaced  ", "spaced", true},
		{"", "", false},
		{"@", "", false},
		{"not a link", "", false},
	}
	for _, tt := range tests {
		got, ok := parseChannelRef(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseChannelRef(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
