package buildpipeline

import "testing"

func TestMultiFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	ch := make(chan Event, 2)
	sink := Multi(a, nil, b, ChannelSink{Ch: ch})
	sink.OnEvent(Event{File: "x.toml", Stage: StageLoad, Status: StatusWorking})
	sink.OnEvent(Event{File: "x.toml", Stage: StageWrite, Status: StatusDone})
	if len(a.Events()) != 2 || len(b.Events()) != 2 || len(ch) != 2 {
		t.Fatalf("events not fanned out: %d %d %d", len(a.Events()), len(b.Events()), len(ch))
	}
	ChannelSink{}.OnEvent(Event{})
	FuncSink(nil).OnEvent(Event{})
}

func TestFinished(t *testing.T) {
	tests := []struct {
		ev   Event
		want bool
	}{
		{Event{File: "a", Status: StatusDone}, true},
		{Event{File: "a", Status: StatusCached}, true},
		{Event{File: "a", Status: StatusError}, true},
		{Event{File: "a", Status: StatusWorking}, false},
		{Event{Status: StatusDone}, false},
	}
	for _, tt := range tests {
		if got := tt.ev.Finished(); got != tt.want {
			t.Errorf("%+v.Finished() = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
