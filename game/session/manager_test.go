package session

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/chess-referee/game/rules"
	"github.com/wricardo/chess-referee/protocol"
)

type fakeDirectory struct {
	viewer string
	names  map[string]bool
}

func newFakeDirectory(names ...string) *fakeDirectory {
	d := &fakeDirectory{viewer: "viewer", names: map[string]bool{"viewer": true}}
	for _, n := range names {
		d.names[n] = true
	}
	return d
}

func (d *fakeDirectory) Registered(name string) bool { return d.names[name] }
func (d *fakeDirectory) IsViewer(name string) bool   { return name == d.viewer }

type delivery struct {
	to      string
	players Players
	exclude string
	msg     any
}

type recordingBroadcaster struct {
	notices    []delivery
	broadcasts []delivery
	mu         sync.Mutex
}

func (b *recordingBroadcaster) Notify(name string, msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, delivery{to: name, msg: msg})
}

func (b *recordingBroadcaster) Broadcast(players Players, msg any, exclude string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, delivery{players: players, exclude: exclude, msg: msg})
}

func (b *recordingBroadcaster) outcomes() []protocol.Outcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []protocol.Outcome
	for _, d := range b.broadcasts {
		if o, ok := d.msg.(protocol.Outcome); ok {
			result = append(result, o)
		}
	}
	return result
}

func (b *recordingBroadcaster) forwardedMoves() []delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []delivery
	for _, d := range b.broadcasts {
		if _, ok := d.msg.(protocol.Move); ok {
			result = append(result, d)
		}
	}
	return result
}

// scriptedEngine alternates movers and returns queued results.
type scriptedEngine struct {
	mover     rules.Color
	results   []rules.Result
	submitted []rules.Move
}

func (e *scriptedEngine) CurrentMover() rules.Color { return e.mover }
func (e *scriptedEngine) IsMover(c rules.Color) bool { return c != rules.NoColor && c == e.mover }

func (e *scriptedEngine) Submit(m rules.Move) rules.Result {
	e.submitted = append(e.submitted, m)
	res := rules.Result{Status: rules.Continue}
	if len(e.results) > 0 {
		res = e.results[0]
		e.results = e.results[1:]
	}
	switch res.Status {
	case rules.Continue:
		e.mover = e.mover.Opponent()
	case rules.Ended:
		e.mover = rules.NoColor
	}
	return res
}

func newTestManager(t *testing.T, results ...rules.Result) (*Manager, *recordingBroadcaster, *[]*scriptedEngine) {
	t.Helper()
	out := &recordingBroadcaster{}
	var engines []*scriptedEngine
	factory := func() rules.Engine {
		e := &scriptedEngine{mover: rules.White, results: results}
		engines = append(engines, e)
		return e
	}
	m := NewManager(newFakeDirectory("alice", "bob", "carol"), out, factory, nil)
	t.Cleanup(func() { m.Shutdown() })
	return m, out, &engines
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestManager_Start(t *testing.T) {
	m, out, _ := newTestManager(t)

	snap, err := m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 5})
	if err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	if len(snap.ID) != 4 {
		t.Errorf("Expected 4 character session ID, got %q", snap.ID)
	}
	if snap.White != "alice" || snap.Black != "bob" {
		t.Errorf("Unexpected players: %+v", snap)
	}
	if snap.Status != "active" || snap.ToMove != "alice" || snap.ToMoveColor != "white" {
		t.Errorf("Unexpected initial state: %+v", snap)
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 live session, got %d", m.Count())
	}

	want := map[string]protocol.StartNotice{
		"alice": {Color: "white", SecondsPerTurn: 5, Opponent: "bob"},
		"bob":   {Color: "black", SecondsPerTurn: 5, Opponent: "alice"},
	}
	if len(out.notices) != 2 {
		t.Fatalf("Expected 2 start notices, got %d", len(out.notices))
	}
	for _, n := range out.notices {
		if got := n.msg.(protocol.StartNotice); got != want[n.to] {
			t.Errorf("Start notice for %s = %+v, want %+v", n.to, got, want[n.to])
		}
	}
	if len(out.broadcasts) != 0 {
		t.Errorf("Start should not broadcast, got %d broadcasts", len(out.broadcasts))
	}
}

func TestManager_StartErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     StartRequest
		wantErr error
	}{
		{"unknown white", StartRequest{White: "zed", Black: "bob", SecondsPerTurn: 2}, ErrUnknownPlayer},
		{"unknown black", StartRequest{White: "alice", Black: "zed", SecondsPerTurn: 2}, ErrUnknownPlayer},
		{"same player", StartRequest{White: "alice", Black: "alice", SecondsPerTurn: 2}, ErrSamePlayer},
		{"viewer plays", StartRequest{White: "viewer", Black: "bob", SecondsPerTurn: 2}, ErrViewerCannotPlay},
		{"zero budget", StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 0}, ErrInvalidBudget},
		{"negative budget", StartRequest{White: "alice", Black: "bob", SecondsPerTurn: -1}, ErrInvalidBudget},
		{"NaN budget", StartRequest{White: "alice", Black: "bob", SecondsPerTurn: math.NaN()}, ErrInvalidBudget},
		{"infinite budget", StartRequest{White: "alice", Black: "bob", SecondsPerTurn: math.Inf(1)}, ErrInvalidBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, out, _ := newTestManager(t)
			_, err := m.Start(tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if m.Count() != 0 {
				t.Error("Failed start must not create a session")
			}
			if len(out.notices)+len(out.broadcasts) != 0 {
				t.Error("Failed start must not send anything")
			}
		})
	}
}

func TestManager_StartBusyPlayer(t *testing.T) {
	m, _, _ := newTestManager(t)

	if _, err := m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 5}); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	_, err := m.Start(StartRequest{White: "carol", Black: "bob", SecondsPerTurn: 5})
	if !errors.Is(err, ErrPlayerBusy) {
		t.Errorf("Expected ErrPlayerBusy, got %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Expected 1 live session, got %d", m.Count())
	}
}

func TestManager_MoveForwardsAndAdvances(t *testing.T) {
	m, out, engines := newTestManager(t)
	snap, _ := m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 5})

	mv := protocol.Move{From: "e2", To: "e4"}
	if err := m.Move("alice", mv); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	forwarded := out.forwardedMoves()
	if len(forwarded) != 1 {
		t.Fatalf("Expected 1 forwarded move, got %d", len(forwarded))
	}
	if forwarded[0].exclude != "alice" || forwarded[0].msg != mv {
		t.Errorf("Unexpected forward: %+v", forwarded[0])
	}
	if got := (*engines)[0].submitted; len(got) != 1 || got[0].From != "e2" || got[0].To != "e4" {
		t.Errorf("Engine received %+v", got)
	}

	after, err := m.Get(snap.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.ToMove != "bob" || after.MoveCount != 1 {
		t.Errorf("Expected bob to move after 1 move, got %+v", after)
	}
	if len(out.outcomes()) != 0 {
		t.Error("No outcome expected after a continuing move")
	}
}

func TestManager_MoveDropped(t *testing.T) {
	m, out, engines := newTestManager(t)
	m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 5})

	if err := m.Move("bob", protocol.Move{From: "e7", To: "e5"}); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}
	if err := m.Move("carol", protocol.Move{From: "e2", To: "e4"}); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("Expected ErrNotParticipant, got %v", err)
	}
	if err := m.Move("viewer", protocol.Move{From: "e2", To: "e4"}); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("Expected ErrNotParticipant for viewer, got %v", err)
	}

	if len(out.broadcasts) != 0 {
		t.Errorf("Dropped moves must not be forwarded, got %d broadcasts", len(out.broadcasts))
	}
	if len((*engines)[0].submitted) != 0 {
		t.Error("Dropped moves must not reach the engine")
	}
}

func TestManager_IllegalMoveForfeits(t *testing.T) {
	m, out, _ := newTestManager(t, rules.Result{Status: rules.Rejected, Err: rules.ErrIllegalMove})
	m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 5})

	if err := m.Move("alice", protocol.Move{From: "e2", To: "e5"}); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}

	if len(out.forwardedMoves()) != 1 {
		t.Error("Illegal move should still be forwarded before validation")
	}
	outcomes := out.outcomes()
	if len(outcomes) != 1 {
		t.Fatalf("Expected 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0] != (protocol.Outcome{Winner: "bob", Reason: "illegal_move"}) {
		t.Errorf("Unexpected outcome %+v", outcomes[0])
	}
	if m.Count() != 0 {
		t.Error("Ended session should leave the live set")
	}
	if _, ok := m.SessionOf("alice"); ok {
		t.Error("alice should be free after the session ended")
	}
	if _, err := m.Start(StartRequest{White: "bob", Black: "alice", SecondsPerTurn: 5}); err != nil {
		t.Errorf("Players should be able to start again: %v", err)
	}
}

func TestManager_EngineOutcome(t *testing.T) {
	tests := []struct {
		name    string
		outcome rules.Outcome
		want    protocol.Outcome
	}{
		{"white checkmates", rules.Outcome{Winner: rules.White, Reason: rules.Checkmate}, protocol.Outcome{Winner: "alice", Reason: "checkmate"}},
		{"stalemate", rules.Outcome{Reason: rules.Stalemate}, protocol.Outcome{Winner: protocol.Draw, Reason: "stalemate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, out, _ := newTestManager(t, rules.Result{Status: rules.Ended, Outcome: tt.outcome})
			m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 5})
			m.Move("alice", protocol.Move{From: "d1", To: "h5"})

			outcomes := out.outcomes()
			if len(outcomes) != 1 || outcomes[0] != tt.want {
				t.Errorf("Expected outcome %+v, got %+v", tt.want, outcomes)
			}
			for _, d := range out.broadcasts {
				if _, ok := d.msg.(protocol.Outcome); ok && d.exclude != "" {
					t.Errorf("Outcome must go to everyone, excluded %q", d.exclude)
				}
			}
			if m.Count() != 0 {
				t.Error("Ended session should leave the live set")
			}
		})
	}
}

func TestManager_TurnTimeout(t *testing.T) {
	m, out, _ := newTestManager(t)
	m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 0.05})
	m.Move("alice", protocol.Move{From: "e2", To: "e4"})

	waitFor(t, time.Second, func() bool { return len(out.outcomes()) > 0 })
	time.Sleep(100 * time.Millisecond)

	outcomes := out.outcomes()
	if len(outcomes) != 1 {
		t.Fatalf("Expected exactly 1 outcome, got %d", len(outcomes))
	}
	if outcomes[0] != (protocol.Outcome{Winner: "alice", Reason: "timeout"}) {
		t.Errorf("Expected alice to win on bob's timeout, got %+v", outcomes[0])
	}
	if m.Count() != 0 {
		t.Error("Timed out session should leave the live set")
	}
}

func TestManager_StaleTimeoutIgnored(t *testing.T) {
	m, out, _ := newTestManager(t)
	m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 5})

	m.mu.Lock()
	s := m.byPlayer["alice"]
	staleSeq := s.seq
	m.mu.Unlock()

	m.Move("alice", protocol.Move{From: "e2", To: "e4"})
	m.expire(s, staleSeq)

	if len(out.outcomes()) != 0 {
		t.Error("A timeout armed before an accepted move must be discarded")
	}
	if m.Count() != 1 {
		t.Error("Session should still be live")
	}
}

// A timeout firing at the same moment as a move must yield either the
// timeout outcome or the applied move, never both.
func TestManager_TimeoutMoveRace(t *testing.T) {
	for i := 0; i < 100; i++ {
		m, out, engines := newTestManager(t)
		m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 10})

		m.mu.Lock()
		m.arm(m.byPlayer["alice"], 0)
		m.mu.Unlock()

		err := m.Move("alice", protocol.Move{From: "e2", To: "e4"})
		time.Sleep(10 * time.Millisecond)

		outcomes := out.outcomes()
		applied := len((*engines)[0].submitted)
		switch {
		case len(outcomes) == 1 && applied == 0:
			if outcomes[0].Reason != "timeout" || !errors.Is(err, ErrNotParticipant) {
				t.Fatalf("iteration %d: timeout won but got outcome %+v, err %v", i, outcomes[0], err)
			}
			if len(out.forwardedMoves()) != 0 {
				t.Fatalf("iteration %d: move forwarded after timeout", i)
			}
		case len(outcomes) == 0 && applied == 1:
			if err != nil {
				t.Fatalf("iteration %d: move won but returned %v", i, err)
			}
		default:
			t.Fatalf("iteration %d: outcomes=%d applied=%d", i, len(outcomes), applied)
		}
		m.Shutdown()
	}
}

func TestManager_ListAndSessionOf(t *testing.T) {
	out := &recordingBroadcaster{}
	dir := newFakeDirectory("a", "b", "c", "d")
	m := NewManager(dir, out, func() rules.Engine { return &scriptedEngine{mover: rules.White} }, nil)
	defer m.Shutdown()

	first, _ := m.Start(StartRequest{White: "a", Black: "b", SecondsPerTurn: 5})
	second, _ := m.Start(StartRequest{White: "c", Black: "d", SecondsPerTurn: 5})

	list := m.List()
	if len(list) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(list))
	}
	ids := map[string]bool{list[0].ID: true, list[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("List returned %v, want %s and %s", ids, first.ID, second.ID)
	}

	snap, ok := m.SessionOf("d")
	if !ok || snap.ID != second.ID {
		t.Errorf("SessionOf(d) = %+v, %v", snap, ok)
	}
	if _, ok := m.SessionOf("viewer"); ok {
		t.Error("viewer is never in a session")
	}
	if _, err := m.Get("zzzz"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_Shutdown(t *testing.T) {
	m, out, _ := newTestManager(t)
	m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 0.02})

	if dropped := m.Shutdown(); dropped != 1 {
		t.Errorf("Expected 1 dropped session, got %d", dropped)
	}
	time.Sleep(60 * time.Millisecond)

	if len(out.outcomes()) != 0 {
		t.Error("Cancelled clocks must not fire after shutdown")
	}
	if _, err := m.Start(StartRequest{White: "alice", Black: "bob", SecondsPerTurn: 1}); !errors.Is(err, ErrShutdown) {
		t.Errorf("Expected ErrShutdown, got %v", err)
	}
}

func TestOutcomeMessage(t *testing.T) {
	players := Players{White: "alice", Black: "bob"}
	if got := OutcomeMessage(players, rules.Forfeit(rules.White, rules.Timeout)); got.Winner != "bob" {
		t.Errorf("Expected bob, got %+v", got)
	}
	if got := OutcomeMessage(players, rules.Outcome{Reason: rules.Repetition}); got.Winner != protocol.Draw {
		t.Errorf("Expected draw, got %+v", got)
	}
}
