package testutil

import (
	"sync"

	"github.com/mcoot/hardcorelimbo/internal/gameserver"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/transfer"
)

// FakeServer is an in-memory game server and transfer sink that records
// every presentation call. It is safe for concurrent use.
type FakeServer struct {
	mu          sync.Mutex
	online      map[model.PlayerID]gameserver.Presence
	notices     map[model.PlayerID][]model.Notice
	modes       map[model.PlayerID][]model.GameMode
	limboStates map[model.PlayerID]int
	transfers   []transfer.Signal
}

var (
	_ gameserver.Server = (*FakeServer)(nil)
	_ transfer.Sink     = (*FakeServer)(nil)
)

// NewFakeServer creates an empty FakeServer
func NewFakeServer() *FakeServer {
	return &FakeServer{
		online:      make(map[model.PlayerID]gameserver.Presence),
		notices:     make(map[model.PlayerID][]model.Notice),
		modes:       make(map[model.PlayerID][]model.GameMode),
		limboStates: make(map[model.PlayerID]int),
	}
}

// SetOnline marks a player as connected
func (f *FakeServer) SetOnline(p gameserver.Presence) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[p.ID] = p
}

// SetOffline marks a player as disconnected
func (f *FakeServer) SetOffline(id model.PlayerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, id)
}

func (f *FakeServer) IsOnline(id model.PlayerID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.online[id]
	return ok
}

func (f *FakeServer) HasBypass(id model.PlayerID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[id].Bypass
}

func (f *FakeServer) OnlinePlayers() []gameserver.Presence {
	f.mu.Lock()
	defer f.mu.Unlock()
	players := make([]gameserver.Presence, 0, len(f.online))
	for _, p := range f.online {
		players = append(players, p)
	}
	return players
}

func (f *FakeServer) Notify(id model.PlayerID, notice model.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices[id] = append(f.notices[id], notice)
}

func (f *FakeServer) SetGameMode(id model.PlayerID, mode model.GameMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modes[id] = append(f.modes[id], mode)
}

func (f *FakeServer) ApplyLimboState(id model.PlayerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limboStates[id]++
}

func (f *FakeServer) Send(sig transfer.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers = append(f.transfers, sig)
}

// Notices returns the notices sent to id
func (f *FakeServer) Notices(id model.PlayerID) []model.Notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notice(nil), f.notices[id]...)
}

// NoticeKinds returns the kinds of the notices sent to id, in order
func (f *FakeServer) NoticeKinds(id model.PlayerID) []model.NoticeKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]model.NoticeKind, 0, len(f.notices[id]))
	for _, n := range f.notices[id] {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// GameModes returns the modes set for id, in order
func (f *FakeServer) GameModes(id model.PlayerID) []model.GameMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.GameMode(nil), f.modes[id]...)
}

// LimboStates returns how many times limbo restrictions were applied to id
func (f *FakeServer) LimboStates(id model.PlayerID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limboStates[id]
}

// Transfers returns every transfer signal sent
func (f *FakeServer) Transfers() []transfer.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transfer.Signal(nil), f.transfers...)
}

// TransfersFor returns the transfer signals sent for id
func (f *FakeServer) TransfersFor(id model.PlayerID) []transfer.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []transfer.Signal
	for _, sig := range f.transfers {
		if sig.PlayerID == id {
			out = append(out, sig)
		}
	}
	return out
}
