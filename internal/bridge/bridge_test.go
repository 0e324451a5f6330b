package bridge

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/hardcorelimbo/internal/gameserver"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/testutil"
	"github.com/mcoot/hardcorelimbo/internal/transfer"
)

const (
	steve model.PlayerID = "5b7c1a64-3a4e-4a43-9f36-1f0f1c6f2b11"
	alex  model.PlayerID = "0d3f9a1e-8c55-4c2a-9d1e-6b2a7f3e4c10"
)

// recorder captures events as short strings like "join:<id>"
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) PlayerJoined(p gameserver.Presence) { r.add("join:" + string(p.ID)) }
func (r *recorder) PlayerQuit(id model.PlayerID)       { r.add("quit:" + string(id)) }
func (r *recorder) PlayerDied(id model.PlayerID)       { r.add("death:" + string(id)) }
func (r *recorder) PlayerRespawned(id model.PlayerID)  { r.add("respawn:" + string(id)) }
func (r *recorder) GameModeChanged(id model.PlayerID, from, to model.GameMode) {
	r.add("gamemode:" + string(id) + ":" + string(from) + ">" + string(to))
}

type BridgeSuite struct {
	suite.Suite
	bridge   *Bridge
	recorder *recorder
	server   *httptest.Server
	conn     *websocket.Conn
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeSuite))
}

func (s *BridgeSuite) SetupTest() {
	s.bridge = New(testutil.NopLogger())
	s.recorder = &recorder{}
	s.bridge.SetHandler(s.recorder)
	s.server = httptest.NewServer(s.bridge)
	s.conn = s.dial()
}

func (s *BridgeSuite) TearDownTest() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.server.Close()
}

func (s *BridgeSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.Require().Eventually(s.bridge.Connected, time.Second, 5*time.Millisecond)
	return conn
}

func (s *BridgeSuite) send(msg InboundMessage) {
	s.Require().NoError(s.conn.WriteJSON(msg))
}

func (s *BridgeSuite) read() OutboundMessage {
	var msg OutboundMessage
	s.Require().NoError(s.conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	s.Require().NoError(s.conn.ReadJSON(&msg))
	return msg
}

func (s *BridgeSuite) expectEvents(events ...string) {
	s.Eventually(func() bool {
		return len(s.recorder.all()) >= len(events)
	}, time.Second, 5*time.Millisecond)
	s.Equal(events, s.recorder.all())
}

func (s *BridgeSuite) TestJoinAndQuitTrackPresence() {
	s.send(InboundMessage{Type: TypeJoin, Player: string(steve), Name: "Steve"})
	s.expectEvents("join:" + string(steve))
	s.True(s.bridge.IsOnline(steve))
	s.False(s.bridge.HasBypass(steve))
	s.Len(s.bridge.OnlinePlayers(), 1)

	s.send(InboundMessage{Type: TypeQuit, Player: string(steve)})
	s.expectEvents("join:"+string(steve), "quit:"+string(steve))
	s.False(s.bridge.IsOnline(steve))
}

func (s *BridgeSuite) TestBypassIsReported() {
	s.send(InboundMessage{Type: TypeJoin, Player: string(steve), Name: "Steve", Bypass: true})
	s.expectEvents("join:" + string(steve))
	s.True(s.bridge.HasBypass(steve))
}

func (s *BridgeSuite) TestGameplayEventsAreDispatched() {
	s.send(InboundMessage{Type: TypeDeath, Player: string(steve)})
	s.send(InboundMessage{Type: TypeRespawn, Player: string(steve)})
	s.send(InboundMessage{
		Type:   TypeGameMode,
		Player: string(steve),
		From:   model.GameModeSpectator,
		To:     model.GameModeSurvival,
	})

	s.expectEvents(
		"death:"+string(steve),
		"respawn:"+string(steve),
		"gamemode:"+string(steve)+":spectator>survival",
	)
}

func (s *BridgeSuite) TestBadMessagesAreSkipped() {
	s.Require().NoError(s.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	s.send(InboundMessage{Type: TypeDeath, Player: "not-a-uuid"})
	s.send(InboundMessage{Type: "teleport", Player: string(steve)})
	s.send(InboundMessage{Type: TypeDeath, Player: string(alex)})

	s.expectEvents("death:" + string(alex))
	s.True(s.bridge.Connected())
}

func (s *BridgeSuite) TestHelloReplacesPresence() {
	s.send(InboundMessage{Type: TypeJoin, Player: string(steve), Name: "Steve"})
	s.expectEvents("join:" + string(steve))

	s.send(InboundMessage{Type: TypeHello, Players: []PresenceMessage{
		{Player: string(alex), Name: "Alex"},
		{Player: "garbage", Name: "Nobody"},
	}})

	s.expectEvents("join:"+string(steve), "quit:"+string(steve), "join:"+string(alex))
	s.False(s.bridge.IsOnline(steve))
	s.True(s.bridge.IsOnline(alex))
	s.Len(s.bridge.OnlinePlayers(), 1)
}

func (s *BridgeSuite) TestHelloAfterReconnectOnlyJoinsNewPlayers() {
	s.send(InboundMessage{Type: TypeJoin, Player: string(steve), Name: "Steve"})
	s.expectEvents("join:" + string(steve))

	first := s.conn
	defer first.Close()
	s.conn = s.dial()

	s.send(InboundMessage{Type: TypeHello, Players: []PresenceMessage{
		{Player: string(steve), Name: "Steve", Bypass: true},
		{Player: string(alex), Name: "Alex"},
	}})
	// The death marks the end of the hello's events
	s.send(InboundMessage{Type: TypeDeath, Player: string(alex)})

	s.expectEvents("join:"+string(steve), "join:"+string(alex), "death:"+string(alex))
	s.True(s.bridge.IsOnline(steve))
	s.True(s.bridge.HasBypass(steve), "presence refreshed without a join")
}

func (s *BridgeSuite) TestOutboundMessages() {
	s.bridge.Notify(steve, model.Notice{Kind: model.NoticeLifeLost, Lives: 1})
	msg := s.read()
	s.Equal(TypeNotify, msg.Type)
	s.Equal(steve, msg.Player)
	s.Require().NotNil(msg.Notice)
	s.Equal(model.Notice{Kind: model.NoticeLifeLost, Lives: 1}, *msg.Notice)

	s.bridge.SetGameMode(steve, model.GameModeSpectator)
	msg = s.read()
	s.Equal(TypeSetMode, msg.Type)
	s.Equal(model.GameModeSpectator, msg.Mode)

	s.bridge.ApplyLimboState(steve)
	msg = s.read()
	s.Equal(TypeLimboState, msg.Type)
	s.Equal(steve, msg.Player)

	s.bridge.Send(transfer.Signal{PlayerID: steve, Server: "limbo"})
	msg = s.read()
	s.Equal(TypeTransfer, msg.Type)
	s.Equal("limbo", msg.Server)
}

func (s *BridgeSuite) TestDisconnectDropsPresence() {
	s.send(InboundMessage{Type: TypeJoin, Player: string(steve), Name: "Steve"})
	s.send(InboundMessage{Type: TypeJoin, Player: string(alex), Name: "Alex"})
	s.Eventually(func() bool { return len(s.bridge.OnlinePlayers()) == 2 }, time.Second, 5*time.Millisecond)

	s.Require().NoError(s.conn.Close())
	s.conn = nil

	s.Eventually(func() bool { return len(s.recorder.all()) == 4 }, time.Second, 5*time.Millisecond)
	s.False(s.bridge.Connected())
	s.Empty(s.bridge.OnlinePlayers())
	s.ElementsMatch(
		[]string{"join:" + string(steve), "join:" + string(alex), "quit:" + string(steve), "quit:" + string(alex)},
		s.recorder.all(),
	)
}

func (s *BridgeSuite) TestNewConnectionReplacesOld() {
	first := s.conn
	s.conn = s.dial()
	defer first.Close()

	// The old socket is closed by the bridge
	s.Require().NoError(first.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := first.ReadMessage()
	s.Error(err)

	s.bridge.Notify(steve, model.Notice{Kind: model.NoticeReleased})
	s.Equal(TypeNotify, s.read().Type)
}

func TestSendWithoutConnectionIsDropped(t *testing.T) {
	b := New(testutil.NopLogger())
	b.Notify(steve, model.Notice{Kind: model.NoticeReleased})
	b.Send(transfer.Signal{PlayerID: steve, Server: "main"})
	if b.Connected() {
		t.Fatal("expected no connection")
	}
}
