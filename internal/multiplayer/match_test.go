package multiplayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/chat"
	"github.com/udisondev/gobancho/internal/db"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/protocol"
	"github.com/udisondev/gobancho/internal/session"
)

func testPlayer(t *testing.T, id int32, name string) *session.Player {
	t.Helper()

	client, err := session.ParseOsuClient("b20120812|0|0|aa:eth0:bb:cc:dd|0", session.Geo{})
	require.NoError(t, err)

	dec, enc := packets.Resolve(client.Version.Date)
	p := session.NewPlayer(session.TransportTCP, "127.0.0.1:1")
	p.Adopt(&db.User{
		ID:          id,
		Name:        name,
		Permissions: int32(packets.PermissionRegular),
		Activated:   true,
	}, client, dec, enc)
	return p
}

func drainIDs(t *testing.T, p *session.Player) []packets.Response {
	t.Helper()

	data := p.Drain()
	var out []packets.Response
	for len(data) > 0 {
		id, _, rest, err := protocol.SplitFrame(data)
		require.NoError(t, err)
		out = append(out, packets.Response(id))
		data = rest
	}
	return out
}

func matchData(name, password string) packets.MatchData {
	return packets.MatchData{
		Name:            name,
		Password:        password,
		BeatmapText:     "artist - title",
		BeatmapID:       42,
		BeatmapChecksum: "abc",
	}
}

func newTestMatch(t *testing.T, host *session.Player, password string) (*Lobby, *Match) {
	t.Helper()
	lobby := NewLobby(chat.NewManager())
	m := lobby.Create(host, matchData("room", password))
	require.NotNil(t, m)
	host.Drain()
	return lobby, m
}

func TestLobby_CreateAndAnnounce(t *testing.T) {
	lobby := NewLobby(chat.NewManager())

	watcher := testPlayer(t, 9, "watcher")
	lobby.Join(watcher)

	host := testPlayer(t, 1, "host")
	m := lobby.Create(host, matchData("room", "secret"))

	assert.Same(t, host, m.Host())
	assert.Contains(t, drainIDs(t, host), packets.ResponseMatchJoinSuccess)
	assert.Contains(t, drainIDs(t, watcher), packets.ResponseMatchNew)
	assert.Equal(t, 1, lobby.Len())

	// пароль в лобби маскируется, участник получает настоящий
	assert.Equal(t, " ", m.Data(false).Password)
	assert.Equal(t, "secret", m.Data(true).Password)
}

func TestLobby_JoinSendsExistingMatches(t *testing.T) {
	lobby := NewLobby(chat.NewManager())
	lobby.Create(testPlayer(t, 1, "host"), matchData("room", ""))

	late := testPlayer(t, 2, "late")
	lobby.Join(late)
	assert.Contains(t, drainIDs(t, late), packets.ResponseMatchNew)
}

func TestMatch_JoinPasswordAndFull(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "secret")

	intruder := testPlayer(t, 2, "intruder")
	assert.False(t, m.Join(intruder, "wrong"))
	assert.Contains(t, drainIDs(t, intruder), packets.ResponseMatchJoinFail)
	assert.Nil(t, intruder.Match())

	friend := testPlayer(t, 3, "friend")
	assert.True(t, m.Join(friend, "secret"))
	assert.Contains(t, drainIDs(t, friend), packets.ResponseMatchJoinSuccess)

	// заполняем оставшиеся слоты
	for i := int32(0); i < 14; i++ {
		p := testPlayer(t, 10+i, "p")
		require.True(t, m.Join(p, "secret"))
	}
	extra := testPlayer(t, 100, "extra")
	assert.False(t, m.Join(extra, "secret"))
	assert.Contains(t, drainIDs(t, extra), packets.ResponseMatchJoinFail)
}

func TestMatch_LeaveTransfersHostAndDisposes(t *testing.T) {
	host := testPlayer(t, 1, "host")
	lobby, m := newTestMatch(t, host, "")

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	second.Drain()

	m.Leave(host)
	assert.Same(t, second, m.Host())
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchTransferHost)

	m.Leave(second)
	assert.Equal(t, 0, lobby.Len())
	assert.Nil(t, lobby.Match(m.MatchID()))
}

func TestMatch_DisposeNotifiesLobby(t *testing.T) {
	host := testPlayer(t, 1, "host")
	lobby, m := newTestMatch(t, host, "")

	watcher := testPlayer(t, 9, "watcher")
	lobby.Join(watcher)
	watcher.Drain()

	m.Leave(host)
	assert.Contains(t, drainIDs(t, watcher), packets.ResponseMatchDisband)
}

func TestMatch_ChangeSettingsResetsReady(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	m.Ready(second)

	data := m.Data(true)
	data.BeatmapChecksum = "other"
	data.BeatmapID = 43
	m.ChangeSettings(host, data)

	got := m.Data(true)
	assert.Equal(t, "other", got.BeatmapChecksum)
	for _, slot := range got.Slots {
		assert.NotEqual(t, packets.SlotStatusReady, slot.Status)
	}

	// не-хост настройки не меняет
	data.Name = "hijacked"
	m.ChangeSettings(second, data)
	assert.Equal(t, "room", m.Data(true).Name)
}

func TestMatch_FreemodRedistributesMods(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	m.ChangeMods(host, packets.ModHidden|packets.ModDoubleTime)

	data := m.Data(true)
	data.Freemod = true
	m.ChangeSettings(host, data)

	got := m.Data(true)
	assert.Equal(t, packets.ModDoubleTime, got.Mods, "в freemod общими остаются только скоростные")
	hostSlot := got.Slots[0]
	assert.Equal(t, packets.ModHidden, hostSlot.Mods)

	// выключение freemod собирает моды хоста обратно
	data = m.Data(true)
	data.Freemod = false
	m.ChangeSettings(host, data)
	got = m.Data(true)
	assert.Equal(t, packets.ModHidden|packets.ModDoubleTime, got.Mods)
	assert.Equal(t, packets.ModNone, got.Slots[0].Mods)
}

func TestMatch_LockSlotKicks(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	second.Drain()

	m.LockSlot(host, 1)

	assert.Nil(t, second.Match())
	assert.Equal(t, packets.SlotStatusLocked, m.Data(true).Slots[1].Status)
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchDisband)

	// повторный Lock открывает слот
	m.LockSlot(host, 1)
	assert.Equal(t, packets.SlotStatusOpen, m.Data(true).Slots[1].Status)

	// собственный слот запереть нельзя
	m.LockSlot(host, 0)
	assert.True(t, m.Data(true).Slots[0].Status.HasPlayer())
}

func TestMatch_ChangeSlot(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	m.ChangeSlot(host, 5)
	data := m.Data(true)
	assert.Equal(t, int32(-1), data.Slots[0].PlayerID)
	assert.Equal(t, int32(1), data.Slots[5].PlayerID)

	// в запертый слот не пересесть
	m.LockSlot(host, 2)
	m.ChangeSlot(host, 2)
	assert.Equal(t, int32(1), m.Data(true).Slots[5].PlayerID)
}

func TestMatch_GameFlow(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	m.Ready(second)
	second.Drain()

	m.Start(host)
	assert.True(t, m.InProgress())
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchStart)

	m.LoadComplete(host)
	second.Drain()
	m.LoadComplete(second)
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchAllPlayersLoaded)

	// кадр счёта переписывается серверным номером слота
	m.ScoreFrame(second, packets.ScoreFrame{SlotID: 13, TotalScore: 100})
	data := second.Drain()
	id, payload, _, err := protocol.SplitFrame(data)
	require.NoError(t, err)
	require.Equal(t, packets.ResponseMatchScoreUpdate, packets.Response(id))
	r := protocol.NewReader(payload)
	_, _ = r.ReadInt32() // time
	slotID, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), slotID)

	m.PlayerComplete(host)
	assert.True(t, m.InProgress())

	// доигравший помечается Complete и виден таким остальным до конца игры
	assert.Equal(t, packets.SlotStatusComplete, m.Data(true).Slots[0].Status)
	assert.Equal(t, packets.SlotStatusPlaying, m.Data(true).Slots[1].Status)
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchUpdate)

	m.PlayerComplete(second)
	assert.False(t, m.InProgress())
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchComplete)

	finalData := m.Data(true)
	for _, slot := range finalData.Slots[:2] {
		assert.Equal(t, packets.SlotStatusNotReady, slot.Status)
	}
}

func TestMatch_SkipAndFail(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	m.Start(host)
	second.Drain()

	m.SkipRequest(host)
	ids := drainIDs(t, second)
	assert.Contains(t, ids, packets.ResponseMatchPlayerSkipped)
	assert.NotContains(t, ids, packets.ResponseMatchSkip)

	m.SkipRequest(second)
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchSkip)

	m.PlayerFailed(host)
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchPlayerFailed)
}

func TestMatch_Abort(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	m.Start(host)
	second.Drain()

	m.Abort()
	assert.False(t, m.InProgress())
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchAbort)
}

func TestMatch_TeamVs(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	data := m.Data(true)
	data.TeamType = packets.TeamTypeTeamVs
	m.ChangeSettings(host, data)

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	assert.Equal(t, packets.SlotTeamRed, m.Data(true).Slots[1].Team)

	m.ChangeTeam(second)
	assert.Equal(t, packets.SlotTeamBlue, m.Data(true).Slots[1].Team)
}

func TestMatch_TransferHost(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	second := testPlayer(t, 2, "second")
	require.True(t, m.Join(second, ""))
	second.Drain()

	m.TransferHost(second, 0) // не хост, игнорируется
	assert.Same(t, host, m.Host())

	m.TransferHost(host, 1)
	assert.Same(t, second, m.Host())
	assert.Contains(t, drainIDs(t, second), packets.ResponseMatchTransferHost)
}

func TestMatch_ChangePassword(t *testing.T) {
	host := testPlayer(t, 1, "host")
	_, m := newTestMatch(t, host, "")

	m.ChangePassword(host, "newpass")
	assert.Equal(t, "newpass", m.Data(true).Password)
	assert.Contains(t, drainIDs(t, host), packets.ResponseMatchChangePassword)

	joiner := testPlayer(t, 3, "joiner")
	assert.False(t, m.Join(joiner, "oldpass"))
	assert.True(t, m.Join(joiner, "newpass"))
}
