package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/gobancho/internal/protocol"
)

func TestCodec_MessageRoundTrip(t *testing.T) {
	msg := Message{Sender: "peppy", Content: "hello world", Target: "#osu", SenderID: 2}

	w := protocol.NewWriter(64)
	writeMessage(w, msg)

	got, err := readMessage(protocol.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestCodec_StatusRoundTrip(t *testing.T) {
	status := StatusUpdate{
		Action:          ActionPlaying,
		Text:            "xi - Blue Zenith [FOUR DIMENSIONS]",
		BeatmapChecksum: "a84050da9b68ca1bcd1aeb1e600e5f16",
		Mods:            ModHidden | ModHardRock,
		Mode:            GameModeOsu,
		BeatmapID:       292301,
	}

	w := protocol.NewWriter(64)
	writeStatus(w, status, true)
	got, err := readStatus(protocol.NewReader(w.Bytes()), true)
	require.NoError(t, err)
	assert.Equal(t, status, got)

	// Легаси-формат не несёт id карты.
	w = protocol.NewWriter(64)
	writeStatus(w, status, false)
	got, err = readStatus(protocol.NewReader(w.Bytes()), false)
	require.NoError(t, err)
	status.BeatmapID = 0
	assert.Equal(t, status, got)
}

func TestCodec_ScoreFrameRoundTrip(t *testing.T) {
	frame := ScoreFrame{
		Time:         12345,
		SlotID:       3,
		Count300:     120,
		Count100:     5,
		CountMiss:    1,
		TotalScore:   987654,
		MaxCombo:     210,
		CurrentCombo: 42,
		Perfect:      false,
		CurrentHP:    178,
	}

	w := protocol.NewWriter(32)
	writeScoreFrame(w, frame)

	got, err := readScoreFrame(protocol.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}

func TestCodec_PresenceRoundTrip(t *testing.T) {
	p := UserPresence{
		UserID:       5,
		Name:         "Alice",
		UTCOffset:    -5,
		CountryIndex: 16,
		Permissions:  PermissionRegular | PermissionSupporter,
		Mode:         GameModeTaiko,
		Longitude:    151.2,
		Latitude:     -33.8,
		Rank:         1234,
	}

	w := protocol.NewWriter(64)
	writePresence(w, p)

	got, err := readPresence(protocol.NewReader(w.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func matchFixture() MatchData {
	m := MatchData{
		ID:              3,
		InProgress:      false,
		Type:            MatchTypeStandard,
		Mods:            ModDoubleTime,
		Name:            "my room",
		Password:        "hunter2",
		BeatmapText:     "FREEDOM DiVE",
		BeatmapID:       129891,
		BeatmapChecksum: "da8aae79c8f3306b5d65ec951874a7fb",
		HostID:          2,
		Mode:            GameModeOsu,
		ScoringType:     ScoringTypeScore,
		TeamType:        TeamTypeHeadToHead,
		Freemod:         true,
		Seed:            42,
	}
	for i := range m.Slots {
		m.Slots[i] = SlotData{PlayerID: -1, Status: SlotStatusOpen}
	}
	m.Slots[0] = SlotData{PlayerID: 2, Status: SlotStatusNotReady, Team: SlotTeamBlue, Mods: ModHidden}
	m.Slots[1] = SlotData{PlayerID: 3, Status: SlotStatusReady}
	m.Slots[15] = SlotData{PlayerID: -1, Status: SlotStatusLocked}
	return m
}

func TestCodec_MatchRoundTrip(t *testing.T) {
	m := matchFixture()

	w := protocol.NewWriter(128)
	writeMatch(w, m, false)

	got, err := readMatch(protocol.NewReader(w.Bytes()), false)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestCodec_MatchRoundTripLegacy(t *testing.T) {
	m := matchFixture()

	w := protocol.NewWriter(128)
	writeMatch(w, m, true)

	got, err := readMatch(protocol.NewReader(w.Bytes()), true)
	require.NoError(t, err)

	// Легаси-формат теряет freemod, seed, команды и пер-слотовые моды.
	want := m
	want.Freemod = false
	want.Seed = 0
	for i := range want.Slots {
		want.Slots[i].Team = SlotTeamNeutral
		want.Slots[i].Mods = ModNone
	}
	assert.Equal(t, want, got)
}

func TestCodec_MatchTruncated(t *testing.T) {
	m := matchFixture()
	w := protocol.NewWriter(128)
	writeMatch(w, m, false)

	_, err := readMatch(protocol.NewReader(w.Bytes()[:20]), false)
	assert.Error(t, err)
}
