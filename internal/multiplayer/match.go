package multiplayer

import (
	"log/slog"
	"sync"

	"github.com/udisondev/gobancho/internal/chat"
	"github.com/udisondev/gobancho/internal/packets"
	"github.com/udisondev/gobancho/internal/session"
)

// Slot — слот комнаты со ссылкой на игрока и флагами текущей игры.
type Slot struct {
	Player *session.Player
	Status packets.SlotStatus
	Team   packets.SlotTeam
	Mods   packets.Mods

	loaded  bool
	skipped bool
}

func (s *Slot) reset() {
	*s = Slot{Status: packets.SlotStatusOpen}
}

func (s *Slot) resetGame() {
	s.loaded = false
	s.skipped = false
}

// Match — одна комната мультиплеера. Все операции сериализуются мьютексом;
// рассылка пакетов выполняется под ним же, очереди сессий имеют свои замки.
type Match struct {
	lobby *Lobby

	mu         sync.Mutex
	id         uint16
	name       string
	password   string
	inProgress bool

	beatmapText     string
	beatmapID       int32
	beatmapChecksum string

	host        *session.Player
	mode        packets.GameMode
	mods        packets.Mods
	freemod     bool
	matchType   packets.MatchType
	scoringType packets.ScoringType
	teamType    packets.TeamType
	seed        int32

	slots [packets.MaxSlots]Slot
}

func newMatch(lobby *Lobby, id uint16, host *session.Player, data packets.MatchData) *Match {
	m := &Match{
		lobby:           lobby,
		id:              id,
		name:            data.Name,
		password:        data.Password,
		beatmapText:     data.BeatmapText,
		beatmapID:       data.BeatmapID,
		beatmapChecksum: data.BeatmapChecksum,
		host:            host,
		mode:            data.Mode,
		mods:            data.Mods,
		freemod:         data.Freemod,
		matchType:       data.Type,
		scoringType:     data.ScoringType,
		teamType:        data.TeamType,
		seed:            data.Seed,
	}
	for i := range m.slots {
		m.slots[i].Status = packets.SlotStatusOpen
	}
	return m
}

// MatchID возвращает id комнаты.
func (m *Match) MatchID() uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// ChannelName — внутреннее имя чат-канала комнаты.
func (m *Match) ChannelName() string {
	return chat.MultiplayerChannelName(m.MatchID())
}

// InProgress сообщает, идёт ли игра.
func (m *Match) InProgress() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress
}

// Host возвращает текущего хоста.
func (m *Match) Host() *session.Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host
}

// IsHost сообщает, хост ли p.
func (m *Match) IsHost(p *session.Player) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.host != nil && m.host.ID() == p.ID()
}

// Data собирает состояние комнаты на провод. Пароль уходит только
// участникам; список комнат получает его замаскированным.
func (m *Match) Data(includePassword bool) packets.MatchData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dataLocked(includePassword)
}

func (m *Match) dataLocked(includePassword bool) packets.MatchData {
	data := packets.MatchData{
		ID:              m.id,
		InProgress:      m.inProgress,
		Type:            m.matchType,
		Mods:            m.mods,
		Name:            m.name,
		Password:        m.password,
		BeatmapText:     m.beatmapText,
		BeatmapID:       m.beatmapID,
		BeatmapChecksum: m.beatmapChecksum,
		Mode:            m.mode,
		ScoringType:     m.scoringType,
		TeamType:        m.teamType,
		Freemod:         m.freemod,
		Seed:            m.seed,
	}
	if !includePassword && m.password != "" {
		data.Password = " "
	}
	if m.host != nil {
		data.HostID = m.host.ID()
	}
	for i := range m.slots {
		s := &m.slots[i]
		data.Slots[i] = packets.SlotData{
			Status: s.Status,
			Team:   s.Team,
			Mods:   s.Mods,
		}
		if s.Player != nil {
			data.Slots[i].PlayerID = s.Player.ID()
		} else {
			data.Slots[i].PlayerID = -1
		}
	}
	return data
}

// Players возвращает снимок участников.
func (m *Match) Players() []*session.Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playersLocked()
}

func (m *Match) playersLocked() []*session.Player {
	out := make([]*session.Player, 0, packets.MaxSlots)
	for i := range m.slots {
		if m.slots[i].Player != nil {
			out = append(out, m.slots[i].Player)
		}
	}
	return out
}

func (m *Match) slotOf(p *session.Player) *Slot {
	id := p.ID()
	for i := range m.slots {
		if m.slots[i].Player != nil && m.slots[i].Player.ID() == id {
			return &m.slots[i]
		}
	}
	return nil
}

func (m *Match) slotIndexOf(p *session.Player) int {
	id := p.ID()
	for i := range m.slots {
		if m.slots[i].Player != nil && m.slots[i].Player.ID() == id {
			return i
		}
	}
	return -1
}

// broadcastLocked кладёт пакет всем участникам комнаты.
func (m *Match) broadcastLocked(pkt packets.Response, value any) {
	for i := range m.slots {
		if m.slots[i].Player != nil {
			m.slots[i].Player.SendPacket(pkt, value)
		}
	}
}

// sendUpdateLocked рассылает состояние участникам (с паролем) и лобби
// (с маской).
func (m *Match) sendUpdateLocked() {
	m.broadcastLocked(packets.ResponseMatchUpdate, m.dataLocked(true))
	m.lobby.broadcast(packets.ResponseMatchUpdate, m.dataLocked(false))
}

// SendUpdate рассылает текущее состояние комнаты.
func (m *Match) SendUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendUpdateLocked()
}

// Join сажает p в первый открытый слот. Возвращает false при несовпадении
// пароля или полной комнате; клиенту уходит MATCH_JOIN_FAIL.
func (m *Match) Join(p *session.Player, password string) bool {
	m.mu.Lock()

	if m.inProgress {
		m.mu.Unlock()
		p.SendPacket(packets.ResponseMatchJoinFail, nil)
		return false
	}

	if m.password != "" && password != m.password {
		m.mu.Unlock()
		p.SendPacket(packets.ResponseMatchJoinFail, nil)
		return false
	}

	var free *Slot
	for i := range m.slots {
		if m.slots[i].Status == packets.SlotStatusOpen {
			free = &m.slots[i]
			break
		}
	}
	if free == nil {
		m.mu.Unlock()
		p.SendPacket(packets.ResponseMatchJoinFail, nil)
		return false
	}

	free.Player = p
	free.Status = packets.SlotStatusNotReady
	if m.teamType == packets.TeamTypeTeamVs || m.teamType == packets.TeamTypeTagTeamVs {
		free.Team = packets.SlotTeamRed
	}

	p.SetMatch(m)
	p.SendPacket(packets.ResponseMatchJoinSuccess, m.dataLocked(true))
	m.sendUpdateLocked()
	m.mu.Unlock()

	if ch := m.lobby.channels.Get(m.ChannelName()); ch != nil {
		ch.Join(p)
	}
	return true
}

// Leave убирает p из комнаты. Хост передаётся следующему занятому слоту;
// пустая комната распускается. Реализует session.MatchRef.
func (m *Match) Leave(p *session.Player) {
	m.mu.Lock()

	slot := m.slotOf(p)
	if slot == nil {
		m.mu.Unlock()
		return
	}
	slot.reset()
	p.SetMatch(nil)

	players := m.playersLocked()
	if len(players) == 0 {
		m.mu.Unlock()
		m.lobby.dispose(m)
		return
	}

	if m.host != nil && m.host.ID() == p.ID() {
		m.host = players[0]
		m.host.SendPacket(packets.ResponseMatchTransferHost, nil)
		slog.Debug("match host transferred", "match", m.id, "host", m.host.Name())
	}
	m.sendUpdateLocked()
	m.mu.Unlock()

	if ch := m.lobby.channels.Get(m.ChannelName()); ch != nil {
		ch.Remove(p)
	}
}

// ChangeSettings применяет настройки от хоста. Смена карты сбрасывает
// готовность, выключение freemod собирает моды обратно в общие.
func (m *Match) ChangeSettings(p *session.Player, data packets.MatchData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.host == nil || m.host.ID() != p.ID() || m.inProgress {
		return
	}

	beatmapChanged := data.BeatmapChecksum != m.beatmapChecksum

	m.name = data.Name
	m.beatmapText = data.BeatmapText
	m.beatmapID = data.BeatmapID
	m.beatmapChecksum = data.BeatmapChecksum
	m.mode = data.Mode
	m.matchType = data.Type
	m.scoringType = data.ScoringType
	m.teamType = data.TeamType
	m.seed = data.Seed

	if data.Freemod != m.freemod {
		m.freemod = data.Freemod
		if m.freemod {
			// общие моды раздаются по слотам, глобальными остаются только
			// скоростные
			for i := range m.slots {
				if m.slots[i].Status.HasPlayer() {
					m.slots[i].Mods = m.mods &^ speedMods
				}
			}
			m.mods &= speedMods
		} else {
			hostSlot := m.slotOf(m.host)
			if hostSlot != nil {
				m.mods |= hostSlot.Mods
			}
			for i := range m.slots {
				m.slots[i].Mods = packets.ModNone
			}
		}
	}

	if beatmapChanged {
		for i := range m.slots {
			if m.slots[i].Status == packets.SlotStatusReady {
				m.slots[i].Status = packets.SlotStatusNotReady
			}
		}
	}

	m.sendUpdateLocked()
}

// speedMods — моды, меняющие скорость: при freemod остаются общими.
const speedMods = packets.ModDoubleTime | packets.ModHalfTime

// ChangeMods меняет моды. При freemod хост меняет только скоростные,
// остальное каждый ставит себе; без freemod хост меняет общие.
func (m *Match) ChangeMods(p *session.Player, mods packets.Mods) {
	m.mu.Lock()
	defer m.mu.Unlock()

	isHost := m.host != nil && m.host.ID() == p.ID()
	if m.freemod {
		if isHost {
			m.mods = mods & speedMods
		}
		if slot := m.slotOf(p); slot != nil {
			slot.Mods = mods &^ speedMods
		}
	} else {
		if !isHost {
			return
		}
		m.mods = mods
	}
	m.sendUpdateLocked()
}

// ChangeSlot пересаживает p в открытый слот slotID.
func (m *Match) ChangeSlot(p *session.Player, slotID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slotID < 0 || slotID >= packets.MaxSlots {
		return
	}
	target := &m.slots[slotID]
	if target.Status != packets.SlotStatusOpen {
		return
	}
	slot := m.slotOf(p)
	if slot == nil {
		return
	}

	*target = *slot
	slot.reset()
	m.sendUpdateLocked()
}

// LockSlot открывает или запирает слот. Запирание занятого слота выгоняет
// его игрока. Хост не может запереть собственный слот.
func (m *Match) LockSlot(p *session.Player, slotID int) {
	m.mu.Lock()
	if m.host == nil || m.host.ID() != p.ID() || slotID < 0 || slotID >= packets.MaxSlots {
		m.mu.Unlock()
		return
	}

	slot := &m.slots[slotID]
	var kicked *session.Player
	switch {
	case slot.Player != nil && slot.Player.ID() == p.ID():
		m.mu.Unlock()
		return
	case slot.Status == packets.SlotStatusLocked:
		slot.Status = packets.SlotStatusOpen
	case slot.Player != nil:
		kicked = slot.Player
		slot.reset()
		slot.Status = packets.SlotStatusLocked
	default:
		slot.Status = packets.SlotStatusLocked
	}
	m.sendUpdateLocked()
	m.mu.Unlock()

	if kicked != nil {
		kicked.SetMatch(nil)
		kicked.SendPacket(packets.ResponseMatchDisband, int32(m.MatchID()))
		if ch := m.lobby.channels.Get(m.ChannelName()); ch != nil {
			ch.Remove(kicked)
		}
	}
}

// ChangeTeam переключает команду p между красной и синей.
func (m *Match) ChangeTeam(p *session.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.teamType != packets.TeamTypeTeamVs && m.teamType != packets.TeamTypeTagTeamVs {
		return
	}
	slot := m.slotOf(p)
	if slot == nil {
		return
	}
	if slot.Team == packets.SlotTeamRed {
		slot.Team = packets.SlotTeamBlue
	} else {
		slot.Team = packets.SlotTeamRed
	}
	m.sendUpdateLocked()
}

// Ready отмечает готовность p.
func (m *Match) Ready(p *session.Player) {
	m.setStatus(p, packets.SlotStatusReady)
}

// NotReady снимает готовность p.
func (m *Match) NotReady(p *session.Player) {
	m.setStatus(p, packets.SlotStatusNotReady)
}

// NoMap отмечает, что у p нет карты.
func (m *Match) NoMap(p *session.Player) {
	m.setStatus(p, packets.SlotStatusNoMap)
}

// HasMap возвращает p из "нет карты" в "не готов".
func (m *Match) HasMap(p *session.Player) {
	m.setStatus(p, packets.SlotStatusNotReady)
}

func (m *Match) setStatus(p *session.Player, status packets.SlotStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := m.slotOf(p)
	if slot == nil {
		return
	}
	slot.Status = status
	m.sendUpdateLocked()
}

// TransferHost передаёт хоста игроку в слоте slotID.
func (m *Match) TransferHost(p *session.Player, slotID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.host == nil || m.host.ID() != p.ID() || slotID < 0 || slotID >= packets.MaxSlots {
		return
	}
	target := m.slots[slotID].Player
	if target == nil {
		return
	}
	m.host = target
	target.SendPacket(packets.ResponseMatchTransferHost, nil)
	m.sendUpdateLocked()
}

// ChangePassword меняет пароль комнаты и сообщает участникам.
func (m *Match) ChangePassword(p *session.Player, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.host == nil || m.host.ID() != p.ID() {
		return
	}
	m.password = password
	m.broadcastLocked(packets.ResponseMatchChangePassword, password)
	m.sendUpdateLocked()
}

// Start запускает игру: все занятые слоты с картой переходят в Playing.
func (m *Match) Start(p *session.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.host == nil || m.host.ID() != p.ID() || m.inProgress {
		return
	}

	m.inProgress = true
	for i := range m.slots {
		s := &m.slots[i]
		s.resetGame()
		if s.Status.HasPlayer() && s.Status != packets.SlotStatusNoMap {
			s.Status = packets.SlotStatusPlaying
		}
	}

	data := m.dataLocked(true)
	for i := range m.slots {
		if m.slots[i].Status == packets.SlotStatusPlaying {
			m.slots[i].Player.SendPacket(packets.ResponseMatchStart, data)
		}
	}
	m.sendUpdateLocked()
}

// LoadComplete отмечает загрузку p; когда загрузились все играющие,
// комната получает MATCH_ALL_PLAYERS_LOADED.
func (m *Match) LoadComplete(p *session.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := m.slotOf(p)
	if slot == nil || slot.Status != packets.SlotStatusPlaying {
		return
	}
	slot.loaded = true

	for i := range m.slots {
		if m.slots[i].Status == packets.SlotStatusPlaying && !m.slots[i].loaded {
			return
		}
	}
	m.broadcastLocked(packets.ResponseMatchAllPlayersLoaded, nil)
}

// ScoreFrame ретранслирует кадр счёта. Номер слота в кадре перезаписывается
// серверным: клиенту доверять нельзя.
func (m *Match) ScoreFrame(p *session.Player, frame packets.ScoreFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotIndexOf(p)
	if idx < 0 || m.slots[idx].Status != packets.SlotStatusPlaying {
		return
	}
	frame.SlotID = uint8(idx)
	m.broadcastLocked(packets.ResponseMatchScoreUpdate, frame)
}

// PlayerFailed сообщает комнате о провале p.
func (m *Match) PlayerFailed(p *session.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotIndexOf(p)
	if idx < 0 {
		return
	}
	m.broadcastLocked(packets.ResponseMatchPlayerFailed, int32(idx))
}

// PlayerComplete переводит слот p в Complete; когда играющих не
// осталось, комната возвращается в ожидание.
func (m *Match) PlayerComplete(p *session.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := m.slotOf(p)
	if slot == nil || slot.Status != packets.SlotStatusPlaying {
		return
	}
	slot.Status = packets.SlotStatusComplete
	m.sendUpdateLocked()

	for i := range m.slots {
		if m.slots[i].Status == packets.SlotStatusPlaying {
			return
		}
	}
	m.finishLocked(packets.ResponseMatchComplete)
}

// SkipRequest отмечает запрос пропуска p; когда пропуск запросили все
// играющие, комната получает MATCH_SKIP.
func (m *Match) SkipRequest(p *session.Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.slotIndexOf(p)
	if idx < 0 || m.slots[idx].Status != packets.SlotStatusPlaying {
		return
	}
	m.slots[idx].skipped = true
	m.broadcastLocked(packets.ResponseMatchPlayerSkipped, int32(idx))

	for i := range m.slots {
		if m.slots[i].Status == packets.SlotStatusPlaying && !m.slots[i].skipped {
			return
		}
	}
	m.broadcastLocked(packets.ResponseMatchSkip, nil)
}

// Abort прерывает идущую игру. Реализует session.MatchRef.
func (m *Match) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inProgress {
		return
	}
	m.finishLocked(packets.ResponseMatchAbort)
}

func (m *Match) finishLocked(pkt packets.Response) {
	m.inProgress = false
	for i := range m.slots {
		s := &m.slots[i]
		if s.Status == packets.SlotStatusPlaying || s.Status == packets.SlotStatusComplete {
			s.Status = packets.SlotStatusNotReady
		}
		s.resetGame()
	}
	m.broadcastLocked(pkt, nil)
	m.sendUpdateLocked()
}
