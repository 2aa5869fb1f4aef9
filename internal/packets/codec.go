package packets

import (
	"fmt"

	"github.com/udisondev/gobancho/internal/protocol"
)

func init() {
	registerV20120812(Default)
	registerV535(Default)
}

// arg приводит значение к ожидаемому энкодером типу.
func arg[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected payload type %T", v)
	}
	return t, nil
}

func encodeNothing(_ *protocol.Writer, _ any) error {
	return nil
}

func encodeInt32(w *protocol.Writer, v any) error {
	i, err := arg[int32](v)
	if err != nil {
		return err
	}
	w.WriteInt32(i)
	return nil
}

func encodeString(w *protocol.Writer, v any) error {
	s, err := arg[string](v)
	if err != nil {
		return err
	}
	w.WriteString(s)
	return nil
}

func encodeIntList(w *protocol.Writer, v any) error {
	list, err := arg[[]int32](v)
	if err != nil {
		return err
	}
	w.WriteIntList(list)
	return nil
}

func encodeMessage(w *protocol.Writer, v any) error {
	m, err := arg[Message](v)
	if err != nil {
		return err
	}
	writeMessage(w, m)
	return nil
}

func writeMessage(w *protocol.Writer, m Message) {
	w.WriteString(m.Sender)
	w.WriteString(m.Content)
	w.WriteString(m.Target)
	w.WriteInt32(m.SenderID)
}

func readMessage(r *protocol.Reader) (Message, error) {
	var m Message
	var err error
	if m.Sender, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("reading sender: %w", err)
	}
	if m.Content, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("reading content: %w", err)
	}
	if m.Target, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("reading target: %w", err)
	}
	if m.SenderID, err = r.ReadInt32(); err != nil {
		return m, fmt.Errorf("reading sender id: %w", err)
	}
	return m, nil
}

func writeStatus(w *protocol.Writer, s StatusUpdate, withBeatmapID bool) {
	w.WriteUint8(uint8(s.Action))
	w.WriteString(s.Text)
	w.WriteString(s.BeatmapChecksum)
	w.WriteUint32(uint32(s.Mods))
	w.WriteUint8(uint8(s.Mode))
	if withBeatmapID {
		w.WriteInt32(s.BeatmapID)
	}
}

func readStatus(r *protocol.Reader, withBeatmapID bool) (StatusUpdate, error) {
	var s StatusUpdate

	action, err := r.ReadUint8()
	if err != nil {
		return s, fmt.Errorf("reading action: %w", err)
	}
	s.Action = ClientAction(action)

	if s.Text, err = r.ReadString(); err != nil {
		return s, fmt.Errorf("reading text: %w", err)
	}
	if s.BeatmapChecksum, err = r.ReadString(); err != nil {
		return s, fmt.Errorf("reading checksum: %w", err)
	}

	mods, err := r.ReadUint32()
	if err != nil {
		return s, fmt.Errorf("reading mods: %w", err)
	}
	s.Mods = Mods(mods)

	mode, err := r.ReadUint8()
	if err != nil {
		return s, fmt.Errorf("reading mode: %w", err)
	}
	s.Mode = GameMode(mode)

	if withBeatmapID {
		if s.BeatmapID, err = r.ReadInt32(); err != nil {
			return s, fmt.Errorf("reading beatmap id: %w", err)
		}
	}

	return s, nil
}

func writePresence(w *protocol.Writer, p UserPresence) {
	w.WriteInt32(p.UserID)
	w.WriteString(p.Name)
	w.WriteUint8(uint8(p.UTCOffset + 24))
	w.WriteUint8(p.CountryIndex)
	w.WriteUint8(uint8(p.Permissions))
	w.WriteUint8(uint8(p.Mode))
	w.WriteFloat32(p.Longitude)
	w.WriteFloat32(p.Latitude)
	w.WriteInt32(p.Rank)
}

func readPresence(r *protocol.Reader) (UserPresence, error) {
	var p UserPresence
	var err error
	if p.UserID, err = r.ReadInt32(); err != nil {
		return p, err
	}
	if p.Name, err = r.ReadString(); err != nil {
		return p, err
	}
	utc, err := r.ReadUint8()
	if err != nil {
		return p, err
	}
	p.UTCOffset = int8(utc) - 24
	if p.CountryIndex, err = r.ReadUint8(); err != nil {
		return p, err
	}
	perms, err := r.ReadUint8()
	if err != nil {
		return p, err
	}
	p.Permissions = Permissions(perms)
	mode, err := r.ReadUint8()
	if err != nil {
		return p, err
	}
	p.Mode = GameMode(mode)
	if p.Longitude, err = r.ReadFloat32(); err != nil {
		return p, err
	}
	if p.Latitude, err = r.ReadFloat32(); err != nil {
		return p, err
	}
	if p.Rank, err = r.ReadInt32(); err != nil {
		return p, err
	}
	return p, nil
}

func writeStats(w *protocol.Writer, s UserStats, withBeatmapID bool) {
	w.WriteInt32(s.UserID)
	writeStatus(w, s.Status, withBeatmapID)
	w.WriteInt64(s.RankedScore)
	w.WriteFloat32(s.Accuracy)
	w.WriteInt32(s.Playcount)
	w.WriteInt64(s.TotalScore)
	w.WriteInt32(s.Rank)
	w.WriteInt16(s.Performance)
}

func readStats(r *protocol.Reader, withBeatmapID bool) (UserStats, error) {
	var s UserStats
	var err error
	if s.UserID, err = r.ReadInt32(); err != nil {
		return s, err
	}
	if s.Status, err = readStatus(r, withBeatmapID); err != nil {
		return s, err
	}
	if s.RankedScore, err = r.ReadInt64(); err != nil {
		return s, err
	}
	if s.Accuracy, err = r.ReadFloat32(); err != nil {
		return s, err
	}
	if s.Playcount, err = r.ReadInt32(); err != nil {
		return s, err
	}
	if s.TotalScore, err = r.ReadInt64(); err != nil {
		return s, err
	}
	if s.Rank, err = r.ReadInt32(); err != nil {
		return s, err
	}
	if s.Performance, err = r.ReadInt16(); err != nil {
		return s, err
	}
	return s, nil
}

func writeChannel(w *protocol.Writer, c ChannelInfo) {
	w.WriteString(c.Name)
	w.WriteString(c.Topic)
	w.WriteUint16(c.UserCount)
}

func writeScoreFrame(w *protocol.Writer, f ScoreFrame) {
	w.WriteInt32(f.Time)
	w.WriteUint8(f.SlotID)
	w.WriteUint16(f.Count300)
	w.WriteUint16(f.Count100)
	w.WriteUint16(f.Count50)
	w.WriteUint16(f.CountGeki)
	w.WriteUint16(f.CountKatu)
	w.WriteUint16(f.CountMiss)
	w.WriteInt32(f.TotalScore)
	w.WriteUint16(f.MaxCombo)
	w.WriteUint16(f.CurrentCombo)
	w.WriteBool(f.Perfect)
	w.WriteUint8(f.CurrentHP)
	w.WriteUint8(f.TagByte)
}

func readScoreFrame(r *protocol.Reader) (ScoreFrame, error) {
	var f ScoreFrame
	var err error
	if f.Time, err = r.ReadInt32(); err != nil {
		return f, err
	}
	if f.SlotID, err = r.ReadUint8(); err != nil {
		return f, err
	}
	if f.Count300, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.Count100, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.Count50, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.CountGeki, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.CountKatu, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.CountMiss, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.TotalScore, err = r.ReadInt32(); err != nil {
		return f, err
	}
	if f.MaxCombo, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.CurrentCombo, err = r.ReadUint16(); err != nil {
		return f, err
	}
	if f.Perfect, err = r.ReadBool(); err != nil {
		return f, err
	}
	if f.CurrentHP, err = r.ReadUint8(); err != nil {
		return f, err
	}
	if f.TagByte, err = r.ReadUint8(); err != nil {
		return f, err
	}
	return f, nil
}

// writeMatch сериализует комнату. Легаси-клиенты (b535 и ранее) не знают
// ни freemod, ни seed, ни команд в слотах.
func writeMatch(w *protocol.Writer, m MatchData, legacy bool) {
	w.WriteUint16(m.ID)
	w.WriteBool(m.InProgress)
	w.WriteUint8(uint8(m.Type))
	w.WriteUint32(uint32(m.Mods))
	w.WriteString(m.Name)
	w.WriteString(m.Password)
	w.WriteString(m.BeatmapText)
	w.WriteInt32(m.BeatmapID)
	w.WriteString(m.BeatmapChecksum)

	for i := range m.Slots {
		w.WriteUint8(uint8(m.Slots[i].Status))
	}
	if !legacy {
		for i := range m.Slots {
			w.WriteUint8(uint8(m.Slots[i].Team))
		}
	}
	for i := range m.Slots {
		if m.Slots[i].Status.HasPlayer() {
			w.WriteInt32(m.Slots[i].PlayerID)
		}
	}

	w.WriteInt32(m.HostID)
	w.WriteUint8(uint8(m.Mode))
	w.WriteUint8(uint8(m.ScoringType))
	w.WriteUint8(uint8(m.TeamType))

	if !legacy {
		w.WriteBool(m.Freemod)
		if m.Freemod {
			for i := range m.Slots {
				w.WriteUint32(uint32(m.Slots[i].Mods))
			}
		}
		w.WriteInt32(m.Seed)
	}
}

func readMatch(r *protocol.Reader, legacy bool) (MatchData, error) {
	var m MatchData
	var err error

	if m.ID, err = r.ReadUint16(); err != nil {
		return m, fmt.Errorf("reading match id: %w", err)
	}
	if m.InProgress, err = r.ReadBool(); err != nil {
		return m, fmt.Errorf("reading in progress: %w", err)
	}
	mt, err := r.ReadUint8()
	if err != nil {
		return m, fmt.Errorf("reading match type: %w", err)
	}
	m.Type = MatchType(mt)
	mods, err := r.ReadUint32()
	if err != nil {
		return m, fmt.Errorf("reading mods: %w", err)
	}
	m.Mods = Mods(mods)
	if m.Name, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("reading name: %w", err)
	}
	if m.Password, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("reading password: %w", err)
	}
	if m.BeatmapText, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("reading beatmap text: %w", err)
	}
	if m.BeatmapID, err = r.ReadInt32(); err != nil {
		return m, fmt.Errorf("reading beatmap id: %w", err)
	}
	if m.BeatmapChecksum, err = r.ReadString(); err != nil {
		return m, fmt.Errorf("reading beatmap checksum: %w", err)
	}

	for i := range m.Slots {
		st, err := r.ReadUint8()
		if err != nil {
			return m, fmt.Errorf("reading slot %d status: %w", i, err)
		}
		m.Slots[i].Status = SlotStatus(st)
	}
	if !legacy {
		for i := range m.Slots {
			team, err := r.ReadUint8()
			if err != nil {
				return m, fmt.Errorf("reading slot %d team: %w", i, err)
			}
			m.Slots[i].Team = SlotTeam(team)
		}
	}
	for i := range m.Slots {
		if m.Slots[i].Status.HasPlayer() {
			if m.Slots[i].PlayerID, err = r.ReadInt32(); err != nil {
				return m, fmt.Errorf("reading slot %d player: %w", i, err)
			}
		} else {
			m.Slots[i].PlayerID = -1
		}
	}

	if m.HostID, err = r.ReadInt32(); err != nil {
		return m, fmt.Errorf("reading host id: %w", err)
	}
	mode, err := r.ReadUint8()
	if err != nil {
		return m, fmt.Errorf("reading mode: %w", err)
	}
	m.Mode = GameMode(mode)
	st, err := r.ReadUint8()
	if err != nil {
		return m, fmt.Errorf("reading scoring type: %w", err)
	}
	m.ScoringType = ScoringType(st)
	tt, err := r.ReadUint8()
	if err != nil {
		return m, fmt.Errorf("reading team type: %w", err)
	}
	m.TeamType = TeamType(tt)

	if !legacy {
		if m.Freemod, err = r.ReadBool(); err != nil {
			return m, fmt.Errorf("reading freemod: %w", err)
		}
		if m.Freemod {
			for i := range m.Slots {
				mods, err := r.ReadUint32()
				if err != nil {
					return m, fmt.Errorf("reading slot %d mods: %w", i, err)
				}
				m.Slots[i].Mods = Mods(mods)
			}
		}
		if m.Seed, err = r.ReadInt32(); err != nil {
			return m, fmt.Errorf("reading seed: %w", err)
		}
	}

	return m, nil
}
