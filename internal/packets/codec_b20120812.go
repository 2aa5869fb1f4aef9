package packets

import (
	"fmt"

	"github.com/udisondev/gobancho/internal/protocol"
)

// registerV20120812 заполняет таблицы базовой версии клиента b20120812.
// Более поздние сборки разрешаются в эту версию по ближайшей дате.
func registerV20120812(reg *Registry) {
	const v = 20120812

	// --- decoders ---

	reg.RegisterDecoder(v, RequestChangeStatus, func(r *protocol.Reader) (any, error) {
		return readStatus(r, true)
	})
	reg.RegisterDecoder(v, RequestSendMessage, func(r *protocol.Reader) (any, error) {
		return readMessage(r)
	})
	reg.RegisterDecoder(v, RequestExit, func(r *protocol.Reader) (any, error) {
		// Значение (update avail) игнорируется, старые сборки его не шлют.
		if !r.EOF() {
			if _, err := r.ReadInt32(); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	reg.RegisterDecoder(v, RequestRequestStatus, decodeNothing)
	reg.RegisterDecoder(v, RequestPong, decodeNothing)
	reg.RegisterDecoder(v, RequestStartSpectating, decodeInt32)
	reg.RegisterDecoder(v, RequestStopSpectating, decodeNothing)
	reg.RegisterDecoder(v, RequestSendFrames, func(r *protocol.Reader) (any, error) {
		return ReplayFrameBundle(r.Remaining()), nil
	})
	reg.RegisterDecoder(v, RequestErrorReport, func(r *protocol.Reader) (any, error) {
		return r.ReadString()
	})
	reg.RegisterDecoder(v, RequestCantSpectate, decodeNothing)
	reg.RegisterDecoder(v, RequestSendPrivateMessage, func(r *protocol.Reader) (any, error) {
		return readMessage(r)
	})
	reg.RegisterDecoder(v, RequestPartLobby, decodeNothing)
	reg.RegisterDecoder(v, RequestJoinLobby, decodeNothing)
	reg.RegisterDecoder(v, RequestCreateMatch, func(r *protocol.Reader) (any, error) {
		return readMatch(r, false)
	})
	reg.RegisterDecoder(v, RequestJoinMatch, func(r *protocol.Reader) (any, error) {
		var j MatchJoin
		var err error
		if j.MatchID, err = r.ReadInt32(); err != nil {
			return nil, fmt.Errorf("reading match id: %w", err)
		}
		if j.Password, err = r.ReadString(); err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return j, nil
	})
	reg.RegisterDecoder(v, RequestLeaveMatch, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchChangeSlot, decodeInt32)
	reg.RegisterDecoder(v, RequestMatchReady, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchLock, decodeInt32)
	reg.RegisterDecoder(v, RequestMatchChangeSettings, func(r *protocol.Reader) (any, error) {
		return readMatch(r, false)
	})
	reg.RegisterDecoder(v, RequestMatchStart, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchScoreUpdate, func(r *protocol.Reader) (any, error) {
		return readScoreFrame(r)
	})
	reg.RegisterDecoder(v, RequestMatchComplete, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchChangeMods, decodeInt32)
	reg.RegisterDecoder(v, RequestMatchLoadComplete, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchNoBeatmap, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchNotReady, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchFailed, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchHasBeatmap, decodeNothing)
	reg.RegisterDecoder(v, RequestMatchSkip, decodeNothing)
	reg.RegisterDecoder(v, RequestJoinChannel, func(r *protocol.Reader) (any, error) {
		return r.ReadString()
	})
	reg.RegisterDecoder(v, RequestBeatmapInfo, func(r *protocol.Reader) (any, error) {
		var req BeatmapInfoRequest
		count, err := r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("reading filename count: %w", err)
		}
		for i := int32(0); i < count; i++ {
			name, err := r.ReadString()
			if err != nil {
				return nil, fmt.Errorf("reading filename %d: %w", i, err)
			}
			req.Filenames = append(req.Filenames, name)
		}
		if req.IDs, err = r.ReadIntList(); err != nil {
			return nil, fmt.Errorf("reading id list: %w", err)
		}
		return req, nil
	})
	reg.RegisterDecoder(v, RequestMatchTransferHost, decodeInt32)
	reg.RegisterDecoder(v, RequestAddFriend, decodeInt32)
	reg.RegisterDecoder(v, RequestRemoveFriend, decodeInt32)
	reg.RegisterDecoder(v, RequestMatchChangeTeam, decodeNothing)
	reg.RegisterDecoder(v, RequestLeaveChannel, func(r *protocol.Reader) (any, error) {
		return r.ReadString()
	})
	reg.RegisterDecoder(v, RequestReceiveUpdates, decodeInt32)
	reg.RegisterDecoder(v, RequestSetAwayMessage, func(r *protocol.Reader) (any, error) {
		return readMessage(r)
	})
	reg.RegisterDecoder(v, RequestIrcOnly, decodeNothing)
	reg.RegisterDecoder(v, RequestStatsRequest, func(r *protocol.Reader) (any, error) {
		return r.ReadIntList()
	})
	reg.RegisterDecoder(v, RequestMatchInvite, decodeInt32)
	reg.RegisterDecoder(v, RequestMatchChangePassword, func(r *protocol.Reader) (any, error) {
		m, err := readMatch(r, false)
		if err != nil {
			return nil, err
		}
		return m.Password, nil
	})
	reg.RegisterDecoder(v, RequestTournamentMatchInfo, decodeInt32)
	reg.RegisterDecoder(v, RequestPresenceRequest, func(r *protocol.Reader) (any, error) {
		return r.ReadIntList()
	})
	reg.RegisterDecoder(v, RequestPresenceRequestAll, decodeNothing)
	reg.RegisterDecoder(v, RequestChangeFriendonlyDMs, decodeInt32)

	// --- encoders ---

	reg.RegisterEncoder(v, ResponseLoginReply, encodeInt32)
	reg.RegisterEncoder(v, ResponseSendMessage, encodeMessage)
	reg.RegisterEncoder(v, ResponsePing, encodeNothing)
	reg.RegisterEncoder(v, ResponseIrcChangeUsername, encodeString)
	reg.RegisterEncoder(v, ResponseIrcQuit, encodeString)
	reg.RegisterEncoder(v, ResponseUserStats, func(w *protocol.Writer, val any) error {
		s, err := arg[UserStats](val)
		if err != nil {
			return err
		}
		writeStats(w, s, true)
		return nil
	})
	reg.RegisterEncoder(v, ResponseUserQuit, func(w *protocol.Writer, val any) error {
		q, err := arg[UserQuit](val)
		if err != nil {
			return err
		}
		w.WriteInt32(q.UserID)
		w.WriteUint8(uint8(q.State))
		return nil
	})
	reg.RegisterEncoder(v, ResponseSpectatorJoined, encodeInt32)
	reg.RegisterEncoder(v, ResponseSpectatorLeft, encodeInt32)
	reg.RegisterEncoder(v, ResponseSpectateFrames, func(w *protocol.Writer, val any) error {
		b, err := arg[ReplayFrameBundle](val)
		if err != nil {
			return err
		}
		w.WriteBytes(b)
		return nil
	})
	reg.RegisterEncoder(v, ResponseVersionUpdate, encodeNothing)
	reg.RegisterEncoder(v, ResponseCantSpectate, encodeInt32)
	reg.RegisterEncoder(v, ResponseGetAttention, encodeNothing)
	reg.RegisterEncoder(v, ResponseAnnounce, encodeString)
	reg.RegisterEncoder(v, ResponseMatchUpdate, encodeMatch)
	reg.RegisterEncoder(v, ResponseMatchNew, encodeMatch)
	reg.RegisterEncoder(v, ResponseMatchDisband, encodeInt32)
	reg.RegisterEncoder(v, ResponseLobbyJoin, encodeInt32)
	reg.RegisterEncoder(v, ResponseLobbyPart, encodeInt32)
	reg.RegisterEncoder(v, ResponseMatchJoinSuccess, encodeMatch)
	reg.RegisterEncoder(v, ResponseMatchJoinFail, encodeNothing)
	reg.RegisterEncoder(v, ResponseFellowSpectatorJoined, encodeInt32)
	reg.RegisterEncoder(v, ResponseFellowSpectatorLeft, encodeInt32)
	reg.RegisterEncoder(v, ResponseMatchStart, encodeMatch)
	reg.RegisterEncoder(v, ResponseMatchScoreUpdate, func(w *protocol.Writer, val any) error {
		f, err := arg[ScoreFrame](val)
		if err != nil {
			return err
		}
		writeScoreFrame(w, f)
		return nil
	})
	reg.RegisterEncoder(v, ResponseMatchTransferHost, encodeNothing)
	reg.RegisterEncoder(v, ResponseMatchAllPlayersLoaded, encodeNothing)
	reg.RegisterEncoder(v, ResponseMatchPlayerFailed, encodeInt32)
	reg.RegisterEncoder(v, ResponseMatchComplete, encodeNothing)
	reg.RegisterEncoder(v, ResponseMatchSkip, encodeNothing)
	reg.RegisterEncoder(v, ResponseUnauthorized, encodeNothing)
	reg.RegisterEncoder(v, ResponseChannelJoinSuccess, encodeString)
	reg.RegisterEncoder(v, ResponseChannelAvailable, encodeChannel)
	reg.RegisterEncoder(v, ResponseChannelRevoked, encodeString)
	reg.RegisterEncoder(v, ResponseChannelAvailableAutojoin, encodeChannel)
	reg.RegisterEncoder(v, ResponseLoginPermissions, encodeInt32)
	reg.RegisterEncoder(v, ResponseFriendsList, encodeIntList)
	reg.RegisterEncoder(v, ResponseProtocolVersion, encodeInt32)
	reg.RegisterEncoder(v, ResponseMenuIcon, func(w *protocol.Writer, val any) error {
		icon, err := arg[MenuIcon](val)
		if err != nil {
			return err
		}
		w.WriteString(icon.Image + "|" + icon.URL)
		return nil
	})
	reg.RegisterEncoder(v, ResponseMonitor, encodeNothing)
	reg.RegisterEncoder(v, ResponseMatchPlayerSkipped, encodeInt32)
	reg.RegisterEncoder(v, ResponseUserPresence, func(w *protocol.Writer, val any) error {
		p, err := arg[UserPresence](val)
		if err != nil {
			return err
		}
		writePresence(w, p)
		return nil
	})
	reg.RegisterEncoder(v, ResponseRestart, encodeInt32)
	reg.RegisterEncoder(v, ResponseInvite, encodeMessage)
	reg.RegisterEncoder(v, ResponseChannelInfoComplete, encodeNothing)
	reg.RegisterEncoder(v, ResponseMatchChangePassword, encodeString)
	reg.RegisterEncoder(v, ResponseSilenceInfo, encodeInt32)
	reg.RegisterEncoder(v, ResponseUserSilenced, encodeInt32)
	reg.RegisterEncoder(v, ResponseUserPresenceSingle, encodeInt32)
	reg.RegisterEncoder(v, ResponseUserPresenceBundle, encodeIntList)
	reg.RegisterEncoder(v, ResponseUserDMBlocked, encodeMessage)
	reg.RegisterEncoder(v, ResponseTargetIsSilenced, encodeMessage)
	reg.RegisterEncoder(v, ResponseVersionUpdateForced, encodeNothing)
	reg.RegisterEncoder(v, ResponseSwitchServer, encodeInt32)
	reg.RegisterEncoder(v, ResponseAccountRestricted, encodeNothing)
	reg.RegisterEncoder(v, ResponseMatchAbort, encodeNothing)
}

func decodeNothing(_ *protocol.Reader) (any, error) {
	return nil, nil
}

func decodeInt32(r *protocol.Reader) (any, error) {
	return r.ReadInt32()
}

func encodeMatch(w *protocol.Writer, val any) error {
	m, err := arg[MatchData](val)
	if err != nil {
		return err
	}
	writeMatch(w, m, false)
	return nil
}

func encodeChannel(w *protocol.Writer, val any) error {
	c, err := arg[ChannelInfo](val)
	if err != nil {
		return err
	}
	writeChannel(w, c)
	return nil
}
