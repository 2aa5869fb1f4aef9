package packets

import "fmt"

// Request — идентификатор пакета client→server.
// Значения соответствуют каноничному списку протокола bancho.
type Request uint16

const (
	RequestChangeStatus        Request = 0
	RequestSendMessage         Request = 1
	RequestExit                Request = 2
	RequestRequestStatus       Request = 3
	RequestPong                Request = 4
	RequestStartSpectating     Request = 16
	RequestStopSpectating      Request = 17
	RequestSendFrames          Request = 18
	RequestErrorReport         Request = 20
	RequestCantSpectate        Request = 21
	RequestSendPrivateMessage  Request = 25
	RequestPartLobby           Request = 29
	RequestJoinLobby           Request = 30
	RequestCreateMatch         Request = 31
	RequestJoinMatch           Request = 32
	RequestLeaveMatch          Request = 33
	RequestMatchChangeSlot     Request = 38
	RequestMatchReady          Request = 39
	RequestMatchLock           Request = 40
	RequestMatchChangeSettings Request = 41
	RequestMatchStart          Request = 44
	RequestMatchScoreUpdate    Request = 47
	RequestMatchComplete       Request = 49
	RequestMatchChangeMods     Request = 51
	RequestMatchLoadComplete   Request = 52
	RequestMatchNoBeatmap      Request = 54
	RequestMatchNotReady       Request = 55
	RequestMatchFailed         Request = 56
	RequestMatchHasBeatmap     Request = 59
	RequestMatchSkip           Request = 60
	RequestJoinChannel         Request = 63
	RequestBeatmapInfo         Request = 68
	RequestMatchTransferHost   Request = 70
	RequestAddFriend           Request = 73
	RequestRemoveFriend        Request = 74
	RequestMatchChangeTeam     Request = 77
	RequestLeaveChannel        Request = 78
	RequestReceiveUpdates      Request = 79
	RequestSetAwayMessage      Request = 82
	RequestIrcOnly             Request = 84
	RequestStatsRequest        Request = 85
	RequestMatchInvite         Request = 87
	RequestMatchChangePassword Request = 90
	RequestTournamentMatchInfo Request = 93
	RequestPresenceRequest     Request = 97
	RequestPresenceRequestAll  Request = 98
	RequestChangeFriendonlyDMs Request = 99
)

var requestNames = map[Request]string{
	RequestChangeStatus:        "CHANGE_STATUS",
	RequestSendMessage:         "SEND_MESSAGE",
	RequestExit:                "EXIT",
	RequestRequestStatus:       "REQUEST_STATUS",
	RequestPong:                "PONG",
	RequestStartSpectating:     "START_SPECTATING",
	RequestStopSpectating:      "STOP_SPECTATING",
	RequestSendFrames:          "SEND_FRAMES",
	RequestErrorReport:         "ERROR_REPORT",
	RequestCantSpectate:        "CANT_SPECTATE",
	RequestSendPrivateMessage:  "SEND_PRIVATE_MESSAGE",
	RequestPartLobby:           "PART_LOBBY",
	RequestJoinLobby:           "JOIN_LOBBY",
	RequestCreateMatch:         "CREATE_MATCH",
	RequestJoinMatch:           "JOIN_MATCH",
	RequestLeaveMatch:          "LEAVE_MATCH",
	RequestMatchChangeSlot:     "MATCH_CHANGE_SLOT",
	RequestMatchReady:          "MATCH_READY",
	RequestMatchLock:           "MATCH_LOCK",
	RequestMatchChangeSettings: "MATCH_CHANGE_SETTINGS",
	RequestMatchStart:          "MATCH_START",
	RequestMatchScoreUpdate:    "MATCH_SCORE_UPDATE",
	RequestMatchComplete:       "MATCH_COMPLETE",
	RequestMatchChangeMods:     "MATCH_CHANGE_MODS",
	RequestMatchLoadComplete:   "MATCH_LOAD_COMPLETE",
	RequestMatchNoBeatmap:      "MATCH_NO_BEATMAP",
	RequestMatchNotReady:       "MATCH_NOT_READY",
	RequestMatchFailed:         "MATCH_FAILED",
	RequestMatchHasBeatmap:     "MATCH_HAS_BEATMAP",
	RequestMatchSkip:           "MATCH_SKIP",
	RequestJoinChannel:         "JOIN_CHANNEL",
	RequestBeatmapInfo:         "BEATMAP_INFO",
	RequestMatchTransferHost:   "MATCH_TRANSFER_HOST",
	RequestAddFriend:           "ADD_FRIEND",
	RequestRemoveFriend:        "REMOVE_FRIEND",
	RequestMatchChangeTeam:     "MATCH_CHANGE_TEAM",
	RequestLeaveChannel:        "LEAVE_CHANNEL",
	RequestReceiveUpdates:      "RECEIVE_UPDATES",
	RequestSetAwayMessage:      "SET_AWAY_MESSAGE",
	RequestIrcOnly:             "IRC_ONLY",
	RequestStatsRequest:        "STATS_REQUEST",
	RequestMatchInvite:         "MATCH_INVITE",
	RequestMatchChangePassword: "MATCH_CHANGE_PASSWORD",
	RequestTournamentMatchInfo: "TOURNAMENT_MATCH_INFO",
	RequestPresenceRequest:     "PRESENCE_REQUEST",
	RequestPresenceRequestAll:  "PRESENCE_REQUEST_ALL",
	RequestChangeFriendonlyDMs: "CHANGE_FRIENDONLY_DMS",
}

// Known reports whether id belongs to the request namespace.
func (r Request) Known() bool {
	_, ok := requestNames[r]
	return ok
}

func (r Request) String() string {
	if name, ok := requestNames[r]; ok {
		return name
	}
	return fmt.Sprintf("REQUEST(%d)", uint16(r))
}
