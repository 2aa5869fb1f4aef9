package packets

import "fmt"

// Response — идентификатор пакета server→client.
type Response uint16

const (
	ResponseLoginReply               Response = 5
	ResponseSendMessage              Response = 7
	ResponsePing                     Response = 8
	ResponseIrcChangeUsername        Response = 9
	ResponseIrcQuit                  Response = 10
	ResponseUserStats                Response = 11
	ResponseUserQuit                 Response = 12
	ResponseSpectatorJoined          Response = 13
	ResponseSpectatorLeft            Response = 14
	ResponseSpectateFrames           Response = 15
	ResponseVersionUpdate            Response = 19
	ResponseCantSpectate             Response = 22
	ResponseGetAttention             Response = 23
	ResponseAnnounce                 Response = 24
	ResponseMatchUpdate              Response = 26
	ResponseMatchNew                 Response = 27
	ResponseMatchDisband             Response = 28
	ResponseLobbyJoin                Response = 34
	ResponseLobbyPart                Response = 35
	ResponseMatchJoinSuccess         Response = 36
	ResponseMatchJoinFail            Response = 37
	ResponseFellowSpectatorJoined    Response = 42
	ResponseFellowSpectatorLeft      Response = 43
	ResponseMatchStart               Response = 46
	ResponseMatchScoreUpdate         Response = 48
	ResponseMatchTransferHost        Response = 50
	ResponseMatchAllPlayersLoaded    Response = 53
	ResponseMatchPlayerFailed        Response = 57
	ResponseMatchComplete            Response = 58
	ResponseMatchSkip                Response = 61
	ResponseUnauthorized             Response = 62
	ResponseChannelJoinSuccess       Response = 64
	ResponseChannelAvailable         Response = 65
	ResponseChannelRevoked           Response = 66
	ResponseChannelAvailableAutojoin Response = 67
	ResponseBeatmapInfoReply         Response = 69
	ResponseLoginPermissions         Response = 71
	ResponseFriendsList              Response = 72
	ResponseProtocolVersion          Response = 75
	ResponseMenuIcon                 Response = 76
	ResponseMonitor                  Response = 80
	ResponseMatchPlayerSkipped       Response = 81
	ResponseUserPresence             Response = 83
	ResponseRestart                  Response = 86
	ResponseInvite                   Response = 88
	ResponseChannelInfoComplete      Response = 89
	ResponseMatchChangePassword      Response = 91
	ResponseSilenceInfo              Response = 92
	ResponseUserSilenced             Response = 94
	ResponseUserPresenceSingle       Response = 95
	ResponseUserPresenceBundle       Response = 96
	ResponseUserDMBlocked            Response = 100
	ResponseTargetIsSilenced         Response = 101
	ResponseVersionUpdateForced      Response = 102
	ResponseSwitchServer             Response = 103
	ResponseAccountRestricted        Response = 104
	ResponseMatchAbort               Response = 106
)

var responseNames = map[Response]string{
	ResponseLoginReply:               "LOGIN_REPLY",
	ResponseSendMessage:              "SEND_MESSAGE",
	ResponsePing:                     "PING",
	ResponseIrcChangeUsername:        "IRC_CHANGE_USERNAME",
	ResponseIrcQuit:                  "IRC_QUIT",
	ResponseUserStats:                "USER_STATS",
	ResponseUserQuit:                 "USER_QUIT",
	ResponseSpectatorJoined:          "SPECTATOR_JOINED",
	ResponseSpectatorLeft:            "SPECTATOR_LEFT",
	ResponseSpectateFrames:           "SPECTATE_FRAMES",
	ResponseVersionUpdate:            "VERSION_UPDATE",
	ResponseCantSpectate:             "CANT_SPECTATE",
	ResponseGetAttention:             "GET_ATTENTION",
	ResponseAnnounce:                 "ANNOUNCE",
	ResponseMatchUpdate:              "MATCH_UPDATE",
	ResponseMatchNew:                 "MATCH_NEW",
	ResponseMatchDisband:             "MATCH_DISBAND",
	ResponseLobbyJoin:                "LOBBY_JOIN",
	ResponseLobbyPart:                "LOBBY_PART",
	ResponseMatchJoinSuccess:         "MATCH_JOIN_SUCCESS",
	ResponseMatchJoinFail:            "MATCH_JOIN_FAIL",
	ResponseFellowSpectatorJoined:    "FELLOW_SPECTATOR_JOINED",
	ResponseFellowSpectatorLeft:      "FELLOW_SPECTATOR_LEFT",
	ResponseMatchStart:               "MATCH_START",
	ResponseMatchScoreUpdate:         "MATCH_SCORE_UPDATE",
	ResponseMatchTransferHost:        "MATCH_TRANSFER_HOST",
	ResponseMatchAllPlayersLoaded:    "MATCH_ALL_PLAYERS_LOADED",
	ResponseMatchPlayerFailed:        "MATCH_PLAYER_FAILED",
	ResponseMatchComplete:            "MATCH_COMPLETE",
	ResponseMatchSkip:                "MATCH_SKIP",
	ResponseUnauthorized:             "UNAUTHORIZED",
	ResponseChannelJoinSuccess:       "CHANNEL_JOIN_SUCCESS",
	ResponseChannelAvailable:         "CHANNEL_AVAILABLE",
	ResponseChannelRevoked:           "CHANNEL_REVOKED",
	ResponseChannelAvailableAutojoin: "CHANNEL_AVAILABLE_AUTOJOIN",
	ResponseBeatmapInfoReply:         "BEATMAP_INFO_REPLY",
	ResponseLoginPermissions:         "LOGIN_PERMISSIONS",
	ResponseFriendsList:              "FRIENDS_LIST",
	ResponseProtocolVersion:          "PROTOCOL_VERSION",
	ResponseMenuIcon:                 "MENU_ICON",
	ResponseMonitor:                  "MONITOR",
	ResponseMatchPlayerSkipped:       "MATCH_PLAYER_SKIPPED",
	ResponseUserPresence:             "USER_PRESENCE",
	ResponseRestart:                  "RESTART",
	ResponseInvite:                   "INVITE",
	ResponseChannelInfoComplete:      "CHANNEL_INFO_COMPLETE",
	ResponseMatchChangePassword:      "MATCH_CHANGE_PASSWORD",
	ResponseSilenceInfo:              "SILENCE_INFO",
	ResponseUserSilenced:             "USER_SILENCED",
	ResponseUserPresenceSingle:       "USER_PRESENCE_SINGLE",
	ResponseUserPresenceBundle:       "USER_PRESENCE_BUNDLE",
	ResponseUserDMBlocked:            "USER_DM_BLOCKED",
	ResponseTargetIsSilenced:         "TARGET_IS_SILENCED",
	ResponseVersionUpdateForced:      "VERSION_UPDATE_FORCED",
	ResponseSwitchServer:             "SWITCH_SERVER",
	ResponseAccountRestricted:        "ACCOUNT_RESTRICTED",
	ResponseMatchAbort:               "MATCH_ABORT",
}

func (r Response) String() string {
	if name, ok := responseNames[r]; ok {
		return name
	}
	return fmt.Sprintf("RESPONSE(%d)", uint16(r))
}
