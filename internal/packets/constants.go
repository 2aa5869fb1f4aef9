package packets

// LoginError — отрицательные коды LOGIN_REPLY при неудачном входе.
type LoginError int32

const (
	LoginErrorAuthentication LoginError = -1
	LoginErrorUpdateNeeded   LoginError = -2
	LoginErrorBanned         LoginError = -3
	LoginErrorNotActivated   LoginError = -4
	LoginErrorServerError    LoginError = -5
)

// Permissions — битовая маска прав пользователя.
type Permissions int32

const (
	PermissionNone       Permissions = 0
	PermissionRegular    Permissions = 1 << 0
	PermissionBAT        Permissions = 1 << 1
	PermissionSupporter  Permissions = 1 << 2
	PermissionFriend     Permissions = 1 << 3
	PermissionAdmin      Permissions = 1 << 4
	PermissionTournament Permissions = 1 << 5
)

// PresenceFilter управляет тем, чьи сообщения и статусы получает клиент.
type PresenceFilter int32

const (
	PresenceFilterNone PresenceFilter = iota
	PresenceFilterAll
	PresenceFilterFriends
)

// QuitState в пакете USER_QUIT.
type QuitState uint8

const (
	QuitStateGone QuitState = iota
	QuitStateOsuRemaining
	QuitStateIrcRemaining
)

// GameMode — игровой режим (4 режима, по одному ряду статистики на каждый).
type GameMode uint8

const (
	GameModeOsu GameMode = iota
	GameModeTaiko
	GameModeCatch
	GameModeMania

	GameModeCount = 4
)

// ClientAction — что клиент делает прямо сейчас (поле status.action).
type ClientAction uint8

const (
	ActionIdle ClientAction = iota
	ActionAfk
	ActionPlaying
	ActionEditing
	ActionModding
	ActionMultiplayer
	ActionWatching
	ActionUnknown
	ActionTesting
	ActionSubmitting
	ActionPaused
	ActionLobby
	ActionMultiplaying
	ActionOsuDirect
)

// Mods — битовая маска модов.
type Mods uint32

const (
	ModNone       Mods = 0
	ModNoFail     Mods = 1 << 0
	ModEasy       Mods = 1 << 1
	ModHidden     Mods = 1 << 3
	ModHardRock   Mods = 1 << 4
	ModSuddenDeath Mods = 1 << 5
	ModDoubleTime Mods = 1 << 6
	ModRelax      Mods = 1 << 7
	ModHalfTime   Mods = 1 << 8
	ModFlashlight Mods = 1 << 10
	ModAutoplay   Mods = 1 << 11
)

// SlotStatus — состояние слота мультиплеера (битовые флаги).
type SlotStatus uint8

const (
	SlotStatusOpen     SlotStatus = 1 << 0
	SlotStatusLocked   SlotStatus = 1 << 1
	SlotStatusNotReady SlotStatus = 1 << 2
	SlotStatusReady    SlotStatus = 1 << 3
	SlotStatusNoMap    SlotStatus = 1 << 4
	SlotStatusPlaying  SlotStatus = 1 << 5
	SlotStatusComplete SlotStatus = 1 << 6
	SlotStatusQuit     SlotStatus = 1 << 7

	// SlotStatusHasPlayer — любой статус, при котором слот занят игроком.
	SlotStatusHasPlayer = SlotStatusNotReady | SlotStatusReady | SlotStatusNoMap | SlotStatusPlaying | SlotStatusComplete
)

// HasPlayer reports whether a slot in this status carries a player.
func (s SlotStatus) HasPlayer() bool {
	return s&SlotStatusHasPlayer != 0
}

// SlotTeam — команда внутри слота.
type SlotTeam uint8

const (
	SlotTeamNeutral SlotTeam = iota
	SlotTeamBlue
	SlotTeamRed
)

// MatchType, ScoringType, TeamType — настройки комнаты.
type (
	MatchType   uint8
	ScoringType uint8
	TeamType    uint8
)

const (
	MatchTypeStandard MatchType = iota
	MatchTypePowerplay
)

const (
	ScoringTypeScore ScoringType = iota
	ScoringTypeAccuracy
	ScoringTypeCombo
)

const (
	TeamTypeHeadToHead TeamType = iota
	TeamTypeTagCoop
	TeamTypeTeamVs
	TeamTypeTagTeamVs
)
