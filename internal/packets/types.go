package packets

// MaxSlots — количество слотов в комнате мультиплеера.
const MaxSlots = 16

// Message — одно сообщение чата. Target — имя канала (с префиксом '#')
// либо имя пользователя для приватных сообщений.
type Message struct {
	Sender   string
	Content  string
	Target   string
	SenderID int32
}

// StatusUpdate — текущее состояние клиента.
type StatusUpdate struct {
	Action          ClientAction
	Text            string
	BeatmapChecksum string
	Mods            Mods
	Mode            GameMode
	BeatmapID       int32
}

// UserPresence — личность и положение игрока.
type UserPresence struct {
	UserID       int32
	Name         string
	UTCOffset    int8
	CountryIndex uint8
	Permissions  Permissions
	Mode         GameMode
	Longitude    float32
	Latitude     float32
	Rank         int32
}

// UserStats — статистика игрока вместе с его статусом.
type UserStats struct {
	UserID       int32
	Status       StatusUpdate
	RankedScore  int64
	Accuracy     float32
	Playcount    int32
	TotalScore   int64
	Rank         int32
	Performance  int16
}

// UserQuit — уведомление об уходе игрока.
type UserQuit struct {
	UserID int32
	State  QuitState
}

// ChannelInfo — анонс канала в списке доступных.
type ChannelInfo struct {
	Name      string
	Topic     string
	UserCount uint16
}

// MenuIcon — картинка и ссылка главного меню.
type MenuIcon struct {
	Image string
	URL   string
}

// SlotData — слот комнаты в том виде, в котором он ходит по сети.
type SlotData struct {
	PlayerID int32
	Status   SlotStatus
	Team     SlotTeam
	Mods     Mods
}

// MatchData — состояние комнаты мультиплеера на проводе.
type MatchData struct {
	ID              uint16
	InProgress      bool
	Type            MatchType
	Mods            Mods
	Name            string
	Password        string
	BeatmapText     string
	BeatmapID       int32
	BeatmapChecksum string
	Slots           [MaxSlots]SlotData
	HostID          int32
	Mode            GameMode
	ScoringType     ScoringType
	TeamType        TeamType
	Freemod         bool
	Seed            int32
}

// MatchJoin — запрос на вход в комнату.
type MatchJoin struct {
	MatchID  int32
	Password string
}

// ScoreFrame — кадр счёта во время мультиплеерной игры.
type ScoreFrame struct {
	Time         int32
	SlotID       uint8
	Count300     uint16
	Count100     uint16
	Count50      uint16
	CountGeki    uint16
	CountKatu    uint16
	CountMiss    uint16
	TotalScore   int32
	MaxCombo     uint16
	CurrentCombo uint16
	Perfect      bool
	CurrentHP    uint8
	TagByte      uint8
}

// ReplayFrameBundle is forwarded verbatim between the playing client and
// its spectators; the server never looks inside.
type ReplayFrameBundle []byte

// BeatmapInfoRequest — запрос информации о картах по именам файлов и id.
type BeatmapInfoRequest struct {
	Filenames []string
	IDs       []int32
}
