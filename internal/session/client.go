package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Geo — результат geo-ip разрешения адреса клиента.
type Geo struct {
	Country      string
	CountryIndex uint8
	City         string
	Longitude    float32
	Latitude     float32
}

// GeoResolver — внешний коллаборатор geo-ip. Сессионное ядро знает только
// этот интерфейс.
type GeoResolver interface {
	Resolve(ip string) Geo
}

// NopGeoResolver возвращает пустую геолокацию. Используется, когда
// геобаза не настроена, и в тестах.
type NopGeoResolver struct{}

func (NopGeoResolver) Resolve(string) Geo { return Geo{} }

// ClientVersion — версия клиента: дата-штамп и исходная строка.
type ClientVersion struct {
	Date   int
	String string
}

// ClientHash — поля adapters_hash_info из строки логина.
// Формат: adapters_md5:adapter_list_csv:mac_md5:uninstall_md5:disk_md5.
type ClientHash struct {
	AdaptersMD5  string
	Adapters     string
	MacMD5       string
	UninstallMD5 string
	DiskMD5      string
}

// OsuClient — отпечаток клиента, разобранный из третьей строки рукопожатия.
type OsuClient struct {
	Version     ClientVersion
	UTCOffset   int8
	DisplayCity bool
	Hash        ClientHash
	Geo         Geo
}

// ParseVersion извлекает дату из строки версии: "b20120812" -> 20120812,
// "b335" -> 335. Суффиксы после цифр отбрасываются.
func ParseVersion(s string) (ClientVersion, error) {
	v := ClientVersion{String: s}

	digits := strings.TrimPrefix(s, "b")
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return v, fmt.Errorf("version %q has no date stamp", s)
	}

	date, err := strconv.Atoi(digits[:end])
	if err != nil {
		return v, fmt.Errorf("parsing version %q: %w", s, err)
	}
	v.Date = date
	return v, nil
}

// ParseOsuClient разбирает client_data:
// version_string|utc_offset|display_city|adapters_hash_info|screen_hash|flags
func ParseOsuClient(clientData string, geo Geo) (*OsuClient, error) {
	fields := strings.Split(strings.TrimSpace(clientData), "|")
	if len(fields) < 4 {
		return nil, fmt.Errorf("client data has %d fields, want at least 4", len(fields))
	}

	version, err := ParseVersion(fields[0])
	if err != nil {
		return nil, err
	}

	utc, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parsing utc offset %q: %w", fields[1], err)
	}

	hashInfo := strings.Split(fields[3], ":")
	var hash ClientHash
	if len(hashInfo) >= 5 {
		hash = ClientHash{
			AdaptersMD5:  hashInfo[0],
			Adapters:     hashInfo[1],
			MacMD5:       hashInfo[2],
			UninstallMD5: hashInfo[3],
			DiskMD5:      hashInfo[4],
		}
	}

	return &OsuClient{
		Version:     version,
		UTCOffset:   int8(utc),
		DisplayCity: fields[2] == "1",
		Hash:        hash,
		Geo:         geo,
	}, nil
}

// EmptyClient — отпечаток для бота и IRC-сессий.
func EmptyClient() *OsuClient {
	return &OsuClient{Version: ClientVersion{Date: 20120812, String: "bot"}}
}
