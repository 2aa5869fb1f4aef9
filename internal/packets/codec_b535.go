package packets

import (
	"github.com/udisondev/gobancho/internal/protocol"
)

// registerV535 заполняет таблицы легаси-клиента b535. Базовая версия
// регистрируется целиком, затем переопределяются пакеты, чей формат
// отличается: статус без id карты, комната без freemod/seed и команд,
// мультиплеерные ответы без расширений.
func registerV535(reg *Registry) {
	const v = 535

	base := reg.decoders[20120812]
	for pkt, fn := range base {
		reg.RegisterDecoder(v, pkt, fn)
	}
	baseEnc := reg.encoders[20120812]
	for pkt, fn := range baseEnc {
		reg.RegisterEncoder(v, pkt, fn)
	}

	// У b535 статус ещё не содержит id карты.
	reg.RegisterDecoder(v, RequestChangeStatus, func(r *protocol.Reader) (any, error) {
		return readStatus(r, false)
	})
	reg.RegisterEncoder(v, ResponseUserStats, func(w *protocol.Writer, val any) error {
		s, err := arg[UserStats](val)
		if err != nil {
			return err
		}
		writeStats(w, s, false)
		return nil
	})

	reg.RegisterDecoder(v, RequestCreateMatch, func(r *protocol.Reader) (any, error) {
		return readMatch(r, true)
	})
	reg.RegisterDecoder(v, RequestMatchChangeSettings, func(r *protocol.Reader) (any, error) {
		return readMatch(r, true)
	})
	reg.RegisterDecoder(v, RequestMatchChangePassword, func(r *protocol.Reader) (any, error) {
		m, err := readMatch(r, true)
		if err != nil {
			return nil, err
		}
		return m.Password, nil
	})

	legacyMatch := func(w *protocol.Writer, val any) error {
		m, err := arg[MatchData](val)
		if err != nil {
			return err
		}
		writeMatch(w, m, true)
		return nil
	}
	reg.RegisterEncoder(v, ResponseMatchUpdate, legacyMatch)
	reg.RegisterEncoder(v, ResponseMatchNew, legacyMatch)
	reg.RegisterEncoder(v, ResponseMatchJoinSuccess, legacyMatch)
	reg.RegisterEncoder(v, ResponseMatchStart, legacyMatch)

	// Пакеты, которых в b535 ещё не было.
	delete(reg.decoders[v], RequestMatchChangeTeam)
	delete(reg.decoders[v], RequestPresenceRequest)
	delete(reg.decoders[v], RequestPresenceRequestAll)
	delete(reg.decoders[v], RequestChangeFriendonlyDMs)
	delete(reg.encoders[v], ResponseUserDMBlocked)
	delete(reg.encoders[v], ResponseTargetIsSilenced)
	delete(reg.encoders[v], ResponseUserPresenceSingle)
	delete(reg.encoders[v], ResponseUserPresenceBundle)
}
