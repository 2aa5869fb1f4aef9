package packets

import (
	"fmt"
	"sort"

	"github.com/udisondev/gobancho/internal/protocol"
)

// DecoderFunc разбирает тело пакета. Возвращает nil, если у пакета нет полезной нагрузки.
type DecoderFunc func(*protocol.Reader) (any, error)

// EncoderFunc сериализует значение в тело пакета.
type EncoderFunc func(*protocol.Writer, any) error

// DecoderTable и EncoderTable — таблицы кодеков одной версии протокола.
type (
	DecoderTable map[Request]DecoderFunc
	EncoderTable map[Response]EncoderFunc
)

// Registry держит таблицы кодеков по версии клиента (датой, напр. 20120812).
// Заполняется на init; после старта только читается.
type Registry struct {
	decoders map[int]DecoderTable
	encoders map[int]EncoderTable
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[int]DecoderTable),
		encoders: make(map[int]EncoderTable),
	}
}

// RegisterDecoder добавляет или заменяет декодер пакета для версии.
func (g *Registry) RegisterDecoder(version int, pkt Request, fn DecoderFunc) {
	t, ok := g.decoders[version]
	if !ok {
		t = make(DecoderTable)
		g.decoders[version] = t
	}
	t[pkt] = fn
}

// RegisterEncoder добавляет или заменяет энкодер пакета для версии.
func (g *Registry) RegisterEncoder(version int, pkt Response, fn EncoderFunc) {
	t, ok := g.encoders[version]
	if !ok {
		t = make(EncoderTable)
		g.encoders[version] = t
	}
	t[pkt] = fn
}

// Versions возвращает зарегистрированные версии по возрастанию.
func (g *Registry) Versions() []int {
	out := make([]int, 0, len(g.decoders))
	for v := range g.decoders {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Resolve picks the registered version closest to observed (minimum
// |v - observed|, ties broken toward the older version) and returns its
// codec tables.
func (g *Registry) Resolve(observed int) (DecoderTable, EncoderTable) {
	best := g.ResolveVersion(observed)
	return g.decoders[best], g.encoders[best]
}

// ResolveVersion возвращает выбранную для observed версию таблиц
// (0, если реестр пуст). Поколение кодеков определяет совместимость
// сырых кадров спектейта между клиентами.
func (g *Registry) ResolveVersion(observed int) int {
	versions := g.Versions()
	if len(versions) == 0 {
		return 0
	}

	best := versions[0]
	for _, v := range versions[1:] {
		if absInt(v-observed) < absInt(best-observed) {
			best = v
		}
	}
	return best
}

// Decode разбирает тело пакета pkt. Пакеты, не определённые в этой
// версии, декодируются в nil без ошибки.
func (t DecoderTable) Decode(pkt Request, r *protocol.Reader) (any, error) {
	fn, ok := t[pkt]
	if !ok {
		return nil, nil
	}
	value, err := fn(r)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", pkt, err)
	}
	return value, nil
}

// Encode сериализует пакет в готовый кадр (заголовок + тело).
// ok == false, когда версия не определяет такой пакет — отправлять нечего.
func (t EncoderTable) Encode(pkt Response, value any) (frame []byte, ok bool, err error) {
	fn, defined := t[pkt]
	if !defined {
		return nil, false, nil
	}

	w := protocol.NewWriter(32)
	if err := fn(w, value); err != nil {
		return nil, false, fmt.Errorf("encoding %s: %w", pkt, err)
	}

	return protocol.AppendFrame(nil, uint16(pkt), w.Bytes()), true, nil
}

// Default — реестр процесса, заполняется из codec_*.go.
var Default = NewRegistry()

// Resolve разрешает версию в таблицах реестра по умолчанию.
func Resolve(observed int) (DecoderTable, EncoderTable) {
	return Default.Resolve(observed)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
