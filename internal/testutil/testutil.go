// Package testutil содержит заглушки коллабораторов для тестов сервера:
// память вместо postgres и redis, прозрачная проверка пароля.
package testutil

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/udisondev/gobancho/internal/db"
)

// Repo — потокобезопасный Repository в памяти.
type Repo struct {
	mu    sync.Mutex
	users map[int32]*db.User

	Infringements []int32
	HiddenScores  []int32
	RankHistory   map[int32]int32
}

// NewRepo создаёт репозиторий с заданными пользователями.
func NewRepo(users ...*db.User) *Repo {
	r := &Repo{users: make(map[int32]*db.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

// Add добавляет или заменяет пользователя.
func (r *Repo) Add(u *db.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *Repo) UserByID(_ context.Context, id int32) (*db.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *Repo) UserByName(_ context.Context, name string) (*db.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	safe := db.SafeName(name)
	for _, u := range r.users {
		if db.SafeName(u.Name) == safe {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *Repo) UpdateUser(_ context.Context, id int32, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %d not found", id)
	}
	for col, val := range updates {
		switch col {
		case "restricted":
			u.Restricted = val.(bool)
		case "silence_end":
			u.SilenceEnd = val.(time.Time)
		case "friendonly_dms":
			u.FriendonlyDMs = val.(bool)
		}
	}
	return nil
}

func (r *Repo) FetchStats(_ context.Context, userID int32) ([]db.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		return u.Stats, nil
	}
	return nil, nil
}

func (r *Repo) CreateStats(_ context.Context, userID int32, mode uint8) (db.Stats, error) {
	return db.Stats{UserID: userID, Mode: mode}, nil
}

func (r *Repo) AddRelationship(_ context.Context, userID, targetID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.Relationships = append(u.Relationships, db.Relationship{UserID: userID, TargetID: targetID})
	}
	return nil
}

func (r *Repo) RemoveRelationship(_ context.Context, userID, targetID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	rels := u.Relationships[:0]
	for _, rel := range u.Relationships {
		if rel.TargetID != targetID {
			rels = append(rels, rel)
		}
	}
	u.Relationships = rels
	return nil
}

func (r *Repo) HideScores(_ context.Context, userID int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HiddenScores = append(r.HiddenScores, userID)
	return nil
}

func (r *Repo) UpdateStats(_ context.Context, userID int32, mode uint8, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	for i := range u.Stats {
		if u.Stats[i].Mode != mode {
			continue
		}
		if rank, ok := updates["rank"].(int32); ok {
			u.Stats[i].Rank = rank
		}
	}
	return nil
}

func (r *Repo) UpdateClients(context.Context, int32, map[string]any) error {
	return nil
}

func (r *Repo) UpdateRankHistory(_ context.Context, userID int32, mode uint8, rank int32, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RankHistory == nil {
		r.RankHistory = make(map[int32]int32)
	}
	r.RankHistory[userID] = rank
	return nil
}

func (r *Repo) CreateInfringement(_ context.Context, userID int32, _ int16, _ *time.Time, _ string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Infringements = append(r.Infringements, userID)
	return nil
}

// Leaderboards — рейтинги в памяти: ранг = заранее заданное значение.
type Leaderboards struct {
	mu      sync.Mutex
	Ranks   map[int32]int32
	Removed []int32
}

func NewLeaderboards() *Leaderboards {
	return &Leaderboards{Ranks: make(map[int32]int32)}
}

func (l *Leaderboards) GlobalRank(_ context.Context, userID int32, _ uint8) (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Ranks[userID], nil
}

func (l *Leaderboards) Update(_ context.Context, userID int32, _ uint8, _ int16, _ int64, _ string) error {
	return nil
}

func (l *Leaderboards) Remove(_ context.Context, userID int32, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Removed = append(l.Removed, userID)
	return nil
}

// PlainVerifier сверяет пароль простым равенством. Только для тестов.
type PlainVerifier struct{}

func (PlainVerifier) Verify(passwordMD5, storedHash string) bool {
	return passwordMD5 == storedHash
}

// User собирает тестового пользователя с четырьмя рядами статистики.
func User(id int32, name string) *db.User {
	u := &db.User{
		ID:          id,
		Name:        name,
		Bcrypt:      "secret-" + name,
		Country:     "DE",
		Permissions: 1,
		Activated:   true,
	}
	for mode := uint8(0); mode < 4; mode++ {
		u.Stats = append(u.Stats, db.Stats{UserID: id, Mode: mode})
	}
	return u
}

// ClientData собирает третью строку рукопожатия с согласованным md5
// списка адаптеров.
func ClientData(version string) string {
	adapters := "eth0,wlan0"
	sum := md5.Sum([]byte(adapters))
	adaptersMD5 := hex.EncodeToString(sum[:])
	return version + "|0|0|" + adaptersMD5 + ":" + adapters + ":mac:uninstall:disk|0"
}

// Handshake собирает все три строки рукопожатия.
func Handshake(name, password, version string) string {
	return name + "\n" + password + "\n" + ClientData(version) + "\n"
}
