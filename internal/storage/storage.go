// /internal/storage/storage.go
package storage

import (
	"time"

	"github.com/keshon/searchpanel/datastore"
)

const (
	commandHistoryLimit = 20
	searchHistoryLimit  = 20
)

type Storage struct {
	ds *datastore.DataStore
}

type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	GuildName string    `json:"guild_name"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Param     string    `json:"param"`
	Datetime  time.Time `json:"datetime"`
}

type SearchHistoryRecord struct {
	UserID   string    `json:"user_id"`
	Query    string    `json:"query"`
	URLs     []string  `json:"urls"`
	Titles   []string  `json:"titles"`
	Datetime time.Time `json:"datetime"`
}

// Record is everything stored for one guild.
type Record struct {
	EquallyPlayback bool                   `json:"equally_playback"`
	CommandsHistory []CommandHistoryRecord `json:"cmd_history"`
	SearchHistory   []SearchHistoryRecord  `json:"search_history"`
	CommandHashes   map[string]string      `json:"cmd_hashes,omitempty"`
}

func New(ds *datastore.DataStore) *Storage {
	return &Storage{ds: ds}
}

// Open creates the datastore at filePath and wraps it.
func Open(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// Guilds lists guild ids that have a record.
func (s *Storage) Guilds() []string {
	return s.ds.Keys()
}

func (s *Storage) guildRecord(guildID string) (Record, error) {
	var r Record
	if _, err := s.ds.Get(guildID, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *Storage) updateGuildRecord(guildID string, fn func(r *Record) error) error {
	return datastore.Update(s.ds, guildID, fn)
}

func (s *Storage) AppendCommandToHistory(guildID string, command CommandHistoryRecord) error {
	return s.updateGuildRecord(guildID, func(r *Record) error {
		r.CommandsHistory = keepLast(append(r.CommandsHistory, command), commandHistoryLimit)
		return nil
	})
}

func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	r, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return r.CommandsHistory, nil
}

func keepLast[T any](list []T, n int) []T {
	if len(list) > n {
		return list[len(list)-n:]
	}
	return list
}
