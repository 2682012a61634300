package storage

import "maps"

// CommandHashes returns the definition hashes of the slash commands last
// registered in the guild, keyed by command name.
func (s *Storage) CommandHashes(guildID string) (map[string]string, error) {
	r, err := s.guildRecord(guildID)
	if err != nil {
		return nil, err
	}
	if r.CommandHashes == nil {
		return map[string]string{}, nil
	}
	return r.CommandHashes, nil
}

func (s *Storage) SetCommandHashes(guildID string, hashes map[string]string) error {
	return s.updateGuildRecord(guildID, func(r *Record) error {
		r.CommandHashes = maps.Clone(hashes)
		return nil
	})
}
