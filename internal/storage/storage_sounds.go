package storage

import (
	"encoding/json"
	"fmt"
)

// The sound board is a single global name -> file name table, shared by all
// guilds.
const soundsKey = "sounds"

func (s *Storage) soundTable() (map[string]string, error) {
	data, exists := s.ds.Get(soundsKey)
	if !exists {
		return map[string]string{}, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sound table: %w", err)
	}
	var table map[string]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sound table: %w", err)
	}
	return table, nil
}

// GetSound returns the stored file name for a sound, or "" when unknown.
func (s *Storage) GetSound(name string) (string, error) {
	table, err := s.soundTable()
	if err != nil {
		return "", err
	}
	return table[name], nil
}

// SetSound adds or replaces a sound table entry.
func (s *Storage) SetSound(name, fileName string) error {
	table, err := s.soundTable()
	if err != nil {
		return err
	}
	table[name] = fileName
	s.ds.Add(soundsKey, table)
	return nil
}

// RemoveSound deletes a sound table entry. Returns whether it existed.
func (s *Storage) RemoveSound(name string) (bool, error) {
	table, err := s.soundTable()
	if err != nil {
		return false, err
	}
	if _, ok := table[name]; !ok {
		return false, nil
	}
	delete(table, name)
	s.ds.Add(soundsKey, table)
	return true, nil
}

// AllSounds returns a copy of the whole sound table.
func (s *Storage) AllSounds() (map[string]string, error) {
	return s.soundTable()
}
