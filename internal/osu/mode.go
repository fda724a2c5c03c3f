package osu

import (
	"encoding/json"
	"fmt"
)

// GameMode identifies one of the four osu! game modes.
type GameMode uint8

const (
	ModeOsu GameMode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

// String returns the mode name as it appears in API routes.
func (m GameMode) String() string {
	switch m {
	case ModeOsu:
		return "osu"
	case ModeTaiko:
		return "taiko"
	case ModeCatch:
		return "fruits"
	case ModeMania:
		return "mania"
	default:
		return fmt.Sprintf("GameMode(%d)", uint8(m))
	}
}

// ParseGameMode parses a route/query mode name into a GameMode.
func ParseGameMode(s string) (GameMode, error) {
	switch s {
	case "osu":
		return ModeOsu, nil
	case "taiko":
		return ModeTaiko, nil
	case "fruits", "catch":
		return ModeCatch, nil
	case "mania":
		return ModeMania, nil
	default:
		return 0, fmt.Errorf("unknown game mode %q", s)
	}
}

// MarshalJSON encodes the mode as its route name.
func (m GameMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a mode name or its numeric id.
func (m *GameMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		mode, err := ParseGameMode(s)
		if err != nil {
			return err
		}
		*m = mode
		return nil
	}

	var n uint8
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if n > uint8(ModeMania) {
		return fmt.Errorf("unknown game mode %d", n)
	}
	*m = GameMode(n)
	return nil
}
