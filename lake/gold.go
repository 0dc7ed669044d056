package lake

import (
	"fmt"

	"github.com/poiesic/gamescout/core"
)

// WriteGold replaces the gold dataset at path with games.
func WriteGold(path string, games []*core.Game) error {
	rows := make([]GameRow, 0, len(games))
	for _, g := range games {
		row, err := NewGameRow(g)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := writeAtomic(path, rows); err != nil {
		return fmt.Errorf("failed to write gold dataset: %w", err)
	}
	return nil
}

// ReadGold loads the gold dataset at path.
func ReadGold(path string) ([]*core.Game, error) {
	rows, err := readRows[GameRow](path)
	if err != nil {
		return nil, err
	}
	games := make([]*core.Game, 0, len(rows))
	for _, row := range rows {
		g, err := row.Game()
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}
