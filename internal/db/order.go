package db

import (
	"fmt"
	"slices"

	"github.com/tgienger/worksphere/internal/models"
)

func orderedIDs(q querier, query string, args ...any) ([]string, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// neighbourOf returns the id next to id in ids in direction dir, or false
// when id is missing or already at that end.
func neighbourOf(ids []string, id string, dir models.Direction) (string, bool) {
	pos := slices.Index(ids, id)
	if pos < 0 {
		return "", false
	}
	target := pos - 1
	if dir == models.DirectionDown {
		target = pos + 1
	}
	if target < 0 || target >= len(ids) {
		return "", false
	}
	return ids[target], true
}

// swapIDs exchanges the positions of a and b in ids
func swapIDs(ids []string, a, b string) {
	i, j := slices.Index(ids, a), slices.Index(ids, b)
	if i < 0 || j < 0 {
		return
	}
	ids[i], ids[j] = ids[j], ids[i]
}

// move swaps id with its neighbour in ids, in place. It returns the
// neighbour's id, or false when id is missing or already at that end.
func move(ids []string, id string, dir models.Direction) (string, bool) {
	neighbour, ok := neighbourOf(ids, id, dir)
	if ok {
		swapIDs(ids, id, neighbour)
	}
	return neighbour, ok
}

// renumber writes dense order_index values following the order of ids
func renumber(q querier, table string, ids []string) error {
	query := fmt.Sprintf("UPDATE %s SET order_index = ? WHERE id = ?", table)
	for i, id := range ids {
		if _, err := q.Exec(query, i, id); err != nil {
			return err
		}
	}
	return nil
}
