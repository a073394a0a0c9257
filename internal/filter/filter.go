// Package filter derives the visible todos for a filter mode.
package filter

import "github.com/Makepad-fr/tada/internal/model"

// Apply returns the todos matching status in their original order.
// FilterAll returns todos unchanged.
func Apply(todos []model.Todo, status model.FilterStatus) []model.Todo {
	switch status {
	case model.FilterActive:
		return keep(todos, false)
	case model.FilterCompleted:
		return keep(todos, true)
	default:
		return todos
	}
}

func keep(todos []model.Todo, completed bool) []model.Todo {
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if t.Completed == completed {
			out = append(out, t)
		}
	}
	return out
}

// Count splits todos into active and completed totals.
func Count(todos []model.Todo) (active, completed int) {
	for _, t := range todos {
		if t.Completed {
			completed++
		} else {
			active++
		}
	}
	return
}
