package presence

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/store"
)

// Board is the presence status of one date, for the dashboard.
type Board struct {
	Date           string              `json:"date"`
	Rows           []store.PresenceRow `json:"rows"`
	Tracked        int                 `json:"tracked"`
	Present        int                 `json:"present"`
	Warnings       int                 `json:"warnings"`
	AutoAbsent     int                 `json:"auto_absent"`
	AutoCheckedOut int                 `json:"auto_checked_out"`
}

// Board summarizes the presence rows of one date.
func (t *Tracker) Board(ctx context.Context, date string) (*Board, error) {
	rows, err := t.rows.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("could not list presence rows: %w", err)
	}

	board := &Board{Date: date, Rows: rows, Tracked: len(rows)}
	for _, row := range rows {
		switch row.State {
		case store.PresenceNormal:
			board.Present++
		case store.PresenceWarning:
			board.Warnings++
		case store.PresenceAutoAbsent:
			board.AutoAbsent++
		case store.PresenceAutoCheckedOut:
			board.AutoCheckedOut++
		}
	}

	return board, nil
}

// ResetDate drops the presence rows of one date. Exposed for operator
// tooling; a new day starts fresh without it.
func (t *Tracker) ResetDate(ctx context.Context, date string) (int, error) {
	removed, err := t.rows.ResetDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("could not reset presence rows: %w", err)
	}
	return removed, nil
}
