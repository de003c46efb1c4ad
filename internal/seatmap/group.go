package seatmap

import (
	"cmp"
	"slices"

	"seatdesk/internal/models"
)

// GroupByRow groups tickets by seat row. Rows come back ordered by label and
// the tickets of each row by seat number; tickets with equal seat numbers keep
// their input order. The input is not modified.
func GroupByRow(tickets []models.Ticket) []models.Row {
	byLabel := make(map[string][]models.Ticket)
	for _, t := range tickets {
		byLabel[t.Seat.RowLabel] = append(byLabel[t.Seat.RowLabel], t)
	}

	rows := make([]models.Row, 0, len(byLabel))
	for label, rowTickets := range byLabel {
		slices.SortStableFunc(rowTickets, func(a, b models.Ticket) int {
			return cmp.Compare(a.Seat.SeatNumber, b.Seat.SeatNumber)
		})
		rows = append(rows, models.Row{Label: label, Tickets: rowTickets})
	}

	slices.SortFunc(rows, func(a, b models.Row) int {
		return cmp.Compare(a.Label, b.Label)
	})
	return rows
}
