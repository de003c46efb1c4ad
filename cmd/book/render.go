package main

import (
	"fmt"
	"io"
	"strings"

	"seatdesk/internal/models"
)

// printView renders the seat map. Free seats show their number, selected
// seats are starred and booked seats are crossed out.
func printView(w io.Writer, view models.View) {
	fmt.Fprintf(w, "Guest: %s\n", view.GuestID)
	if view.AuthError != "" {
		fmt.Fprintf(w, "%s\n", view.AuthError)
	}
	if view.Event != nil {
		fmt.Fprintf(w, "Event: %s", view.Event.Title)
		if view.Event.Date != "" {
			fmt.Fprintf(w, " (%s)", view.Event.Date)
		}
		if view.Event.Venue != nil {
			fmt.Fprintf(w, " @ %s", view.Event.Venue.Name)
		}
		fmt.Fprintln(w)
	}

	selected := make(map[int64]bool, len(view.SelectedIDs))
	for _, id := range view.SelectedIDs {
		selected[id] = true
	}

	for _, row := range view.Rows {
		cells := make([]string, 0, len(row.Tickets))
		for _, t := range row.Tickets {
			switch {
			case t.IsBooked():
				cells = append(cells, " xx ")
			case selected[t.Seat.ID]:
				cells = append(cells, fmt.Sprintf("*%2d*", t.Seat.SeatNumber))
			default:
				cells = append(cells, fmt.Sprintf("[%2d]", t.Seat.SeatNumber))
			}
		}
		fmt.Fprintf(w, "Row %-3s %s\n", row.Label, strings.Join(cells, " "))
	}

	if len(view.SelectedIDs) > 0 {
		ids := make([]string, len(view.SelectedIDs))
		for i, id := range view.SelectedIDs {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(w, "Selected seat IDs: %s\n", strings.Join(ids, ", "))
	}

	switch view.Status {
	case models.StatusSuccess:
		fmt.Fprintln(w, "Booking confirmed")
	case models.StatusError:
		fmt.Fprintf(w, "Booking failed: %s\n", view.Message)
	}
}
