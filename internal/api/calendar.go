package api

import (
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Jamen1147/socialApp/internal/auth"
	"github.com/Jamen1147/socialApp/internal/domain"
)

// calendarProductID identifies this service in exported iCalendar feeds.
const calendarProductID = "-//socialApp//activities//EN"

// calendarFeed exports every upcoming activity as an iCalendar feed so users
// can subscribe from their own calendar client.
func (h *Handler) calendarFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var all []domain.Activity
	var cursor *domain.Cursor
	for {
		page, next, err := h.service.ListActivities(r.Context(), claims.Username, cursor, 100)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		all = append(all, page...)
		if next == nil {
			break
		}
		cursor = next
	}

	writeCalendar(w, all)
}

// activityCalendar exports a single activity as an .ics file.
func (h *Handler) activityCalendar(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	activity, err := h.service.GetActivity(r.Context(), id, claims.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeCalendar(w, []domain.Activity{*activity})
}

func writeCalendar(w http.ResponseWriter, activities []domain.Activity) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(calendarProductID)

	now := time.Now().UTC()
	for _, activity := range activities {
		event := cal.AddEvent(activity.ID + "@socialapp")
		event.SetDtStampTime(now)
		event.SetStartAt(activity.Date.UTC())
		event.SetEndAt(activity.Date.UTC().Add(2 * time.Hour))
		event.SetSummary(activity.Title)
		event.SetDescription(activity.Description)
		event.SetLocation(activity.Venue + ", " + activity.City)
		if host, ok := activity.Host(); ok {
			event.SetOrganizer(host.Username, ical.WithCN(host.DisplayName))
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal.Serialize()))
}
