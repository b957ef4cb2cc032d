package models

// CalendarEventsPage is one page of an events list call
type CalendarEventsPage struct {
	Items         []PlatformEvent `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
	NextSyncToken string          `json:"nextSyncToken"`
}

type PlatformEvent struct {
	ID      string        `json:"id"`
	Status  string        `json:"status"`
	Summary string        `json:"summary"`
	Start   EventDateTime `json:"start"`
	End     EventDateTime `json:"end"`
	Updated string        `json:"updated"`
}

// EventDateTime carries either DateTime (timed events) or Date (all-day)
type EventDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

const CalendarEventCancelled = "cancelled"
