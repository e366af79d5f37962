package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gongmoalim/gongmo-backend/models"
	"github.com/gongmoalim/gongmo-backend/shared"
)

// HTTPCalendarSink posts milestones to the calendar relay as all-day events.
// The relay owns duplicate suppression; this sink posts whatever it is
// handed, every run.
type HTTPCalendarSink struct {
	endpoint   string
	calendarID string
	client     *http.Client
}

func NewHTTPCalendarSink(endpoint, calendarID string, timeout time.Duration) *HTTPCalendarSink {
	return &HTTPCalendarSink{
		endpoint:   endpoint,
		calendarID: calendarID,
		client:     shared.NewPooledHTTPClient(timeout),
	}
}

// Configured reports whether the sink can actually deliver events. The
// pipeline skips milestone delivery when unconfigured instead of failing.
func (s *HTTPCalendarSink) Configured() bool {
	return s.endpoint != "" && s.calendarID != ""
}

type calendarEventRequest struct {
	CalendarID  string            `json:"calendar_id"`
	Summary     string            `json:"summary"`
	Description string            `json:"description"`
	Start       calendarEventDate `json:"start"`
	End         calendarEventDate `json:"end"`
	Reminders   calendarReminders `json:"reminders"`
}

type calendarEventDate struct {
	Date string `json:"date"`
}

type calendarReminders struct {
	UseDefault bool                       `json:"use_default"`
	Overrides  []calendarReminderOverride `json:"overrides"`
}

type calendarReminderOverride struct {
	Method  string `json:"method"`
	Minutes int    `json:"minutes"`
}

// CreateEvent implements CalendarSink. Events carry a day-before and an
// hour-before popup reminder.
func (s *HTTPCalendarSink) CreateEvent(ctx context.Context, milestone models.Milestone) error {
	if !s.Configured() {
		logrus.WithField("component", "HTTPCalendarSink").Debug("Calendar sink not configured, dropping event")
		return nil
	}

	payload := calendarEventRequest{
		CalendarID:  s.calendarID,
		Summary:     milestone.Summary,
		Description: milestone.Description,
		Start:       calendarEventDate{Date: milestone.StartDate},
		End:         calendarEventDate{Date: milestone.EndDate},
		Reminders: calendarReminders{
			UseDefault: false,
			Overrides: []calendarReminderOverride{
				{Method: "popup", Minutes: 60 * 24},
				{Method: "popup", Minutes: 60},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal calendar event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build calendar request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// No retry: event creation is not idempotent and the relay does its own
	// duplicate suppression only per delivered event.
	resp, err := s.client.Do(req)
	if err != nil {
		return shared.WrapError(err, shared.ErrorCategoryNetwork, shared.CodeCalendarRejected,
			"calendar-sink", "CreateEvent", true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return shared.NewServiceError(
			shared.ErrorCategoryNetwork, shared.CodeCalendarRejected,
			fmt.Sprintf("calendar relay returned %d", resp.StatusCode),
			"calendar-sink", "CreateEvent", resp.StatusCode >= 500, nil,
		)
	}
	return nil
}
