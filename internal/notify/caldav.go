package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const iCloudCalDAVEndpoint = "https://caldav.icloud.com/"

// How long the notification marker event blocks the calendar for.
const markerDuration = 15 * time.Minute

// basicAuthTransport adds Basic Auth and a client user agent to requests.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "remindcal/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAV is a Deliverer that drops each reminder into a dedicated CalDAV
// calendar as a short marker event, so reminders surface on any device that
// syncs the calendar. Best effort, like every other channel.
type CalDAV struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarURL  string
}

// NewCalDAV creates a CalDAV delivery channel against iCloud, writing into
// the named calendar.
func NewCalDAV(logger *slog.Logger, username, password, calendarName string) (*CalDAV, error) {
	transport := &basicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}

	caldavClient, err := caldav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	c := &CalDAV{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
	}

	logger.Info("Finding reminder calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Using reminder calendar", "url", calendarURL)

	return c, nil
}

// Deliver implements Deliverer by writing a marker VEVENT carrying the
// reminder text.
func (c *CalDAV) Deliver(ctx context.Context, text, recipientID string) error {
	uid := uuid.New().String()
	summary := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		summary = text[:i]
	}

	now := time.Now().UTC()
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, summary)
	ve.Props.SetText(ical.PropDescription, text)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, now)
	ve.Props.SetDateTime(ical.PropDateTimeStart, now)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, now.Add(markerDuration))

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//remindcal//EN")
	cal.Children = append(cal.Children, ve)

	// The event path must be relative to the endpoint for the webdav client.
	eventPath := path.Join(strings.TrimPrefix(c.calendarURL, iCloudCalDAVEndpoint), fmt.Sprintf("%s.ics", uid))

	writer, err := c.webdavClient.Create(ctx, eventPath)
	if err != nil {
		return fmt.Errorf("failed to create reminder event on CalDAV server: %w", err)
	}
	defer writer.Close()

	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode reminder event: %w", err)
	}

	c.logger.Info("Delivered reminder to CalDAV calendar", "recipient", recipientID, "summary", summary)
	return nil
}

// findCalendar discovers the user's calendars and returns the URL for the
// one with the matching name.
func (c *CalDAV) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return fmt.Sprintf("%s%s", strings.TrimSuffix(iCloudCalDAVEndpoint, "/"), cal.Path), nil
		}
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
