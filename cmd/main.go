package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"remindcal/internal/adjust"
	"remindcal/internal/google"
	"remindcal/internal/kvstore"
	"remindcal/internal/lifecycle"
	"remindcal/internal/lookup"
	"remindcal/internal/notify"
	"remindcal/internal/prefs"
	"remindcal/internal/scheduler"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "remindcal",
		Usage: "Schedule context-aware reminders for calendar events.",
		Commands: []*cli.Command{
			authCommand(),
			scheduleCommand(),
			dueCommand(),
			snoozeCommand(),
			postponeCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Fetch upcoming events and schedule reminders for them.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "How many days of upcoming events to schedule."},
			&cli.StringFlag{Name: "user", Usage: "User ID to schedule for. Defaults to the account name."},
			&cli.BoolFlag{Name: "discover", Usage: "List the available calendar IDs per account and exit."},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger()

			accounts, err := google.GetTokenAccounts()
			if err != nil {
				return fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
			}
			if len(accounts) == 0 {
				return fmt.Errorf("no google accounts found. Run the 'auth' command first")
			}

			if c.Bool("discover") {
				return discoverCalendars(c.Context, logger, accounts)
			}

			calendarIDs := os.Getenv("GOOGLE_CALENDAR_IDS")
			if calendarIDs == "" {
				return fmt.Errorf("GOOGLE_CALENDAR_IDS environment variable not set")
			}

			env, err := buildEnv(logger)
			if err != nil {
				return err
			}
			defer env.close()

			total := 0
			for _, acc := range accounts {
				gClient, err := google.NewClient(c.Context, logger, os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), acc)
				if err != nil {
					return fmt.Errorf("failed to create google client for account %s: %w", acc, err)
				}

				userID := c.String("user")
				if userID == "" {
					userID = acc
				}

				for _, calID := range strings.Split(calendarIDs, ",") {
					events, err := gClient.GetUpcomingEvents(strings.TrimSpace(calID), c.Int("days"))
					if err != nil {
						logger.Error("Failed to fetch events, skipping calendar", "calendarID", calID, "error", err)
						continue
					}
					for _, event := range events {
						rems, err := env.sched.Schedule(c.Context, *event, userID)
						if err != nil {
							logger.Error("Failed to schedule reminders, skipping event", "eventID", event.ID, "error", err)
							continue
						}
						total += len(rems)
					}
				}
			}

			logger.Info("Scheduling complete.", "reminders", total)
			return nil
		},
	}
}

func dueCommand() *cli.Command {
	return &cli.Command{
		Name:  "due",
		Usage: "Deliver all reminders whose fire time has passed.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "watch", Usage: "Run the delivery sweep every N seconds."},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger()
			env, err := buildEnv(logger)
			if err != nil {
				return err
			}
			defer env.close()

			sweep := func(ctx context.Context) error {
				stats, err := env.sched.ProcessDue(ctx)
				if err != nil {
					return err
				}
				logger.Info("Delivery sweep finished.", "processed", stats.Processed, "sent", stats.Sent, "failed", stats.Failed)
				return nil
			}

			if c.IsSet("watch") {
				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting delivery watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for ; true; <-ticker.C {
					if err := sweep(c.Context); err != nil {
						logger.Error("Delivery sweep failed", "error", err)
					}
				}
				return nil
			}
			return sweep(c.Context)
		},
	}
}

func snoozeCommand() *cli.Command {
	return &cli.Command{
		Name:      "snooze",
		Usage:     "Snooze a reminder.",
		ArgsUsage: "<reminder-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "minutes", Usage: "Snooze duration. Defaults to the user's configured default."},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger()
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one reminder ID argument")
			}
			env, err := buildEnv(logger)
			if err != nil {
				return err
			}
			defer env.close()

			result := env.manager.Snooze(c.Context, c.Args().First(), c.Int("minutes"))
			return printJSON(result)
		},
	}
}

func postponeCommand() *cli.Command {
	return &cli.Command{
		Name:      "postpone",
		Usage:     "Move an event's reminders to a new start time.",
		ArgsUsage: "<event-id> <new-start RFC3339>",
		Action: func(c *cli.Context) error {
			logger := newLogger()
			if c.NArg() != 2 {
				return fmt.Errorf("expected an event ID and a new start time")
			}
			newStart, err := time.Parse(time.RFC3339, c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("invalid new start time %q: %w", c.Args().Get(1), err)
			}
			env, err := buildEnv(logger)
			if err != nil {
				return err
			}
			defer env.close()

			result := env.manager.Postpone(c.Context, c.Args().First(), newStart)
			return printJSON(result)
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show reminder statistics for a user.",
		ArgsUsage: "<user-id>",
		Action: func(c *cli.Context) error {
			logger := newLogger()
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one user ID argument")
			}
			env, err := buildEnv(logger)
			if err != nil {
				return err
			}
			defer env.close()

			stats, err := env.sched.UserStats(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

// discoverCalendars prints every calendar ID visible to the authenticated
// accounts, for picking GOOGLE_CALENDAR_IDS.
func discoverCalendars(ctx context.Context, logger *slog.Logger, accounts []string) error {
	for _, acc := range accounts {
		gClient, err := google.NewClient(ctx, logger, os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), acc)
		if err != nil {
			return fmt.Errorf("failed to create google client for account %s: %w", acc, err)
		}
		ids, err := gClient.DiscoverGoogleCalendars()
		if err != nil {
			return fmt.Errorf("failed to list calendars for account %s: %w", acc, err)
		}
		fmt.Printf("Account %s:\n", acc)
		for _, id := range ids {
			fmt.Printf("  %s\n", id)
		}
	}
	return nil
}

// env bundles the wired-up application components shared by the commands.
type env struct {
	sched   *scheduler.Scheduler
	manager *lifecycle.Manager
	close   func()
}

func buildEnv(logger *slog.Logger) (*env, error) {
	dbPath := os.Getenv("REMINDCAL_DB")
	if dbPath == "" {
		dbPath = "remindcal.db"
	}
	db, err := kvstore.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open reminder store at %s: %w", dbPath, err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	weather := lookup.NewWeatherClient(logger, os.Getenv("WEATHER_API_KEY"), httpClient)
	traffic := lookup.NewTrafficClient(logger, os.Getenv("GOOGLE_MAPS_API_KEY"), httpClient)

	prefsDir := os.Getenv("REMINDCAL_PREFS_DIR")
	if prefsDir == "" {
		prefsDir = "."
	}
	prefsStore := prefs.NewFileStore(prefsDir)

	deliverer, err := buildDeliverer(logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := scheduler.NewRepository(db, logger)
	adjuster := adjust.New(weather, traffic, logger)
	sched := scheduler.New(prefsStore, adjuster, repo, notify.TextRenderer{}, deliverer, logger)
	manager := lifecycle.New(repo, sched, prefsStore, logger)

	return &env{
		sched:   sched,
		manager: manager,
		close:   func() { _ = db.Close() },
	}, nil
}

// buildDeliverer picks the delivery channel: CalDAV when iCloud credentials
// are configured, console output otherwise.
func buildDeliverer(logger *slog.Logger) (notify.Deliverer, error) {
	username := os.Getenv("ICLOUD_USERNAME")
	if username == "" {
		return notify.Console{}, nil
	}
	caldav, err := notify.NewCalDAV(logger, username, os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"), os.Getenv("ICLOUD_CALENDAR_NAME"))
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav deliverer: %w", err)
	}
	return caldav, nil
}

func newLogger() *slog.Logger {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	return setupLogger(logLevel)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
