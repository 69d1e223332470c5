// Command socialctl is a terminal client for the social activities API. It
// keeps a signed-in session in a local config file and drives the same
// activity store the web frontend uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Jamen1147/socialApp/internal/client"
	"github.com/Jamen1147/socialApp/internal/domain"
	"github.com/Jamen1147/socialApp/internal/store"
)

const usage = `usage: socialctl [-config path] <command> [arguments]

commands:
  register  -username -display-name -email -password   create an account
  login     -email -password                           sign in
  logout                                               sign out, forget the token
  whoami                                               show the signed-in account
  list                                                 list activities grouped by day
  show      <id>                                       show one activity
  create    -title -category -date -city -venue [-description]
  edit      <id> -title -category -date -city -venue [-description]
  delete    <id>
  attend    <id>
  leave     <id>
`

func main() {
	log.SetFlags(0)

	configPath := flag.String("config", defaultConfigPath(), "path to socialctl config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := newApp(cfg, *configPath)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Fatalf("socialctl: %v", err)
	}
}

type app struct {
	cfg        *ctlConfig
	configPath string
	api        *client.Client
	session    *store.Session
	store      *store.Store
}

func newApp(cfg *ctlConfig, configPath string) *app {
	a := &app{cfg: cfg, configPath: configPath}

	a.api = client.New(cfg.BaseURL)
	a.session = store.NewSession(a.api, func(token string) {
		cfg.Token = token
		if err := saveConfig(configPath, cfg); err != nil {
			log.Printf("warning: could not persist token: %v", err)
		}
	})
	a.api.SetTokenSource(a.session.Token)

	a.store = store.New(a.api, a.session,
		store.WithNavigator(printNavigator{}),
		store.WithNotifier(printNotifier{}),
	)
	return a
}

// resume restores the saved session; commands that mutate require it.
func (a *app) resume(ctx context.Context) error {
	if a.cfg.Token == "" {
		return fmt.Errorf("not signed in, run `socialctl login` first")
	}
	if err := a.session.Resume(ctx, a.cfg.Token); err != nil {
		return fmt.Errorf("session expired, run `socialctl login` again: %w", err)
	}
	return nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		a.session.Logout()
		fmt.Println("signed out")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "list":
		return a.list(ctx)
	case "show":
		return a.show(ctx, args)
	case "create":
		return a.create(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "attend":
		return a.attend(ctx, args)
	case "leave":
		return a.leave(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "account username")
	displayName := fs.String("display-name", "", "name shown to other users")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	err := a.session.Register(ctx, store.RegisterInput{
		Username:    *username,
		DisplayName: *displayName,
		Email:       *email,
		Password:    *password,
	})
	if err != nil {
		return err
	}
	fmt.Printf("registered and signed in as %s\n", *username)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if err := a.session.Login(ctx, *email, *password); err != nil {
		return err
	}
	identity, _ := a.session.Current()
	fmt.Printf("signed in as %s\n", identity.Username)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.resume(ctx); err != nil {
		return err
	}
	identity, ok := a.session.Current()
	if !ok {
		return fmt.Errorf("not signed in")
	}
	fmt.Printf("%s (%s)\n", identity.Username, identity.DisplayName)
	return nil
}

func (a *app) list(ctx context.Context) error {
	if err := a.resume(ctx); err != nil {
		return err
	}
	if err := a.store.LoadAll(ctx); err != nil {
		return err
	}

	for _, group := range a.store.ByDate() {
		fmt.Println(group.Day.Format("Mon 02 Jan 2006"))
		for _, activity := range group.Activities {
			marker := " "
			if activity.IsGoing {
				marker = "*"
			}
			fmt.Printf("  %s %s  %s  %s, %s  (%d going)\n",
				marker, activity.Date.Format("15:04"), activity.Title,
				activity.Venue, activity.City, len(activity.Attendees))
			fmt.Printf("      id: %s\n", activity.ID)
		}
	}
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("show requires an activity id")
	}
	if err := a.resume(ctx); err != nil {
		return err
	}

	activity, err := a.store.LoadOne(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", activity.Title)
	fmt.Printf("  when:     %s\n", activity.Date.Format(time.RFC1123))
	fmt.Printf("  where:    %s, %s\n", activity.Venue, activity.City)
	fmt.Printf("  category: %s\n", activity.Category)
	if activity.Description != "" {
		fmt.Printf("  about:    %s\n", activity.Description)
	}
	fmt.Println("  going:")
	for _, att := range activity.Attendees {
		role := ""
		if att.IsHost {
			role = " (host)"
		}
		fmt.Printf("    %s%s\n", att.DisplayName, role)
	}
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	activity, err := parseActivityFlags("create", args)
	if err != nil {
		return err
	}
	if err := a.resume(ctx); err != nil {
		return err
	}

	activity.ID = uuid.NewString()
	if err := a.store.Create(ctx, activity); err != nil {
		return err
	}
	fmt.Printf("created %s\n", activity.ID)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("edit requires an activity id")
	}
	activity, err := parseActivityFlags("edit", args[1:])
	if err != nil {
		return err
	}
	if err := a.resume(ctx); err != nil {
		return err
	}

	activity.ID = args[0]
	if err := a.store.Edit(ctx, activity); err != nil {
		return err
	}
	fmt.Printf("updated %s\n", activity.ID)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete requires an activity id")
	}
	if err := a.resume(ctx); err != nil {
		return err
	}
	if err := a.store.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}

func (a *app) attend(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("attend requires an activity id")
	}
	if err := a.resume(ctx); err != nil {
		return err
	}
	if _, err := a.store.LoadOne(ctx, args[0]); err != nil {
		return err
	}
	if err := a.store.Attend(ctx); err != nil {
		return err
	}
	fmt.Printf("attending %s\n", args[0])
	return nil
}

func (a *app) leave(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("leave requires an activity id")
	}
	if err := a.resume(ctx); err != nil {
		return err
	}
	if _, err := a.store.LoadOne(ctx, args[0]); err != nil {
		return err
	}
	if err := a.store.CancelAttendance(ctx); err != nil {
		return err
	}
	fmt.Printf("left %s\n", args[0])
	return nil
}

func parseActivityFlags(name string, args []string) (domain.Activity, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	title := fs.String("title", "", "activity title")
	description := fs.String("description", "", "longer description")
	category := fs.String("category", "", "category, e.g. drinks, culture, music")
	date := fs.String("date", "", "start time in RFC 3339, e.g. 2026-09-12T18:00:00Z")
	city := fs.String("city", "", "city")
	venue := fs.String("venue", "", "venue")
	fs.Parse(args)

	when, err := time.Parse(time.RFC3339, *date)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("invalid -date: %w", err)
	}

	return domain.Activity{
		Title:       *title,
		Description: *description,
		Category:    *category,
		Date:        when,
		City:        *city,
		Venue:       *venue,
	}, nil
}

// printNavigator mirrors the frontend's post-mutation redirects as a hint.
type printNavigator struct{}

func (printNavigator) NavigateTo(path string) {
	fmt.Printf("-> %s\n", path)
}

// printNotifier surfaces mutation failures on stderr.
type printNotifier struct{}

func (printNotifier) Notify(message string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", message, err)
}
