package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/onepanel"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/repository"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/terminal"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

// App is what every command shares. The root command's hooks open the
// storage and clients before a command runs and close them after.
type App struct {
	Config  *config.Config
	Profile string
	Yes     bool
	APIURL  string

	in  io.Reader
	out io.Writer

	openStorage func(ctx context.Context) (ports.Storage, error)

	storage  ports.Storage
	session  *services.Session
	admin    *services.Session
	client   *onepanel.Client
	notifier *terminal.Notifier
	dialog   *terminal.Dialog
	sync     *services.OrderSync
}

func newApp(cfg *config.Config, in io.Reader, out io.Writer) *App {
	a := &App{Config: cfg, Profile: "default", APIURL: cfg.APIBaseURL, in: in, out: out}
	a.openStorage = func(ctx context.Context) (ports.Storage, error) {
		return repository.Open(ctx, a.Config.StorageURL)
	}
	return a
}

// namespace keeps CLI sessions apart from browser sessions in a shared store.
func (a *App) namespace() string {
	return "cli:" + a.Profile
}

func (a *App) open(ctx context.Context) error {
	storage, err := a.openStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	a.storage = storage
	a.session = services.NewSession(storage, a.namespace())
	a.admin = services.NewAdminSession(storage, a.namespace())
	a.client = onepanel.NewClient(a.APIURL, a.session, a.Config.HTTPTimeout)
	a.notifier = terminal.NewNotifier(a.out)
	a.dialog = terminal.NewDialog(a.in, a.out)
	a.dialog.AssumeYes = a.Yes
	a.sync = services.NewOrderSync()
	return nil
}

func (a *App) close() error {
	if a.storage == nil {
		return nil
	}
	err := a.storage.Close()
	a.storage = nil
	return err
}

// api is the backend as the signed-in dashboard user.
func (a *App) api() *onepanel.Client {
	return a.client
}

// adminAPI is the backend as the signed-in admin.
func (a *App) adminAPI() *onepanel.Client {
	return a.client.WithSession(a.admin)
}

// actor identifies the CLI profile for gesture locking.
func (a *App) actor(ctx context.Context) services.Actor {
	return services.ResolveActor(ctx, a.api(), a.session)
}

// confirm asks before destructive commands; --yes skips the question.
func (a *App) confirm(ctx context.Context, title, message string) error {
	ok, err := a.dialog.Confirm(ctx, title, message, true)
	if err != nil {
		return err
	}
	if !ok {
		return errCancelled
	}
	return nil
}

var errCancelled = errors.New("cancelled")

// userError turns err into what the user should read.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(services.Describe(err, err.Error()))
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, s)
	}
	return id, nil
}

func parseIDs(args []string, what string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a, what)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
