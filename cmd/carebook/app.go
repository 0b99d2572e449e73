package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/carebook/pkg/auth"
	"github.com/cuemby/carebook/pkg/client"
	"github.com/cuemby/carebook/pkg/config"
	"github.com/cuemby/carebook/pkg/events"
	"github.com/cuemby/carebook/pkg/gateway"
	"github.com/cuemby/carebook/pkg/log"
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/notify"
	"github.com/cuemby/carebook/pkg/session"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run 'carebook login' first")

// app is everything a command needs, wired from config and flags
type app struct {
	cfg      *config.Config
	store    session.Store
	gw       *gateway.Gateway
	client   *client.Client
	broker   *events.Broker
	router   *nav.Router
	auth     *auth.Context
	notifier notify.Notifier
	out      io.Writer

	resolved bool
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIURL = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if cmd.Flags().Changed("log-json") {
		cfg.LogJSON, _ = cmd.Flags().GetBool("log-json")
	}
	return cfg, cfg.Validate()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log.Init(log.Config{
		Level:      log.ParseLevel(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
		Output:     cmd.ErrOrStderr(),
	})

	var store session.Store
	if ephemeral, _ := cmd.Flags().GetBool("ephemeral"); ephemeral {
		store = session.NewMemoryStore()
	} else {
		store, err = session.NewBoltStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
	}

	gw, err := gateway.New(cfg.APIURL, store,
		gateway.WithTimeout(cfg.HTTPTimeout),
		gateway.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		gateway.WithUserAgent("carebook/"+Version),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	out := cmd.OutOrStdout()
	broker := events.NewBroker()
	router := nav.NewRouter(broker, hintNavigator(out))
	broker.Start()
	router.Start()

	c := client.NewClient(gw)
	authCtx := auth.NewContext(c, store, broker)
	gw.OnSessionExpired(authCtx.Expire)

	return &app{
		cfg:      cfg,
		store:    store,
		gw:       gw,
		client:   c,
		broker:   broker,
		router:   router,
		auth:     authCtx,
		notifier: notify.NewWriterNotifier(out),
		out:      out,
	}, nil
}

// Close flushes pending navigation and closes the session store
func (a *app) Close() error {
	a.broker.Stop()
	a.router.Wait()
	return a.store.Close()
}

// resolve checks the stored session once per command
func (a *app) resolve(ctx context.Context) error {
	if a.resolved {
		return nil
	}
	if err := a.auth.Init(ctx); err != nil {
		return err
	}
	a.resolved = true
	return nil
}

// user resolves the stored session and returns the signed-in user
func (a *app) user(ctx context.Context) (*types.User, error) {
	if err := a.resolve(ctx); err != nil {
		return nil, err
	}
	if u := a.auth.User(); u != nil {
		return u, nil
	}
	return nil, errNotLoggedIn
}

// guard resolves the session and applies the route guard for route
func (a *app) guard(ctx context.Context, route nav.Route) (*types.User, error) {
	if err := a.resolve(ctx); err != nil {
		return nil, err
	}
	switch d := a.auth.Guard(route); d.Kind {
	case nav.Allow:
		return a.auth.User(), nil
	case nav.Redirect:
		if d.To == nav.RouteLogin {
			return nil, errNotLoggedIn
		}
		return nil, fmt.Errorf("not available for %s accounts", a.auth.Snapshot().Role().Label())
	default:
		return nil, fmt.Errorf("session is still resolving")
	}
}

// run wraps a command body with app setup, signal handling and teardown
func run(fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = fn(ctx, a, cmd, args)
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	}
}

// hintNavigator turns navigation into a suggestion for the next command
func hintNavigator(w io.Writer) nav.Navigator {
	hints := map[nav.Route]string{
		nav.RouteLogin:             "carebook login",
		nav.RouteClientDashboard:   "carebook providers, carebook appointments list",
		nav.RouteProviderDashboard: "carebook appointments list, carebook services list",
		nav.RouteAdmin:             "carebook whoami",
	}
	return nav.NavigatorFunc(func(to nav.Route) {
		if hint, ok := hints[to]; ok {
			fmt.Fprintf(w, "→ next: %s\n", hint)
		}
	})
}
