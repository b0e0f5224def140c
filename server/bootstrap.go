package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/auth"
	"github.com/jrsteele09/go-google-auth-backend/internal/config"
	"github.com/jrsteele09/go-google-auth-backend/internal/metrics"
	"github.com/jrsteele09/go-google-auth-backend/server/authflowrepo"
	"github.com/jrsteele09/go-google-auth-backend/sessions"
	"github.com/rs/zerolog/log"
)

// App is the assembled backend: the HTTP server plus the background work
// that keeps its stores tidy.
type App struct {
	Server  *Server
	Metrics *metrics.Metrics

	store         sessions.Store
	states        authflowrepo.Repo
	auth          *auth.Service
	sweeper       *sessions.Sweeper
	sweepInterval time.Duration
	closers       []func() error
	cancel        context.CancelFunc
	done          chan struct{}
}

// Bootstrap builds every component from configuration. Nothing is started
// until Start is called.
func Bootstrap(ctx context.Context, c config.Config) (*App, error) {
	app := &App{Metrics: metrics.New(), sweepInterval: c.GetSessionSweepInterval()}
	if app.sweepInterval <= 0 {
		app.sweepInterval = sessions.DefaultSweepInterval
	}

	store, err := app.newSessionStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("[server Bootstrap] session store: %w", err)
	}
	app.store = store
	app.states = authflowrepo.NewInMemoryRepo()

	endpoints := c.GetGoogleEndpoints()
	provider := auth.NewGoogleProvider(ctx, auth.ProviderConfig{
		ClientID:     c.GetGoogleClientID(),
		ClientSecret: c.GetGoogleClientSecret(),
		RedirectURL:  c.GetGoogleCallbackURL(),
		Scopes:       auth.DefaultScopes,
		AuthURL:      endpoints.AuthURL,
		TokenURL:     endpoints.TokenURL,
		UserInfoURL:  endpoints.UserInfoURL,
		JWKSURL:      endpoints.JWKSURL,
		Issuer:       endpoints.Issuer,
		HTTPClient:   &http.Client{Timeout: c.GetExchangeTimeout()},
	})

	app.auth, err = auth.NewService(auth.Config{
		FrontendURL:     c.GetFrontendURL(),
		StateTTL:        c.GetStateTTL(),
		ExchangeTimeout: c.GetExchangeTimeout(),
	}, provider, app.states, store, auth.WithMetrics(app.Metrics))
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("[server Bootstrap] auth service: %w", err)
	}

	app.Server, err = New(c, app.auth, store, app.Metrics)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("[server Bootstrap] server: %w", err)
	}

	app.sweeper = sessions.NewSweeper(store, app.sweepInterval, func(removed int) {
		app.Metrics.SessionsEnded("expired", removed)
	})
	return app, nil
}

func (a *App) newSessionStore(ctx context.Context, c config.Config) (sessions.Store, error) {
	switch c.GetSessionStore() {
	case config.SessionStoreRedis:
		store, err := sessions.NewRedisStore(ctx, c.GetRedisURL(), c.GetRedisKeyPrefix(), c.GetSessionTTL())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		log.Info().Str("prefix", c.GetRedisKeyPrefix()).Msg("Using redis session store")
		return store, nil
	default:
		log.Info().Msg("Using in-memory session store")
		return sessions.NewInMemoryStore(c.GetSessionTTL()), nil
	}
}

// Start launches the session sweeper and the pending-login sweep.
func (a *App) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})

	a.sweeper.Start(ctx)
	go func() {
		defer close(a.done)
		ticker := time.NewTicker(a.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := a.auth.SweepStates(); n > 0 {
					log.Debug().Int("count", n).Msg("Swept abandoned logins")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Close stops background work and releases store connections.
func (a *App) Close() error {
	if a.cancel != nil {
		a.sweeper.Stop()
		a.cancel()
		<-a.done
		a.cancel = nil
	}
	var firstErr error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
