package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhttp "github.com/microblog-go/microblog/internal/auth/http"
	authservice "github.com/microblog-go/microblog/internal/auth/service"
	"github.com/microblog-go/microblog/internal/auth/session"
	blghttp "github.com/microblog-go/microblog/internal/blog/http"
	"github.com/microblog-go/microblog/internal/common/clock"
	"github.com/microblog-go/microblog/internal/common/config"
	"github.com/microblog-go/microblog/internal/common/constants"
	commoncrypto "github.com/microblog-go/microblog/internal/common/crypto"
	"github.com/microblog-go/microblog/internal/common/db"
	commonhttp "github.com/microblog-go/microblog/internal/common/http"
	"github.com/microblog-go/microblog/internal/common/logger"
	postrepo "github.com/microblog-go/microblog/internal/post/repository"
	postservice "github.com/microblog-go/microblog/internal/post/service"
	userdomain "github.com/microblog-go/microblog/internal/user/domain"
	userrepo "github.com/microblog-go/microblog/internal/user/repository"
	"github.com/microblog-go/microblog/internal/web"
)

// App holds the wired application. Close releases the storage pool.
type App struct {
	Config  config.AppConfig
	Log     *logger.Logger
	Pool    *pgxpool.Pool
	Users   userrepo.Repository
	Posts   postrepo.Repository
	Handler http.Handler
}

// Options overrides collaborators that are normally derived from config.
type Options struct {
	Clock clock.Clock
}

func New(ctx context.Context, cfg config.AppConfig, log *logger.Logger, opts Options) (*App, error) {
	app := &App{Config: cfg, Log: log}
	if err := app.initStorage(ctx); err != nil {
		return nil, err
	}

	c := opts.Clock
	if c == nil {
		c = clock.NewRealClock()
	}

	hasher, err := newHasher(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	ids := commoncrypto.NewUUIDGenerator()
	credentials := authservice.NewCredentialStore(hasher, cfg.AvatarHost)
	auth := authservice.NewAuthService(authservice.AuthServiceDeps{
		Repo:        app.Users,
		Credentials: credentials,
		IDGenerator: ids,
		Clock:       c,
		Log:         log,
	})
	posts := postservice.NewPostService(app.Posts, ids, c, log)
	resolver := authservice.NewIdentityResolver(app.Users, c, log, authservice.IdentityResolverConfig{
		LivenessTimeout: cfg.LivenessTimeout,
	})
	sessions := session.NewManager(session.Config{
		Secret:        cfg.SessionSecret,
		TTL:           cfg.SessionTTL,
		RememberMeTTL: cfg.RememberMeTTL,
		Secure:        cfg.CookieSecure,
	}, c)

	renderer, err := web.NewRenderer(log, credentials)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	eh := commonhttp.NewErrorHandler(log, renderer.ErrorPage)
	identity := authhttp.NewIdentityMiddleware(sessions, resolver, eh, log)

	mux := http.NewServeMux()
	authhttp.NewHandler(auth, sessions, identity, renderer, eh, log).Routes(mux)
	blghttp.NewHandler(auth, posts, identity, renderer, eh).Routes(mux)
	mux.Handle("GET /health", commonhttp.HealthHandler(log, app.healthDeps()))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		renderer.ErrorPage(w, r, http.StatusNotFound, "File Not Found")
	})

	app.Handler = commonhttp.BuildBaseHandler(log, eh, cfg.RequestTimeout, mux)
	return app, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.Config.StorageDriver {
	case config.StorageDriverMemory:
		users := userrepo.NewMemoryRepository()
		a.Users = users
		a.Posts = postrepo.NewMemoryRepository(func(ctx context.Context, id userdomain.ID) (bool, error) {
			_, err := users.FindBy(ctx, userrepo.FieldID, string(id))
			if errors.Is(err, userrepo.ErrUserNotFound) {
				return false, nil
			}
			return err == nil, err
		})
		a.Log.Warn("using in-memory storage; data is lost on restart")
		return nil

	case config.StorageDriverPostgres:
		pool, err := db.NewPool(ctx, a.Log, a.Config.DatabaseURL)
		if err != nil {
			return err
		}
		if a.Config.AutoMigrate {
			if err := db.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return err
			}
			a.Log.Info("database schema ensured")
		}
		db.StartPoolMetrics(ctx, pool, constants.DBPoolMetricsInterval)
		a.Pool = pool
		a.Users = userrepo.NewPgRepository(pool)
		a.Posts = postrepo.NewPgRepository(pool)
		return nil
	}
	return fmt.Errorf("unknown storage driver %q", a.Config.StorageDriver)
}

func (a *App) healthDeps() map[string]commonhttp.Pinger {
	if a.Pool == nil {
		return nil
	}
	return map[string]commonhttp.Pinger{"database": a.Pool}
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

func newHasher(cfg config.AppConfig) (commoncrypto.PasswordHasher, error) {
	switch cfg.PasswordHasher {
	case config.PasswordHasherBcrypt, "":
		return commoncrypto.NewBcryptHasher(cfg.BcryptCost), nil
	case config.PasswordHasherArgon2id:
		return commoncrypto.NewArgon2idHasher(commoncrypto.DefaultArgon2idParams()), nil
	}
	return nil, fmt.Errorf("unknown password hasher %q", cfg.PasswordHasher)
}
