package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/auth"
	"github.com/matheus3301/chatsync/internal/backend"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/chat"
	"github.com/matheus3301/chatsync/internal/chats"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/logging"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/pager"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/realtime"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// initialLoadTimeout bounds the first chat list fetch after startup.
const initialLoadTimeout = 30 * time.Second

// Params holds the resolved profile and settings passed to the fx module.
type Params struct {
	Profile    profile.Profile
	Config     *config.Config
	SocketPath string // optional override for testing; empty = use the profile's
}

// LoadParams resolves the profile and reads the global config and the
// profile's .env overlay. The result is validated.
func LoadParams(home, profileFlag string) (Params, error) {
	cfg, err := config.LoadOrEmpty(profile.ConfigPath(home))
	if err != nil {
		return Params{}, fmt.Errorf("read config: %w", err)
	}
	p, err := profile.New(home, profile.Resolve(profileFlag, cfg.DefaultProfile))
	if err != nil {
		return Params{}, err
	}
	if err := cfg.ApplyEnv(p.EnvPath()); err != nil {
		return Params{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Params{}, fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return Params{Profile: p, Config: cfg}, nil
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideIdentity,
			provideBackend,
			provideStore,
			provideRealtime,
			provideRouter,
			provideSender,
			provideCursor,
			provideChatService,
			provideEngine,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(p.Profile.LogPath(), p.Profile.Name, p.Config.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := p.Profile.EnsureDirs(); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile.Name))
	l, err := lock.Acquire(p.Profile.LockPath())
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideIdentity(p Params, logger *zap.Logger) (auth.Identity, error) {
	id, err := auth.FromToken(p.Config.Token, chat.User{
		ID:     p.Config.UserID,
		Name:   p.Config.UserName,
		Avatar: p.Config.UserAvatar,
	})
	if err != nil {
		return auth.Identity{}, err
	}
	logger.Info("identity resolved", zap.String("user_id", id.ID()))
	return id, nil
}

func provideBackend(p Params, logger *zap.Logger) *backend.Client {
	return backend.New(p.Config.BackendURL, p.Config.Token, backend.WithLogger(logger))
}

func provideStore(b *bus.Bus, logger *zap.Logger) *store.Store {
	return store.New(b, logger)
}

func provideRealtime(p Params, b *bus.Bus, m *status.Machine, logger *zap.Logger) *realtime.Client {
	return realtime.New(realtime.Config{URL: p.Config.RealtimeURL, Token: p.Config.Token}, b, m, logger)
}

func provideRouter(st *store.Store, logger *zap.Logger) *intsync.Router {
	return intsync.NewRouter(st, logger)
}

func provideSender(st *store.Store, be *backend.Client, id auth.Identity, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(st, be, id, b, logger)
}

func provideCursor(p Params, st *store.Store, be *backend.Client, logger *zap.Logger) *pager.Cursor {
	return pager.NewCursor(st, be, p.Config.InitialPageSize, p.Config.PageSize, logger)
}

func provideChatService(st *store.Store, be *backend.Client, logger *zap.Logger) *chats.Service {
	return chats.NewService(st, be, logger)
}

type engineDeps struct {
	fx.In

	Params   Params
	Store    *store.Store
	Cursor   *pager.Cursor
	Sender   *outbox.Sender
	Chats    *chats.Service
	Backend  *backend.Client
	Machine  *status.Machine
	Bus      *bus.Bus
	Identity auth.Identity
	Logger   *zap.Logger
}

func provideEngine(d engineDeps) *api.Server {
	return api.NewServer(api.Deps{
		Profile:  d.Params.Profile.Name,
		Store:    d.Store,
		Cursor:   d.Cursor,
		Sender:   d.Sender,
		Chats:    d.Chats,
		Users:    d.Backend,
		Machine:  d.Machine,
		Bus:      d.Bus,
		Identity: d.Identity,
		Logger:   d.Logger,
	})
}

type lifecycleDeps struct {
	fx.In

	Server   *Server
	Lock     *lock.Lock
	Router   *intsync.Router
	Realtime *realtime.Client
	Cursor   *pager.Cursor
	Logger   *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	loadCtx, cancelLoad := context.WithCancel(context.Background())
	loaded := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Route realtime events into the store before the socket opens.
			d.Router.Start(d.Realtime)
			d.Realtime.Start(context.Background())

			go func() {
				if err := d.Server.Start(); err != nil {
					d.Logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			go func() {
				defer close(loaded)
				ctx, cancel := context.WithTimeout(loadCtx, initialLoadTimeout)
				defer cancel()
				if err := d.Cursor.LoadInitial(ctx); err != nil {
					d.Logger.Warn("initial chat list load failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancelLoad()
			<-loaded
			d.Realtime.Stop()
			d.Router.Stop()
			d.Server.Stop(ctx)
			if err := d.Lock.Release(); err != nil {
				d.Logger.Warn("error releasing lock", zap.Error(err))
			}
			d.Logger.Info("daemon stopped")
			_ = d.Logger.Sync()
			return nil
		},
	})
}
