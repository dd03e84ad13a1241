package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/strrl/chat-history/internal/api"
	"github.com/strrl/chat-history/internal/chats"
	"github.com/strrl/chat-history/internal/config"
	"github.com/strrl/chat-history/internal/events"
	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/internal/logging"
	"github.com/strrl/chat-history/pkg/models"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile string
	baseURL    string
	logLevel   string
	source     string
	character  string
	avatar     string
	name       string
	group      string
	sort       string
}

// app is everything a command needs, built once from config and flags.
type app struct {
	cfg      *config.Config
	scope    models.Scope
	sort     chats.SortOrder
	client   *api.Client
	groups   *chats.GroupStore
	local    *chats.LocalLister
	preview  *hydrate.PreviewCache
	creation *hydrate.CreationCache
	ctrl     *chats.Controller
	bus      *events.Bus
	log      zerolog.Logger
	closers  []io.Closer
}

func loadConfig(f *globalFlags) (*config.Config, error) {
	loader := config.NewLoader()
	if f.configFile != "" {
		loader.SetConfigFile(f.configFile)
	}
	if f.baseURL != "" {
		loader.Set("server.base_url", f.baseURL)
	}
	if f.logLevel != "" {
		loader.Set("logging.level", f.logLevel)
	}
	if f.source != "" {
		loader.Set("listing.source", f.source)
	}
	return loader.Load()
}

func initLogging(cfg *config.Config) (io.Closer, error) {
	lc := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	}
	var closer io.Closer
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		lc.Output = file
		closer = file
	}
	logging.Init(lc)
	return closer, nil
}

// scopeFromFlags resolves --character/--avatar/--name/--group. A character
// without an explicit id is keyed by its avatar file name.
func scopeFromFlags(f *globalFlags) (models.Scope, error) {
	group := strings.TrimSpace(f.group)
	avatar := strings.TrimSpace(f.avatar)
	character := strings.TrimSpace(f.character)
	name := strings.TrimSpace(f.name)

	switch {
	case group != "" && (avatar != "" || character != ""):
		return models.Scope{}, fmt.Errorf("--group cannot be combined with --character or --avatar")
	case group != "":
		return models.GroupScope(group), nil
	case avatar == "" && character == "":
		return models.Scope{}, fmt.Errorf("a scope is required: pass --avatar (or --character) or --group")
	}

	if avatar == "" {
		avatar = character + ".png"
	}
	if character == "" {
		character = strings.TrimSuffix(avatar, filepath.Ext(avatar))
	}
	if name == "" {
		name = character
	}
	return models.CharacterScope(character, avatar, name), nil
}

func newApp(ctx context.Context, f *globalFlags) (*app, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	logCloser, err := initLogging(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		groups: chats.NewGroupStore(),
		bus:    events.NewBus(),
		log:    logging.Component("cli"),
	}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser)
	}

	a.scope, err = scopeFromFlags(f)
	if err != nil {
		a.Close()
		return nil, err
	}
	sortFlag := f.sort
	if sortFlag == "" {
		sortFlag = cfg.List.DefaultSort
	}
	a.sort, err = chats.ParseSortOrder(sortFlag)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.client = api.NewClient(cfg.Server.BaseURL, cfg.Server.Timeout,
		api.WithHeaders(api.StaticHeaders(cfg.Server.Headers)))

	if a.scope.Type == models.ScopeGroup {
		if err := a.groups.Refresh(ctx, a.client); err != nil {
			a.log.Warn().Err(err).Msg("could not load groups")
		}
	}

	var lister chats.Lister
	var fetcher hydrate.ChatFetcher = a.client
	switch cfg.Listing.Source {
	case "local":
		a.local = chats.NewLocalLister(cfg.Listing.LocalRoot, a.groups)
		lister = a.local
		fetcher = a.local
	default:
		lister = chats.NewHTTPLister(a.client, a.groups)
	}

	a.preview = hydrate.NewPreviewCache(fetcher, hydrate.WithGroups(a.groups))
	a.creation = hydrate.NewCreationCache(fetcher, hydrate.WithGroups(a.groups))
	a.ctrl = chats.NewController(lister, chats.NewSearchClient(a.client), a.preview, a.creation,
		chats.WithPageSize(cfg.List.PageSize),
		chats.WithScope(a.scope))

	a.log.Debug().
		Str("scope", a.scope.String()).
		Str("source", cfg.Listing.Source).
		Str("base_url", cfg.Server.BaseURL).
		Msg("app ready")
	return a, nil
}

// watch publishes file changes of the listed directory on the bus. Only
// the local source has a directory to watch.
func (a *app) watch(ctx context.Context) {
	if a.local == nil {
		return
	}
	dir := a.local.CharacterDir(a.scope)
	if a.scope.Type == models.ScopeGroup {
		dir = a.local.GroupDir()
	}
	w, err := events.NewWatcher(ctx, a.bus, dir)
	if err != nil {
		a.log.Warn().Err(err).Str("dir", dir).Msg("not watching chat directory")
		return
	}
	a.closers = append(a.closers, w)
}

// Close releases watchers and the log file.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}
