package app

import (
	"context"
	"time"

	"saypay/pkg/db"
	"saypay/pkg/pipeline"
	"saypay/pkg/saypay"
	"saypay/pkg/services"
	"saypay/pkg/telegram"

	"github.com/go-pg/pg/v10"
	monitor "github.com/hypnoglow/go-pg-monitor"
	"github.com/labstack/echo/v4"
	"github.com/vmkteam/appkit"
	"github.com/vmkteam/embedlog"
)

const (
	cacheSweepInterval = time.Hour
	parkedFlushEvery   = time.Minute
)

type Config struct {
	Database *pg.Options
	Server   struct {
		Host    string
		Port    int
		IsDevel bool
	}
	Telegram struct {
		Token string
		Debug bool
	}
	OpenAI struct {
		Token string
	}
	Prometheus struct {
		URL string
	}
	Pipeline struct {
		MaxRecordingDuration    int // seconds
		MinTranscriptConfidence float64
		MinDraftConfidence      float64
		RequestTimeout          int // seconds
	}
}

// PipelineConfig merges configured overrides into the default policy.
func (cfg Config) PipelineConfig() pipeline.Config {
	pc := pipeline.DefaultConfig()
	if cfg.Pipeline.MaxRecordingDuration > 0 {
		pc.MaxRecordingDuration = time.Duration(cfg.Pipeline.MaxRecordingDuration) * time.Second
	}
	if cfg.Pipeline.MinTranscriptConfidence > 0 {
		pc.MinTranscriptConfidence = cfg.Pipeline.MinTranscriptConfidence
	}
	if cfg.Pipeline.MinDraftConfidence > 0 {
		pc.MinDraftConfidence = cfg.Pipeline.MinDraftConfidence
	}
	if cfg.Pipeline.RequestTimeout > 0 {
		pc.RequestTimeout = time.Duration(cfg.Pipeline.RequestTimeout) * time.Second
	}
	return pc
}

type App struct {
	embedlog.Logger
	appName string
	cfg     Config
	db      db.DB
	mon     *monitor.Monitor
	echo    *echo.Echo
	tgBot   *telegram.Bot

	saypay          *saypay.Manager
	transcriptCache *services.Cache[services.TranscriptionResult]
	draftCache      *services.Cache[services.ExtractionOutcome]
	transcriber     services.Transcriber
	extractor       services.Extractor
	voicePipeline   *pipeline.Pipeline
	apiPipeline     *pipeline.Pipeline
	voiceEnabled    bool
}

func New(ctx context.Context, appName string, sl embedlog.Logger, cfg Config, dbc db.DB) (*App, error) {
	a := &App{
		appName: appName,
		cfg:     cfg,
		db:      dbc,
		echo:    appkit.NewEcho(),
		Logger:  sl,

		saypay:          saypay.NewManager(dbc, sl),
		transcriptCache: services.NewCache[services.TranscriptionResult](services.CacheTTL, services.CacheMaxSize),
		draftCache:      services.NewCache[services.ExtractionOutcome](services.CacheTTL, services.CacheMaxSize),
	}

	switch {
	case cfg.OpenAI.Token != "":
		a.transcriber = saypay.NewWhisper(cfg.OpenAI.Token, a.transcriptCache, sl)
		a.extractor = saypay.NewGPT(cfg.OpenAI.Token, a.draftCache, sl)
		a.voiceEnabled = true
	case cfg.Server.IsDevel:
		// no credential in devel: local whisper-cli plus the heuristic parser
		sl.Print(ctx, "openai token is not set, using local transcription and heuristic extraction")
		a.transcriber = saypay.NewLocalWhisper(a.transcriptCache, sl)
		a.extractor = saypay.NewHeuristic(sl)
		a.voiceEnabled = true
	default:
		sl.Print(ctx, "openai token is not set, voice expenses are disabled")
	}

	if a.voiceEnabled {
		recorder := services.NewMockRecorder(sl) // capture happens client-side

		// Telegram asks to re-record on a poor transcript, the HTTP API warns
		// and proceeds.
		blockCfg := cfg.PipelineConfig()
		blockCfg.BlockOnLowTranscript = true
		a.voicePipeline = pipeline.New(blockCfg, recorder, a.transcriber, a.extractor, a.saypay, sl)
		a.apiPipeline = pipeline.New(cfg.PipelineConfig(), recorder, a.transcriber, a.extractor, a.saypay, sl)
	}

	if cfg.Telegram.Token != "" {
		tgBot, err := telegram.New(telegram.Config{
			Token: cfg.Telegram.Token,
			Debug: cfg.Telegram.Debug,
		}, a.saypay, a.voicePipeline, sl)
		if err != nil {
			return nil, err
		}
		a.tgBot = tgBot
	}

	return a, nil
}

// Run is a function that runs application.
func (a *App) Run(ctx context.Context) error {
	a.registerMetrics()
	a.registerHandlers()
	a.registerDebugHandlers()
	a.registerAPIHandlers()
	a.registerMetadata()
	a.restoreMetrics(ctx)

	a.transcriptCache.StartSweeper(ctx, cacheSweepInterval)
	a.draftCache.StartSweeper(ctx, cacheSweepInterval)
	a.saypay.StartParkedFlusher(ctx, parkedFlushEvery)

	// Start Telegram bot if configured
	if a.tgBot != nil {
		go func() {
			if err := a.tgBot.Start(ctx); err != nil {
				a.Error(ctx, "telegram bot error", "err", err)
			}
		}()
	}

	return a.runHTTPServer(ctx, a.cfg.Server.Host, a.cfg.Server.Port)
}

// Shutdown is a function that gracefully stops HTTP server.
func (a *App) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop Telegram bot
	if a.tgBot != nil {
		a.tgBot.Stop(ctx)
	}

	// mon is only assigned once Run registered metrics
	if a.mon != nil {
		a.mon.Close()
	}

	return a.echo.Shutdown(ctx)
}

// restoreMetrics seeds pipeline counters from Prometheus so totals keep
// continuity across restarts. Best effort, a missing Prometheus only logs.
func (a *App) restoreMetrics(ctx context.Context) {
	if a.cfg.Prometheus.URL == "" {
		return
	}

	client, err := services.NewPrometheusClient(a.cfg.Prometheus.URL, a)
	if err != nil {
		a.Error(ctx, "failed to create prometheus client", "err", err)
		return
	}

	go func() {
		qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		snapshot, err := client.RestoreMetrics(qctx)
		if err != nil {
			a.Error(qctx, "failed to restore metrics", "err", err)
			return
		}
		pipeline.RestoreMetrics(*snapshot)
		a.Print(qctx, "metrics restored from prometheus", "url", a.cfg.Prometheus.URL)
	}()
}

// registerMetadata is a function that registers meta info from service.
func (a *App) registerMetadata() {
	services := []appkit.ServiceMetadata{}
	if a.tgBot != nil {
		// Telegram bot runs asynchronously in a separate goroutine
		services = append(services, appkit.NewServiceMetadata("telegram-bot", appkit.MetadataServiceTypeAsync))
	}

	opts := appkit.MetadataOpts{
		HasPublicAPI:  true,
		HasPrivateAPI: false,
		DBs: []appkit.DBMetadata{
			appkit.NewDBMetadata(a.cfg.Database.Database, a.cfg.Database.PoolSize, false),
		},
		Services: services,
	}

	md := appkit.NewMetadataManager(opts)
	md.RegisterMetrics()

	a.echo.GET("/debug/metadata", md.Handler)
}
