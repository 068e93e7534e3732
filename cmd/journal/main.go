// Package main - точка входа классного журнала Aula Classroom Hub.
//
// Журнал ведёт посещаемость и записи занятий:
// - Импорт и экспорт списков групп
// - Открытие занятия с автосохранением каждые 2 минуты
// - Пересчёт статистики посещаемости из сохранённых занятий
// - Резервное копирование и восстановление хранилища
//
// Команды:
//
//	journal serve                       - фоновый режим с планировщиком
//	journal import-roster <file>        - импорт групп из JSON-файла
//	journal export-roster <file>        - экспорт групп в JSON-файл
//	journal backup <file>               - резервная копия хранилища
//	journal restore <file>              - восстановление из копии
//	journal stats [group]               - статистика посещаемости
//	journal report <group> <date>       - экспорт отчёта занятия
//	journal errors                      - последние записи журнала ошибок
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aula-hub/aula-classroom-hub/config"
	"github.com/aula-hub/aula-classroom-hub/internal/application/editor"
	"github.com/aula-hub/aula-classroom-hub/internal/application/query"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/roster"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/shared"
	"github.com/aula-hub/aula-classroom-hub/internal/domain/statistics"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/files"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/messaging"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/persistence/kvstore"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/scheduler"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/scheduler/jobs"
	"github.com/aula-hub/aula-classroom-hub/internal/infrastructure/service"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// app объединяет собранные компоненты журнала.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *kvstore.Store
	bus      *messaging.EventBus
	registry *roster.Registry
	sessions *persistence.SessionRepository
	profile  *service.ProfileService
	reporter *service.ErrorReporter
	editor   *editor.Editor
	stats    *query.StatisticsQuery
	sched    *scheduler.Scheduler
}

func run(ctx context.Context, args []string) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting Aula Classroom Hub",
		"env", cfg.App.Environment,
		"backend", cfg.Storage.Backend,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("closing storage backend", "error", err)
		}
	}()

	store := kvstore.New(backend, kvstore.Config{
		Namespace:  cfg.Storage.Namespace,
		QuotaBytes: cfg.Storage.QuotaBytes,
		Logger:     log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 3. СОБЫТИЯ, РЕПОЗИТОРИИ, ДОМЕННЫЕ СЛУЖБЫ
	// ─────────────────────────────────────────────────────────────────────────
	bus := messaging.NewEventBus(log)
	defer bus.Close()

	sessionRepo := persistence.NewSessionRepository(store, log)
	rosterRepo := persistence.NewRosterRepository(store, log)
	profileRepo := persistence.NewProfileRepository(store)
	errorLogRepo := persistence.NewErrorLogRepository(store)

	registry := roster.NewRegistry(rosterRepo, bus, log)
	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	reporter := service.NewErrorReporter(errorLogRepo, service.NopNotifier{}, log)
	profile := service.NewProfileService(profileRepo)
	engine := statistics.NewEngine(sessionRepo, bus, log)
	statsQuery := query.NewStatisticsQuery(engine, log)
	if err := bus.Subscribe(shared.EventSessionSaved, statsQuery.RebuildOnSave()); err != nil {
		return fmt.Errorf("failed to subscribe statistics rebuild: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ПЛАНИРОВЩИК И РЕДАКТОР ЗАНЯТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(log)
	autosave := jobs.NewAutosaveControl(sched)

	ed := editor.New(editor.Config{
		Sessions:  sessionRepo,
		Roster:    registry,
		Reporter:  reporter,
		Publisher: bus,
		Autosave:  autosave,
		Logger:    log,
	})
	defer ed.Close()

	if cfg.Scheduler.Enabled {
		job := jobs.NewAutosaveJob(ed, log)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(cfg.Scheduler.AutosaveInterval)); err != nil {
			return fmt.Errorf("failed to register autosave job: %w", err)
		}
	}

	application := &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		bus:      bus,
		registry: registry,
		sessions: sessionRepo,
		profile:  profile,
		reporter: reporter,
		editor:   ed,
		stats:    statsQuery,
		sched:    sched,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. КОМАНДА
	// ─────────────────────────────────────────────────────────────────────────
	command := "serve"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	return application.dispatch(ctx, command, args)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "serve":
		return a.serve(ctx)
	case "import-roster":
		return a.importRoster(ctx, args)
	case "export-roster":
		return a.exportRoster(args)
	case "backup":
		return a.backup(ctx, args)
	case "restore":
		return a.restore(ctx, args)
	case "stats":
		return a.showStats(ctx, args)
	case "report":
		return a.exportReport(ctx, args)
	case "errors":
		return a.showErrors(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// serve запускает планировщик и ждёт сигнала завершения.
func (a *app) serve(ctx context.Context) error {
	if a.cfg.Scheduler.Enabled {
		if err := a.sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer a.sched.Stop()
	}

	a.log.Info("Aula Classroom Hub is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		a.log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
	}

	a.log.Info("shutdown completed")
	return nil
}

func (a *app) importRoster(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: journal import-roster <file>")
	}

	groups, err := files.ReadRoster(args[0])
	if err != nil {
		a.reporter.Report(ctx, "import-roster", err)
		return err
	}

	report, err := a.registry.ImportGroups(ctx, groups)
	if err != nil {
		a.reporter.Report(ctx, "import-roster", err)
		return err
	}

	a.log.Info("roster imported",
		"groups", report.GroupCount,
		"students", report.StudentCount,
		"skipped", len(report.Skipped),
	)
	for _, skipped := range report.Skipped {
		fmt.Printf("skipped %s (%s): %s\n", skipped.Name, skipped.Group, skipped.Reason)
	}
	return nil
}

func (a *app) exportRoster(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: journal export-roster <file>")
	}
	return files.WriteRoster(args[0], a.registry.ExportGroups())
}

func (a *app) backup(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: journal backup <file>")
	}

	backup, err := a.store.CreateBackup(ctx)
	if err != nil {
		a.reporter.Report(ctx, "backup", err)
		return err
	}
	return files.WriteBackup(args[0], backup)
}

func (a *app) restore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: journal restore <file>")
	}

	backup, err := files.ReadBackup(args[0])
	if err != nil {
		a.reporter.Report(ctx, "restore", err)
		return err
	}
	if err := a.store.RestoreFromBackup(ctx, backup); err != nil {
		a.reporter.Report(ctx, "restore", err)
		return err
	}

	// Восстановленные группы должны попасть в реестр.
	return a.registry.Load(ctx)
}

func (a *app) showStats(ctx context.Context, args []string) error {
	if len(args) > 0 {
		summary, err := a.stats.Group(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(summary)
	}

	snapshot, err := a.stats.All(ctx)
	if err != nil {
		return err
	}
	return printJSON(snapshot)
}

func (a *app) exportReport(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: journal report <group> <date>")
	}
	group, date := args[0], args[1]

	loaded, err := a.sessions.Load(ctx, group, date)
	if err != nil {
		a.reporter.Report(ctx, "report", err)
		return err
	}

	teacherName, err := a.profile.TeacherName(ctx)
	if err != nil {
		teacherName = ""
	}

	exporter := service.JSONReportExporter{}
	filename := service.ReportFilename(group, date, exporter.FileExtension())

	out, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer out.Close()

	if err := exporter.Export(out, service.BuildReport(teacherName, loaded)); err != nil {
		return err
	}

	a.log.Info("report exported", "file", filename)
	return nil
}

func (a *app) showErrors(ctx context.Context) error {
	entries, err := a.reporter.Recent(ctx)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func newBackend(ctx context.Context, cfg *config.Config) (kvstore.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return kvstore.NewMemoryBackend(), nil

	case config.BackendFile:
		return kvstore.NewFileBackend(cfg.Storage.FilePath)

	case config.BackendRedis:
		return kvstore.NewRedisBackend(kvstore.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			MaxRetries:   cfg.Redis.MaxRetries,
		})

	case config.BackendPostgres:
		return kvstore.NewPostgresBackend(ctx, kvstore.PostgresConfig{
			URL:            cfg.Database.URL,
			MaxConns:       int32(cfg.Database.MaxConns),
			ConnectTimeout: cfg.Database.ConnectTimeout,
			MaxRetries:     cfg.Database.MaxRetries,
		})

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" && !cfg.IsDevelopment() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
