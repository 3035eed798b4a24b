package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/hubops/internal/api/http"
	"github.com/spec-kit/hubops/internal/api/http/handlers"
	"github.com/spec-kit/hubops/internal/auth"
	"github.com/spec-kit/hubops/internal/config"
	"github.com/spec-kit/hubops/internal/domain"
	"github.com/spec-kit/hubops/internal/events"
	"github.com/spec-kit/hubops/internal/files"
	"github.com/spec-kit/hubops/internal/observability"
	"github.com/spec-kit/hubops/internal/persistence"
	"github.com/spec-kit/hubops/internal/repository"
	"github.com/spec-kit/hubops/internal/repository/memory"
	"github.com/spec-kit/hubops/internal/scheduler"
	"github.com/spec-kit/hubops/internal/service"
	"github.com/spec-kit/hubops/internal/worker"
	"github.com/spec-kit/hubops/internal/workflow"
	"github.com/spec-kit/hubops/pkg/util/clock"
)

type repositories struct {
	tickets     repository.TicketRepository
	recurring   repository.RecurringTaskRepository
	departments repository.DepartmentRepository
	users       repository.UserRepository
	history     repository.TicketHistoryRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rds := persistence.NewRedis(cfg.Redis, logger)
	defer rds.Close()

	repos := buildRepositories(ctx, pg, cfg.Auth.BcryptCost, logger)

	clk := clock.System()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	engine := workflow.NewEngine(workflow.Dependencies{
		TicketRepo:     repos.tickets,
		DepartmentRepo: repos.departments,
		UserRepo:       repos.users,
		HistoryRepo:    repos.history,
		Dispatcher:     dispatcher,
		Clock:          clk,
		Logger:         logger,
	})

	ticketService := service.NewTicketService(repos.tickets, repos.history, engine)
	recurringService := service.NewRecurringTaskService(repos.recurring, repos.departments)
	authService := service.NewAuthService(cfg.Auth, repos.users, repos.departments)
	directoryService := service.NewDirectoryService(repos.departments, repos.users)
	statsService := service.NewStatsService(repos.tickets, repos.departments, rds.Client, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	sched := scheduler.New(repos.recurring, engine, scheduler.NewRedisLocker(rds.Client), cfg.Scheduler.LockTTL(), logger)
	if cfg.Scheduler.Enabled {
		worker.StartSchedulerWorker(ctx, sched, clk, cfg.Scheduler.Interval(), logger)
	}

	uploadStore, err := files.NewDiskStore(cfg.Files.Dir, cfg.Files.BaseURL)
	if err != nil {
		logger.Fatal("failed to init upload store", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), repos.users)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	app.Static(cfg.Files.BaseURL, uploadStore.Dir())

	pingers := map[string]handlers.Pinger{"redis": rds}
	if pg.PoolHandle() != nil {
		pingers["postgres"] = pg
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pingers),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, engine, repos.departments, clk),
		Recurring:      handlers.NewRecurringHandler(recurringService, repos.departments),
		Scheduler:      handlers.NewSchedulerHandler(sched, clk),
		Stats:          handlers.NewStatsHandler(statsService),
		Directory:      handlers.NewDirectoryHandler(directoryService),
		Uploads:        handlers.NewUploadsHandler(uploadStore),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

// buildRepositories wires Postgres-backed repositories, falling back to the
// in-memory set (with a seeded demo directory) when no DSN is configured.
func buildRepositories(ctx context.Context, pg *persistence.Postgres, bcryptCost int, logger *zap.Logger) repositories {
	if pool := pg.PoolHandle(); pool != nil {
		return repositories{
			tickets:     repository.NewTicketRepository(pool),
			recurring:   repository.NewRecurringTaskRepository(pool),
			departments: repository.NewDepartmentRepository(pool),
			users:       repository.NewUserRepository(pool),
			history:     repository.NewTicketHistoryRepository(pool),
		}
	}

	logger.Warn("running with in-memory repositories; data will not survive restarts")
	repos := repositories{
		tickets:     memory.NewTicketRepository(),
		recurring:   memory.NewRecurringTaskRepository(),
		departments: memory.NewDepartmentRepository(),
		users:       memory.NewUserRepository(),
		history:     memory.NewTicketHistoryRepository(),
	}
	seedDirectory(ctx, repos, bcryptCost, logger)
	return repos
}

// seedDirectory creates the demo departments and one account per role so the
// role-based login works without a database.
func seedDirectory(ctx context.Context, repos repositories, bcryptCost int, logger *zap.Logger) {
	hash, err := auth.HashPassword("password", bcryptCost)
	if err != nil {
		logger.Error("seed password hash", zap.Error(err))
	}
	for _, name := range []string{"Maintenance", "Electrical", "Plumbing"} {
		dept := &domain.Department{ID: uuid.NewString(), Name: name}
		if err := repos.departments.Create(ctx, dept); err != nil {
			logger.Error("seed department", zap.String("name", name), zap.Error(err))
			continue
		}
		deptID := dept.ID
		seedUser(ctx, repos, logger, "head."+name, hash, domain.RoleDeptHead, &deptID)
		seedUser(ctx, repos, logger, "staff."+name, hash, domain.RoleStaff, &deptID)
	}
	seedUser(ctx, repos, logger, "tenant.demo", hash, domain.RoleTenant, nil)
	seedUser(ctx, repos, logger, "gm.demo", hash, domain.RoleGM, nil)
}

func seedUser(ctx context.Context, repos repositories, logger *zap.Logger, username, passwordHash string, role domain.Role, deptID *string) {
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		DepartmentID: deptID,
	}
	if err := repos.users.Create(ctx, user); err != nil {
		logger.Error("seed user", zap.String("username", username), zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
