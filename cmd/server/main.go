package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/api/handlers"
	"github.com/postdeckhq/postdeck/internal/api/middleware"
	"github.com/postdeckhq/postdeck/internal/jobs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/queue"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/scheduler"
	"github.com/postdeckhq/postdeck/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "something went wrong",
				"code":  "internal",
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	destinationRepo := repository.NewDestinationRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	teamRepo := repository.NewTeamRepository(db)

	taskQueue := queue.NewAsynqQueue(client, inspector)

	storageService := service.NewStorageService(*cfg)
	authService := service.NewAuthService(*cfg, userRepo, sessionRepo)
	userService := service.NewUserService(userRepo)
	postService := service.NewPostService(db, postRepo, destinationRepo, socialAccountRepo, mediaAssetRepo, postMediaRepo)
	accountService := service.NewAccountService(*cfg, socialAccountRepo)
	instagramService := service.NewInstagramService(*cfg, socialAccountRepo)
	tiktokService := service.NewTiktokService(*cfg, socialAccountRepo)
	youtubeService := service.NewYoutubeService(*cfg, socialAccountRepo)
	mediaService := service.NewMediaService(mediaAssetRepo, storageService)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	teamService := service.NewTeamService(teamRepo, userRepo)

	schedulerService := scheduler.NewService(postRepo, destinationRepo, taskQueue)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Post("/logout", auth.Logout)

	account := handlers.NewAccountHandler(*cfg, accountService, instagramService, tiktokService, youtubeService)
	app.Get("/auth/:platform", account.AddSocialAccount)
	app.Get("/auth/:platform/callback", account.CallbackHandler)

	api := app.Group("/api")
	api.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
				"code":  "rate_limited",
			})
		},
	}))
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Delete("/user", user.RemoveUser)

	apiKeys := handlers.NewKeysHandler(apiKeyService)
	api.Post("/api_keys", apiKeys.CreateAPIKey)
	api.Get("/api_keys", apiKeys.ListAPIKeys)
	api.Delete("/api_keys/:id", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, schedulerService)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Delete("/posts/:id", post.RemovePost)
	api.Post("/posts/:id/schedule", post.SchedulePost)
	api.Post("/posts/:id/reschedule", post.ReschedulePost)
	api.Post("/posts/:id/post-now", post.PostNow)
	api.Post("/posts/:id/cancel", post.CancelPost)
	api.Post("/posts/:id/approval", post.SetApproval)
	api.Get("/calendar", post.Calendar)
	api.Get("/analytics", post.Analytics)

	api.Get("/accounts", account.ListSocialAccounts)
	api.Delete("/accounts/:id", account.DeleteSocialAccount)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media", media.Upload)
	api.Get("/media", media.List)
	api.Delete("/media/:id", media.Remove)

	team := handlers.NewTeamHandler(teamService)
	api.Get("/team", team.List)
	api.Post("/team/invite", team.Invite)
	api.Delete("/team/:id", team.Remove)

	// maintenance jobs
	tokenExpiryJob := jobs.NewTokenExpiryJob(socialAccountRepo, taskQueue)
	mediaSweepJob := jobs.NewMediaSweepJob(mediaAssetRepo, storageService)
	sessionSweepJob := jobs.NewSessionSweepJob(sessionRepo)

	internal := app.Group("/internal")
	internal.Use(middleware.CronAuth(cfg.CronSecret))

	cronHandler := handlers.NewCronHandler(tokenExpiryJob, mediaSweepJob, sessionSweepJob)
	internal.Post("/cron/token-refresh", cronHandler.TokenRefresh)
	internal.Post("/cron/media-sweep", cronHandler.MediaSweep)
	internal.Post("/cron/session-sweep", cronHandler.SessionSweep)
	internal.Post("/posts/:id/retry", post.RetryPost)

	publishers := map[string]queue.Publisher{
		models.PlatformTiktok:    tiktokService,
		models.PlatformInstagram: instagramService,
		models.PlatformYoutube:   youtubeService,
	}
	worker := queue.NewWorker(postRepo, destinationRepo, socialAccountRepo, postMediaRepo, mediaAssetRepo, publishers, cfg.WorkerConcurrency)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", func() { runJob("token expiry scan", tokenExpiryJob) })
	c.AddFunc("@every 24h00m00s", func() { runJob("media sweep", mediaSweepJob) })
	c.AddFunc("@every 01h00m00s", func() { runJob("session sweep", sessionSweepJob) })
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, worker.HandlePublishPostTask)
		mux.HandleFunc(queue.TaskTypeRefreshToken, worker.HandleRefreshTokenTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, db)
}

type maintenanceJob interface {
	Run(ctx context.Context) (int, error)
}

func runJob(name string, j maintenanceJob) {
	if _, err := j.Run(context.Background()); err != nil {
		log.Printf("%s failed: %v", name, err)
	}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
