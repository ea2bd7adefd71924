package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"habitloop/habit-app/internal/api"
	"habitloop/habit-app/internal/coaching"
	"habitloop/habit-app/internal/config"
	"habitloop/habit-app/internal/notify"
	"habitloop/habit-app/internal/progress"
	"habitloop/habit-app/internal/repository/mongo"
	"habitloop/habit-app/internal/service"

	"github.com/gin-gonic/gin"
)

// @title Habit Coaching API
// @version 1.0
// @description API for activities, plans, entry logging, plan progress and adaptive coaching.
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Habit App Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureActivityIndexes(ctx, appDB.Collection("activities"))
		mongo.EnsurePlanIndexes(ctx, appDB.Collection("plans"))
		mongo.EnsureSessionIndexes(ctx, appDB.Collection("sessions"))
		mongo.EnsureEntryIndexes(ctx, appDB.Collection("entries"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	activityRepo := mongo.NewMongoActivityRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	entryRepo := mongo.NewMongoEntryRepository(appDB)

	// --- Initialize Progress Engine and Cache ---
	log.Println("Initializing progress engine...")
	engine := progress.NewEngine(progress.Thresholds{
		HabitWeeks:     cfg.Coaching.HabitWeeks,
		LifestyleWeeks: cfg.Coaching.LifestyleWeeks,
	})
	cache := progress.NewCache(engine, entryRepo, sessionRepo)

	// --- Initialize Coaching Components ---
	log.Println("Initializing coaching components...")
	generator := coaching.NewTemplateGenerator()
	dispatcher := notify.NewLogDispatcher()
	adjuster := coaching.NewAdjuster(planRepo, generator, cfg.Coaching.TargetDecrement)
	scheduler := coaching.NewScheduler(planRepo, generator, dispatcher, cfg.Coaching.FollowUpMinDelay, cfg.Coaching.FollowUpMaxDelay)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	activityService := service.NewActivityService(activityRepo, cache)
	planService := service.NewPlanService(planRepo, activityRepo, sessionRepo, cache)
	entryService := service.NewEntryService(entryRepo, activityRepo, planRepo, userRepo, cache, adjuster, scheduler)
	progressService := service.NewProgressService(planRepo, userRepo, cache)

	// --- Initialize Gin Engine ---
	router := gin.Default() // Includes Logger and Recovery middleware

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, activityService, planService, entryService, progressService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	// Pending coaching follow-ups are cancelled, in-flight ones finish.
	scheduler.Shutdown()

	log.Println("Server exiting.")
}
