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

	"fitflow/coach-app/internal/api"
	"fitflow/coach-app/internal/coach"
	"fitflow/coach-app/internal/config"
	"fitflow/coach-app/internal/llm"
	"fitflow/coach-app/internal/repository/mongo"
	"fitflow/coach-app/internal/storage"
	"fitflow/coach-app/internal/turnlock"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting Coach App Server...")

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
		mongo.EnsureExerciseIndexes(ctx, appDB.Collection("exercise_definitions"))
		mongo.EnsureTemplateIndexes(ctx, appDB.Collection("workout_templates"))
		mongo.EnsurePlanIndexes(ctx, appDB.Collection("workout_plans"))
		mongo.EnsurePlanDayIndexes(ctx, appDB.Collection("plan_days"))
		mongo.EnsureRecipeIndexes(ctx, appDB.Collection("recipes"))
		mongo.EnsureWorkoutLogIndexes(ctx, appDB.Collection("workout_logs"))
		mongo.EnsureMessageIndexes(ctx, appDB.Collection("chat_messages"))
		log.Println("Index creation process completed.")
	}()

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	templateRepo := mongo.NewMongoTemplateRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	planDayRepo := mongo.NewMongoPlanDayRepository(appDB)
	recipeRepo := mongo.NewMongoRecipeRepository(appDB)
	workoutLogRepo := mongo.NewMongoWorkoutLogRepository(appDB)
	messageRepo := mongo.NewMongoMessageRepository(appDB)
	settingsRepo := mongo.NewMongoSettingsRepository(appDB)

	// --- Model Client ---
	log.Println("Initializing model client...")
	modelClient, err := llm.NewClient(cfg.OpenAI)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize model client: %v", err)
	}

	// --- Turn Lock ---
	var locker turnlock.Locker
	if cfg.Redis.Addr != "" {
		log.Printf("Using Redis turn lock at %s", cfg.Redis.Addr)
		locker = turnlock.NewRedisLocker(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		log.Println("Redis address not set, using in-process turn lock")
		locker = turnlock.NewLocalLocker()
	}

	// --- Audit Archive ---
	var archive storage.AuditArchive
	if cfg.S3.BucketName != "" {
		log.Println("Initializing S3 audit archive...")
		archive, err = storage.NewS3Archive(cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 archive: %v", err)
		}
	} else {
		log.Println("S3 bucket not set, turn audit archive disabled")
		archive = storage.NewNoopArchive()
	}

	// --- Core Services ---
	log.Println("Initializing services...")
	builder := coach.NewContextBuilder(exerciseRepo, templateRepo, planRepo, planDayRepo, workoutLogRepo, settingsRepo)
	staging := coach.NewStagingEngine(messageRepo)
	executor := coach.NewExecutor(messageRepo, exerciseRepo, templateRepo, planRepo, planDayRepo, recipeRepo)
	turns := coach.NewTurnService(messageRepo, builder, staging, modelClient, locker, archive)

	// --- HTTP ---
	router := gin.Default()

	log.Println("Setting up API routes...")
	coachHandler := api.NewCoachHandler(turns, staging, executor, messageRepo)
	api.SetupRoutes(router, cfg.JWT.Secret, coachHandler)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
		// A model turn streams for a while; allow generous write time.
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
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

	log.Println("Server exiting.")
}
