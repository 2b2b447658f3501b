package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/todo-task-api/internal/cache"      // Redis-backed cache and rate limiter
	"github.com/iliyamo/todo-task-api/internal/config"     // Internal config loader
	"github.com/iliyamo/todo-task-api/internal/database"   // MySQL connection pool
	"github.com/iliyamo/todo-task-api/internal/handler"    // HTTP handlers
	"github.com/iliyamo/todo-task-api/internal/queue"      // Calendar sync consumer
	"github.com/iliyamo/todo-task-api/internal/repository" // SQL repositories
	"github.com/iliyamo/todo-task-api/internal/router"     // Internal router setup
)

func main() {
	// Load .env if present; in production configuration comes from the
	// real environment and a missing file is not an error.
	_ = godotenv.Load()

	cfg := config.Load()                   // Load environment config
	cacheCfg := config.LoadCacheConfig()   // Cache toggle, TTL and key prefix
	rlCfg := config.LoadRateLimitConfig()  // Per-user rate limit settings

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName) // Open the MySQL pool
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional. When the ping fails the client is nil and both
	// the cache and the limiter run in degraded mode: every read hits the
	// database and no request is throttled.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: caching and rate limiting disabled")
	}
	store := cache.NewStore(rdb)
	limiter := cache.NewLimiter(rdb, rlCfg.Prefix)
	if !cacheCfg.Enabled {
		store = cache.NewStore(nil) // explicit off switch, same degraded path
	}
	if !rlCfg.Enabled {
		limiter = cache.NewLimiter(nil, rlCfg.Prefix)
	}

	users := repository.NewUserRepo(db) // User persistence
	todos := repository.NewTodoRepo(db) // Todo persistence

	authH := handler.NewAuthHandler(cfg, users)
	todoH := handler.NewTodoHandler(todos, store, cacheCfg, cfg.UploadDir)
	calH := handler.NewCalendarHandler(users, todos)

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e, cfg.UploadDir)
	router.RegisterAuth(e, authH, cfg.JWTSecret, users)
	router.RegisterTodos(e, todoH, cfg.JWTSecret, users, limiter, rlCfg)
	router.RegisterCalendar(e, calH, cfg.JWTSecret, users)

	// The calendar consumer maintains its own broker connection and
	// reconnects forever; a broker outage never blocks HTTP startup.
	go queue.StartCalendarConsumer()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
