package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/lumen-journal/lumen-backend/internal/config"
	"github.com/lumen-journal/lumen-backend/internal/database"
	"github.com/lumen-journal/lumen-backend/internal/handlers"
	"github.com/lumen-journal/lumen-backend/internal/middleware"
	"github.com/lumen-journal/lumen-backend/internal/routes"
	"github.com/lumen-journal/lumen-backend/internal/services"
	"github.com/lumen-journal/lumen-backend/pkg/utils"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	// Check encryption key (warn if not set, but don't fail)
	if cfg.EncryptionKey == "" {
		log.Println("⚠️  WARNING: ENCRYPTION_KEY not set. Recovery email encryption will not work.")
		log.Println("   To generate a key, run: openssl rand -base64 32")
	} else if _, err := utils.GetEncryptionKey(); err != nil {
		log.Printf("⚠️  WARNING: ENCRYPTION_KEY is invalid: %v", err)
		log.Println("   Key must be base64-encoded 32 bytes. Generate with: openssl rand -base64 32")
	} else {
		log.Println("✅ Encryption key configured")
	}

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Connect to MongoDB (mask credentials in the log)
	log.Printf("Connecting to MongoDB...")
	if cfg.MongoURI != "" {
		maskedURI := cfg.MongoURI
		if at := strings.Index(maskedURI, "@"); at > 0 {
			if colon := strings.LastIndex(maskedURI[:at], ":"); colon > 0 {
				maskedURI = maskedURI[:colon+1] + "***" + maskedURI[at:]
			}
		}
		log.Printf("MongoDB URI: %s", maskedURI)
	}
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	// Ensure MongoDB indexes
	ctx := context.Background()
	if err := services.EnsureJournalIndexes(ctx); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure journal indexes: %v", err)
	}
	if err := services.EnsureCoachIndexes(ctx); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure coach indexes: %v", err)
	}
	if err := services.EnsurePulseIndexes(ctx); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure pulse indexes: %v", err)
	}
	log.Println("✅ MongoDB indexes ensured")

	// Cloudinary (attachment uploads)
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		if err := handlers.InitCloudinaryService(cfg); err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Attachment uploads will not be available")
		} else {
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Attachment uploads will not be available")
	}

	// LLM gateway client (coach + insights)
	if cfg.LLMAPIKey != "" {
		llm, err := services.NewLLMClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMMaxTokens, cfg.LLMTimeout)
		if err != nil {
			log.Printf("Warning: Failed to initialize LLM client: %v", err)
		} else {
			handlers.InitCoachService(llm, cfg.CoachPersona)
			handlers.InitInsightService(llm)
			log.Printf("✅ LLM gateway client initialized (model %s)", cfg.LLMModel)
		}
	} else {
		log.Println("Warning: LLM_API_KEY not set. Coaching and insights will not be available")
	}

	// AWS SNS push relay + SES recovery email
	if cfg.SNSPlatformARN != "" {
		push, err := services.NewPushService(ctx, cfg.AWSRegion, cfg.SNSPlatformARN)
		if err != nil {
			log.Printf("Warning: Failed to initialize SNS push relay: %v", err)
		} else {
			handlers.InitPushService(push)
			log.Println("✅ SNS push relay initialized")
			if cfg.RemindersEnabled {
				services.StartReminderLoop(push)
			}
		}
	} else {
		log.Println("Warning: SNS_PLATFORM_ARN not set. Push notifications will not be available")
	}
	if cfg.SESFromEmail != "" {
		email, err := services.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail)
		if err != nil {
			log.Printf("Warning: Failed to initialize SES: %v", err)
		} else {
			handlers.InitEmailService(email)
			log.Println("✅ SES email service initialized")
		}
	} else {
		log.Println("Warning: SES_FROM_EMAIL not set. Account recovery email will not be available")
	}

	// Redis pub/sub fan-out for per-user events (sync, insights)
	services.StartUserEventSubscriber(ctx)
	log.Println("✅ User event subscriber started")

	// Setup router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Production: full security chain plus the LLM route limiter.
	// Non-production: Redis-based rate limit only.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		r.Use(middleware.LLMRateLimit)
		log.Println("✅ Production security enabled (security headers, host check, per-IP + login + LLM rate limiting)")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r)

	log.Printf("🚀 Lumen Journal backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
