package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/config"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/cron"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/database"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/handlers"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/middleware"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ocr"
	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/storage"
)

func main() {
	// 1. Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Connect to PostgreSQL
	db := database.New(&cfg.DB)
	defer db.Close()

	// 3. Initialize file storage — R2 when configured, local disk otherwise
	var fileStore storage.Store
	if cfg.UseR2() {
		fileStore, err = storage.NewR2Store(cfg.R2)
		if err != nil {
			log.Fatalf("Failed to initialize R2 storage: %v", err)
		}
		log.Println("File storage: Cloudflare R2")
	} else {
		fileStore, err = storage.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize file storage: %v", err)
		}
		log.Println("File storage: local disk")
	}

	// OCR extraction is optional; the handler returns 503 when unset
	ocrClient := ocr.NewClient(cfg.OCR.Endpoint, cfg.OCR.APIKey)

	// 4. Set up router with global middleware
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 5. Initialize handlers with their dependencies
	pool := db.GetPool()
	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	crewHandler := handlers.NewCrewHandler(db)
	vesselHandler := handlers.NewVesselHandler(db)
	documentHandler := handlers.NewDocumentHandler(db, ocrClient)
	contractHandler := handlers.NewContractHandler(db)
	signOnHandler := handlers.NewSignOnHandler(db)
	dashboardHandler := handlers.NewDashboardHandler(db)
	docTypeHandler := handlers.NewDocTypeHandler()
	uploadHandler := handlers.NewUploadHandler(fileStore, cfg.Upload.Dir)
	activityHandler := handlers.NewActivityHandler(pool)
	notificationHandler := handlers.NewNotificationHandler(db)
	userHandler := handlers.NewUserManagementHandler(db)

	// Start background cron jobs
	cron.StartNotifier(db)

	// 6. Public routes (no authentication required)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("SeaCrewManager API"))
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(db.Health())
	})

	// Auth routes — public, login is rate-limited per IP
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rate.Every(3*time.Second), 5))
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Serve uploaded files (local storage redirects to R2 URLs when configured)
	r.Get("/api/files/*", uploadHandler.ServeFile)

	// 7. Protected routes (require valid JWT)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.InjectVesselScope(pool))

		// Current user profile
		r.Get("/api/auth/me", authHandler.GetMe)

		// File upload
		r.Post("/api/upload", uploadHandler.Upload)

		// Dashboard (read-only — accessible to all authenticated users)
		r.Get("/api/dashboard/metrics", dashboardHandler.GetMetrics)
		r.Get("/api/dashboard/expiring", dashboardHandler.GetExpiryAlerts)
		r.Get("/api/dashboard/fleet-summary", dashboardHandler.GetFleetSummary)
		r.Get("/api/dashboard/compliance", dashboardHandler.GetComplianceStats)

		// Notifications (user-scoped, all authenticated users)
		r.Get("/api/notifications", notificationHandler.List)
		r.Get("/api/notifications/count", notificationHandler.UnreadCount)
		r.Patch("/api/notifications/read-all", notificationHandler.MarkAllRead)
		r.Patch("/api/notifications/{id}/read", notificationHandler.MarkRead)

		// Activity log (read-only)
		r.Get("/api/activity", activityHandler.List)

		// Document type catalog
		r.Get("/api/document-types", docTypeHandler.List)

		// Vessels — list is read-only for all roles
		r.Get("/api/vessels", vesselHandler.List)

		// Read-only crew, document & contract endpoints — accessible to viewers
		r.Get("/api/crew", crewHandler.List)
		r.Get("/api/crew/export", crewHandler.Export)
		r.Route("/api/crew/{id}", func(r chi.Router) {
			r.Get("/", crewHandler.GetByID)
			r.Get("/history", crewHandler.History)
			r.Get("/sign-on/check", signOnHandler.Check)
			r.Get("/documents", documentHandler.ListByCrew)
			r.Get("/contracts", contractHandler.ListByCrew)
		})

		r.Get("/api/documents/{id}", documentHandler.GetByID)
		r.Get("/api/contracts", contractHandler.List)
		r.Get("/api/contracts/export", contractHandler.Export)

		// Write operations restricted to fleet managers and above
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("fleet_manager"))

			// Crew write operations
			r.Post("/api/crew", crewHandler.Create)
			r.Put("/api/crew/{id}", crewHandler.Update)
			r.Delete("/api/crew/{id}", crewHandler.Delete)
			r.Post("/api/crew/batch-delete", crewHandler.BatchDelete)

			// Sign-on / sign-off lifecycle
			r.Post("/api/crew/{id}/sign-on", signOnHandler.SignOn)
			r.Post("/api/crew/{id}/sign-off", signOnHandler.SignOff)

			// Document write operations (nested under crew for upsert)
			r.Post("/api/crew/{id}/documents", documentHandler.Upsert)
			r.Post("/api/crew/{id}/documents/ocr", documentHandler.OCRIntake)
			r.Post("/api/documents/batch-delete", documentHandler.BatchDelete)
			r.Put("/api/documents/{id}", documentHandler.Update)
			r.Delete("/api/documents/{id}", documentHandler.Delete)

			// Contract write operations
			r.Post("/api/crew/{id}/contracts", contractHandler.Create)
			r.Patch("/api/contracts/{id}/status", contractHandler.UpdateStatus)
		})

		// Vessel management and user administration — admin only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireMinRole("admin"))

			r.Post("/api/vessels", vesselHandler.Create)
			r.Put("/api/vessels/{id}", vesselHandler.Update)
			r.Delete("/api/vessels/{id}", vesselHandler.Delete)

			r.Get("/api/users", userHandler.List)
			r.Patch("/api/users/{id}/role", userHandler.UpdateRole)
			r.Delete("/api/users/{id}", userHandler.Delete)
			r.Get("/api/users/{id}/vessels", userHandler.GetUserVessels)
			r.Put("/api/users/{id}/vessels", userHandler.SetUserVessels)
		})
	})

	// 8. Start server with graceful shutdown
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server started on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-done
	log.Println("Server stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited properly")
}
