package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"

	api "github.com/quizdeck/quizdeck-api/internal/api/http"
	auth "github.com/quizdeck/quizdeck-api/internal/auth/middleware"
	"github.com/quizdeck/quizdeck-api/internal/config"
	"github.com/quizdeck/quizdeck-api/internal/db"
	"github.com/quizdeck/quizdeck-api/internal/grading"
	"github.com/quizdeck/quizdeck-api/internal/quiz"
	rediscache "github.com/quizdeck/quizdeck-api/internal/quiz/cache/redis"
	"github.com/quizdeck/quizdeck-api/internal/rbac"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := quiz.NewSQLStore(dbh, cfg.DBDriver)

	if err := api.SeedAdmin(dbh, cfg.AdminUser, cfg.AdminPassHash); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	// --- Question-pool cache ---
	var cache quiz.PoolCache
	if cfg.RedisAddr != "" {
		rc := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PoolCacheTTL)
		if err := rc.Ping(ctx); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		cache = rc
	} else {
		cache = quiz.NewMemoryPoolCache(cfg.PoolCacheTTL)
	}

	// --- Engine ---
	builder := quiz.NewBuilder(store, quiz.WithCache(cache))
	grader := grading.NewDefaultGrader()
	tracker := quiz.NewTracker(store, builder, grader)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", api.LoginHandler(dbh, authSvc))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeDev))

		// Question read contract + admin ingest
		pr.With(rbac.Require("question:manage")).
			Post("/questions", api.PutQuestionHandler(store))
		pr.With(rbac.Require("question:view")).
			Get("/questions", api.ListQuestionsHandler(store))
		pr.With(rbac.Require("question:view")).
			Get("/questions/{questionID}", api.GetQuestionHandler(store))

		// Resumable cycle flow
		pr.Route("/quizzes/{quizType}", func(qr chi.Router) {
			qr.With(rbac.Require("quiz:play")).
				Post("/session", api.StartSessionHandler(tracker))
			qr.With(rbac.Require("quiz:play")).
				Post("/session/answer", api.SubmitAnswerHandler(tracker))
			qr.With(rbac.Require("quiz:play")).
				Post("/session/advance", api.AdvanceHandler(tracker))
			qr.With(rbac.Require("quiz:play")).
				Post("/session/final", api.FinalSubmitHandler(tracker))
			qr.With(rbac.RequireAny("quiz:review-own", "quiz:review-all")).
				Get("/history", api.HistoryHandler(tracker))
			qr.With(rbac.RequireAny("quiz:review-own", "quiz:review-all")).
				Get("/history/{cycle}/review", api.ReviewHandler(tracker))
		})

		// Learner accounts (admin)
		pr.With(rbac.Require("users:manage")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:manage")).
			Get("/users", api.ListUsersHandler(dbh))

		// Mock-exam flow
		pr.With(rbac.Require("exam:start")).
			Post("/exams", api.StartExamHandler(builder))
		pr.With(rbac.Require("exam:start")).
			Get("/exams/{sessionID}", api.GetExamSessionHandler(store))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
