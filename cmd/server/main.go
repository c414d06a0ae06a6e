package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/medcontrol/backend/internal/config"
	"github.com/medcontrol/backend/internal/handlers"
	appMiddleware "github.com/medcontrol/backend/internal/middleware"
	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/profile"
	"github.com/medcontrol/backend/internal/services"
)

// profileStore is what every document store backend offers.
type profileStore interface {
	handlers.ProfileDocuments
	SetDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error
}

// identityBackend is what the profile screen and the session middleware need.
type identityBackend interface {
	profile.Identity
	appMiddleware.UserLookup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := newMailer(cfg)

	var app *firebase.App
	if cfg.IdentityBackend == config.IdentityFirebase {
		app, err = services.NewFirebaseApp(ctx, services.FirebaseConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
			StorageBucket:   cfg.FirebaseStorageBucket,
		})
		if err != nil {
			log.Fatalf("Firebase: %v", err)
		}
	}

	store, closeStore, err := newProfileStore(ctx, cfg, app)
	if err != nil {
		log.Fatalf("Profile store: %v", err)
	}
	defer closeStore()

	var (
		identity   identityBackend
		resolver   appMiddleware.SessionResolver
		local      handlers.LocalAccounts
		fbSessions handlers.FirebaseSessions
	)
	switch cfg.IdentityBackend {
	case config.IdentityFirebase:
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatalf("Firebase Auth: %v", err)
		}
		var avatars *services.AvatarStorage
		if cfg.FirebaseStorageBucket != "" {
			if avatars, err = services.NewAvatarStorageFromApp(ctx, app); err != nil {
				log.Printf("Warning: avatar cleanup disabled: %v", err)
			}
		}
		fb := services.NewFirebaseIdentityService(authClient, mailer, avatars, strings.TrimRight(cfg.PublicBaseURL, "/")+"/login")
		identity, fbSessions = fb, fb
		resolver = &appMiddleware.FirebaseSessionResolver{Verifier: fb, Users: fb, Timeout: cfg.RequestTimeout}
	default:
		mem := services.NewMemoryIdentityService(mailer, cfg.PublicBaseURL)
		if err := seedLocalUsers(ctx, cfg, mem, store); err != nil {
			log.Fatalf("Seed users: %v", err)
		}
		identity, local = mem, mem
		resolver = &appMiddleware.LocalSessionResolver{Secret: cfg.JWTSecret, Users: mem}
	}

	screens := handlers.NewScreenRegistry(func(nav profile.Navigator) *profile.Screen {
		return profile.NewScreen(identity, store, nav)
	}, cfg.ScreenIdleTimeout)
	go screens.Run(ctx)

	sessionCfg := handlers.SessionConfig{
		JWTSecret:     cfg.JWTSecret,
		JWTExpiration: cfg.JWTExpiration,
		CookieTTL:     cfg.SessionCookieTTL,
		Timeout:       cfg.RequestTimeout,
	}
	sessionHandler := handlers.NewLocalSessionHandler(local, screens, sessionCfg)
	if verifier := services.NewRecaptchaVerifier(cfg.RecaptchaSecret, cfg.RecaptchaSiteKey); verifier != nil {
		sessionHandler.WithChallenge(verifier)
	}
	if fbSessions != nil {
		sessionHandler = handlers.NewFirebaseSessionHandler(fbSessions, screens, sessionCfg)
	}
	profileHandler := handlers.NewProfileHandler(screens, cfg.RequestTimeout)
	apiHandler := handlers.NewProfileAPIHandler(identity, store, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(appMiddleware.Session(resolver))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/profile", http.StatusSeeOther)
	})

	r.Get("/login", sessionHandler.ShowLogin)
	r.Post("/login", sessionHandler.Login)
	r.Post("/session", sessionHandler.CreateSession)
	r.Post("/logout", sessionHandler.Logout)
	r.Get("/reset", sessionHandler.ShowReset)
	r.Post("/reset", sessionHandler.ResetPassword)

	r.Get("/profile", profileHandler.Show)
	r.Post("/profile/{action}", profileHandler.Action)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireUser)

			r.Get("/profile", apiHandler.GetProfile)
			r.Put("/profile", apiHandler.UpdateProfile)
			r.Delete("/profile", apiHandler.DeleteProfile)
			r.Post("/profile/password-reset", apiHandler.SendPasswordReset)
		})
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Profile server starting on %s (identity=%s store=%s)", cfg.ServerAddress, cfg.IdentityBackend, cfg.ProfileStore)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func newMailer(cfg *config.Config) services.ResetMailer {
	if cfg.SendGridAPIKey == "" {
		log.Printf("Warning: SENDGRID_API_KEY not set, reset links are only logged")
		return services.LogMailer{}
	}
	return services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.ResetFromEmail)
}

func newProfileStore(ctx context.Context, cfg *config.Config, app *firebase.App) (profileStore, func(), error) {
	switch cfg.ProfileStore {
	case config.StoreFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		svc := services.NewFirestoreProfileService(client)
		return svc, func() { _ = svc.Close() }, nil
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		svc, err := services.NewMongoProfileService(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = svc.Close(closeCtx)
		}, nil
	default:
		svc, err := services.NewJSONProfileService(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() {}, nil
	}
}

// seedLocalUsers registers LOCAL_USERS with the memory backend and makes sure
// each has a profile document to update.
func seedLocalUsers(ctx context.Context, cfg *config.Config, mem *services.MemoryIdentityService, store profileStore) error {
	users, err := cfg.ParseLocalUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		created, err := mem.Register(&models.RegisterRequest{
			Email:       u.Email,
			Password:    u.Password,
			DisplayName: u.DisplayName,
		})
		if err != nil {
			return err
		}
		if err := store.SetDocument(ctx, models.UsersCollection, created.ID, map[string]interface{}{
			models.FieldDisplayName: created.DisplayName,
			"email":                 created.Email,
		}); err != nil {
			return err
		}
		log.Printf("[Seed] user=%s email=%s", created.ID, created.Email)
	}
	return nil
}
