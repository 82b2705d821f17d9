/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers and decides which
  role may reach each of them.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the web client
  Per group:
  5. Authenticate: bearer token -> portal.Actor on the context (401)
  6. RequireRole:  role gate (403)

ROUTE GROUPS:
  /api/status                   public
  /api/users/login              public
  /api/users/superadmin         public, only while no super admin exists
  /api/users, /branches,
  /api/categories, /batches     reads: any signed-in user
                                writes: super_admin
  /api/students/*               admin or super_admin
  /api/students/payments/*      super_admin (ledger-wide listing and edits)
  /api/audit/dues               super_admin
  /*                            static files of the web client, if built

ROUTE ORDER:
  /students/payments is a static segment, so chi matches it before the
  /students/{id} pattern regardless of registration order.

SEE ALSO:
  - handlers.go: Handler and error mapping
  - auth/middleware.go: Authenticate and RequireRole
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sciencemaster/portal/portal"
)

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	StaticDir      string // built web client; skipped when empty or missing
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Credentials are never offered to a wildcard origin list.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !slices.Contains(opts.AllowedOrigins, "*"),
		MaxAge:           300,
	}))

	superAdmin := h.auth.RequireRole(portal.RoleSuperAdmin)
	staff := h.auth.RequireRole(portal.RoleSuperAdmin, portal.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Status)

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/superadmin", h.CreateSuperAdmin)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.Authenticate)
				r.Get("/", h.ListUsers)
				r.Get("/{id}", h.GetUser)
				r.With(superAdmin).Post("/", h.CreateAdmin)
				r.With(superAdmin).Put("/{id}", h.UpdateAdmin)
				r.With(superAdmin).Delete("/{id}", h.DeleteAdmin)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Authenticate)

			// Branch routes
			r.Route("/branches", func(r chi.Router) {
				r.Get("/", h.ListBranches)
				r.Get("/{id}", h.GetBranch)
				r.With(superAdmin).Post("/", h.CreateBranch)
				r.With(superAdmin).Put("/{id}", h.UpdateBranch)
				r.With(superAdmin).Delete("/{id}", h.DeleteBranch)
			})

			// Category routes
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Get("/{id}", h.GetCategory)
				r.With(superAdmin).Post("/", h.CreateCategory)
				r.With(superAdmin).Put("/{id}", h.UpdateCategory)
				r.With(superAdmin).Delete("/{id}", h.DeleteCategory)
			})

			// Batch routes
			r.Route("/batches", func(r chi.Router) {
				r.Get("/", h.ListBatches)
				r.Get("/{id}", h.GetBatch)
				r.With(superAdmin).Post("/", h.CreateBatch)
				r.With(superAdmin).Put("/{id}", h.UpdateBatch)
				r.With(superAdmin).Delete("/{id}", h.DeleteBatch)
			})

			// Student routes
			r.Route("/students", func(r chi.Router) {
				r.Use(staff)

				r.With(superAdmin).Get("/payments", h.ListPayments)
				r.With(superAdmin).Put("/payments/{paymentId}", h.UpdatePayment)

				r.Get("/", h.ListStudents)
				r.Post("/", h.CreateStudent)
				r.Get("/{id}", h.GetStudent)
				r.Put("/{id}", h.UpdateStudent)
				r.Put("/{id}/batches", h.SetEnrollment)
				r.Get("/{id}/due", h.StudentDue)
				r.Get("/{id}/payments", h.StudentPayments)
				r.Post("/{id}/payments", h.AddPayment)
			})

			r.With(superAdmin).Get("/audit/dues", h.AuditDues)
		})
	})

	serveStatic(r, opts.StaticDir)
	return r
}

// serveStatic serves the built web client, falling back to index.html for
// client-side routes.
func serveStatic(r chi.Router, dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); err != nil {
		// Try relative to executable
		exe, _ := os.Executable()
		dir = filepath.Join(filepath.Dir(exe), dir)
		if _, err := os.Stat(dir); err != nil {
			return
		}
	}

	fileServer := http.FileServer(http.Dir(dir))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			// SPA routing: serve index.html
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
