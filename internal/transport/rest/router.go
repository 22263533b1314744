package rest

import (
	"net/http"

	"docquiz/internal/service"
	"docquiz/internal/transport/rest/handler"
	"docquiz/internal/transport/rest/middleware"
	"docquiz/internal/transport/ws"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Container holds all dependencies for the router
type Container struct {
	DB              handler.ConnectionSource
	AuthService     *service.AuthService
	DocumentService *service.DocumentService
	QuestionService *service.QuestionService
	RAGService      *service.RAGService
	WSHub           *ws.Hub

	Author         string
	AllowedOrigins []string
	Production     bool
	Logger         *zap.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := mux.NewRouter()

	// Initialize handlers
	systemHandler := handler.NewSystemHandler(c.DB, c.Author, logger)
	authHandler := handler.NewAuthHandler()
	documentHandler := handler.NewDocumentHandler(c.DocumentService)
	questionHandler := handler.NewQuestionHandler(c.QuestionService)
	ragHandler := handler.NewRAGHandler(c.RAGService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, logger)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// Outermost first. Applied to the not-found handlers explicitly since
	// mux only runs r.Use middleware on matched routes.
	chain := []mux.MiddlewareFunc{
		middleware.RequestLogger(logger.With(zap.String("module", "http"))),
		middleware.Recover(logger, c.Production),
		cors.Handler(cors.Options{
			AllowedOrigins:   c.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	}
	r.Use(chain...)

	r.NotFoundHandler = wrap(chain, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, http.StatusNotFound, "Not Found - "+r.URL.Path)
	}))
	r.MethodNotAllowedHandler = wrap(chain, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	}))

	// Public routes
	r.HandleFunc("/", systemHandler.Root).Methods("GET")
	r.HandleFunc("/health", systemHandler.Health).Methods("GET")

	// WebSocket route (token in query param)
	r.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMW.RequireUser)

	api.HandleFunc("/auth/me", authHandler.Me).Methods("GET", "OPTIONS")

	api.HandleFunc("/documents", documentHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/documents", documentHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/documents/{id}", documentHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/documents/{id}", documentHandler.Delete).Methods("DELETE", "OPTIONS")

	// validate-exam must be registered before /{id}
	api.HandleFunc("/questions/generate/{documentId}", questionHandler.Generate).Methods("POST", "OPTIONS")
	api.HandleFunc("/questions/validate-exam", questionHandler.ValidateExam).Methods("POST", "OPTIONS")
	api.HandleFunc("/questions/document/{documentId}", questionHandler.ListByDocument).Methods("GET", "OPTIONS")
	api.HandleFunc("/questions", questionHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/questions/{id}", questionHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/questions/{id}/validate", questionHandler.ValidateAnswer).Methods("POST", "OPTIONS")
	api.HandleFunc("/questions/{id}", questionHandler.Delete).Methods("DELETE", "OPTIONS")

	api.HandleFunc("/rag/ask", ragHandler.Ask).Methods("POST", "OPTIONS")

	return r
}

func wrap(chain []mux.MiddlewareFunc, h http.Handler) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
