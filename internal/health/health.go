package health

import (
	"context"
	"net/http"
	"time"

	httputil "staybook/pkg/http"
	kafkamw "staybook/pkg/kafka/middleware"
	"staybook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const readyTimeout = 2 * time.Second

type HealthResponse struct {
	Status   string                   `json:"status"`
	Database string                   `json:"database,omitempty"`
	Cache    string                   `json:"cache,omitempty"`
	Events   *kafkamw.MetricsSnapshot `json:"events,omitempty"`
}

type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
	// required checks fail readiness; optional ones only degrade the report
	required bool
}

type HealthHandler struct {
	checks  []dependencyCheck
	metrics *kafkamw.Metrics
	log     *logger.Logger
}

// NewHealthHandler reports liveness and readiness. The Redis client and the
// Kafka metrics are optional and may be nil.
func NewHealthHandler(mongoClient *mongo.Client, redisClient *redis.Client, metrics *kafkamw.Metrics, log *logger.Logger) *HealthHandler {
	h := &HealthHandler{metrics: metrics, log: log}
	if mongoClient != nil {
		h.checks = append(h.checks, dependencyCheck{
			name:     "database",
			ping:     func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			required: true,
		})
	}
	if redisClient != nil {
		h.checks = append(h.checks, dependencyCheck{
			name: "cache",
			ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return h
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready"}
	statusCode := http.StatusOK

	for _, check := range h.checks {
		state := "ok"
		if err := check.ping(ctx); err != nil {
			h.log.Error("Dependency health check failed",
				"dependency", check.name,
				"error", err,
				"path", r.URL.Path,
			)
			state = "error"
			if check.required {
				resp.Status = "unavailable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		switch check.name {
		case "database":
			resp.Database = state
		case "cache":
			resp.Cache = state
		}
	}

	if h.metrics != nil {
		snapshot := h.metrics.Snapshot()
		resp.Events = &snapshot
	}

	if err := httputil.WriteJSON(w, statusCode, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
