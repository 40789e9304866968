package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Deepesh976/ro-iot/internal/auth"
	"github.com/Deepesh976/ro-iot/internal/database"
	"github.com/Deepesh976/ro-iot/internal/models"
	"github.com/Deepesh976/ro-iot/internal/util"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/Deepesh976/ro-iot/internal/handlers")
}

// key for the authenticated user id in gin.Context
const AuthUserID string = "_roiot.UserID"

// CacheExp Zero expiration means the key has no expiration time.
const CacheExp time.Duration = 0
const CachePrefix = "user:"

// CacheClient is the subset of the redis client the handlers use.
type CacheClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type API struct {
	logger      *zap.SugaredLogger
	db          *gorm.DB
	transaction database.TransactionFunc
	tokens      *auth.TokenIssuer

	// Redis is optional; nil disables profile caching.
	Redis CacheClient
}

func NewAPI(
	parent context.Context,
	logger *zap.SugaredLogger,
	db *gorm.DB,
	tokens *auth.TokenIssuer,
	redisClient *redis.Client,
) (*API, error) {
	_, span := tracer.Start(parent, "NewAPI")
	defer span.End()

	transactionFunc, _, err := database.GetTransactionFunc(db)
	if err != nil {
		return nil, err
	}

	api := &API{
		logger:      logger,
		db:          db,
		transaction: transactionFunc,
		tokens:      tokens,
	}
	// A typed nil pointer must not become a non-nil interface value.
	if redisClient != nil {
		api.Redis = redisClient
	}
	return api, nil
}

// Tokens exposes the token issuer so the router can validate bearer tokens.
func (api *API) Tokens() *auth.TokenIssuer {
	return api.tokens
}

// GetCurrentUserID returns the authenticated user id placed in the context by
// the JWT middleware. Handlers behind the middleware can rely on it being set.
func (api *API) GetCurrentUserID(c *gin.Context) uuid.UUID {
	id, ok := c.Value(AuthUserID).(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func (api *API) SendInternalServerError(c *gin.Context, err error) {
	SendInternalServerError(c, api.logger, err)
}

func SendInternalServerError(c *gin.Context, logger *zap.SugaredLogger, err error) {
	ctx := c.Request.Context()
	util.WithTrace(ctx, logger).Errorw("internal server error", "error", err)

	result := models.InternalServerError{
		BaseError: models.BaseError{
			Error: "internal server error",
		},
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		result.TraceId = sc.TraceID().String()
	}
	c.JSON(http.StatusInternalServerError, result)
}
