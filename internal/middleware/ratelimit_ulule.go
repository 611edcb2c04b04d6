package middleware

import (
	"net/http"

	"github.com/benmartin/gtdflow/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// defaultAIRate throttles the LLM-backed routes, where each request
// costs a provider call
const defaultAIRate = "5-S"

// RateLimitUlule builds a per-client limiter in ulule's rate format
// ("5-S", "100-M"), keyed by client IP and backed by Redis.
func RateLimitUlule(redisClient *redis.Client, rateStr string) (func(http.Handler) http.Handler, error) {
	if rateStr == "" {
		rateStr = defaultAIRate
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, err
	}

	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		return nil, err
	}

	mw := stdlibmw.NewMiddleware(
		limiter.New(store, rate),
		stdlibmw.WithKeyGetter(func(r *http.Request) string {
			return request.ClientIP(r)
		}),
	)
	return mw.Handler, nil
}
