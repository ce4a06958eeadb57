package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
)

// storedReply is the cached outcome of an idempotent request.
type storedReply struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// replyRecorder captures the response body while it streams to the client.
type replyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *replyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency returns middleware that replays the stored response for
// repeated mutating requests carrying the same Idempotency-Key header.
// Redis being unreachable degrades to processing the request normally.
func Idempotency(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		cacheKey := "idempotency:" + key

		if reply, ok := lookupReply(ctx, client, cacheKey); ok {
			c.Data(reply.Status, "application/json", reply.Body)
			c.Abort()
			return
		}

		rec := &replyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec

		c.Next()

		// Do not pin transient server failures to the key.
		if status := c.Writer.Status(); status < http.StatusInternalServerError {
			storeReply(ctx, client, cacheKey, storedReply{Status: status, Body: rec.buf.Bytes()})
		}
	}
}

func lookupReply(ctx context.Context, client *redis.Client, key string) (*storedReply, bool) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var reply storedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, false
	}
	return &reply, true
}

func storeReply(ctx context.Context, client *redis.Client, key string, reply storedReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	_ = client.Set(ctx, key, data, idempotencyTTL).Err()
}
