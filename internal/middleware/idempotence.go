package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ctenarsky-denik/journal/internal/pkg/redis"
	"github.com/gin-gonic/gin"
)

const (
	idempotenceHeader = "X-Idempotence"
	idempotenceTTL    = 60 * time.Second
	idempotencePrefix = "journal:idempotence:"

	statePending = "0"
	stateDone    = "1"
)

// IdempotenceRules tunes the guard per path. Skip paths are never guarded.
// HeaderOnly paths are guarded only when the client sends X-Idempotence, so
// repeating an identical request there is allowed.
type IdempotenceRules struct {
	Skip       []string
	HeaderOnly []string
}

// Idempotence rejects a repeated POST or PUT while the first one is in flight
// or within a minute of its success. Failed requests release the key.
func Idempotence(rdb *redis.Client, rules IdempotenceRules) gin.HandlerFunc {
	skipped := pathSet(rules.Skip)
	headerOnly := pathSet(rules.HeaderOnly)

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			c.Next()
			return
		}
		path := normalizePath(c.Request.URL.Path)
		if _, ok := skipped[path]; ok {
			c.Next()
			return
		}
		if _, ok := headerOnly[path]; ok && c.GetHeader(idempotenceHeader) == "" {
			c.Next()
			return
		}

		key, err := resolveIdempotenceKey(c)
		if err != nil || key == "" {
			c.Next()
			return
		}

		redisKey := idempotencePrefix + key
		ctx := c.Request.Context()

		acquired, err := rdb.SetNX(ctx, redisKey, statePending, idempotenceTTL)
		if err != nil {
			c.Next()
			return
		}
		if !acquired {
			msg := "identical request already succeeded, retry after 60 seconds"
			if val, ok, _ := rdb.Get(ctx, redisKey); ok && val == statePending {
				msg = "identical request is still being processed"
			}
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"ok":      0,
				"code":    http.StatusConflict,
				"message": msg,
			})
			return
		}

		c.Next()

		status := c.Writer.Status()
		if status >= 200 && status < 300 {
			_ = rdb.KeepSet(ctx, redisKey, stateDone)
		} else {
			_ = rdb.Del(ctx, redisKey)
		}
	}
}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[normalizePath(p)] = struct{}{}
	}
	return set
}

func normalizePath(p string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(p)), "/")
}

// resolveIdempotenceKey prefers the explicit header and otherwise hashes the
// request shape together with the caller identity.
func resolveIdempotenceKey(c *gin.Context) (string, error) {
	if hdr := c.GetHeader(idempotenceHeader); hdr != "" {
		return hdr, nil
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	ua := c.Request.UserAgent()
	ip := c.ClientIP()
	authToken := NormalizeToken(c.GetHeader("Authorization"))

	if len(body) == 0 && ua == "" && ip == "" && authToken == "" {
		return "", nil
	}

	raw := c.Request.Method + "|" + c.Request.URL.String() + "|" + string(body) + "|" + ua + "|" + ip + "|" + authToken
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:]), nil
}
