// Package proxy exposes a connected repository bucket as a read-only Maven
// repository over HTTP, so consumers without B2 credentials can resolve
// artifacts through a plain URL.
package proxy

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/A-N-O-D-E-R/B2Wagon/internal/storage"
	"github.com/A-N-O-D-E-R/B2Wagon/internal/wagon"
)

const binaryContentType = "application/octet-stream"

type Handler struct {
	store storage.ObjectStorage
	loc   wagon.Location
}

func NewRouter(store storage.ObjectStorage, loc wagon.Location, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(Logger())
	router.Use(Recovery())
	defaultOrigins := []string{"http://localhost:8080", "http://127.0.0.1:8080"}
	corsConfig := cors.Config{
		AllowOrigins:  defaultOrigins,
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "If-Modified-Since"},
		ExposeHeaders: []string{"Content-Length", "Last-Modified"},
		MaxAge:        12 * time.Hour,
	}
	if normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins); allowAll {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	} else if len(normalizedOrigins) > 0 {
		corsConfig.AllowOrigins = normalizedOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "bucket": loc.Bucket})
	})

	handler := &Handler{store: store, loc: loc}
	router.GET("/repository/*path", handler.GetArtifact)
	router.HEAD("/repository/*path", handler.HeadArtifact)

	return router
}

// GetArtifact streams an artifact from the bucket.
func (h *Handler) GetArtifact(c *gin.Context) {
	key, info, ok := h.stat(c)
	if !ok {
		return
	}

	reader, err := h.store.GetObject(c.Request.Context(), h.loc.Bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			errorResponse(c, http.StatusNotFound, "artifact not found: "+key)
			return
		}
		errorResponse(c, http.StatusBadGateway, "artifact download failed: "+err.Error())
		return
	}
	defer reader.Close()

	c.Header("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	c.DataFromReader(http.StatusOK, info.Size, contentTypeOf(key, info), reader, nil)
}

// HeadArtifact answers existence probes without moving content.
func (h *Handler) HeadArtifact(c *gin.Context) {
	key, info, ok := h.stat(c)
	if !ok {
		return
	}

	c.Header("Content-Type", contentTypeOf(key, info))
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Header("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	c.Status(http.StatusOK)
}

func (h *Handler) stat(c *gin.Context) (string, storage.ObjectInfo, bool) {
	key := h.loc.ResolveKey(strings.TrimPrefix(c.Param("path"), "/"))

	info, err := h.store.StatObject(c.Request.Context(), h.loc.Bucket, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			errorResponse(c, http.StatusNotFound, "artifact not found: "+key)
		} else {
			errorResponse(c, http.StatusBadGateway, "artifact lookup failed: "+err.Error())
		}
		return key, storage.ObjectInfo{}, false
	}
	return key, info, true
}

func contentTypeOf(key string, info storage.ObjectInfo) string {
	if ct := wagon.ContentTypeFor(key); ct != "" {
		return ct
	}
	if info.ContentType != "" {
		return info.ContentType
	}
	return binaryContentType
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	if c.Request.Method == http.MethodHead {
		c.Status(statusCode)
		return
	}
	c.JSON(statusCode, gin.H{"error": message})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
