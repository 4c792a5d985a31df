package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartfarm/advisor/internal/advisory"
	"github.com/smartfarm/advisor/internal/domain"
	"github.com/smartfarm/advisor/internal/imaging"
	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/metrics"
	"github.com/smartfarm/advisor/internal/middleware"
)

// Options carries what the routes need. A zero RateLimitPerMinute disables
// rate limiting on the advisory endpoints.
type Options struct {
	Pipeline           *advisory.Pipeline
	UploadMaxBytes     int64
	RateLimitPerMinute int
	Now                func() time.Time
}

type handler struct {
	pipeline  *advisory.Pipeline
	validator imaging.Validator
	maxBytes  int64
	now       func() time.Time
}

func RegisterRoutes(router *gin.Engine, opts Options) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	h := &handler{
		pipeline:  opts.Pipeline,
		validator: imaging.NewValidator(opts.UploadMaxBytes),
		now:       opts.Now,
	}
	h.maxBytes = h.validator.MaxBytes
	limited := rateLimit(newAdvisoryRateLimiter(opts.RateLimitPerMinute, opts.Now))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, domain.HealthResponse{
			Status:    "healthy",
			Timestamp: h.now().UTC().Format(time.RFC3339),
		})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(metrics.PrometheusText()))
	})

	router.GET("/api/capabilities", func(c *gin.Context) {
		c.JSON(http.StatusOK, domain.Capabilities{
			Provider:   h.pipeline.Provider(),
			Languages:  domain.SupportedLanguages(),
			Activities: advisory.SupportedActivities(),
		})
	})

	router.POST("/api/analyze-disease", limited, h.analyzeDisease)
	router.POST("/api/chat", limited, h.chat)
	router.POST("/api/weather-advisory", limited, h.weatherAdvisory)
}

func (h *handler) analyzeDisease(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		writeError(c, http.StatusBadRequest, "No image provided", "", "missing_image")
		return
	}

	data, err := readUpload(fileHeader, h.maxBytes)
	if err != nil {
		writeError(c, http.StatusBadRequest, "Failed to read image", err.Error(), "invalid_image")
		return
	}

	img, err := h.validator.Validate(data)
	if err != nil {
		status, code := imageError(err)
		writeError(c, status, "Invalid image", err.Error(), code)
		return
	}

	var location *domain.Location
	if raw := strings.TrimSpace(c.PostForm("location")); raw != "" {
		location = &domain.Location{}
		if err := json.Unmarshal([]byte(raw), location); err != nil {
			writeError(c, http.StatusBadRequest, "Invalid location", err.Error(), "invalid_location")
			return
		}
	}

	result, err := h.pipeline.DetectDisease(c.Request.Context(), advisory.DetectRequest{
		Image:    img.Data,
		MIMEType: img.MIMEType,
		CropType: strings.TrimSpace(c.PostForm("cropType")),
		Language: strings.TrimSpace(c.PostForm("language")),
		Location: location,
	})
	if err != nil {
		logx.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("component", "api").
			Msg("disease analysis failed")
		writeError(c, http.StatusInternalServerError, "Failed to analyze image", err.Error(), "analysis_failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *handler) chat(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body", err.Error(), "invalid_payload")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(c, http.StatusBadRequest, "No message provided", "", "missing_message")
		return
	}

	c.JSON(http.StatusOK, h.pipeline.Chat(c.Request.Context(), req))
}

func (h *handler) weatherAdvisory(c *gin.Context) {
	var req domain.WeatherAdvisoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body", err.Error(), "invalid_payload")
		return
	}

	advice, err := h.pipeline.WeatherAdvisory(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, advice)
	case errors.Is(err, advisory.ErrLocationActivityRequired):
		writeError(c, http.StatusBadRequest, "Location and activity required", "", "missing_location_or_activity")
	case errors.Is(err, advisory.ErrUnsupportedActivity):
		writeError(c, http.StatusBadRequest, "Unsupported activity", err.Error(), "unsupported_activity")
	default:
		logx.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("component", "api").
			Msg("weather advisory failed")
		writeError(c, http.StatusInternalServerError, "Failed to get weather advisory", err.Error(), "advisory_failed")
	}
}

// readUpload reads at most maxBytes+1 bytes so the validator can reject
// oversized files without buffering them whole.
func readUpload(header *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, maxBytes+1))
}

func imageError(err error) (status int, code string) {
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "image_too_large"
	case errors.Is(err, imaging.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_image_format"
	case errors.Is(err, imaging.ErrEmpty):
		return http.StatusBadRequest, "missing_image"
	default:
		return http.StatusBadRequest, "invalid_image"
	}
}

func writeError(c *gin.Context, status int, message string, details string, code string) {
	c.AbortWithStatusJSON(status, domain.APIErrorResponse{
		Error:     message,
		Details:   details,
		Code:      code,
		RequestID: middleware.GetRequestID(c),
	})
}
