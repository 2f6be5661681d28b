package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

// streamKeepAlive is how often an idle stream sends a comment line so proxies keep it open.
var streamKeepAlive = 15 * time.Second

// Register wires up all API routes on the provided Echo instance. deduper,
// streams and health may be nil.
func Register(e *echo.Echo, boards Boards, auth Authenticator, deduper Deduper, streams Streams, health HealthCheck, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.GET("/api/board", getBoard(boards, auth))
	e.POST("/api/commands", postCommands(boards, auth, deduper, logger), GzipRequestMiddleware())
	if streams != nil {
		e.GET("/api/board/stream", streamBoard(boards, auth, streams))
	}
	e.GET("/healthz", healthz(health))
}

func healthz(check HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		if check == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			c.Logger().Errorf("health check failed: %v", err)
			return c.String(http.StatusServiceUnavailable, "unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}

func getBoard(boards Boards, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, boards.Get(userID).Snapshot())
	}
}

func postCommands(boards Boards, auth Authenticator, deduper Deduper, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, ctx := newCommandRequestMetrics(c.Request().Context(), logger)
		c.SetRequest(c.Request().WithContext(ctx))
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		userID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			return c.String(http.StatusUnauthorized, authErr.Error())
		}

		decodeStart := time.Now()
		lr := io.LimitReader(c.Request().Body, postCommandMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()
		cmds := make([]domain.Command, 0, 8)
		decodeErr := dec.Decode(&cmds)
		metrics.ObserveDecode(time.Since(decodeStart))
		if decodeErr != nil {
			metrics.SetErrorStage("decode")
			return c.String(http.StatusBadRequest, "invalid body")
		}
		metrics.SetReceived(len(cmds))

		b := boards.Get(userID)
		applyStart := time.Now()
		results := make([]commandResult, 0, len(cmds))
		for i := range cmds {
			cmd := &cmds[i]
			if cmd.IdempotencyKey == "" {
				cmd.IdempotencyKey = uuid.NewString()
			} else if deduper != nil && isDuplicate(ctx, deduper, userID, cmd.IdempotencyKey, logger) {
				results = append(results, commandResult{IdempotencyKey: cmd.IdempotencyKey, Status: statusDuplicate})
				metrics.Count(statusDuplicate)
				continue
			}
			res := applyCommand(b, *cmd)
			if res.Status != statusOK {
				logger.WithFields(log.Fields{
					"board":  userID,
					"type":   cmd.Type,
					"key":    cmd.IdempotencyKey,
					"status": res.Status,
				}).Debug(res.Error)
			}
			metrics.Count(res.Status)
			results = append(results, res)
		}
		metrics.ObserveApply(time.Since(applyStart))

		return c.JSON(http.StatusOK, postCommandsResponse{Results: results, Snapshot: b.Snapshot()})
	}
}

// isDuplicate records key and reports whether it was seen before. Redis
// failures let the command through.
func isDuplicate(ctx context.Context, deduper Deduper, userID, key string, logger *log.Logger) bool {
	added, err := deduper.Add(ctx, userID, key)
	if err != nil {
		logger.WithError(err).WithField("board", userID).Warn("dedupe unavailable, applying command")
		return false
	}
	return !added
}

func streamBoard(boards Boards, auth Authenticator, streams Streams) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if token := c.QueryParam("token"); header == "" && token != "" {
			header = bearerPrefix + token
		}
		userID, err := auth.UserIDFromAuthHeader(header)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		resp := c.Response()
		flusher, ok := resp.Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		updates, unregister := streams.Register(userID)
		defer unregister()

		resp.Header().Set(echo.HeaderContentType, "text/event-stream")
		resp.Header().Set(echo.HeaderCacheControl, "no-cache")
		resp.Header().Set(echo.HeaderConnection, "keep-alive")
		resp.Header().Set("X-Accel-Buffering", "no")
		resp.WriteHeader(http.StatusOK)

		initial, err := sonic.Marshal(boards.Get(userID).Snapshot())
		if err != nil {
			return err
		}
		if err := writeEvent(resp, "snapshot", initial); err != nil {
			return nil
		}
		flusher.Flush()

		ctx := c.Request().Context()
		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-updates:
				if !ok {
					return nil
				}
				if err := writeEvent(resp, "change", data); err != nil {
					return nil
				}
			case <-ticker.C:
				if _, err := io.WriteString(resp, ": ping\n\n"); err != nil {
					return nil
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
