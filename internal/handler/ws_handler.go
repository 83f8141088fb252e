package handler

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"adventure-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Отправлять пинги клиенту с этим периодом. Должно быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Максимальный размер сообщения, разрешенный от клиента.
	maxMessageSize = 512
)

func (h *StoryHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

func (h *StoryHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// watchJob отправляет JobResponse при каждой смене статуса и закрывает
// соединение после completed или failed.
func (h *StoryHandler) watchJob(c *gin.Context) {
	jobID, ok := parseID(c, "job_id", models.ErrJobNotFound, h.logger)
	if !ok {
		return
	}
	log := h.logger.With(zap.String("job_id", jobID.String()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Подписка до чтения текущего статуса, чтобы не пропустить переход между ними.
	updates, err := h.watcher.Watch(ctx, jobID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	job, err := h.jobs.GetJobStatus(ctx, jobID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}
	defer conn.Close()

	go h.readPump(conn, cancel, log)

	current := toJobResponse(job)
	if err := writeJSON(conn, current); err != nil || current.Status.IsTerminal() {
		closeNormally(conn)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				// Наблюдатель остановился раньше терминального статуса: отдаем последнее состояние.
				if latest, err := h.jobs.GetJobStatus(context.WithoutCancel(ctx), jobID); err == nil {
					_ = writeJSON(conn, toJobResponse(latest))
				}
				closeNormally(conn)
				return
			}
			if u.Status == current.Status {
				continue
			}
			current = current.apply(u)
			if err := writeJSON(conn, current); err != nil {
				log.Debug("Failed to write job update", zap.Error(err))
				return
			}
			if current.Status.IsTerminal() {
				closeNormally(conn)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump читает соединение только ради pong и закрытия клиентом.
func (h *StoryHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc, log *zap.Logger) {
	defer cancel()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func closeNormally(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
