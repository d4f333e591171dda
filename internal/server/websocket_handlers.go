package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/batch"
	"github.com/MeKo-Tech/imgforge/internal/pipeline"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocket message types sent by the server.
const (
	wsAccepted  = "accepted"
	wsProgress  = "progress"
	wsItem      = "item"
	wsCompleted = "completed"
	wsError     = "error"
)

// WebSocketRequest is a job submitted over the socket.
type WebSocketRequest struct {
	Type     string              `json:"type"` // "process" or "batch"
	Settings json.RawMessage     `json:"settings,omitempty"`
	Images   []BatchImageRequest `json:"images"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketResponse is one streamed server message.
type WebSocketResponse struct {
	Type      string            `json:"type"`
	RequestID string            `json:"request_id,omitempty"`
	Status    string            `json:"status,omitempty"`
	Progress  float64           `json:"progress"`
	Total     int               `json:"total,omitempty"`
	Index     *int              `json:"index,omitempty"`
	Name      string            `json:"name,omitempty"`
	Result    *ImageResult      `json:"result,omitempty"`
	Errors    []batch.ItemError `json:"errors,omitempty"`
	Error     string            `json:"error,omitempty"`
	ErrorType string            `json:"error_type,omitempty"`
}

// wsProgressInterval is the minimum gap between two progress messages.
const wsProgressInterval = 100 * time.Millisecond

// wsWriter serializes writes; orchestrator callbacks arrive from worker goroutines.
type wsWriter struct {
	mu   sync.Mutex
	conn WebSocketConnWriter
}

func (w *wsWriter) send(response WebSocketResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// wsProgressReporter turns batch progress into progress messages.
type wsProgressReporter struct {
	pipeline.NoOpProgressCallback
	w         *wsWriter
	requestID string
}

func (r wsProgressReporter) OnProgress(percent float64) {
	r.w.send(WebSocketResponse{Type: wsProgress, RequestID: r.requestID, Status: string(batch.StatusProcessing), Progress: percent})
}

// progressCallback streams progress for requestID, at most once per interval
// plus the final 100%.
func (w *wsWriter) progressCallback(requestID string, interval time.Duration) pipeline.ProgressCallback {
	return pipeline.NewThrottledProgressCallback(wsProgressReporter{w: w, requestID: requestID}, interval)
}

// webSocketHandler upgrades the connection and serves jobs until it closes.
func (s *Server) webSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, &wsWriter{conn: conn}, data)
			// Processing may outlast the read deadline.
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}
}

// handleWebSocketMessage runs one job and streams its progress.
func (s *Server) handleWebSocketMessage(ctx context.Context, w *wsWriter, data []byte) {
	var req WebSocketRequest
	if err := json.Unmarshal(data, &req); err != nil {
		w.send(errorMessage("", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err)))
		return
	}

	switch req.Type {
	case "process":
		if len(req.Images) != 1 {
			w.send(errorMessage("", "invalid_request", "process requests take exactly one image"))
			return
		}
	case "batch":
	default:
		w.send(errorMessage("", "invalid_request", "Unsupported request type: "+req.Type))
		return
	}

	inputs, settings, err := s.prepareBatch(BatchRequest{Settings: req.Settings, Images: req.Images})
	if err != nil {
		w.send(errorMessage("", "invalid_request", err.Error()))
		return
	}

	requestID := uuid.NewString()
	w.send(WebSocketResponse{Type: wsAccepted, RequestID: requestID, Status: string(batch.StatusPending), Total: len(inputs)})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := s.batchOptions("websocket", func(index int, res *pipeline.ProcessedImage, err error) {
		msg := WebSocketResponse{Type: wsItem, RequestID: requestID, Index: &index, Name: inputs[index].Name}
		if err != nil {
			msg.Status = string(batch.StatusFailed)
			msg.Error = err.Error()
		} else {
			msg.Status = string(batch.StatusCompleted)
			msg.Result = toImageResult(res, inputs[index].SizeBytes(), true)
		}
		w.send(msg)
	})
	opts.Callback = w.progressCallback(requestID, wsProgressInterval)

	snap := batch.ProcessBatch(ctx, inputs, settings, opts).Snapshot()
	w.send(WebSocketResponse{
		Type:      wsCompleted,
		RequestID: requestID,
		Status:    string(snap.Status),
		Progress:  snap.Progress,
		Total:     snap.Total,
		Errors:    snap.Errors,
	})
}

func errorMessage(requestID, errorType, message string) WebSocketResponse {
	return WebSocketResponse{
		Type:      wsError,
		RequestID: requestID,
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	}
}
