package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/voxnote/voxnote/pkg/core/logging"
)

// WebSocket upgrader with permissive settings for local use
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // single-workstation deployment, all origins are local
	},
}

// MergedUpdate is pushed to subscribers whenever a transcript's merged
// text changes
type MergedUpdate struct {
	Type         string `json:"type"`
	TranscriptID string `json:"transcriptId"`
	Text         string `json:"text"`
}

// Hub fans merged-text updates out to WebSocket subscribers. Each
// connection watches exactly one transcript, so a dictation UI can render
// text as slices come back from the recognizer.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*websocket.Conn]bool
	logger *logging.Logger
}

// NewHub creates an empty subscriber hub
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*websocket.Conn]bool),
		logger: logging.New("ws-hub"),
	}
}

// ServeHTTP upgrades the connection and subscribes it to the transcript
// named in the transcriptId query parameter
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	transcriptID := r.URL.Query().Get("transcriptId")
	if transcriptID == "" {
		http.Error(w, "missing transcriptId", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	h.subscribe(transcriptID, conn)
	h.logger.Info("WebSocket subscriber connected",
		"transcript_id", transcriptID,
		"remote", conn.RemoteAddr().String(),
	)

	// Drain the connection; we never expect client messages, the read
	// loop only notices when the peer goes away
	go func() {
		defer h.unsubscribe(transcriptID, conn)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// NotifyMerged pushes the merged text to every subscriber of a transcript.
// Connections that fail to accept the write are dropped.
func (h *Hub) NotifyMerged(transcriptID, merged string) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[transcriptID]))
	for conn := range h.subs[transcriptID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	update := MergedUpdate{
		Type:         "merged",
		TranscriptID: transcriptID,
		Text:         merged,
	}

	for _, conn := range conns {
		if err := conn.WriteJSON(update); err != nil {
			h.logger.Warn("WebSocket send failed, dropping subscriber", "error", err)
			h.unsubscribe(transcriptID, conn)
			conn.Close()
		}
	}
}

// SubscriberCount returns the number of subscribers for a transcript
func (h *Hub) SubscriberCount(transcriptID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[transcriptID])
}

func (h *Hub) subscribe(transcriptID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[transcriptID] == nil {
		h.subs[transcriptID] = make(map[*websocket.Conn]bool)
	}
	h.subs[transcriptID][conn] = true
}

func (h *Hub) unsubscribe(transcriptID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[transcriptID], conn)
	if len(h.subs[transcriptID]) == 0 {
		delete(h.subs, transcriptID)
	}
}
