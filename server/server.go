package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/docuchat/docuchat/internal/types"
	"github.com/docuchat/docuchat/pkg/ingest"
	"github.com/docuchat/docuchat/pkg/llm"
	"github.com/docuchat/docuchat/pkg/retriever"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the envelope for everything crossing the WebSocket in either
// direction. Client-to-server types: "query", "hybrid", "chat", "ingest", "stats".
// Server-to-client types: "status", "stream", "response", "results",
// "error", "done".
type Message struct {
	Type      string      `json:"type"`
	Content   string      `json:"content"`
	ProfileID string      `json:"profile_id,omitempty"`
	MimeType  string      `json:"mime_type,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// wsConn serializes writes to one connection. Message handlers run in
// their own goroutines, and gorilla/websocket supports at most one
// concurrent writer per connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type WSServer struct {
	config     Config
	chatEngine *llm.ChatEngine
	vector     *retriever.VectorRetriever
	hybrid     *retriever.HybridRetriever
	ingestor   *ingest.Ingestor
	store      types.VectorStore
}

type Config struct {
	Addr                string
	DefaultProfile      string
	Limit               int
	SimilarityThreshold float64
	VectorWeight        float64
	KeywordWeight       float64
	Streaming           bool
}

func NewWSServer(config Config, chatEngine *llm.ChatEngine, vector *retriever.VectorRetriever, hybrid *retriever.HybridRetriever, ingestor *ingest.Ingestor, store types.VectorStore) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.DefaultProfile == "" {
		config.DefaultProfile = "default"
	}
	if config.Limit == 0 {
		config.Limit = 10
	}

	return &WSServer{
		config:     config,
		chatEngine: chatEngine,
		vector:     vector,
		hybrid:     hybrid,
		ingestor:   ingestor,
		store:      store,
	}
}

// Run blocks serving WebSocket connections until the listener fails.
func (s *WSServer) Run() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	log.Printf("Starting WebSocket server on %s", s.config.Addr)
	return http.ListenAndServe(s.config.Addr, mux)
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}
	for {
		_, message, err := raw.ReadMessage()
		if err != nil {
			log.Printf("Error reading message: %v", err)
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		go s.handleMessage(r.Context(), conn, msg)
	}
}

func (s *WSServer) handleMessage(ctx context.Context, conn *wsConn, msg Message) {
	profileID := msg.ProfileID
	if profileID == "" {
		profileID = s.config.DefaultProfile
	}

	switch msg.Type {
	case "query":
		s.handleQuery(ctx, conn, msg.Content, profileID)
	case "hybrid":
		s.handleHybrid(ctx, conn, msg.Content, profileID)
	case "ingest":
		s.handleIngest(ctx, conn, msg, profileID)
	case "stats":
		s.handleStats(ctx, conn, profileID)
	case "chat", "":
		s.handleChat(ctx, conn, msg.Content, profileID)
	default:
		s.sendMessage(conn, "error", fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *WSServer) handleQuery(ctx context.Context, conn *wsConn, query, profileID string) {
	response, err := s.vector.SearchSimilarChunks(ctx, query, profileID, s.config.Limit, s.config.SimilarityThreshold, true)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Search failed: %v", err))
		return
	}
	s.sendData(conn, "results", response)
}

func (s *WSServer) handleHybrid(ctx context.Context, conn *wsConn, query, profileID string) {
	response, err := s.hybrid.HybridSearch(ctx, query, profileID, s.config.Limit, s.config.VectorWeight, s.config.KeywordWeight)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Search failed: %v", err))
		return
	}
	s.sendData(conn, "results", response)
}

func (s *WSServer) handleIngest(ctx context.Context, conn *wsConn, msg Message, profileID string) {
	s.sendMessage(conn, "status", fmt.Sprintf("Ingesting %s", msg.Content))

	if err := s.store.EnsureProfile(ctx, profileID, profileID); err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Ingest failed: %v", err))
		return
	}

	result, err := s.ingestor.IngestFile(ctx, msg.Content, msg.MimeType, profileID, nil)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Ingest failed: %v", err))
		return
	}

	s.sendData(conn, "results", result)
}

func (s *WSServer) handleStats(ctx context.Context, conn *wsConn, profileID string) {
	stats, err := s.vector.GetProfileStatistics(ctx, profileID)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Stats failed: %v", err))
		return
	}
	s.sendData(conn, "results", stats)
}

func (s *WSServer) handleChat(ctx context.Context, conn *wsConn, query, profileID string) {
	chunks, err := s.vector.GetContextChunks(ctx, query, profileID, s.config.Limit, s.config.SimilarityThreshold)
	if err != nil {
		s.sendMessage(conn, "error", fmt.Sprintf("Error querying documents: %v", err))
		return
	}

	if s.config.Streaming {
		err := s.chatEngine.ChatStream(ctx, query, chunks, func(chunk string) error {
			s.sendMessage(conn, "stream", chunk)
			return nil
		})
		if err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
			return
		}
		s.sendMessage(conn, "done", "")
	} else {
		response, err := s.chatEngine.Chat(ctx, query, chunks)
		if err != nil {
			s.sendMessage(conn, "error", fmt.Sprintf("Error: %v", err))
			return
		}
		s.sendMessage(conn, "response", response)
	}
}

func (s *WSServer) sendMessage(conn *wsConn, msgType string, content string) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (s *WSServer) sendData(conn *wsConn, msgType string, data interface{}) {
	msg := Message{
		Type: msgType,
		Data: data,
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
