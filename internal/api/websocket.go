package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"aptwatch/internal/models"

	"github.com/gorilla/websocket"
)

// --- WebSocket Hub ---

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.Mutex
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

var hub = &Hub{
	broadcast:  make(chan []byte),
	register:   make(chan *Client),
	unregister: make(chan *Client),
	clients:    make(map[*Client]bool),
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}

	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	hub.register <- client

	go func() {
		defer func() {
			hub.unregister <- client
			conn.Close()
		}()
		for {
			message, ok := <-client.send
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			w.Close()
		}
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (s *Server) handleStatusWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Status WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		payload, err := s.buildStatusPayload(r.Context(), false)
		if err != nil {
			payload = []byte(`{"status":"error"}`)
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
		<-ticker.C
	}
}

// BroadcastMessage envelopes every payload pushed to /ws subscribers.
type BroadcastMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSListing is the wire shape of a listing pushed to live /ws subscribers:
// a trimmed projection of models.Listing, omitting raw payload and
// description to keep broadcast frames small.
type WSListing struct {
	SurrogateID string    `json:"surrogate_id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Rooms       float64   `json:"rooms"`
	Area        float64   `json:"area"`
	City        string    `json:"city"`
	URL         string    `json:"url"`
	FirstSeen   time.Time `json:"first_seen"`
}

// BroadcastNewListing pushes a newly persisted listing to every connected
// /ws subscriber. The server calls it from its event bus subscription,
// once per listing the scheduler saves for the first time, independent
// of whether it matched any user's filter.
func BroadcastNewListing(listing models.Listing) {
	payload := WSListing{
		SurrogateID: listing.SurrogateID,
		Source:      listing.Source,
		Title:       listing.Title,
		Price:       listing.Price,
		Rooms:       listing.Rooms,
		Area:        listing.Area,
		City:        listing.City,
		URL:         listing.CanonicalURL,
		FirstSeen:   listing.FirstSeen,
	}
	msg := BroadcastMessage{Type: "new_listing", Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[api] marshal broadcast listing: %v", err)
		return
	}
	hub.broadcast <- data
}

func init() {
	go hub.run()
}
