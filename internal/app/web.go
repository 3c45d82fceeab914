// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/forcetorque/internal/config"
	"github.com/relabs-tech/forcetorque/internal/publish"
	"github.com/relabs-tech/forcetorque/internal/wrench"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local network dashboard
	},
}

// wrenchMessage is what the API and the websocket stream send.
type wrenchMessage struct {
	Force      [3]float64    `json:"force"`
	Torque     [3]float64    `json:"torque"`
	Wrench     wrench.Wrench `json:"wrench"`
	ReceivedAt time.Time     `json:"received_at"`
}

// wrenchHub keeps the latest wrench and fans it out to websocket clients.
type wrenchHub struct {
	mu      sync.Mutex
	last    wrenchMessage
	have    bool
	clients map[*websocket.Conn]struct{}
}

func newWrenchHub() *wrenchHub {
	return &wrenchHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *wrenchHub) update(w wrench.Wrench) {
	msg := wrenchMessage{Force: w.Force(), Torque: w.Torque(), Wrench: w, ReceivedAt: time.Now()}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last, h.have = msg, true
	for c := range h.clients {
		if err := h.send(c, msg); err != nil {
			log.Debug().Err(err).Str("remote", c.RemoteAddr().String()).Msg("web: dropping client")
			delete(h.clients, c)
			c.Close()
		}
	}
}

// send must be called with h.mu held; it serializes writers per connection.
func (h *wrenchHub) send(c *websocket.Conn, msg wrenchMessage) error {
	c.SetWriteDeadline(time.Now().Add(time.Second))
	return c.WriteJSON(msg)
}

func (h *wrenchHub) latest() (wrenchMessage, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.have
}

func (h *wrenchHub) serveLatest(w http.ResponseWriter, r *http.Request) {
	msg, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Warn().Err(err).Msg("web: json encode")
	}
}

func (h *wrenchHub) serveWS(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("web: websocket upgrade")
		return
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.have {
		if err := h.send(c, h.last); err != nil {
			delete(h.clients, c)
			c.Close()
			h.mu.Unlock()
			return
		}
	}
	h.mu.Unlock()

	// Reads only detect the peer going away.
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				h.mu.Lock()
				if _, ok := h.clients[c]; ok {
					delete(h.clients, c)
					c.Close()
				}
				h.mu.Unlock()
				return
			}
		}
	}()
}

func newWebRouter(h *wrenchHub, staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/wrench", h.serveLatest)
	r.Get("/ws", h.serveWS)
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	return r
}

// RunWeb serves the latest wrench over HTTP and a websocket stream, fed by
// the producer's MQTT topic.
func RunWeb() error {
	cfg := config.Get()
	hub := newWrenchHub()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Info().Str("broker", cfg.MQTTBroker).Msg("web: connected to MQTT broker")

	topic := publish.MQTTTopic(cfg.PublishKey)
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		w, err := wrench.Decode(msg.Payload())
		if err != nil {
			log.Warn().Err(err).Msg("web: bad payload")
			return
		}
		hub.update(w)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Info().Str("topic", topic).Msg("web: subscribed")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:      newWebRouter(hub, "web"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Info().Str("addr", srv.Addr).Msg("web server listening")
	return srv.ListenAndServe()
}
