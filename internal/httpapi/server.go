package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wellnest/assistant/internal/agent"
	"github.com/wellnest/assistant/internal/chat"
	"github.com/wellnest/assistant/internal/config"
	"github.com/wellnest/assistant/internal/observability"
	"github.com/wellnest/assistant/internal/protocol"
	"github.com/wellnest/assistant/internal/reliability"
)

const guestCookieName = "guest_session_id"

type Server struct {
	cfg      config.Config
	chat     *chat.Service
	metrics  *observability.Metrics
	kbRows   func() int
	upgrader websocket.Upgrader
}

func New(cfg config.Config, chatService *chat.Service, metrics *observability.Metrics, kbRows func() int) *Server {
	return &Server{
		cfg:     cfg,
		chat:    chatService,
		metrics: metrics,
		kbRows:  kbRows,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other websites cannot drive a user's chat
				// session if the service is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/chat", s.handleChat)
	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"kb_chunks": s.kbRows(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"kb_chunks": s.kbRows(),
	})
}

// resolveIdentity determines the conversation owner. A bearer token
// marks the caller signed-in and keys durable memory; otherwise the
// guest cookie is used, minted on first contact. The returned cookie is
// non-nil when a new guest identity was minted and must still be
// delivered to the client.
func resolveIdentity(r *http.Request) (chat.Identity, *http.Cookie) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		if token = strings.TrimSpace(token); token != "" {
			return chat.Identity{Key: token, SignedIn: true}, nil
		}
	}

	if c, err := r.Cookie(guestCookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return chat.Identity{Key: c.Value}, nil
	}

	id := uuid.NewString()
	return chat.Identity{Key: id}, &http.Cookie{
		Name:     guestCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply     string           `json:"reply"`
	Citations []agent.Citation `json:"citations"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, cookie := resolveIdentity(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	turn, err := s.chat.Handle(r.Context(), id, req.Message)
	if err != nil {
		kind := reliability.KindOf(err)
		respondError(w, reliability.HTTPStatus(kind), string(kind), err.Error())
		return
	}

	citations := turn.Citations
	if citations == nil {
		citations = []agent.Citation{}
	}
	respondJSON(w, http.StatusOK, chatResponse{Reply: turn.Reply, Citations: citations})
}

func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	id, cookie := resolveIdentity(r)

	// Cookies set on the ResponseWriter do not survive the websocket
	// handshake; a freshly minted guest cookie rides the 101 response.
	var upgradeHeader http.Header
	if cookie != nil {
		upgradeHeader = http.Header{}
		upgradeHeader.Add("Set-Cookie", cookie.String())
	}

	conn, err := s.upgrader.Upgrade(w, r, upgradeHeader)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	send := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.WSIdleTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		msg := parsed.(protocol.ClientMessage)
		s.runTurn(ctx, id, msg, send)
	}

	cancel()
	<-writerDone
}

// runTurn streams one chat turn back over the socket: text deltas while
// the model talks, then a turn-end carrying the full reply and
// citations.
func (s *Server) runTurn(ctx context.Context, id chat.Identity, msg protocol.ClientMessage, send func(any)) {
	turnID := uuid.NewString()

	turn, err := s.chat.HandleStream(ctx, id, msg.Text, func(delta string) {
		send(protocol.AssistantTextDelta{
			Type:      protocol.TypeAssistantTextDelta,
			SessionID: msg.SessionID,
			TurnID:    turnID,
			TextDelta: delta,
		})
	})
	if err != nil {
		send(protocol.ErrorEvent{
			Type:      protocol.TypeErrorEvent,
			SessionID: msg.SessionID,
			Code:      string(reliability.KindOf(err)),
			Retryable: reliability.Retryable(err),
			Detail:    err.Error(),
		})
		return
	}

	citations := turn.Citations
	if citations == nil {
		citations = []agent.Citation{}
	}
	send(protocol.AssistantTurnEnd{
		Type:      protocol.TypeAssistantTurnEnd,
		SessionID: msg.SessionID,
		TurnID:    turnID,
		Reply:     turn.Reply,
		Citations: citations,
		Reason:    "complete",
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
