// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, relay statistics, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// StatsResponse is the body served by the stats endpoint.
type StatsResponse struct {
	Rooms    int           `json:"rooms"`
	Clients  int           `json:"clients"`
	Members  int           `json:"members"`
	RoomList []RoomSummary `json:"roomList"`
}

// WebSocketHandler upgrades GET requests to WebSocket connections and hands
// each one to hub as a new Client.
func WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		// The hub launches the pump goroutines.
		hub.Register(NewClient(conn, hub, r.RemoteAddr))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Room relay is running!")
}

// StatsHandler reports room and connection counts as JSON.
func StatsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rooms, members := hub.Registry().Stats()
		resp := StatsResponse{
			Rooms:    rooms,
			Clients:  hub.ClientCount(),
			Members:  members,
			RoomList: hub.Registry().Rooms(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Warn("writing stats response failed", "error", err)
		}
	}
}

// TestPageHandler serves an HTML page for exercising the room protocol from a browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		slog.Warn("writing test page failed", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Room Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        input[type="text"] { width: 240px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:disabled { background-color: #999; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Room Relay Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>
    <button id="connectButton" onclick="toggleConnection()">Connect</button>

    <div style="margin-top: 10px">
        <input type="text" id="roomInput" placeholder="Room name..." disabled>
        <button id="createButton" onclick="sendRoomCommand('create')" disabled>Create</button>
        <button id="joinButton" onclick="sendRoomCommand('join')" disabled>Join</button>
    </div>

    <div id="messages"></div>

    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendChat()" disabled>Send</button>
    </div>

    <script>
        let ws = null;
        const messagesDiv = document.getElementById('messages');
        const roomInput = document.getElementById('roomInput');
        const messageInput = document.getElementById('messageInput');
        const statusDiv = document.getElementById('status');
        const connectButton = document.getElementById('connectButton');
        const controls = ['roomInput', 'createButton', 'joinButton', 'messageInput', 'sendButton']
            .map(id => document.getElementById(id));

        function addMessage(text, color) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = color;
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
            controls.forEach(c => c.disabled = !connected);
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = () => { addMessage('Connected', 'gray'); updateStatus(true); };
            ws.onmessage = (event) => {
                const msg = JSON.parse(event.data);
                const colors = { error: 'red', success: 'darkgreen', info: 'gray', chat: 'green' };
                const prefix = msg.type === 'chat' ? 'Other: ' : '[' + msg.type + '] ';
                addMessage(prefix + msg.message, colors[msg.type] || 'black');
            };
            ws.onclose = () => { addMessage('Connection closed', 'gray'); updateStatus(false); ws = null; };
            ws.onerror = () => { addMessage('Connection error', 'red'); };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function send(frame) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify(frame));
                return true;
            }
            return false;
        }

        function sendRoomCommand(type) {
            const roomId = roomInput.value.trim();
            if (roomId) {
                send({ type: type, payload: { roomId: roomId } });
            }
        }

        function sendChat() {
            const message = messageInput.value;
            if (send({ type: 'chat', payload: { message: message } })) {
                addMessage('You: ' + message, 'blue');
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', (e) => { if (e.key === 'Enter') sendChat(); });
    </script>
</body>
</html>`
