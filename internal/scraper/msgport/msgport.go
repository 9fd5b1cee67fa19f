// Package msgport carries the message contract between the controller
// and its UI collaborator: a payload-tagged union over a long-lived
// per-context port. The transport itself (popup, TUI, test harness) is
// the collaborator's concern; only the contract lives here.
package msgport

import (
	"log"
	"sync"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
)

type MessageType string

const (
	// Inbound, UI -> controller.
	MsgStart    MessageType = "START"
	MsgAbort    MessageType = "ABORT"
	MsgReset    MessageType = "RESET"
	MsgGetState MessageType = "GET_STATE"

	// Outbound, controller -> UI.
	MsgLoadState MessageType = "LOAD_STATE"
	MsgUpdate    MessageType = "UPDATE"
)

// Inbound is a command from the UI for one context.
type Inbound struct {
	Type      MessageType `json:"type"`
	ContextID string      `json:"contextId"`
}

// Results carries postprocessed output to the UI. Both fields are nil
// until a job reaches a terminal state.
type Results struct {
	Purchases   []appstore.Purchase     `json:"purchases"`
	TotalAmount appstore.AggregateTotal `json:"totalAmount"`
}

// LoadState reports the externally visible status plus whatever results
// exist. State values match the original wire contract: 0 NOT_STARTED,
// 1 RUNNING, 2 FINISHED, 3 ABORTED, 4 NOT_READY.
type LoadState struct {
	State   int     `json:"state"`
	Results Results `json:"results"`
}

// Update reports in-progress completion, 0-100.
type Update struct {
	Progress int `json:"progress"`
}

// Outbound is a notification to the UI.
type Outbound struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

const portBuffer = 16

// Port is one live connection to a UI collaborator.
type Port struct {
	mu     sync.Mutex
	closed bool
	events chan Outbound
}

// Events is the stream of outbound notifications. It is closed when the
// port is replaced or closed.
func (p *Port) Events() <-chan Outbound {
	return p.events
}

func (p *Port) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

// send reports false when the port is closed or its buffer is full.
func (p *Port) send(msg Outbound) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- msg:
		return true
	default:
		return false
	}
}

// Hub holds at most one live port per context. Connecting again
// forcibly terminates and replaces the previous port, so notifications
// are never delivered twice.
type Hub struct {
	mu    sync.Mutex
	ports map[string]*Port
}

func NewHub() *Hub {
	return &Hub{ports: make(map[string]*Port)}
}

// Connect opens a port for the context, replacing any existing one.
func (h *Hub) Connect(contextID string) *Port {
	port := &Port{events: make(chan Outbound, portBuffer)}

	h.mu.Lock()
	old := h.ports[contextID]
	h.ports[contextID] = port
	h.mu.Unlock()

	if old != nil {
		old.close()
	}
	return port
}

// Disconnect closes the context's port if the given port is still the
// live one.
func (h *Hub) Disconnect(contextID string, port *Port) {
	h.mu.Lock()
	if h.ports[contextID] == port {
		delete(h.ports, contextID)
	}
	h.mu.Unlock()
	port.close()
}

// Send delivers a notification to the context's port. With no port
// connected, or a full buffer, the message is dropped with a log line;
// the UI recovers current state on reconnect via GET_STATE.
func (h *Hub) Send(contextID string, msg Outbound) {
	h.mu.Lock()
	port := h.ports[contextID]
	h.mu.Unlock()

	if port == nil {
		log.Printf("WARN: msgport: no port for context %s, dropping %s", contextID, msg.Type)
		return
	}

	if !port.send(msg) {
		log.Printf("WARN: msgport: port closed or full for context %s, dropping %s", contextID, msg.Type)
	}
}
