package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"starkpay/internal/events"
	"starkpay/internal/money"
)

type BalanceUpdate struct {
	Type      events.Type `json:"type"`
	WalletID  string      `json:"wallet_id"`
	Reference string      `json:"reference,omitempty"`
	Amount    string      `json:"amount"`
	Balance   string      `json:"balance"`
	Currency  string      `json:"currency"`
}

// Hub tracks open sockets per user and pushes balance changes to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
}

func (h *Hub) Unregister(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		return
	}
	delete(h.clients[userID], client)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Notify implements events.NotificationPort. Events that do not move a
// wallet are skipped. Slow clients miss updates instead of blocking.
func (h *Hub) Notify(ctx context.Context, userID string, kind events.Type, payload events.Event) error {
	if payload.WalletID == "" {
		return nil
	}
	body, err := json.Marshal(BalanceUpdate{
		Type:      kind,
		WalletID:  payload.WalletID,
		Reference: payload.Reference,
		Amount:    money.FormatMinor(payload.Amount),
		Balance:   money.FormatMinor(payload.Balance),
		Currency:  "NGN",
	})
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		select {
		case client.send <- body:
		default:
		}
	}
	return nil
}
