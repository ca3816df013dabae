package websocket

import (
	"encoding/json"
	"testing"
)

func TestBroadcastBalanceReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	first := &Client{send: make(chan []byte, sendBuffer)}
	second := &Client{send: make(chan []byte, sendBuffer)}
	hub.Register("u1", first)
	hub.Register("u1", second)
	hub.Register("u2", &Client{send: make(chan []byte, sendBuffer)})

	hub.BroadcastBalance("u1", BalanceUpdate{WalletID: "w1", Balance: "42.00", Currency: "USD"})

	for _, client := range []*Client{first, second} {
		select {
		case payload := <-client.send:
			var update BalanceUpdate
			if err := json.Unmarshal(payload, &update); err != nil {
				t.Fatalf("invalid payload: %v", err)
			}
			if update.WalletID != "w1" || update.Balance != "42.00" {
				t.Fatalf("unexpected update: %+v", update)
			}
		default:
			t.Fatal("every open connection of the user must receive the update")
		}
	}
}

func TestBroadcastBalanceSkipsSlowClients(t *testing.T) {
	hub := NewHub()
	slow := &Client{send: make(chan []byte)}
	hub.Register("u1", slow)

	// Nothing is draining slow.send; the broadcast must not block.
	hub.BroadcastBalance("u1", BalanceUpdate{WalletID: "w1", Balance: "1.00", Currency: "USD"})
}

func TestUnregisterDropsEmptyUsers(t *testing.T) {
	hub := NewHub()
	client := &Client{send: make(chan []byte, 1)}
	hub.Register("u1", client)
	hub.Unregister("u1", client)

	hub.BroadcastBalance("u1", BalanceUpdate{WalletID: "w1", Balance: "1.00", Currency: "USD"})
	select {
	case <-client.send:
		t.Fatal("an unregistered connection must not receive updates")
	default:
	}
}
