// Bot client: drives a full 3-player Lucky Ladders match against a running
// relay. Useful for smoke-testing a deployment end to end.
package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MsgTypeHeartbeat    = 1
	MsgTypeJoinLobby    = 101
	MsgTypeSelectDoor   = 201
	MsgTypeMatchStarted = 303
	MsgTypeGameUpdate   = 304
)

type playerView struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Status   string `json:"status"`
}

type roomView struct {
	ID      string       `json:"id"`
	Status  string       `json:"status"`
	Players []playerView `json:"players"`
}

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func runBot(roomID, playerID string, wg *sync.WaitGroup) {
	defer wg.Done()

	u := url.URL{Scheme: "ws", Host: "localhost:4000", Path: "/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("[%s] dial failed: %v", playerID, err)
	}
	defer c.Close()

	join := map[string]interface{}{
		"roomId": roomID,
		"player": map[string]interface{}{
			"id":           playerID,
			"name":         playerID,
			"color":        "#00ffcc",
			"gorbaBalance": 10,
		},
	}
	joinData, _ := json.Marshal(join)
	if err := send(c, MsgTypeJoinLobby, joinData); err != nil {
		log.Fatalf("[%s] join failed: %v", playerID, err)
	}

	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()
	go func() {
		for range heartbeat.C {
			send(c, MsgTypeHeartbeat, nil)
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			log.Printf("[%s] read error: %v", playerID, err)
			return
		}
		if len(message) < 4 {
			continue
		}
		msgID := binary.BigEndian.Uint16(message[0:2])
		if msgID != MsgTypeMatchStarted && msgID != MsgTypeGameUpdate {
			continue
		}

		var view roomView
		if err := json.Unmarshal(message[4:], &view); err != nil {
			continue
		}
		if view.Status == "finished" {
			log.Printf("[%s] match finished", playerID)
			return
		}
		if view.Status != "playing" {
			continue
		}

		for _, p := range view.Players {
			if p.ID != playerID || p.Status != "active" {
				continue
			}
			pick := map[string]interface{}{
				"roomId":    roomID,
				"playerId":  playerID,
				"level":     p.Position,
				"doorIndex": rand.Intn(3),
			}
			pickData, _ := json.Marshal(pick)
			time.Sleep(200 * time.Millisecond)
			if err := send(c, MsgTypeSelectDoor, pickData); err != nil {
				log.Printf("[%s] pick failed: %v", playerID, err)
				return
			}
			log.Printf("[%s] picked a door at level %d", playerID, p.Position)
		}
	}
}

func main() {
	roomID := fmt.Sprintf("bot-match-%d", time.Now().Unix())
	log.Printf("Starting 3 bots in room %s", roomID)

	var wg sync.WaitGroup
	for i := 1; i <= 3; i++ {
		wg.Add(1)
		go runBot(roomID, fmt.Sprintf("bot-%d", i), &wg)
	}
	wg.Wait()
	log.Println("All bots done.")
}
