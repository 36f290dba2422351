/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package sweepmetrics

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// DashboardHandler upgrades every request to a websocket and pushes one
// JSON-encoded Sample per tick for as long as the connection stays open,
// the same upgrade-then-loop shape scm/network.go's "websocket" builtin
// uses for its send/receive pair — except here the server only ever
// writes, so there is no read loop beyond watching for the client closing
// the connection.
func DashboardHandler(sampler *Sampler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("sweepmetrics: dashboard: upgrade failed: %v", err)
			return
		}
		defer ws.Close()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := ws.WriteJSON(sampler.Latest()); err != nil {
			return
		}

		feed := sampler.Subscribe()
		for {
			select {
			case <-closed:
				return
			case sample := <-feed:
				if err := ws.WriteJSON(sample); err != nil {
					return
				}
			}
		}
	}
}

// MarshalSample is a convenience used by non-websocket callers (e.g. a
// plain HTTP polling endpoint) that want the same wire format the
// dashboard feed pushes.
func MarshalSample(s Sample) ([]byte, error) {
	return json.Marshal(s)
}
