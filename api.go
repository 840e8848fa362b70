package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/wheelworks/godrivebot/comms"
)

var errUsageTwist = errors.New("usage: twist <linear> <angular>")

// the node sits on the robot's LAN, origin checks add nothing here
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StateHandler serves the current drive snapshot.
func StateHandler(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ENV.Drive.State())
}

// TwistHandler injects a single velocity command over HTTP.
func TwistHandler(w http.ResponseWriter, r *http.Request) {
	var payload comms.TwistPayload
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid twist payload"})
		return
	}

	ENV.Conductor.ProcessTwist(payload)
	render.JSON(w, r, ENV.Drive.State())
}

// TeleopHandler streams twist commands over a websocket, one JSON frame per
// command. The connection closing simply stops the stream, the watchdog
// takes care of stopping the robot.
func TeleopHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var payload comms.TwistPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return
		}
		ENV.Conductor.ProcessTwist(payload)
	}
}
