// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/pressure_computer/internal/ms5803"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// PROMDebugSession holds WebSocket connection state for PROM/ADC debugging
type PROMDebugSession struct {
	Conn *websocket.Conn
	Dev  *ms5803.Dev
}

// PROMDebugCmd is the request message. Fields are used per action:
//
//	reset, read_prom, read_calibration
//	read_coefficient: index
//	convert:          measurement ("temperature"|"pressure"), osr
//	values:           osr
type PROMDebugCmd struct {
	Action      string `json:"action"`
	Index       int    `json:"index,omitempty"`
	Measurement string `json:"measurement,omitempty"`
	OSR         int    `json:"osr,omitempty"`
}

// PROMDebugResponse is sent for every command.
type PROMDebugResponse struct {
	Type        string         `json:"type"` // "prom", "coefficient", "adc", "values", "status", "error"
	Action      string         `json:"action,omitempty"`
	Address     string         `json:"addr,omitempty"`
	Value       string         `json:"value,omitempty"`
	Words       []string       `json:"words,omitempty"`
	CRC         string         `json:"crc,omitempty"`
	CRCOK       *bool          `json:"crc_ok,omitempty"`
	Values      *ms5803.Values `json:"values,omitempty"`
	Calibration *[6]uint16     `json:"calibration,omitempty"`
	Message     string         `json:"message,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

// NewPROMDebugHandler returns the WebSocket handler bound to dev.
func NewPROMDebugHandler(dev *ms5803.Dev) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("prom_debug: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		session := &PROMDebugSession{Conn: conn, Dev: dev}

		// Message loop
		for {
			var cmd PROMDebugCmd
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("prom_debug: websocket error: %v", err)
				}
				break
			}
			if err := session.handle(cmd); err != nil {
				log.Printf("prom_debug: write error: %v", err)
				break
			}
		}
	}
}

// handle routes one command. It only returns WebSocket write errors.
func (s *PROMDebugSession) handle(cmd PROMDebugCmd) error {
	switch cmd.Action {
	case "reset":
		if err := s.Dev.Reset(); err != nil {
			return s.sendError(cmd.Action, err)
		}
		return s.send(PROMDebugResponse{Type: "status", Action: cmd.Action, Message: "reset done"})
	case "read_prom":
		return s.handleReadPROM(cmd)
	case "read_calibration":
		c, err := s.Dev.ReadCalibration()
		if err != nil {
			return s.sendError(cmd.Action, err)
		}
		cal := [6]uint16(c)
		return s.send(PROMDebugResponse{Type: "coefficient", Action: cmd.Action, Calibration: &cal})
	case "read_coefficient":
		v, err := s.Dev.ReadCoefficient(cmd.Index)
		if err != nil {
			return s.sendError(cmd.Action, err)
		}
		return s.send(PROMDebugResponse{
			Type:    "coefficient",
			Action:  cmd.Action,
			Address: fmt.Sprintf("0x%02X", 0xA2+cmd.Index<<1),
			Value:   fmt.Sprintf("0x%04X", v),
		})
	case "convert":
		return s.handleConvert(cmd)
	case "values":
		p, err := ms5803.ParsePrecision(cmd.OSR)
		if err != nil {
			return s.sendError(cmd.Action, err)
		}
		v, err := s.Dev.Values(p)
		if err != nil {
			return s.sendError(cmd.Action, err)
		}
		return s.send(PROMDebugResponse{Type: "values", Action: cmd.Action, Values: &v})
	case "":
		return s.sendError("", fmt.Errorf("missing or invalid action field"))
	default:
		return s.sendError(cmd.Action, fmt.Errorf("unknown action: %s", cmd.Action))
	}
}

func (s *PROMDebugSession) handleReadPROM(cmd PROMDebugCmd) error {
	prom, err := s.Dev.ReadPROM()
	if err != nil {
		return s.sendError(cmd.Action, err)
	}
	words := make([]string, len(prom))
	for i, w := range prom {
		words[i] = fmt.Sprintf("0x%04X", w)
	}
	ok := ms5803.CheckCRC(prom)
	return s.send(PROMDebugResponse{
		Type:   "prom",
		Action: cmd.Action,
		Words:  words,
		CRC:    fmt.Sprintf("0x%X", ms5803.CRC4(prom)),
		CRCOK:  &ok,
	})
}

func (s *PROMDebugSession) handleConvert(cmd PROMDebugCmd) error {
	var m ms5803.Measurement
	switch cmd.Measurement {
	case "temperature", "d2":
		m = ms5803.Temperature
	case "pressure", "d1":
		m = ms5803.Pressure
	default:
		return s.sendError(cmd.Action, fmt.Errorf("invalid measurement %q", cmd.Measurement))
	}
	p, err := ms5803.ParsePrecision(cmd.OSR)
	if err != nil {
		return s.sendError(cmd.Action, err)
	}
	raw, err := s.Dev.Convert(m, p)
	if err != nil {
		return s.sendError(cmd.Action, err)
	}
	return s.send(PROMDebugResponse{
		Type:   "adc",
		Action: cmd.Action,
		Value:  fmt.Sprintf("0x%06X", raw),
	})
}

func (s *PROMDebugSession) send(resp PROMDebugResponse) error {
	resp.Timestamp = time.Now().Format(time.RFC3339)
	return s.Conn.WriteJSON(resp)
}

func (s *PROMDebugSession) sendError(action string, err error) error {
	return s.send(PROMDebugResponse{Type: "error", Action: action, Message: err.Error()})
}

// RunPROMDebug serves the PROM/ADC debug tool for the configured sensor.
func RunPROMDebug(dev *ms5803.Dev, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewPROMDebugHandler(dev))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/prom_debug.html")
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("prom_debug: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
