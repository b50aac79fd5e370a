// Package api exposes the engine over HTTP: input endpoints, aircraft ingest, state
// snapshots and an SSE telemetry stream.
package api

import (
	"context"
	"encoding/json"
	"flight-control/internal/aircraft"
	"flight-control/internal/control"
	"flight-control/internal/geometry"
	"flight-control/internal/sim"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const contentTypeMsgpack = "application/msgpack"

// Engine is the part of sim.Engine the server drives.
type Engine interface {
	Submit(cmd sim.Command)
	GetState(ctx context.Context) (sim.Telemetry, error)
	Subscribe(ctx context.Context) (<-chan sim.Telemetry, func())
}

type Server struct {
	eng Engine
	mux *http.ServeMux
	log zerolog.Logger
}

func NewServer(eng Engine, log zerolog.Logger) *Server {
	s := &Server{eng: eng, mux: http.NewServeMux(), log: log.With().Str("component", "api").Logger()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/state", s.state)

	s.mux.HandleFunc("/input/axis", s.axisInput)
	s.mux.HandleFunc("/input/pointer", s.pointerInput)
	s.mux.HandleFunc("/input/freeze", s.freezeInput)
	s.mux.HandleFunc("/input/throttle", s.throttleInput)
	s.mux.HandleFunc("/input/toggle", s.toggleInput)

	s.mux.HandleFunc("/aircraft", s.aircraftState)

	s.mux.HandleFunc("/stream", s.streamSSE)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.GetState(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), contentTypeMsgpack) {
		b, err := msgpack.Marshal(st)
		if err != nil {
			s.log.Error().Err(err).Msg("encoding state as msgpack")
			http.Error(w, "encoding failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeMsgpack)
		_, _ = w.Write(b)
		return
	}
	writeJSON(w, st)
}

// decodePost enforces POST and decodes the JSON body into v. It writes the error
// response itself and reports whether the handler should continue.
func decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) axisInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Axis  string  `json:"axis"`
		Value float64 `json:"value"`
		Phase string  `json:"phase"`
	}
	if !decodePost(w, r, &body) {
		return
	}
	axis, err := control.ParseAxis(body.Axis)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	phase, err := control.ParsePhase(body.Phase)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.eng.Submit(sim.AxisCommand{
		At:    time.Now(),
		Event: control.AxisEvent{Axis: axis, Value: body.Value, Phase: phase},
	})
	writeJSON(w, map[string]any{"status": "accepted", "type": "axis"})
}

func (s *Server) pointerInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	if !decodePost(w, r, &body) {
		return
	}
	s.eng.Submit(sim.PointerCommand{At: time.Now(), DX: body.DX, DY: body.DY})
	writeJSON(w, map[string]any{"status": "accepted", "type": "pointer"})
}

func (s *Server) freezeInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phase string `json:"phase"`
	}
	if !decodePost(w, r, &body) {
		return
	}
	phase, err := control.ParsePhase(body.Phase)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.eng.Submit(sim.FreezeCommand{At: time.Now(), Phase: phase})
	writeJSON(w, map[string]any{"status": "accepted", "type": "freeze"})
}

func (s *Server) throttleInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value float64 `json:"value"`
		Phase string  `json:"phase"`
	}
	if !decodePost(w, r, &body) {
		return
	}
	phase, err := control.ParsePhase(body.Phase)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.eng.Submit(sim.ThrottleCommand{
		At:    time.Now(),
		Event: control.ThrottleEvent{Value: body.Value, Phase: phase},
	})
	writeJSON(w, map[string]any{"status": "accepted", "type": "throttle"})
}

func (s *Server) toggleInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Surface string `json:"surface"`
	}
	if !decodePost(w, r, &body) {
		return
	}
	surface := sim.Surface(strings.ToLower(body.Surface))
	if surface != sim.SurfaceAirBrake && surface != sim.SurfaceFlaps {
		http.Error(w, fmt.Sprintf("unknown surface %q", body.Surface), http.StatusBadRequest)
		return
	}
	s.eng.Submit(sim.ToggleCommand{At: time.Now(), Surface: surface})
	writeJSON(w, map[string]any{"status": "accepted", "type": "toggle", "surface": surface})
}

func (s *Server) aircraftState(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Position      mgl64.Vec3 `json:"position"`
		Rotation      [4]float64 `json:"rotation"` // x, y, z, w
		LocalVelocity mgl64.Vec3 `json:"localVelocity"`
		LocalGForce   mgl64.Vec3 `json:"localGForce"`
		AngleOfAttack float64    `json:"aoa"`
		Velocity      mgl64.Vec3 `json:"velocity"`
	}
	if !decodePost(w, r, &body) {
		return
	}
	q := mgl64.Quat{W: body.Rotation[3], V: mgl64.Vec3{body.Rotation[0], body.Rotation[1], body.Rotation[2]}}
	if q.Len() < 1e-9 {
		http.Error(w, "rotation must be a non-zero quaternion", http.StatusBadRequest)
		return
	}

	s.eng.Submit(sim.AircraftCommand{
		At:   time.Now(),
		Pose: geometry.Transform{Position: body.Position, Rotation: q.Normalize()},
		Kinematics: aircraft.Kinematics{
			LocalVelocity: body.LocalVelocity,
			LocalGForce:   body.LocalGForce,
			AngleOfAttack: body.AngleOfAttack,
			Velocity:      body.Velocity,
		},
	})
	writeJSON(w, map[string]any{"status": "accepted", "type": "aircraft"})
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			b, err := json.Marshal(st)
			if err != nil {
				s.log.Error().Err(err).Msg("encoding telemetry")
				continue
			}
			fmt.Fprintf(w, "event: state\n")
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
