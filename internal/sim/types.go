package sim

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Telemetry is the snapshot published after every fixed phase.
type Telemetry struct {
	Session string    `json:"session" msgpack:"session"`
	TS      time.Time `json:"ts" msgpack:"ts"`

	Yaw      float64   `json:"yaw" msgpack:"yaw"`
	Pitch    float64   `json:"pitch" msgpack:"pitch"`
	Roll     float64   `json:"roll" msgpack:"roll"`
	Throttle float64   `json:"throttle" msgpack:"throttle"`
	Sources  [3]string `json:"sources" msgpack:"sources"`

	// ThrottleDirection is +1 while throttling up, -1 while throttling down.
	ThrottleDirection int `json:"throttleDirection" msgpack:"throttleDirection"`

	InStall bool `json:"inStall" msgpack:"inStall"`

	AimPosition         mgl64.Vec3 `json:"aimPosition" msgpack:"aimPosition"`
	Boresight           mgl64.Vec3 `json:"boresight" msgpack:"boresight"`
	AimFrozen           bool       `json:"aimFrozen" msgpack:"aimFrozen"`
	OffScreenDuringLock bool       `json:"offScreenDuringLock" msgpack:"offScreenDuringLock"`
	LastLock            time.Time  `json:"lastLock" msgpack:"lastLock"`
	LastManualInput     time.Time  `json:"lastManualInput" msgpack:"lastManualInput"`

	Speed    float64 `json:"speed" msgpack:"speed"`
	Altitude float64 `json:"altitude" msgpack:"altitude"` // meters
	GForce   float64 `json:"gForce" msgpack:"gForce"`     // vertical, body frame
	AoA      float64 `json:"aoa" msgpack:"aoa"`           // degrees
	AirBrake bool    `json:"airbrake" msgpack:"airbrake"`
	Flaps    bool    `json:"flaps" msgpack:"flaps"`

	HeadingDeg float64 `json:"headingDeg" msgpack:"headingDeg"`
	Lat        float64 `json:"lat" msgpack:"lat"`
	Lon        float64 `json:"lon" msgpack:"lon"`
}
