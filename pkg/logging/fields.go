package logging

import (
	"time"

	"github.com/dd0wney/cluso-flowlink/pkg/diagram"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Domain fields.

func Component(name string) Field {
	return String("component", name)
}

func ConnectionID(id string) Field {
	return String("connection_id", id)
}

func PortID(id string) Field {
	return String("port_id", id)
}

func NodeID(id string) Field {
	return String("node_id", id)
}

func Reason(code diagram.ReasonCode) Field {
	return String("reason", string(code))
}

func State(s string) Field {
	return String("state", s)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Count(n int) Field {
	return Int("count", n)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

// Point logs a coordinate as {"x":..,"y":..}.
func Point(key string, p diagram.Point) Field {
	return Field{Key: key, Value: map[string]float64{"x": p.X, "y": p.Y}}
}
