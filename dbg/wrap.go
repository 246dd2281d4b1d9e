package dbg

type Packed[T any] struct {
	Data      T   `json:"data"`
	DebugData any `json:"debug_data,omitempty"`
}

func Pack[T any](data T) *Packed[T] {
	return &Packed[T]{
		Data: data,
	}
}

// PackDebug attaches debugData only when debug is on
func PackDebug[T any](data T, debug bool, debugData func() any) *Packed[T] {
	p := Pack(data)
	if debug && debugData != nil {
		p.DebugData = debugData()
	}
	return p
}
