package depthcloud

type Key int

const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyF
	KeyH
	KeyR
	KeySpace
	KeyTab
	KeyEscape
	KeyShift
	KeyControl
	MouseButtonLeft
	MouseButtonRight
	keyCount
)

// Input is the keyboard and mouse state sampled at the start of each frame.
// The window backend writes it; systems only read it.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
	MouseCaptured            bool
}

type InputModule struct{}

func (mod InputModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Input{})
}

// SetKey records the sampled state of key for this frame.
func (in *Input) SetKey(key Key, down bool) {
	if key < 0 || key >= keyCount {
		return
	}
	in.JustPressed[key] = down && !in.Pressed[key]
	in.JustReleased[key] = !down && in.Pressed[key]
	in.Pressed[key] = down
}

// SetMouse records the cursor position. Deltas are only tracked while the
// mouse is captured.
func (in *Input) SetMouse(x, y float64) {
	if in.MouseCaptured {
		in.MouseDeltaX = x - in.MouseX
		in.MouseDeltaY = y - in.MouseY
	} else {
		in.MouseDeltaX = 0
		in.MouseDeltaY = 0
	}
	in.MouseX = x
	in.MouseY = y
}

// Keys lists every key the window backend samples.
func Keys() []Key {
	keys := make([]Key, keyCount)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}
