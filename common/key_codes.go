package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87 // W key (ASCII)
	KeyA     = 65 // A key (ASCII)
	KeyS     = 83 // S key (ASCII)
	KeyD     = 68 // D key (ASCII)
	KeyQ     = 81 // Q key (ASCII)
	KeyE     = 69 // E key (ASCII)
	KeyC     = 67 // C key (ASCII)
	KeyF     = 70 // F key (ASCII)
	KeyL     = 76 // L key (ASCII)
	KeyR     = 82 // R key (ASCII)
	KeySpace = 32 // Spacebar (ASCII)
	KeyMinus = 45 // - key (ASCII)
	KeyEqual = 61 // = key (ASCII)
	KeyEsc   = 256

	Key1 = 49 // 1 key (ASCII)
	Key9 = 57 // 9 key (ASCII)
)

// Arrow keys
const (
	KeyRight = 262
	KeyLeft  = 263
	KeyDown  = 264
	KeyUp    = 265
)

// Additional non-printable keys
const (
	KeyLeftShift  = 340 // Left Shift (GLFW)
	KeyRightShift = 344 // Right Shift (GLFW)
)

// Mouse buttons, matching glfw.MouseButton values.
const (
	MouseButtonLeft  = 0
	MouseButtonRight = 1
)

// DigitIndex maps the keys 1 through 9 to the zero-based indices 0 through 8.
//
// Parameters:
//   - key: the key code
//
// Returns:
//   - int: the index the key selects
//   - bool: false if the key is not a digit 1-9
func DigitIndex(key int) (int, bool) {
	if key < Key1 || key > Key9 {
		return 0, false
	}
	return key - Key1, true
}
