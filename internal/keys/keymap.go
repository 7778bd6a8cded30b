package keys

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// ErrUnknownKey is returned when a key name cannot be resolved.
var ErrUnknownKey = errors.New("unknown key")

// KeyCode is a Linux input event key code (KEY_* in input-event-codes.h).
type KeyCode uint16

// Key codes used as defaults and in tests.
const (
	KeyEsc       = KeyCode(evdev.KEY_ESC)
	KeyBackspace = KeyCode(evdev.KEY_BACKSPACE)
	KeyTab       = KeyCode(evdev.KEY_TAB)
	KeyEnter     = KeyCode(evdev.KEY_ENTER)
	KeyLeftCtrl  = KeyCode(evdev.KEY_LEFTCTRL)
	KeyLeftShift = KeyCode(evdev.KEY_LEFTSHIFT)
	KeyLeftAlt   = KeyCode(evdev.KEY_LEFTALT)
	KeySpace     = KeyCode(evdev.KEY_SPACE)
	KeyUp        = KeyCode(evdev.KEY_UP)
	KeyLeft      = KeyCode(evdev.KEY_LEFT)
	KeyRight     = KeyCode(evdev.KEY_RIGHT)
	KeyDown      = KeyCode(evdev.KEY_DOWN)
)

// aliases maps friendly names onto their evdev KEY_* suffix.
var aliases = map[string]string{
	"escape":  "ESC",
	"return":  "ENTER",
	"ctrl":    "LEFTCTRL",
	"control": "LEFTCTRL",
	"shift":   "LEFTSHIFT",
	"alt":     "LEFTALT",
}

// ParseKey resolves a key name ("space", "a", "f5", "KEY_PAGEUP") or a
// numeric key code.
func ParseKey(s string) (KeyCode, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := aliases[strings.ToLower(name)]; ok {
		name = alias
	}
	if name != "" {
		if !strings.HasPrefix(name, "KEY_") {
			name = "KEY_" + name
		}
		if code, ok := evdev.KEYFromString[name]; ok {
			return KeyCode(code), nil
		}
	}
	if n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16); err == nil && n > 0 {
		return KeyCode(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// KnownKeys returns the codes of every named keyboard key, sorted and
// deduplicated.
func KnownKeys() []KeyCode {
	seen := make(map[KeyCode]bool)
	codes := make([]KeyCode, 0, 128)
	for _, c := range evdev.KEYFromString {
		// Codes from BTN_MISC upwards are buttons, not keyboard keys.
		if c == 0 || c >= evdev.BTN_MISC {
			continue
		}
		code := KeyCode(c)
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// InjectorKeys returns the codes a virtual keyboard must advertise so that
// it can emit every named key plus air, which may be a raw numeric code.
func InjectorKeys(air KeyCode) []KeyCode {
	codes := KnownKeys()
	i := sort.Search(len(codes), func(i int) bool { return codes[i] >= air })
	if i < len(codes) && codes[i] == air {
		return codes
	}
	codes = append(codes, 0)
	copy(codes[i+1:], codes[i:])
	codes[i] = air
	return codes
}
