package backlog

import "fmt"

func validatePayload(p Payload) error {
	if len(p) == 0 {
		return ErrInvalidPayload
	}
	return nil
}

// HasNonStringKeys reports whether any key of m is not a string.
func HasNonStringKeys(m map[any]any) bool {
	for k := range m {
		if _, ok := k.(string); !ok {
			return true
		}
	}
	return false
}

// StringKeys returns a Payload with every key and value of m formatted as a string.
// Nil values become empty strings.
func StringKeys(m map[any]any) Payload {
	p := make(Payload, len(m))
	for k, v := range m {
		p[stringify(k)] = stringify(v)
	}
	return p
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
