package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field paths are dot-separated keys ("data.items"). A numeric segment
// indexes into an array ("data.0.name"). The empty path is the root.

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// navigate returns the element of doc selected by path.
func navigate(doc []byte, path string) (json.RawMessage, error) {
	segs := splitPath(path)
	return lookup(json.RawMessage(doc), segs, 0)
}

// lookup descends one segment at a time; depth is the number of segments
// already consumed, used to name the failing prefix.
func lookup(cur json.RawMessage, segs []string, depth int) (json.RawMessage, error) {
	if depth == len(segs) {
		return cur, nil
	}
	seg := segs[depth]
	fail := func(err error) (json.RawMessage, error) {
		return nil, &DecodeError{Path: strings.Join(segs[:depth+1], "."), Err: err}
	}
	if seg == "" {
		return fail(ErrEmptySegment)
	}

	trimmed := bytes.TrimSpace(cur)
	if len(trimmed) == 0 {
		return fail(fmt.Errorf("%w: empty document", ErrNotContainer))
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fail(err)
		}
		next, ok := obj[seg]
		if !ok {
			return fail(fmt.Errorf("%w: %q", ErrFieldNotFound, seg))
		}
		return lookup(next, segs, depth+1)
	case '[':
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 {
			return fail(fmt.Errorf("%w: cannot index array with %q", ErrNotContainer, seg))
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return fail(err)
		}
		if idx >= len(arr) {
			return fail(fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, idx, len(arr)))
		}
		return lookup(arr[idx], segs, depth+1)
	default:
		return fail(fmt.Errorf("%w: cannot select %q from %s", ErrNotContainer, seg, jsonKind(trimmed)))
	}
}

func jsonKind(v []byte) string {
	switch v[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
