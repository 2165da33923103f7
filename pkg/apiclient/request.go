package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/samvad-hq/endpointkit/pkg/endpoint"
)

// RequestOne performs target and decodes the element at fieldPath into a
// single M. An empty fieldPath decodes the whole body.
func RequestOne[M any, T endpoint.Target](ctx context.Context, c *Client[T], target T, fieldPath string) *Future[M] {
	return startFuture(ctx, func(ctx context.Context) (M, error) {
		var zero M
		body, err := c.exchange(ctx, target)
		if err != nil {
			return zero, err
		}
		return decodeOne[M](body, fieldPath, c.cfg.strict)
	})
}

// RequestMany performs target and decodes the array at fieldPath into a
// slice of M. An empty array yields an empty, non-nil slice.
func RequestMany[M any, T endpoint.Target](ctx context.Context, c *Client[T], target T, fieldPath string) *Future[[]M] {
	return startFuture(ctx, func(ctx context.Context) ([]M, error) {
		body, err := c.exchange(ctx, target)
		if err != nil {
			return nil, err
		}
		return decodeMany[M](body, fieldPath, c.cfg.strict)
	})
}

// FetchOne is the blocking form of RequestOne.
func FetchOne[M any, T endpoint.Target](ctx context.Context, c *Client[T], target T, fieldPath string) (M, error) {
	return RequestOne[M](ctx, c, target, fieldPath).Wait(ctx)
}

// FetchMany is the blocking form of RequestMany.
func FetchMany[M any, T endpoint.Target](ctx context.Context, c *Client[T], target T, fieldPath string) ([]M, error) {
	return RequestMany[M](ctx, c, target, fieldPath).Wait(ctx)
}

func decodeOne[M any](body []byte, fieldPath string, strict bool) (M, error) {
	var out M
	raw, err := navigate(body, fieldPath)
	if err != nil {
		return out, err
	}
	if err := decodeInto(raw, &out, strict); err != nil {
		var zero M
		return zero, &DecodeError{Path: fieldPath, Err: err}
	}
	return out, nil
}

func decodeMany[M any](body []byte, fieldPath string, strict bool) ([]M, error) {
	raw, err := navigate(body, fieldPath)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &DecodeError{Path: fieldPath, Err: ErrNotArray}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, &DecodeError{Path: fieldPath, Err: err}
	}
	out := make([]M, 0, len(elems))
	for i, el := range elems {
		var m M
		if err := decodeInto(el, &m, strict); err != nil {
			return nil, &DecodeError{Path: joinIndex(fieldPath, i), Err: err}
		}
		out = append(out, m)
	}
	return out, nil
}

func joinIndex(path string, i int) string {
	if path == "" {
		return strconv.Itoa(i)
	}
	return path + "." + strconv.Itoa(i)
}
