package log

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
	requestInfoKey
)

type requestInfo struct {
	method string
	path   string
}

type entry struct {
	TS     string         `json:"ts"`
	Level  string         `json:"level"`
	ReqID  string         `json:"req_id,omitempty"`
	Method string         `json:"method,omitempty"`
	Path   string         `json:"path,omitempty"`
	UserID string         `json:"user_id,omitempty"`
	Action string         `json:"action,omitempty"`
	Err    string         `json:"err,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// WithRequest stores request scoped values that every entry logged with the
// returned context will carry.
func WithRequest(ctx context.Context, requestID, method, path string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, requestInfoKey, requestInfo{method: method, path: path})
}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func write(ctx context.Context, level, action string, err error, fields map[string]any) {
	e := entry{TS: time.Now().UTC().Format(time.RFC3339), Level: level, Action: action, Fields: fields}
	if ctx != nil {
		e.ReqID = RequestID(ctx)
		e.UserID, _ = ctx.Value(userIDKey).(string)
		if ri, ok := ctx.Value(requestInfoKey).(requestInfo); ok {
			e.Method = ri.method
			e.Path = ri.path
		}
	}
	if err != nil {
		e.Err = err.Error()
	}
	b, _ := json.Marshal(e)
	log.Println(string(b))
}

func Info(ctx context.Context, action string, fields map[string]any) {
	write(ctx, "info", action, nil, fields)
}

func Audit(ctx context.Context, action string, fields map[string]any) {
	write(ctx, "audit", action, nil, fields)
}

func Security(ctx context.Context, action string, fields map[string]any) {
	write(ctx, "warn", action, nil, fields)
}

func Error(ctx context.Context, action string, err error, fields map[string]any) {
	write(ctx, "error", action, err, fields)
}
