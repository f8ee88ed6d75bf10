package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// HandlerFunc answers one inbound Call. The returned value becomes the
// CallResult payload; an error becomes a CallError.
type HandlerFunc func(ctx context.Context, stationID string, payload json.RawMessage) (any, error)

// Router dispatches inbound Calls by action name.
type Router struct {
	handlers map[string]HandlerFunc
	logger   Logger
}

// NewRouter creates a Router with no actions.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]HandlerFunc),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	r.logger = logger
}

// Handle registers h for action, replacing any earlier handler.
func (r *Router) Handle(action string, h HandlerFunc) {
	r.handlers[action] = h
}

// Actions returns the registered action names, sorted.
func (r *Router) Actions() []string {
	out := make([]string, 0, len(r.handlers))
	for a := range r.handlers {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for call and builds the reply frame. It never
// returns nil.
func (r *Router) Dispatch(ctx context.Context, stationID string, call *ocpp.Frame) (resp *ocpp.Frame) {
	h, ok := r.handlers[call.Action]
	if !ok {
		r.logger.Warn("unsupported action", "station_id", stationID, "action", call.Action)
		return ocpp.NewCallError(call.UniqueID, ocpp.ErrorNotImplemented,
			fmt.Sprintf("action %q is not implemented", call.Action), nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panic",
				"station_id", stationID,
				"action", call.Action,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			resp = ocpp.NewCallError(call.UniqueID, ocpp.ErrorInternal, "internal error", nil)
		}
	}()

	result, err := h(ctx, stationID, call.Payload)
	if err != nil {
		return r.errorFrame(stationID, call, err)
	}

	resp, err = ocpp.NewCallResult(call.UniqueID, result)
	if err != nil {
		r.logger.Error("encoding result", "station_id", stationID, "action", call.Action, "error", err)
		return ocpp.NewCallError(call.UniqueID, ocpp.ErrorInternal, "internal error", nil)
	}
	return resp
}

func (r *Router) errorFrame(stationID string, call *ocpp.Frame, err error) *ocpp.Frame {
	var ce *ocpp.CallError
	if errors.As(err, &ce) {
		r.logger.Debug("call rejected", "station_id", stationID, "action", call.Action, "code", ce.Code, "error", ce.Description)
		return ocpp.NewCallError(call.UniqueID, ce.Code, ce.Description, ce.Details)
	}

	var cons *ocpp.ConstraintError
	if errors.As(err, &cons) {
		r.logger.Debug("payload constraint violated", "station_id", stationID, "action", call.Action, "error", cons)
		return ocpp.NewCallError(call.UniqueID, cons.Code, cons.Error(), nil)
	}

	r.logger.Error("handler failed", "station_id", stationID, "action", call.Action, "error", err)
	return ocpp.NewCallError(call.UniqueID, ocpp.ErrorInternal, "internal error", nil)
}

// Typed adapts a handler taking a decoded request. The payload is decoded
// into Req and validated when Req implements ocpp.Validator.
func Typed[Req, Resp any](fn func(ctx context.Context, stationID string, req *Req) (*Resp, error)) HandlerFunc {
	return func(ctx context.Context, stationID string, payload json.RawMessage) (any, error) {
		req := new(Req)
		if err := json.Unmarshal(payload, req); err != nil {
			return nil, &ocpp.CallError{
				Code:        ocpp.ErrorFormationViolation,
				Description: fmt.Sprintf("decoding payload: %v", err),
			}
		}
		if v, ok := any(req).(ocpp.Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return fn(ctx, stationID, req)
	}
}
