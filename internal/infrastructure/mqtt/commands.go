package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
)

// Subscriber is the subscribing side of Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// CommandFunc executes a command for a station and returns a JSON-encodable
// result.
type CommandFunc func(ctx context.Context, stationID, command string, args json.RawMessage) any

// CommandRequest is the payload accepted on a command topic.
type CommandRequest struct {
	RequestID string          `json:"request_id,omitempty"`
	Command   string          `json:"command"`
	Args      json.RawMessage `json:"args,omitempty"`
}

// CommandResponse is published on the command result topic.
type CommandResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Command   string `json:"command"`
	Result    any    `json:"result"`
}

// CommandBridge accepts commands over MQTT and publishes their results.
type CommandBridge struct {
	sub    Subscriber
	pub    Publisher
	topics Topics
	qos    byte
	run    CommandFunc
	logger Logger
}

// NewCommandBridge creates a bridge running commands through run.
func NewCommandBridge(sub Subscriber, pub Publisher, prefix string, qos byte, run CommandFunc) *CommandBridge {
	return &CommandBridge{
		sub:    sub,
		pub:    pub,
		topics: NewTopics(prefix),
		qos:    qos,
		run:    run,
	}
}

// SetLogger sets the logger for rejected messages and publish failures.
func (b *CommandBridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Start subscribes to the command topics. Each command runs on its own
// goroutine bound to ctx, since a command waits for the charge point.
func (b *CommandBridge) Start(ctx context.Context) error {
	return b.sub.Subscribe(b.topics.AllCommands(), b.qos, func(topic string, payload []byte) error {
		stationID, req, err := b.parse(topic, payload)
		if err != nil {
			return err
		}
		go b.execute(ctx, stationID, req)
		return nil
	})
}

func (b *CommandBridge) parse(topic string, payload []byte) (string, *CommandRequest, error) {
	stationID, ok := b.topics.StationFromCommand(topic)
	if !ok {
		return "", nil, fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
	}
	var req CommandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if req.Command == "" {
		return "", nil, fmt.Errorf("%w: command is required", ErrInvalidCommand)
	}
	return stationID, &req, nil
}

func (b *CommandBridge) execute(ctx context.Context, stationID string, req *CommandRequest) {
	result := b.run(ctx, stationID, req.Command, req.Args)

	payload, err := json.Marshal(CommandResponse{
		RequestID: req.RequestID,
		Command:   req.Command,
		Result:    result,
	})
	if err == nil {
		err = b.pub.Publish(b.topics.CommandResult(stationID), payload, b.qos, false)
	}
	if err != nil && b.logger != nil {
		b.logger.Warn("publishing command result failed", "station_id", stationID, "command", req.Command, "error", err)
	}
}
