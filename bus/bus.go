// Package bus exposes a protocol.Registry to remote callers over
// interchangeable transports.
//
// The Bus itself is the in-process transport: requesters submit typed
// envelopes carrying their own reply channel, and the serve loop
// answers each requester on that channel only, never by broadcast, so
// correlation stays strictly 1:1 even with concurrent callers.  Every
// other transport (relay poller, WebSocket, MQTT) funnels into the
// same Bus, which is what keeps workbook evaluation single-threaded.
package bus

import (
	"context"
	"errors"
	"log"

	"github.com/Comcast/gridbus/protocol"
	"github.com/Comcast/gridbus/util"
)

const (
	// EnvelopeType tags an inbound control message.
	EnvelopeType = "spreadsheet-control"

	// ResponseType tags the reply.
	ResponseType = "spreadsheet-control-response"
)

// Envelope is the inbound message shape shared by all transports.
type Envelope struct {
	Type      string                 `json:"type"`
	Command   string                 `json:"command"`
	Params    map[string]interface{} `json:"params,omitempty"`
	RequestID string                 `json:"requestId"`
}

// Response is the reply shape.
type Response struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId"`
	Success   bool        `json:"success"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Request pairs an Envelope with the requester's own reply channel.
type Request struct {
	Envelope

	// Reply should have capacity 1.  The serve loop will not
	// block on a full reply channel; it drops the response and
	// logs instead.
	Reply chan Response
}

// Bus dispatches envelopes to a registry, one at a time.
type Bus struct {
	registry *protocol.Registry
	in       chan Request
}

func NewBus(registry *protocol.Registry) *Bus {
	return &Bus{
		registry: registry,
		in:       make(chan Request, 32),
	}
}

// In is the submission channel for requesters that manage their own
// reply channels.
func (b *Bus) In() chan<- Request {
	return b.in
}

// Serve processes requests until the context is canceled.
func (b *Bus) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-b.in:
			resp := b.handle(ctx, req.Envelope)
			if req.Reply == nil {
				continue
			}
			select {
			case req.Reply <- resp:
			default:
				log.Printf("Bus reply channel blocked for %s", req.RequestID)
			}
		}
	}
}

func (b *Bus) handle(ctx context.Context, env Envelope) Response {
	// Validate the envelope at the boundary, before dispatch.
	if env.Type != EnvelopeType {
		return Response{
			Type:      ResponseType,
			RequestID: env.RequestID,
			Success:   false,
			Error:     "bad envelope type '" + env.Type + "'",
		}
	}

	res := b.registry.Dispatch(ctx, protocol.Command{
		Name:      env.Command,
		Params:    env.Params,
		RequestID: env.RequestID,
	})

	return Response{
		Type:      ResponseType,
		RequestID: env.RequestID,
		Success:   res.Success,
		Result:    res.Value,
		Error:     res.Error,
	}
}

// Call submits one envelope and waits for its response.  A missing
// RequestID is filled in.
func (b *Bus) Call(ctx context.Context, env Envelope) (Response, error) {
	if env.Type == "" {
		env.Type = EnvelopeType
	}
	if env.RequestID == "" {
		env.RequestID = util.Gensym(16)
	}

	reply := make(chan Response, 1)

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case b.in <- Request{Envelope: env, Reply: reply}:
	}

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case resp := <-reply:
		return resp, nil
	}
}

// Execute runs a protocol.Command through the bus, preserving the
// single dispatch path, and converts the response back to a Result.
// This is what the relay poller and the MQTT pairing use.
func (b *Bus) Execute(ctx context.Context, cmd protocol.Command) (protocol.Result, error) {
	if cmd.RequestID == "" {
		return protocol.Result{}, errors.New("command without requestId")
	}

	resp, err := b.Call(ctx, Envelope{
		Type:      EnvelopeType,
		Command:   cmd.Name,
		Params:    cmd.Params,
		RequestID: cmd.RequestID,
	})
	if err != nil {
		return protocol.Result{}, err
	}

	return protocol.Result{
		RequestID: resp.RequestID,
		Success:   resp.Success,
		Value:     resp.Result,
		Error:     resp.Error,
	}, nil
}
