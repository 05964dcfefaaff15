package coach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToolCallDelta is one tool-call fragment from the model stream, tagged with
// the positional index of the call it belongs to. Any of ID, Name and
// Arguments may be empty in a given fragment: the name and arguments arrive
// in pieces and must be concatenated in arrival order.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Chunk is one inbound frame from the streaming transport: an optional
// free-text content delta and/or tool-call fragments. This mirrors the
// OpenAI-style chat streaming delta shape.
type Chunk struct {
	Content   string
	ToolCalls []ToolCallDelta
}

// ChunkStream is the streaming transport consumed by the accumulator.
// Recv blocks until the next chunk; it returns io.EOF on clean stream end.
type ChunkStream interface {
	Recv() (Chunk, error)
}

// FinalToolCall is a fully reassembled tool invocation: arguments are valid
// JSON, name and id are non-empty.
type FinalToolCall struct {
	CallID    string
	Name      string
	Arguments string
}

// TurnResult is what one streaming turn produced.
type TurnResult struct {
	Content string
	Calls   []FinalToolCall
}

// ErrMalformedToolArgs marks a tool call whose reassembled arguments do not
// parse as JSON. This fails the whole turn; nothing is staged.
var ErrMalformedToolArgs = errors.New("tool call arguments are not valid JSON")

// turnState tracks the accumulator's per-turn state machine:
// Idle -> Streaming -> Finalizing -> Done, with Error reachable from
// Streaming and Finalizing.
type turnState int

const (
	stateIdle turnState = iota
	stateStreaming
	stateFinalizing
	stateDone
	stateError
)

// callFragment is the transient assembly slot for one positional index.
// ID is set/overwritten when a fragment supplies it; name and arguments are
// append-only in arrival order. The arguments string is only expected to
// parse as JSON once the stream has ended.
type callFragment struct {
	id   string
	name strings.Builder
	args strings.Builder
}

// Partial-content flushes are coalesced to this cadence so a fast stream does
// not turn every token into a store write.
const defaultFlushInterval = 200 * time.Millisecond

// Accumulator reassembles one streaming turn: free-text content on one
// channel, indexed tool-call fragments on the other. An Accumulator is used
// for exactly one turn; turns for different conversations are independent.
type Accumulator struct {
	messages      repository.MessageRepository
	flushInterval time.Duration
	now           func() time.Time

	state     turnState
	content   strings.Builder
	fragments map[int]*callFragment
	lastFlush time.Time
}

// NewAccumulator creates an accumulator that flushes partial content to the
// given message store.
func NewAccumulator(messages repository.MessageRepository) *Accumulator {
	return &Accumulator{
		messages:      messages,
		flushInterval: defaultFlushInterval,
		now:           time.Now,
		state:         stateIdle,
		fragments:     make(map[int]*callFragment),
	}
}

// Run consumes the stream to completion and returns the turn's final content
// and reassembled tool calls. messageID is the assistant message owning this
// turn; partial content is flushed to it with status=streaming.
//
// On transport error or context cancellation the error is returned and any
// partial fragments are discarded; the caller is responsible for forcing the
// message to a terminal error state so it is never left at streaming.
func (a *Accumulator) Run(ctx context.Context, stream ChunkStream, messageID primitive.ObjectID) (*TurnResult, error) {
	a.state = stateStreaming
	a.lastFlush = a.now()

	for {
		if err := ctx.Err(); err != nil {
			a.state = stateError
			return nil, err
		}

		chunk, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			a.state = stateError
			return nil, err
		}

		a.apply(chunk)
		a.maybeFlush(ctx, messageID)
	}

	a.state = stateFinalizing
	calls, err := a.finalizeCalls()
	if err != nil {
		a.state = stateError
		return nil, err
	}

	a.state = stateDone
	return &TurnResult{Content: a.content.String(), Calls: calls}, nil
}

// apply folds one chunk into the turn state. Fragments may interleave across
// indices arbitrarily; within an index they are applied in arrival order.
func (a *Accumulator) apply(chunk Chunk) {
	if chunk.Content != "" {
		a.content.WriteString(chunk.Content)
	}
	for _, delta := range chunk.ToolCalls {
		frag, ok := a.fragments[delta.Index]
		if !ok {
			frag = &callFragment{}
			a.fragments[delta.Index] = frag
		}
		if delta.ID != "" {
			frag.id = delta.ID
		}
		frag.name.WriteString(delta.Name)
		frag.args.WriteString(delta.Arguments)
	}
}

// maybeFlush writes the accumulated content to the owning message if the
// flush cadence has elapsed. Each flush carries the full buffer so far, never
// a diff, so ordering problems are self-correcting. Flushes are advisory;
// a failed one is dropped because the finalize write is authoritative.
func (a *Accumulator) maybeFlush(ctx context.Context, messageID primitive.ObjectID) {
	if a.content.Len() == 0 || a.now().Sub(a.lastFlush) < a.flushInterval {
		return
	}
	a.lastFlush = a.now()
	_ = a.messages.SetContent(ctx, messageID, a.content.String(), domain.MessageStreaming)
}

// finalizeCalls filters the assembled slots and parses their arguments.
// A slot that never received an id and a name is a partial or aborted
// tool-call start: discarded, not an error. A surviving slot whose arguments
// do not parse fails the turn. Output order follows the accumulator index so
// the result is deterministic for a given stream.
func (a *Accumulator) finalizeCalls() ([]FinalToolCall, error) {
	indices := make([]int, 0, len(a.fragments))
	for idx := range a.fragments {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var calls []FinalToolCall
	for _, idx := range indices {
		frag := a.fragments[idx]
		if frag.id == "" || frag.name.Len() == 0 {
			continue
		}
		args := frag.args.String()
		if !json.Valid([]byte(args)) {
			return nil, fmt.Errorf("call %q at index %d: %w", frag.name.String(), idx, ErrMalformedToolArgs)
		}
		calls = append(calls, FinalToolCall{
			CallID:    frag.id,
			Name:      frag.name.String(),
			Arguments: args,
		})
	}
	return calls, nil
}
