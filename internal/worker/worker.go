// Package worker runs Lua scripts on dedicated goroutines, each with its own
// interpreter state, and connects them to the host through value-only
// mailboxes.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/underengineering/crabshell/internal/bridge"
	lua "github.com/yuin/gopher-lua"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MessageKind tags an outbound worker message.
type MessageKind int

const (
	MessageValue MessageKind = iota
	MessageError
	MessageDone
)

func (k MessageKind) String() string {
	switch k {
	case MessageValue:
		return "value"
	case MessageError:
		return "error"
	case MessageDone:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is one item of a worker's outbound stream. A stream carries any
// number of values followed by exactly one Error or Done.
type Message struct {
	Kind  MessageKind
	Value *structpb.Value
	Err   error
}

// Worker is the host-side handle of a running script. Handles may be
// dropped without joining; the script keeps running to completion.
type Worker struct {
	name   string
	inbox  *mailbox[*structpb.Value]
	outbox *mailbox[Message]
	done   chan struct{}

	mu     sync.Mutex
	result error
}

func newWorker(name string) *Worker {
	return &Worker{
		name:   name,
		inbox:  newMailbox[*structpb.Value](),
		outbox: newMailbox[Message](),
		done:   make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return w.name
}

// Sender returns a handle for the worker's inbound queue.
func (w *Worker) Sender() Sender {
	return Sender{worker: w}
}

// Receiver returns a handle for the worker's outbound queue. All receivers
// of one worker share the same queue, so each message is observed once.
func (w *Worker) Receiver() Receiver {
	return Receiver{worker: w}
}

// Done is closed once the script has finished and its state is released.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Join waits for the script to finish, discarding any values still queued,
// and returns its terminal error.
func (w *Worker) Join(ctx context.Context) error {
	rx := w.Receiver()
	for {
		msg, err := rx.Recv(ctx)
		switch {
		case errors.Is(err, ErrClosed):
			return w.Result()
		case err != nil:
			return err
		}
		switch msg.Kind {
		case MessageDone:
			return nil
		case MessageError:
			return msg.Err
		}
	}
}

// Result reports the terminal error once the worker has finished.
func (w *Worker) Result() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

func (w *Worker) finish(err error) {
	w.mu.Lock()
	w.result = err
	w.mu.Unlock()

	msg := Message{Kind: MessageDone}
	if err != nil {
		msg = Message{Kind: MessageError, Err: err}
	}
	_ = w.outbox.push(msg)
	w.outbox.close()
	w.inbox.close()
}

// Sender enqueues values for a worker. Sends never block.
type Sender struct {
	worker *Worker
}

// Send queues a copy of v. It fails with ErrClosed once the worker has
// finished.
func (s Sender) Send(v *structpb.Value) error {
	if v == nil {
		v = structpb.NewNullValue()
	}
	if err := s.worker.inbox.push(proto.Clone(v).(*structpb.Value)); err != nil {
		return fmt.Errorf("send to worker %q: %w", s.worker.name, ErrClosed)
	}
	return nil
}

// Receiver reads a worker's outbound messages.
type Receiver struct {
	worker *Worker
}

// Recv blocks for the next message. After the terminal message has been
// consumed it returns ErrClosed.
func (r Receiver) Recv(ctx context.Context) (Message, error) {
	msg, err := r.worker.outbox.recv(ctx)
	if errors.Is(err, errMailboxClosed) {
		return Message{}, ErrClosed
	}
	return msg, err
}

// TryRecv returns the next message without blocking.
func (r Receiver) TryRecv() (Message, bool, error) {
	msg, ok, err := r.worker.outbox.tryPop()
	if errors.Is(err, errMailboxClosed) {
		return Message{}, false, ErrClosed
	}
	return msg, ok, err
}

// run executes the compiled chunk on the calling goroutine. It owns L.
func (w *Worker) run(ctx context.Context, chunk *lua.FunctionProto, libraries []Library) {
	defer close(w.done)

	L := lua.NewState()
	defer L.Close()
	if ctx != nil {
		L.SetContext(ctx)
	}

	var err error
	defer func() {
		if rcv := recover(); rcv != nil {
			err = &ScriptError{Worker: w.name, Phase: PhaseRuntime, Message: fmt.Sprint(rcv)}
		}
		w.finish(err)
	}()

	w.installPrimitives(L)
	for _, lib := range libraries {
		if libErr := lib(L); libErr != nil {
			err = &ScriptError{Worker: w.name, Phase: PhaseSetup, Message: libErr.Error(), Cause: libErr}
			return
		}
	}

	L.Push(L.NewFunctionFromProto(chunk))
	if callErr := L.PCall(0, lua.MultRet, nil); callErr != nil {
		err = runtimeError(w.name, callErr)
	}
}

// installPrimitives exposes the worker global: recv, try_recv, send and name.
func (w *Worker) installPrimitives(L *lua.LState) {
	tbl := L.NewTable()
	L.SetFuncs(tbl, map[string]lua.LGFunction{
		"recv": func(L *lua.LState) int {
			ctx := L.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			v, err := w.inbox.recv(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					bridge.Raise(L, ctxErr)
					return 0
				}
				L.Push(lua.LNil)
				return 1
			}
			L.Push(bridge.ToLua(L, v))
			return 1
		},
		"try_recv": func(L *lua.LState) int {
			v, ok, _ := w.inbox.tryPop()
			if !ok {
				L.Push(lua.LNil)
				L.Push(lua.LFalse)
				return 2
			}
			L.Push(bridge.ToLua(L, v))
			L.Push(lua.LTrue)
			return 2
		},
		"send": func(L *lua.LState) int {
			v, err := bridge.ToValue(L.Get(1))
			if err != nil {
				bridge.ArgError(L, "worker.send", 1, "value", err)
				return 0
			}
			if err := w.outbox.push(Message{Kind: MessageValue, Value: v}); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
	})
	tbl.RawSetString("name", lua.LString(w.name))
	L.SetGlobal("worker", tbl)
}
