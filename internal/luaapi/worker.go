package luaapi

import (
	"errors"

	"github.com/underengineering/crabshell/internal/bridge"
	"github.com/underengineering/crabshell/internal/worker"
	lua "github.com/yuin/gopher-lua"
)

const (
	workerType         = "crabshell.worker"
	workerSenderType   = "crabshell.worker_sender"
	workerReceiverType = "crabshell.worker_receiver"
)

func workerTable(L *lua.LState, pool *worker.Pool) *lua.LTable {
	tbl := L.NewTable()
	ctor := L.NewTable()
	ctor.RawSetString("start", L.NewFunction(func(L *lua.LState) int {
		source := L.CheckString(1)
		name := L.OptString(2, "")
		w, err := pool.Start(source, name)
		if err != nil {
			bridge.Raise(L, err)
			return 0
		}
		L.Push(newWorkerHandle(L, w))
		return 1
	}))
	tbl.RawSetString("Worker", ctor)
	tbl.RawSetString("active", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(pool.Active()))
		return 1
	}))
	return tbl
}

func newWorkerHandle(L *lua.LState, w *worker.Worker) *lua.LUserData {
	return newUserData(L, workerType, w, map[string]lua.LGFunction{
		"join": func(L *lua.LState) int {
			w := checkUserData[worker.Worker](L, 1, workerType)
			if err := w.Join(callContext(L)); err != nil {
				bridge.Raise(L, err)
			}
			return 0
		},
		"name": func(L *lua.LState) int {
			w := checkUserData[worker.Worker](L, 1, workerType)
			L.Push(lua.LString(w.Name()))
			return 1
		},
		"sender": func(L *lua.LState) int {
			w := checkUserData[worker.Worker](L, 1, workerType)
			tx := w.Sender()
			L.Push(newUserData(L, workerSenderType, &tx, map[string]lua.LGFunction{
				"send": func(L *lua.LState) int {
					tx := checkUserData[worker.Sender](L, 1, workerSenderType)
					v, err := bridge.ToValue(L.Get(2))
					if err != nil {
						bridge.ArgError(L, "sender.send", 1, "value", err)
						return 0
					}
					if err := tx.Send(v); err != nil {
						bridge.Raise(L, err)
					}
					return 0
				},
			}))
			return 1
		},
		"receiver": func(L *lua.LState) int {
			w := checkUserData[worker.Worker](L, 1, workerType)
			rx := w.Receiver()
			L.Push(newUserData(L, workerReceiverType, &rx, map[string]lua.LGFunction{
				// recv returns the next value, nil once the worker is done,
				// and raises the worker's error.
				"recv": func(L *lua.LState) int {
					rx := checkUserData[worker.Receiver](L, 1, workerReceiverType)
					msg, err := rx.Recv(callContext(L))
					return pushMessage(L, msg, err)
				},
				"try_recv": func(L *lua.LState) int {
					rx := checkUserData[worker.Receiver](L, 1, workerReceiverType)
					msg, ok, err := rx.TryRecv()
					if err == nil && !ok {
						L.Push(lua.LNil)
						return 1
					}
					return pushMessage(L, msg, err)
				},
			}))
			return 1
		},
	})
}

func pushMessage(L *lua.LState, msg worker.Message, err error) int {
	if errors.Is(err, worker.ErrClosed) {
		L.Push(lua.LNil)
		return 1
	}
	if err != nil {
		bridge.Raise(L, err)
		return 0
	}
	switch msg.Kind {
	case worker.MessageValue:
		L.Push(bridge.ToLua(L, msg.Value))
	case worker.MessageError:
		bridge.Raise(L, msg.Err)
		return 0
	default:
		L.Push(lua.LNil)
	}
	return 1
}
