// Package bridge converts values between Lua states and the native value
// model (*structpb.Value) and carries Go errors across Lua error boundaries.
//
// Conversions always copy, so no table or value is ever shared between two
// interpreters.
package bridge

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	lua "github.com/yuin/gopher-lua"
	"google.golang.org/protobuf/types/known/structpb"
)

// ToValue converts a Lua value into a detached native value.
// Tables whose keys are exactly 1..n become lists; other tables become
// structs keyed by string (numeric keys are formatted). The empty table is an
// empty struct. Functions, userdata, threads and cyclic tables are rejected.
func ToValue(lv lua.LValue) (*structpb.Value, error) {
	return toValue(lv, map[*lua.LTable]struct{}{})
}

func toValue(lv lua.LValue, seen map[*lua.LTable]struct{}) (*structpb.Value, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return structpb.NewNullValue(), nil
	case lua.LBool:
		return structpb.NewBoolValue(bool(v)), nil
	case lua.LNumber:
		return structpb.NewNumberValue(float64(v)), nil
	case lua.LString:
		return structpb.NewStringValue(string(v)), nil
	case *lua.LTable:
		return tableToValue(v, seen)
	default:
		return nil, &ConversionError{From: lv.Type().String(), To: "value", Reason: "unsupported type"}
	}
}

func tableToValue(tbl *lua.LTable, seen map[*lua.LTable]struct{}) (*structpb.Value, error) {
	if _, cyclic := seen[tbl]; cyclic {
		return nil, &ConversionError{From: "table", To: "value", Reason: "cyclic table"}
	}
	seen[tbl] = struct{}{}
	defer delete(seen, tbl)

	type entry struct {
		key   lua.LValue
		value lua.LValue
	}
	var (
		entries []entry
		keyErr  error
	)
	tbl.ForEach(func(k, v lua.LValue) {
		switch k.(type) {
		case lua.LString, lua.LNumber:
		default:
			if keyErr == nil {
				keyErr = &ConversionError{From: "table", To: "value", Reason: fmt.Sprintf("unsupported %s key", k.Type())}
			}
		}
		entries = append(entries, entry{key: k, value: v})
	})
	if keyErr != nil {
		return nil, keyErr
	}

	if isSequence(len(entries), func(i int) lua.LValue { return entries[i].key }) {
		items := make([]*structpb.Value, len(entries))
		for _, e := range entries {
			item, err := toValue(e.value, seen)
			if err != nil {
				return nil, err
			}
			items[int(e.key.(lua.LNumber))-1] = item
		}
		return structpb.NewListValue(&structpb.ListValue{Values: items}), nil
	}

	fields := make(map[string]*structpb.Value, len(entries))
	for _, e := range entries {
		item, err := toValue(e.value, seen)
		if err != nil {
			return nil, err
		}
		fields[keyString(e.key)] = item
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields}), nil
}

// isSequence reports whether the n keys are exactly the integers 1..n.
func isSequence(n int, key func(int) lua.LValue) bool {
	if n == 0 {
		return false
	}
	present := make([]bool, n)
	for i := 0; i < n; i++ {
		num, ok := key(i).(lua.LNumber)
		if !ok {
			return false
		}
		f := float64(num)
		if f != math.Trunc(f) || f < 1 || f > float64(n) {
			return false
		}
		present[int(f)-1] = true
	}
	for _, ok := range present {
		if !ok {
			return false
		}
	}
	return true
}

func keyString(k lua.LValue) string {
	if num, ok := k.(lua.LNumber); ok {
		return strconv.FormatFloat(float64(num), 'f', -1, 64)
	}
	return k.String()
}

// ToLua materializes v as a fresh Lua value owned by L.
func ToLua(L *lua.LState, v *structpb.Value) lua.LValue {
	if v == nil {
		return lua.LNil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_BoolValue:
		return lua.LBool(kind.BoolValue)
	case *structpb.Value_NumberValue:
		return lua.LNumber(kind.NumberValue)
	case *structpb.Value_StringValue:
		return lua.LString(kind.StringValue)
	case *structpb.Value_ListValue:
		values := kind.ListValue.GetValues()
		tbl := L.CreateTable(len(values), 0)
		for i, item := range values {
			tbl.RawSetInt(i+1, ToLua(L, item))
		}
		return tbl
	case *structpb.Value_StructValue:
		fields := kind.StructValue.GetFields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tbl := L.CreateTable(0, len(fields))
		for _, k := range keys {
			tbl.RawSetString(k, ToLua(L, fields[k]))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// GoToLua converts a JSON-shaped Go value (maps, slices, numbers, strings,
// booleans, nil) into a Lua value.
func GoToLua(L *lua.LState, v any) (lua.LValue, error) {
	value, err := structpb.NewValue(v)
	if err != nil {
		return lua.LNil, &ConversionError{From: fmt.Sprintf("%T", v), To: "lua", Reason: err.Error()}
	}
	return ToLua(L, value), nil
}
