package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func evalValue(t *testing.T, L *lua.LState, expr string) lua.LValue {
	t.Helper()
	require.NoError(t, L.DoString("return "+expr))
	v := L.Get(-1)
	L.Pop(1)
	return v
}

func TestToValueScalars(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		expr string
		want *structpb.Value
	}{
		{expr: "nil", want: structpb.NewNullValue()},
		{expr: "true", want: structpb.NewBoolValue(true)},
		{expr: "42.5", want: structpb.NewNumberValue(42.5)},
		{expr: `"hi"`, want: structpb.NewStringValue("hi")},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := ToValue(evalValue(t, L, tc.expr))
			require.NoError(t, err)
			require.True(t, proto.Equal(tc.want, got), "got %v", got)
		})
	}
}

func TestToValueTables(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	list, err := ToValue(evalValue(t, L, `{1, "two", false}`))
	require.NoError(t, err)
	require.Len(t, list.GetListValue().GetValues(), 3)
	require.Equal(t, "two", list.GetListValue().GetValues()[1].GetStringValue())

	record, err := ToValue(evalValue(t, L, `{name = "main", id = 1, [3] = "x"}`))
	require.NoError(t, err)
	fields := record.GetStructValue().GetFields()
	require.Equal(t, "main", fields["name"].GetStringValue())
	require.Equal(t, float64(1), fields["id"].GetNumberValue())
	require.Equal(t, "x", fields["3"].GetStringValue())

	empty, err := ToValue(evalValue(t, L, `{}`))
	require.NoError(t, err)
	require.NotNil(t, empty.GetStructValue())
}

func TestToValueRejectsUnsupported(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	_, err := ToValue(evalValue(t, L, `function() end`))
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	require.Equal(t, "function", convErr.From)

	_, err = ToValue(evalValue(t, L, `{ f = print }`))
	require.ErrorAs(t, err, &convErr)

	require.NoError(t, L.DoString(`cyclic = {}; cyclic.self = cyclic`))
	_, err = ToValue(L.GetGlobal("cyclic"))
	require.ErrorAs(t, err, &convErr)
	require.Contains(t, convErr.Reason, "cyclic")
}

func TestToValueAllowsSharedSubtables(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	v, err := ToValue(evalValue(t, L, `(function() local s = {1} return {a = s, b = s} end)()`))
	require.NoError(t, err)
	require.Len(t, v.GetStructValue().GetFields(), 2)
}

func TestToLuaBuildsFreshTables(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	value, err := structpb.NewValue(map[string]any{
		"name": "1",
		"ids":  []any{1.0, 2.0},
		"meta": nil,
	})
	require.NoError(t, err)

	L.SetGlobal("v", ToLua(L, value))
	require.NoError(t, L.DoString(`assert(v.name == "1"); assert(#v.ids == 2); assert(v.ids[2] == 2); assert(v.meta == nil)`))

	back, err := ToValue(L.GetGlobal("v"))
	require.NoError(t, err)
	require.Equal(t, "1", back.GetStructValue().GetFields()["name"].GetStringValue())
}

func TestGoToLuaRejectsUnsupportedTypes(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	_, err := GoToLua(L, make(chan int))
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	require.True(t, convErr.ToLuaDirection())
}

func TestRaiseCarriesGoError(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	sentinel := errors.New("socket gone")
	L.SetGlobal("fail", L.NewFunction(func(L *lua.LState) int {
		Raise(L, sentinel)
		return 0
	}))

	err := L.DoString(`fail()`)
	require.Error(t, err)
	require.ErrorIs(t, Unwrap(err), sentinel)

	require.NoError(t, L.DoString(`
		local ok, e = pcall(fail)
		assert(not ok)
		assert(tostring(e) == "socket gone")
	`))
}

func TestArgErrorWrapsCause(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	cause := errors.New("expected string")
	L.SetGlobal("check", L.NewFunction(func(L *lua.LState) int {
		ArgError(L, "hyprland.dispatch", 1, "args", cause)
		return 0
	}))

	err := Unwrap(L.DoString(`check(1)`))
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Equal(t, "hyprland.dispatch", argErr.Func)
	require.ErrorIs(t, err, cause)
}
