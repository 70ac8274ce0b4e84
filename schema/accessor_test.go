package schema

import (
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Status string

func TestAssign(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		dst  any
		src  any
		want any
	}{
		{"Int64ToInt", new(int), int64(7), 7},
		{"Int64ToUint8", new(uint8), int64(7), uint8(7)},
		{"Float64ToFloat32", new(float32), float64(1.5), float32(1.5)},
		{"BytesToString", new(string), []byte("abc"), "abc"},
		{"StringToBytes", new([]byte), "abc", []byte("abc")},
		{"BytesToInt", new(int), []byte("42"), 42},
		{"StringToFloat", new(float64), "2.25", 2.25},
		{"Int64ToBool", new(bool), int64(1), true},
		{"BoolToInt", new(int), true, 1},
		{"StringToNamed", new(Status), "open", Status("open")},
		{"TimeToTime", new(time.Time), ts, ts},
		{"TextToTime", new(time.Time), "2024-01-02 03:04:05", ts},
		{"IntToPointer", new(*int), int64(3), func() *int { v := 3; return &v }()},
		{"NilToPointer", new(*int), nil, (*int)(nil)},
		{"NilToString", new(string), nil, ""},
		{"Scanner", new(sql.NullString), "x", sql.NullString{String: "x", Valid: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := reflect.ValueOf(tt.dst).Elem()
			require.NoError(t, assign(dst, tt.src))
			assert.Equal(t, tt.want, dst.Interface())
		})
	}
}

func TestAssignErrors(t *testing.T) {
	assert.Error(t, assign(reflect.ValueOf(new(int)).Elem(), "x"))
	assert.Error(t, assign(reflect.ValueOf(new(time.Time)).Elem(), "yesterday"))
	assert.Error(t, assign(reflect.ValueOf(new(struct{})).Elem(), int64(1)))
}

func TestIsSimple(t *testing.T) {
	assert.True(t, isSimple(reflect.TypeFor[int]()))
	assert.True(t, isSimple(reflect.TypeFor[*string]()))
	assert.True(t, isSimple(reflect.TypeFor[time.Time]()))
	assert.True(t, isSimple(reflect.TypeFor[[]byte]()))
	assert.True(t, isSimple(reflect.TypeFor[sql.NullInt64]()))
	assert.False(t, isSimple(reflect.TypeFor[map[string]int]()))
	assert.False(t, isSimple(reflect.TypeFor[[]*int]()))
}

func TestConverters(t *testing.T) {
	v, err := BoolInt.ToDB(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = BoolInt.FromDB(int64(0))
	require.NoError(t, err)
	assert.Equal(t, false, v)
	_, err = BoolInt.ToDB("yes")
	assert.Error(t, err)

	_, err = UUIDString.FromDB("not-a-uuid")
	assert.Error(t, err)

	m := Msgpack[[]int]()
	b, err := m.ToDB([]int{1, 2})
	require.NoError(t, err)
	out, err := m.FromDB(b)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, out)
	_, err = m.FromDB(int64(1))
	assert.Error(t, err)
}
