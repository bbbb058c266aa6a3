package model

import (
	"encoding/binary"
	"math"
)

// DataType tags the wire encoding of a profile value.
type DataType int16

const (
	NullT DataType = iota
	IntT
	UintT
	FloatT
	BoolT
	StringT
	BytesT
)

// DataValue is a typed profile value stored as tagged bytes.
type DataValue struct {
	Type  DataType
	Bytes []byte
}

// IntValue builds an integer value (8-byte big endian).
func IntValue(v int64) DataValue {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return DataValue{Type: IntT, Bytes: b}
}

// UintValue builds an unsigned integer value.
func UintValue(v uint64) DataValue {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return DataValue{Type: UintT, Bytes: b}
}

// FloatValue builds a float value (IEEE 754 bits, big endian).
func FloatValue(v float64) DataValue {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return DataValue{Type: FloatT, Bytes: b}
}

// BoolValue builds a boolean value.
func BoolValue(v bool) DataValue {
	if v {
		return DataValue{Type: BoolT, Bytes: []byte{1}}
	}
	return DataValue{Type: BoolT, Bytes: []byte{0}}
}

// StringValue builds a string value.
func StringValue(v string) DataValue {
	return DataValue{Type: StringT, Bytes: []byte(v)}
}

// BytesValue builds a raw bytes value.
func BytesValue(v []byte) DataValue {
	return DataValue{Type: BytesT, Bytes: v}
}

// Int returns the integer payload; ok is false for other types.
func (v DataValue) Int() (int64, bool) {
	if v.Type != IntT || len(v.Bytes) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(v.Bytes)), true
}

// Uint returns the unsigned integer payload.
func (v DataValue) Uint() (uint64, bool) {
	if v.Type != UintT || len(v.Bytes) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(v.Bytes), true
}

// Float returns the float payload.
func (v DataValue) Float() (float64, bool) {
	if v.Type != FloatT || len(v.Bytes) != 8 {
		return 0, false
	}
	return math.Float64frombits(binary.BigEndian.Uint64(v.Bytes)), true
}

// Bool returns the boolean payload.
func (v DataValue) Bool() (bool, bool) {
	if v.Type != BoolT || len(v.Bytes) != 1 {
		return false, false
	}
	return v.Bytes[0] != 0, true
}

// String returns the string payload, or "" for other types.
func (v DataValue) String() string {
	if v.Type != StringT {
		return ""
	}
	return string(v.Bytes)
}

// Equal compares type and payload.
func (v DataValue) Equal(o DataValue) bool {
	if v.Type != o.Type || len(v.Bytes) != len(o.Bytes) {
		return false
	}
	for i := range v.Bytes {
		if v.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}
