package gateway

import (
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

// ErrMalformedValue is returned whenever a ledger response does not decode
// into a known value shape. Callers treat the surrounding read as absent
// data rather than crashing.
var ErrMalformedValue = errors.New("malformed ledger value")

type ValueType int

const (
	TypeUint ValueType = iota
	TypeInt
	TypeBool
	TypeString
	TypePrincipal
	TypeNone
	TypeSome
	TypeOk
	TypeErr
	TypeTuple
	TypeList
)

// Value is the tagged-union decode of a contract return value. Exactly the
// fields implied by Type are populated.
type Value struct {
	Type ValueType

	Uint      uint64
	Int       int64
	Bool      bool
	Str       string
	Principal string

	Inner *Value
	Tuple map[string]*Value
	List  []*Value
}

// DecodeValue turns the ledger's JSON representation of a contract value
// into a Value. Unknown type tags land on the default arm and fail with
// ErrMalformedValue instead of being guessed at.
func DecodeValue(v *fastjson.Value) (*Value, error) {
	if v == nil {
		return nil, ErrMalformedValue
	}

	typ := string(v.GetStringBytes("type"))

	switch typ {
	case "uint":
		raw := v.Get("value")
		if raw == nil {
			return nil, ErrMalformedValue
		}

		u, err := raw.Uint64()
		if err != nil {
			return nil, ErrMalformedValue
		}

		return &Value{Type: TypeUint, Uint: u}, nil

	case "int":
		raw := v.Get("value")
		if raw == nil {
			return nil, ErrMalformedValue
		}

		i, err := raw.Int64()
		if err != nil {
			return nil, ErrMalformedValue
		}

		return &Value{Type: TypeInt, Int: i}, nil

	case "bool":
		raw := v.Get("value")
		if raw == nil || raw.Type() != fastjson.TypeTrue && raw.Type() != fastjson.TypeFalse {
			return nil, ErrMalformedValue
		}

		return &Value{Type: TypeBool, Bool: raw.Type() == fastjson.TypeTrue}, nil

	case "string":
		raw := v.Get("value")
		if raw == nil || raw.Type() != fastjson.TypeString {
			return nil, ErrMalformedValue
		}

		return &Value{Type: TypeString, Str: string(raw.GetStringBytes())}, nil

	case "principal":
		raw := v.Get("value")
		if raw == nil || raw.Type() != fastjson.TypeString {
			return nil, ErrMalformedValue
		}

		return &Value{Type: TypePrincipal, Principal: string(raw.GetStringBytes())}, nil

	case "none":
		return &Value{Type: TypeNone}, nil

	case "some", "ok", "err":
		inner, err := DecodeValue(v.Get("value"))
		if err != nil {
			return nil, err
		}

		t := TypeSome
		switch typ {
		case "ok":
			t = TypeOk
		case "err":
			t = TypeErr
		}

		return &Value{Type: t, Inner: inner}, nil

	case "tuple":
		obj := v.GetObject("value")
		if obj == nil {
			return nil, ErrMalformedValue
		}

		tuple := make(map[string]*Value, 8)

		var visitErr error
		obj.Visit(func(key []byte, item *fastjson.Value) {
			if visitErr != nil {
				return
			}

			decoded, err := DecodeValue(item)
			if err != nil {
				visitErr = err
				return
			}

			tuple[string(key)] = decoded
		})

		if visitErr != nil {
			return nil, visitErr
		}

		return &Value{Type: TypeTuple, Tuple: tuple}, nil

	case "list":
		arr := v.GetArray("value")
		if arr == nil {
			return nil, ErrMalformedValue
		}

		list := make([]*Value, 0, len(arr))
		for _, item := range arr {
			decoded, err := DecodeValue(item)
			if err != nil {
				return nil, err
			}

			list = append(list, decoded)
		}

		return &Value{Type: TypeList, List: list}, nil

	default:
		return nil, ErrMalformedValue
	}
}

// TupleUint is a convenience accessor: the named tuple field as a uint.
func (v *Value) TupleUint(key string) (uint64, bool) {
	if v == nil || v.Type != TypeTuple {
		return 0, false
	}

	field, ok := v.Tuple[key]
	if !ok || field.Type != TypeUint {
		return 0, false
	}

	return field.Uint, true
}

// TupleString returns the named tuple field as a string or principal.
func (v *Value) TupleString(key string) (string, bool) {
	if v == nil || v.Type != TypeTuple {
		return "", false
	}

	field, ok := v.Tuple[key]
	if !ok {
		return "", false
	}

	switch field.Type {
	case TypeString:
		return field.Str, true
	case TypePrincipal:
		return field.Principal, true
	}

	return "", false
}

// TupleBool returns the named tuple field as a bool.
func (v *Value) TupleBool(key string) (bool, bool) {
	if v == nil || v.Type != TypeTuple {
		return false, false
	}

	field, ok := v.Tuple[key]
	if !ok || field.Type != TypeBool {
		return false, false
	}

	return field.Bool, true
}

// Unwrap strips some/ok wrappers, returning the innermost value. A none
// returns nil; an err returns the error payload with ok=false.
func (v *Value) Unwrap() (*Value, bool) {
	cur := v
	for cur != nil {
		switch cur.Type {
		case TypeSome, TypeOk:
			cur = cur.Inner
		case TypeNone:
			return nil, true
		case TypeErr:
			return cur.Inner, false
		default:
			return cur, true
		}
	}

	return nil, true
}
