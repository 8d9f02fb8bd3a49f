package chain

import (
	"bytes"
	"encoding/json"
	"reflect"
)

var signatureMapType = reflect.TypeOf(SignatureMap{})

// SignatureMap is an insertion-ordered mapping from validator Address to a
// base64 signature over a block's content hash. Ordinary Go maps randomize
// iteration order and encoding/json does not preserve insertion order across
// a map[string]string round trip, but FullHash depends on the order
// validator signatures were collected in — so this package carries its own
// ordered container rather than a plain map.
type SignatureMap struct {
	keys   []string
	values map[string]string
}

// NewSignatureMap returns an empty, ready-to-use SignatureMap.
func NewSignatureMap() *SignatureMap {
	return &SignatureMap{values: make(map[string]string)}
}

// Set records signature under address. Re-setting an address already present
// updates its value in place without moving it to the end.
func (m *SignatureMap) Set(address, signature string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[address]; !ok {
		m.keys = append(m.keys, address)
	}
	m.values[address] = signature
}

// Get reports the signature recorded for address, if any.
func (m *SignatureMap) Get(address string) (string, bool) {
	v, ok := m.values[address]
	return v, ok
}

// Len reports the number of distinct addresses recorded.
func (m *SignatureMap) Len() int {
	return len(m.keys)
}

// Keys returns the addresses in insertion order. The returned slice is a
// copy; mutating it does not affect the map.
func (m *SignatureMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Clone returns a deep copy that shares no state with m.
func (m *SignatureMap) Clone() *SignatureMap {
	out := NewSignatureMap()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// MarshalJSON encodes the map as a JSON object, writing keys in insertion
// order. json.Marshal does not guarantee object-key order for Go maps, so
// this builds the object body by hand.
func (m SignatureMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into m, preserving the order keys
// appear in the source document via json.Decoder's token stream.
func (m *SignatureMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return &json.UnmarshalTypeError{Value: "non-object", Type: signatureMapType}
	}

	*m = *NewSignatureMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return &json.UnmarshalTypeError{Value: "non-string key", Type: signatureMapType}
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		m.Set(key, value)
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return err
	}
	return nil
}
