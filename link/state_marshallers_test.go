package link

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

func expect(t *testing.T, test, v, to string) {
	if v != to {
		t.Errorf("%s: expected \"%s\" to equal \"%s\".", test, v, to)
	}
}

func TestStateMarshallers(t *testing.T) {
	for _, s := range []State{Disconnected, Connecting, Connected, Reconnecting} {
		expected := fmt.Sprintf("\"%s\"", s)
		b, err := json.Marshal(s)
		if err != nil {
			t.Error(err)
			continue
		}
		expect(t, "State_MarshallJSON", string(b), expected)
	}
}

func TestStateUnmarshallers(t *testing.T) {
	var (
		s   State
		b   *bytes.Buffer
		dec *json.Decoder
		err error
	)

	// "Connected" is a substring of "Disconnected", make sure it's not confused
	b = new(bytes.Buffer)
	b.WriteString("\"Connected\"")
	dec = json.NewDecoder(b)
	err = dec.Decode(&s)
	if err != nil {
		t.Error(err)
	} else {
		expect(t, "State_UnmarshallJSON", s.String(), Connected.String())
	}

	err = s.UnmarshalText([]byte("3"))
	if err != nil {
		t.Error(err)
	} else {
		expect(t, "State_UnmarshallText", s.String(), Reconnecting.String())
	}

	if err = s.UnmarshalText([]byte("Connectd")); err == nil {
		t.Error("expected error on misspelled state")
	}
	if err = s.UnmarshalJSON([]byte("Connected")); err == nil {
		t.Error("expected error on unquoted json")
	}
	expect(t, "State_String", State(9).String(), "State(9)")
}
