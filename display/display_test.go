package display

import "testing"

func expect(t *testing.T, test, v, to string) {
	if v != to {
		t.Errorf("%s: expected \"%s\" to equal \"%s\".", test, v, to)
	}
}

func TestStatusCodes(t *testing.T) {
	expect(t, "ok", StatusOK.String(), "0x00")
	expect(t, "inbound", StatusUnknownInbound.String(), "0x01")
	expect(t, "outbound", StatusUnknownOutbound.String(), "0x02")
	expect(t, "range", StatusOutOfRange.String(), "0x03")
	expect(t, "readonly", StatusReadOnly.String(), "0x04")
}

func TestShowStatusMessages(t *testing.T) {
	m := NewMemory()
	Show(m, Inbound(StatusUnknownInbound))
	Show(m, Outbound(StatusReadOnly))
	expect(t, "inbound", m.Text(WidgetInbound), "0x01")
	expect(t, "outbound", m.Text(WidgetOutbound), "0x04")

	if msg := Outbound(StatusOK); msg.Erronous || msg.Status != "ok" {
		t.Errorf("unexpected ok message: %+v", msg)
	}
	if msg := Inbound(StatusUnknownInbound); !msg.Erronous {
		t.Errorf("0x01 should be erronous: %+v", msg)
	}
}

func TestMulti(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	var calls int
	d := Multi{a, nil, b, Func(func(Widget, string) { calls++ })}
	d.SetText(WidgetText, "hello")
	expect(t, "a", a.Text(WidgetText), "hello")
	expect(t, "b", b.Text(WidgetText), "hello")
	if calls != 1 {
		t.Errorf("func display called %d times", calls)
	}
	snap := a.Snapshot()
	if len(snap) != 1 || snap[WidgetText] != "hello" {
		t.Errorf("unexpected snapshot %v", snap)
	}
	if names := a.Names(); len(names) != 1 || names[0] != WidgetText {
		t.Errorf("unexpected names %v", names)
	}
}
