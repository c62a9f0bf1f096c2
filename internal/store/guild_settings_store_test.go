package store

import "testing"

func TestGuildFlags(t *testing.T) {
	var none GuildFlags
	if none.Has(1) {
		t.Error("empty flags report bit 0")
	}
	if got := none.String(); got != "0x0" {
		t.Errorf("String = %q", got)
	}

	f := GuildFlags(1 | 1<<3)
	if !f.Has(1) || !f.Has(1|1<<3) {
		t.Error("set bits not reported")
	}
	if f.Has(1 << 2) {
		t.Error("unset bit reported")
	}
	if got := f.String(); got != "0x9" {
		t.Errorf("String = %q", got)
	}
}
