package wikilinks

import "testing"

func TestResolver_DefaultTable(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		target string
		want   string
		ok     bool
	}{
		{"w:ru:Test", "https://community.fandom.com/ru/wiki/Test", true},
		{"w:Test", "https://community.fandom.com/wiki/Test", true},
		{"w:c:community:MyPage", "https://community.fandom.com/wiki/MyPage", true},
		{"w:c:ru.community:Main Page", "https://community.fandom.com/ru/wiki/Main_Page", true},
		{"wp:Go (programming language)", "https://en.wikipedia.org/wiki/Go_(programming_language)", true},
		{"wikipedia:ru:Москва", "https://ru.wikipedia.org/wiki/Москва", true},
		{"wikt:ru:кот", "https://ru.wiktionary.org/wiki/кот", true},
		{"g:wiki link bot", "https://google.com/search?q=wiki+link+bot", true},
		{"dev:Global Lua Modules", "https://dev.fandom.com/wiki/Global_Lua_Modules", true},
		{"water", "", false},
		{"Help:Contents", "", false},
		{"w:c:a.b.c:Page", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			got, ok := r.Resolve(tt.target)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.target, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// The more specific prefix must win even when declared after the one it contains.
func TestResolver_LongestPrefixWinsRegardlessOfOrder(t *testing.T) {
	r := NewResolver([]Prefix{
		{Name: "w", Template: "https://general/{page}"},
		{Name: "w:ru", Template: "https://russian/{page}"},
	})

	if got, _ := r.Resolve("w:ru:Test"); got != "https://russian/Test" {
		t.Errorf("w:ru:Test resolved to %q", got)
	}
	if got, _ := r.Resolve("w:Test"); got != "https://general/Test" {
		t.Errorf("w:Test resolved to %q", got)
	}
	if p, _ := r.Match("w:ru:Test"); p.Name != "w:ru" {
		t.Errorf("Match picked %q", p.Name)
	}
}

func TestResolver_CustomDelimiter(t *testing.T) {
	r := NewResolver([]Prefix{{Name: "ddg", Template: "https://duckduckgo.com/?q={page}", Delimiter: "%20"}})
	if got, _ := r.Resolve("ddg:two words"); got != "https://duckduckgo.com/?q=two%20words" {
		t.Errorf("got %q", got)
	}
}

func TestResolver_InternalWithoutPage(t *testing.T) {
	r := NewResolver(nil)
	got, ok := r.Resolve("w:c:dev")
	if !ok || got != "https://dev.fandom.com/wiki/" {
		t.Errorf("Resolve(w:c:dev) = (%q, %v)", got, ok)
	}
}
