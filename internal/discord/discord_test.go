package discord

import "testing"

func TestParseEmoji(t *testing.T) {
	cases := map[string]Emoji{
		"high5:42":      {ID: "42", Name: "high5"},
		"<:high5:42>":   {ID: "42", Name: "high5"},
		"<a:dance:7>":   {ID: "7", Name: "dance"},
		"⭐":             {Name: "⭐"},
		"  ⭐  ":         {Name: "⭐"},
	}
	for in, want := range cases {
		if got := ParseEmoji(in); got != want {
			t.Fatalf("ParseEmoji(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestEmojiAPINameAndKey(t *testing.T) {
	custom := Emoji{ID: "42", Name: "high5"}
	if custom.APIName() != "high5:42" || custom.Key() != "42" {
		t.Fatalf("unexpected custom emoji forms: %s %s", custom.APIName(), custom.Key())
	}
	unicode := Emoji{Name: "⭐"}
	if unicode.APIName() != "⭐" || unicode.Key() != "⭐" {
		t.Fatalf("unexpected unicode emoji forms: %s %s", unicode.APIName(), unicode.Key())
	}
}

func TestEmojiMatches(t *testing.T) {
	if !(Emoji{ID: "42", Name: "high5"}).Matches(Emoji{ID: "42", Name: "renamed"}) {
		t.Fatal("expected custom emoji to match by id")
	}
	if (Emoji{ID: "42", Name: "high5"}).Matches(Emoji{Name: "high5"}) {
		t.Fatal("did not expect custom emoji to match unicode emoji of same name")
	}
	if !(Emoji{Name: "⭐"}).Matches(Emoji{Name: "⭐"}) {
		t.Fatal("expected unicode emoji to match by name")
	}
}

func TestCommandEventRawArgs(t *testing.T) {
	ev := CommandEvent{Args: []string{"cannot", "log", "in"}}
	if ev.RawArgs() != "cannot log in" {
		t.Fatalf("unexpected raw args: %q", ev.RawArgs())
	}
}
