package reactions

import "testing"

func TestEmojiKnownKind(t *testing.T) {
	if got := Emoji("fire"); got != "🔥" {
		t.Errorf("Emoji(fire) = %q, want 🔥", got)
	}
}

func TestEmojiFallback(t *testing.T) {
	if got := Emoji("confetti"); got != "👍" {
		t.Errorf("Emoji(confetti) = %q, want 👍 fallback", got)
	}
}

func TestLabelKnownKind(t *testing.T) {
	if got := Label("wow"); got != "Wow" {
		t.Errorf("Label(wow) = %q, want Wow", got)
	}
}

func TestLabelFallbackIsRawKind(t *testing.T) {
	if got := Label("confetti"); got != "confetti" {
		t.Errorf("Label(confetti) = %q, want raw kind", got)
	}
}

func TestConfigsIsACopy(t *testing.T) {
	a := Configs()
	if len(a) == 0 {
		t.Fatal("Configs() returned no entries")
	}
	a[0].Emoji = "mutated"
	if b := Configs(); b[0].Emoji == "mutated" {
		t.Error("mutating the returned slice leaked into the registry")
	}
}
