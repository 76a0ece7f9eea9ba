// Package reactions holds the reaction display registry and the
// floating-reaction overlay that animates incoming reactions.
package reactions

// Config pairs a reaction kind with its display metadata.
type Config struct {
	Type  string
	Emoji string
	Label string
}

var configs = []Config{
	{Type: "like", Emoji: "👍", Label: "Like"},
	{Type: "heart", Emoji: "❤️", Label: "Heart"},
	{Type: "fire", Emoji: "🔥", Label: "Fire"},
	{Type: "clap", Emoji: "👏", Label: "Clap"},
	{Type: "wow", Emoji: "😮", Label: "Wow"},
	{Type: "love", Emoji: "😍", Label: "Love"},
}

// Configs returns the known reaction kinds in display order.
func Configs() []Config {
	out := make([]Config, len(configs))
	copy(out, configs)
	return out
}

// Emoji returns the emoji for a reaction kind, with 👍 as fallback for
// unrecognized kinds.
func Emoji(kind string) string {
	for _, c := range configs {
		if c.Type == kind {
			return c.Emoji
		}
	}
	return "👍"
}

// Label returns the display label for a reaction kind, falling back to
// the raw kind string.
func Label(kind string) string {
	for _, c := range configs {
		if c.Type == kind {
			return c.Label
		}
	}
	return kind
}
