package config

// CategoryWeights orders command categories in generated docs, lower
// first. Unknown categories sort last.
var CategoryWeights = map[string]int{
	"🎵 Music":     10,
	"⚙️ Settings": 50,
}
