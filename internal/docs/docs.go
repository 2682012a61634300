// Package docs renders the command reference from the command registry.
package docs

import (
	"io"
	"math"
	"sort"
	"text/template"

	"github.com/keshon/searchpanel/internal/command"
	"github.com/keshon/searchpanel/pkg/cmd"
)

type Entry struct {
	Name        string
	Description string
	Options     []string
}

type Section struct {
	Category string
	Entries  []Entry
}

// Sections groups registered commands by category. Categories are ordered
// by weight, commands by name.
func Sections(reg *cmd.Registry, weights map[string]int) []Section {
	byCat := make(map[string][]Entry)
	for _, c := range reg.All() {
		cat := ""
		if meta, ok := cmd.As[command.Meta](c); ok {
			cat = meta.Category()
		}
		byCat[cat] = append(byCat[cat], entryFor(c))
	}

	weight := func(cat string) int {
		if w, ok := weights[cat]; ok {
			return w
		}
		return math.MaxInt
	}

	sections := make([]Section, 0, len(byCat))
	for cat, entries := range byCat {
		sections = append(sections, Section{Category: cat, Entries: entries})
	}
	sort.Slice(sections, func(i, j int) bool {
		wi, wj := weight(sections[i].Category), weight(sections[j].Category)
		if wi == wj {
			return sections[i].Category < sections[j].Category
		}
		return wi < wj
	})
	// reg.All is sorted by name already.
	return sections
}

func entryFor(c cmd.Command) Entry {
	e := Entry{Name: "/" + c.Name(), Description: c.Description()}
	def := command.Definition(c)
	if def == nil {
		return e
	}
	for _, o := range def.Options {
		e.Options = append(e.Options, o.Name)
	}
	return e
}

const markdown = `# Commands
{{range .}}
### {{if .Category}}{{.Category}}{{else}}Other{{end}}
{{range .Entries}}
- **{{.Name}}**{{range .Options}} ` + "`{{.}}`" + `{{end}} - {{.Description}}{{end}}
{{end}}`

var tmpl = template.Must(template.New("commands").Parse(markdown))

// WriteMarkdown renders sections as a Markdown command list.
func WriteMarkdown(w io.Writer, sections []Section) error {
	return tmpl.Execute(w, sections)
}
