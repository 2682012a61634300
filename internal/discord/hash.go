package discord

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/bwmarrin/discordgo"
)

// hashedCommand is the part of a definition that matters to Discord. IDs
// and versions are assigned server side and left out.
type hashedCommand struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        int            `json:"type"`
	Permissions *int64         `json:"permissions,omitempty"`
	Options     []hashedOption `json:"options,omitempty"`
}

type hashedOption struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Type        int            `json:"type"`
	Required    bool           `json:"required"`
	Choices     []hashedChoice `json:"choices,omitempty"`
	Options     []hashedOption `json:"options,omitempty"`
}

type hashedChoice struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// hashCommand returns a stable digest of a command definition. Option
// order does not change the digest.
func hashCommand(def *discordgo.ApplicationCommand) string {
	data, _ := json.Marshal(hashedCommand{
		Name:        def.Name,
		Description: def.Description,
		Type:        int(def.Type),
		Permissions: def.DefaultMemberPermissions,
		Options:     hashOptions(def.Options),
	})
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func hashOptions(opts []*discordgo.ApplicationCommandOption) []hashedOption {
	if len(opts) == 0 {
		return nil
	}
	out := make([]hashedOption, 0, len(opts))
	for _, o := range opts {
		h := hashedOption{
			Name:        o.Name,
			Description: o.Description,
			Type:        int(o.Type),
			Required:    o.Required,
			Options:     hashOptions(o.Options),
		}
		for _, c := range o.Choices {
			h.Choices = append(h.Choices, hashedChoice{Name: c.Name, Value: c.Value})
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
