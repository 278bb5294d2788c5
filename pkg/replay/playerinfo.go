package replay

import "time"

// Alias is one name a player has been seen under.
type Alias struct {
	Name   string    `json:"name"`
	SeenOn time.Time `json:"seen_on"`
}

// PlayerInfo is the persisted identity record for an opponent, keyed by
// their region-qualified toon handle. A handle is stable across name
// changes, so aliases accumulate here.
type PlayerInfo struct {
	ToonHandle string    `json:"_id"`
	Name       string    `json:"name"`
	Aliases    []Alias   `json:"aliases"`
	Tags       []string  `json:"tags,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PlayerInfos builds identity records for every player in the replay
// with a resolvable toon handle.
func PlayerInfos(raw *RawReplay) []*PlayerInfo {
	infos := make([]*PlayerInfo, 0, len(raw.Players))
	for _, p := range raw.Players {
		if p.ToonHandle == "" {
			continue
		}
		info := &PlayerInfo{
			ToonHandle: p.ToonHandle,
			Name:       p.Name,
			UpdatedAt:  raw.Date,
		}
		info.AddAlias(p.Name, raw.Date)
		infos = append(infos, info)
	}
	return infos
}

// AddAlias records a name for this player if it is not already known.
func (p *PlayerInfo) AddAlias(name string, seenOn time.Time) {
	for _, a := range p.Aliases {
		if a.Name == name {
			return
		}
	}
	p.Aliases = append(p.Aliases, Alias{Name: name, SeenOn: seenOn})
}

// Metadata is conversation-derived annotation attached to a replay after a
// coaching session: a short summary, tags, and the saved transcript.
type Metadata struct {
	ReplayID     string               `json:"_id"`
	Description  string               `json:"description,omitempty"`
	Tags         []string             `json:"tags,omitempty"`
	Conversation []ConversationLine   `json:"conversation,omitempty"`
}

// ConversationLine is one saved line of a coaching conversation.
type ConversationLine struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AddTags merges new tags into the metadata, dropping duplicates.
func (m *Metadata) AddTags(tags []string) {
	seen := make(map[string]bool, len(m.Tags))
	for _, t := range m.Tags {
		seen[t] = true
	}
	for _, t := range tags {
		if !seen[t] {
			m.Tags = append(m.Tags, t)
			seen[t] = true
		}
	}
}
