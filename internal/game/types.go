package game

import (
	"fmt"

	"github.com/rfontaine/lycaon/internal/ability"
)

// Alignment is the team a role wins with.
type Alignment string

const (
	AlignmentVillage Alignment = "village"
	AlignmentWolves  Alignment = "wolves"
	AlignmentNeutral Alignment = "neutral"
)

// Player is one seat in a game. Players are part of State and are only ever
// referenced, never independently owned, by effect handlers.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	JoinOrder int       `json:"join_order"`
	Alive     bool      `json:"alive"`
	Role      string    `json:"role"`
	Alignment Alignment `json:"alignment"`

	// Abilities is the player's ability set, assigned at role deal time.
	// Custom roles and built-in roles are indistinguishable here.
	Abilities []ability.Ability `json:"abilities,omitempty"`

	// InLove links the player to a partner chosen by a cupid-style effect.
	// A confirmed death of either partner cascades to the other.
	InLove  bool   `json:"in_love,omitempty"`
	LoverID string `json:"lover_id,omitempty"`
}

// State is the full mutable state of one game. It is mutated only inside a
// transaction closure; see the txn package.
type State struct {
	ID       string   `json:"id"`
	Phase    Phase    `json:"phase"`
	SubPhase SubPhase `json:"sub_phase"`

	// Day counts NIGHT→DAY boundaries, starting at 0 before the first dawn.
	Day int `json:"day"`

	// Players in join order. Join order is the deterministic tie-break for
	// ability resolution, so it never changes after a player is added.
	Players []*Player `json:"players"`

	// Dead lists player IDs in death order.
	Dead []string `json:"dead"`

	// Votes tallies the current day vote, keyed by target ID.
	Votes map[string]int `json:"votes,omitempty"`
	// Voters records who voted for whom, keyed by voter ID.
	Voters map[string]string `json:"voters,omitempty"`
	// VoteWeights overrides the default weight of 1, keyed by voter ID.
	VoteWeights map[string]int `json:"vote_weights,omitempty"`

	// CaptainID is the current captain (tie-break vote), empty if none.
	CaptainID string `json:"captain_id,omitempty"`

	// NightVictim marks the pending wolf target; cleared at DAY→NIGHT.
	NightVictim string `json:"night_victim,omitempty"`

	// Blocked and Silenced are per-night trackers written back from
	// confirmed dispatch outcomes and cleared at DAY→NIGHT.
	Blocked  map[string]bool `json:"blocked,omitempty"`
	Silenced map[string]bool `json:"silenced,omitempty"`

	// Revealed records publicly revealed facts from confirmed reveal
	// effects, keyed "playerID/kind" (kind is "role" or "alignment").
	Revealed map[string]string `json:"revealed,omitempty"`

	// WinOverride, when set, names the team that wins regardless of the
	// usual survival arithmetic.
	WinOverride string `json:"win_override,omitempty"`

	// Runtime holds the durable ability usage counters for this game.
	Runtime *ability.RuntimeState `json:"runtime"`
}

// New creates an empty game in NIGHT phase with no sub-phase entered yet.
// An empty id gets a fresh one from DefaultIDs.
func New(id string) *State {
	if id == "" {
		id = DefaultIDs.NewID()
	}
	return &State{
		ID:          id,
		Phase:       PhaseNight,
		Players:     []*Player{},
		Dead:        []string{},
		Votes:       map[string]int{},
		Voters:      map[string]string{},
		VoteWeights: map[string]int{},
		Blocked:     map[string]bool{},
		Silenced:    map[string]bool{},
		Revealed:    map[string]string{},
		Runtime:     ability.NewRuntimeState(),
	}
}

// Normalize re-initializes nil collections. Empty maps are omitted from
// the JSON snapshot, so a restored game would otherwise panic on its next
// vote or status write. Callers unmarshaling a State must call this before
// mutating it.
func (s *State) Normalize() {
	if s.Players == nil {
		s.Players = []*Player{}
	}
	if s.Dead == nil {
		s.Dead = []string{}
	}
	if s.Votes == nil {
		s.Votes = map[string]int{}
	}
	if s.Voters == nil {
		s.Voters = map[string]string{}
	}
	if s.VoteWeights == nil {
		s.VoteWeights = map[string]int{}
	}
	if s.Blocked == nil {
		s.Blocked = map[string]bool{}
	}
	if s.Silenced == nil {
		s.Silenced = map[string]bool{}
	}
	if s.Revealed == nil {
		s.Revealed = map[string]string{}
	}
	if s.Runtime == nil {
		s.Runtime = ability.NewRuntimeState()
	}
}

// AddPlayer appends a player with the next join order.
// Returns an error if the ID is already seated.
func (s *State) AddPlayer(id, name string) (*Player, error) {
	if s.PlayerByID(id) != nil {
		return nil, fmt.Errorf("player %s already in game %s", id, s.ID)
	}
	p := &Player{
		ID:        id,
		Name:      name,
		JoinOrder: len(s.Players),
		Alive:     true,
	}
	s.Players = append(s.Players, p)
	return p, nil
}

// PlayerByID returns the player with the given ID, or nil.
func (s *State) PlayerByID(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AlivePlayers returns living players in join order.
func (s *State) AlivePlayers() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// IsBlocked reports whether the player's actions are blocked this night.
func (s *State) IsBlocked(playerID string) bool {
	return s.Blocked[playerID]
}

// CastVote records a weighted vote from voter to target, replacing any
// earlier vote by the same voter.
func (s *State) CastVote(voterID, targetID string) error {
	voter := s.PlayerByID(voterID)
	if voter == nil || !voter.Alive {
		return fmt.Errorf("voter %s is not a living player", voterID)
	}
	if target := s.PlayerByID(targetID); target == nil || !target.Alive {
		return fmt.Errorf("vote target %s is not a living player", targetID)
	}
	if prev, ok := s.Voters[voterID]; ok {
		s.Votes[prev] -= s.voteWeight(voterID)
		if s.Votes[prev] <= 0 {
			delete(s.Votes, prev)
		}
	}
	s.Voters[voterID] = targetID
	s.Votes[targetID] += s.voteWeight(voterID)
	return nil
}

func (s *State) voteWeight(voterID string) int {
	if w, ok := s.VoteWeights[voterID]; ok {
		return w
	}
	return 1
}

// Kill flips a player to dead and cascades to an in-love partner. It
// returns the IDs of all players who died as a result, the named target
// first. This is the kill primitive handed to the conflict resolver's
// ApplyKills; the resolver decides WHETHER a kill happens, this decides
// what a death drags down with it.
func (s *State) Kill(playerID string) []string {
	p := s.PlayerByID(playerID)
	if p == nil || !p.Alive {
		return nil
	}
	p.Alive = false
	s.Dead = append(s.Dead, p.ID)
	deaths := []string{p.ID}
	if p.InLove && p.LoverID != "" {
		if lover := s.PlayerByID(p.LoverID); lover != nil && lover.Alive {
			deaths = append(deaths, s.Kill(lover.ID)...)
		}
	}
	return deaths
}
