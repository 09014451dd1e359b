package game

import "github.com/rfontaine/lycaon/internal/ability"

// Snapshot deep-copies every mutable field of the state. The transaction
// runner takes one before invoking a mutation closure; if persistence fails
// afterwards the snapshot is restored, so external observers never see a
// partially applied change.
func (s *State) Snapshot() *State {
	snap := &State{
		ID:          s.ID,
		Phase:       s.Phase,
		SubPhase:    s.SubPhase,
		Day:         s.Day,
		CaptainID:   s.CaptainID,
		NightVictim: s.NightVictim,
		WinOverride: s.WinOverride,
		Players:     make([]*Player, len(s.Players)),
		Dead:        append([]string(nil), s.Dead...),
		Votes:       copyIntMap(s.Votes),
		Voters:      copyStringMap(s.Voters),
		VoteWeights: copyIntMap(s.VoteWeights),
		Blocked:     copyBoolMap(s.Blocked),
		Silenced:    copyBoolMap(s.Silenced),
		Revealed:    copyStringMap(s.Revealed),
	}
	for i, p := range s.Players {
		cp := *p
		// Ability values are immutable; sharing the backing array is safe.
		snap.Players[i] = &cp
	}
	if s.Runtime != nil {
		snap.Runtime = s.Runtime.Clone()
	}
	return snap
}

// Restore copies a snapshot's fields back into the live state in place, so
// pointers held by callers keep observing the same State value.
func (s *State) Restore(snap *State) {
	s.Phase = snap.Phase
	s.SubPhase = snap.SubPhase
	s.Day = snap.Day
	s.CaptainID = snap.CaptainID
	s.NightVictim = snap.NightVictim
	s.WinOverride = snap.WinOverride
	s.Players = make([]*Player, len(snap.Players))
	for i, p := range snap.Players {
		cp := *p
		s.Players[i] = &cp
	}
	s.Dead = append([]string(nil), snap.Dead...)
	s.Votes = copyIntMap(snap.Votes)
	s.Voters = copyStringMap(snap.Voters)
	s.VoteWeights = copyIntMap(snap.VoteWeights)
	s.Blocked = copyBoolMap(snap.Blocked)
	s.Silenced = copyBoolMap(snap.Silenced)
	s.Revealed = copyStringMap(snap.Revealed)
	if snap.Runtime != nil {
		s.Runtime = snap.Runtime.Clone()
	} else {
		s.Runtime = ability.NewRuntimeState()
	}
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
