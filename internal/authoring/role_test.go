package authoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfontaine/lycaon/internal/ability"
	"github.com/rfontaine/lycaon/internal/game"
)

const werewolfYAML = `
id: werewolf
name: Werewolf
alignment: wolves
abilities:
  - id: bite
    type: active
    trigger: night_action
    phase: night
    target: others
    effect: kill
`

const witchYAML = `
id: witch
name: Witch
alignment: village
abilities:
  - id: heal
    type: active
    trigger: night_action
    phase: night
    effect: protect
    charges: 1
  - id: poison
    type: active
    trigger: night_action
    phase: night
    effect: kill
    charges: 1
    priority: 55
`

func TestParseRole_Valid(t *testing.T) {
	role, errs := ParseRole([]byte(witchYAML))
	require.Empty(t, errs)

	assert.Equal(t, "witch", role.ID)
	assert.Equal(t, game.AlignmentVillage, role.Alignment)
	require.Len(t, role.Abilities, 2)

	heal := role.Abilities[0]
	assert.Equal(t, ability.EffectProtect, heal.Effect)
	assert.Equal(t, 1, heal.Charges)
	assert.Equal(t, string(game.PhaseNight), heal.Phase)
	assert.Equal(t, ability.PriorityDefault, heal.Priority, "omitted priority defers to the effect default")

	poison := role.Abilities[1]
	assert.Equal(t, 55, poison.Priority)
	assert.Equal(t, 55, poison.EffectivePriority())
}

func TestParseRole_ExplicitZeroPriority(t *testing.T) {
	role, errs := ParseRole([]byte(`
id: marshal
name: Marshal
alignment: village
abilities:
  - id: decree
    type: active
    trigger: night_action
    effect: block
    priority: 0
`))
	require.Empty(t, errs)
	assert.Equal(t, 0, role.Abilities[0].Priority)
	assert.Equal(t, 0, role.Abilities[0].EffectivePriority())
}

func TestParseRole_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad alignment", `
id: drifter
name: Drifter
alignment: chaotic
abilities: []
`},
		{"bad trigger", `
id: drifter
name: Drifter
alignment: neutral
abilities:
  - id: wander
    type: active
    trigger: full_moon
    effect: kill
`},
		{"charges out of range", `
id: drifter
name: Drifter
alignment: neutral
abilities:
  - id: wander
    type: active
    trigger: night_action
    effect: kill
    charges: 150
`},
		{"missing name", `
id: drifter
alignment: neutral
abilities: []
`},
		{"unknown top-level field", `
id: drifter
name: Drifter
alignment: neutral
team_size: 3
abilities: []
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ParseRole([]byte(tt.yaml))
			require.NotEmpty(t, errs)
			assert.Equal(t, ErrSchemaViolation, errs[0].Code)
		})
	}
}

func TestParseRole_GoRules(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantCode string
	}{
		{"unknown effect", `
id: bard
name: Bard
alignment: village
abilities:
  - id: song
    type: active
    trigger: night_action
    effect: serenade
`, ErrUnknownEffect},
		{"slash in ability id", `
id: bard
name: Bard
alignment: village
abilities:
  - id: song/loud
    type: active
    trigger: night_action
    effect: silence
`, ErrIDContainsSlash},
		{"duplicate ability id", `
id: bard
name: Bard
alignment: village
abilities:
  - id: song
    type: active
    trigger: night_action
    effect: silence
  - id: song
    type: active
    trigger: night_action
    effect: block
`, ErrDuplicateAbilityID},
		{"too many abilities", `
id: bard
name: Bard
alignment: village
abilities:
  - {id: a1, type: active, trigger: night_action, effect: silence}
  - {id: a2, type: active, trigger: night_action, effect: block}
  - {id: a3, type: active, trigger: night_action, effect: protect}
  - {id: a4, type: active, trigger: night_action, effect: inspect_role}
  - {id: a5, type: active, trigger: night_action, effect: reveal_role}
  - {id: a6, type: active, trigger: night_action, effect: double_vote}
`, ErrTooManyAbilities},
		{"forbidden param", `
id: bard
name: Bard
alignment: village
abilities:
  - id: song
    type: active
    trigger: night_action
    effect: silence
    params:
      volume: 11
`, ErrForbiddenParam},
		{"missing required param", `
id: piper
name: Piper
alignment: neutral
abilities:
  - id: enchant
    type: active
    trigger: night_action
    effect: win_override
`, ErrMissingParam},
		{"kill with immunity", `
id: brute
name: Brute
alignment: wolves
abilities:
  - id: maul
    type: active
    trigger: night_action
    effect: kill
  - id: hide
    type: passive
    trigger: phase_start
    effect: immune_to_kill
`, ErrForbiddenCombo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ParseRole([]byte(tt.yaml))
			require.NotEmpty(t, errs)
			codes := make([]string, len(errs))
			for i, e := range errs {
				codes[i] = e.Code
			}
			assert.Contains(t, codes, tt.wantCode)
		})
	}
}

func TestParseRole_NotYAML(t *testing.T) {
	_, errs := ParseRole([]byte("{{nope"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrRoleUnreadable, errs[0].Code)
}

func writeRoleFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadLibrary(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "werewolf.yaml", werewolfYAML)
	writeRoleFile(t, dir, "witch.yml", witchYAML)
	writeRoleFile(t, dir, "notes.txt", "ignored")

	lib, err := LoadLibrary(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"werewolf", "witch"}, lib.IDs())

	role, ok := lib.Role("werewolf")
	require.True(t, ok)
	assert.Equal(t, game.AlignmentWolves, role.Alignment)
}

func TestLoadLibrary_InvalidFileFailsLoad(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "werewolf.yaml", werewolfYAML)
	writeRoleFile(t, dir, "broken.yaml", `
id: broken
name: Broken
alignment: chaotic
abilities: []
`)

	_, err := LoadLibrary(dir)
	require.Error(t, err)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "broken.yaml", verrs[0].File)
}

func TestLoadLibrary_DuplicateRoleID(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "a.yaml", werewolfYAML)
	writeRoleFile(t, dir, "b.yaml", werewolfYAML)

	_, err := LoadLibrary(dir)
	require.Error(t, err)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, ErrDuplicateRoleID, verrs[0].Code)
}

func TestLibrary_Assign(t *testing.T) {
	dir := t.TempDir()
	writeRoleFile(t, dir, "werewolf.yaml", werewolfYAML)
	lib, err := LoadLibrary(dir)
	require.NoError(t, err)

	s := game.New("g-assign")
	_, err = s.AddPlayer("p-a", "Ana")
	require.NoError(t, err)

	require.NoError(t, lib.Assign(s, "p-a", "werewolf"))
	p := s.PlayerByID("p-a")
	assert.Equal(t, "werewolf", p.Role)
	assert.Equal(t, game.AlignmentWolves, p.Alignment)
	require.Len(t, p.Abilities, 1)
	assert.Equal(t, ability.EffectKill, p.Abilities[0].Effect)

	assert.Error(t, lib.Assign(s, "p-a", "ghost"))
	assert.Error(t, lib.Assign(s, "p-x", "werewolf"))
}
