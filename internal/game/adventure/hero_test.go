package adventure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/idlesim/internal/game/adventure"
	"github.com/cory-johannsen/idlesim/internal/game/combat"
	"github.com/cory-johannsen/idlesim/internal/game/content"
)

func TestParseWeapons(t *testing.T) {
	got, err := adventure.ParseWeapons("spear:3, AXE ,hammer:10")
	require.NoError(t, err)
	assert.Equal(t, map[combat.WeaponType]int{
		combat.WeaponSpear:  3,
		combat.WeaponAxe:    1,
		combat.WeaponHammer: 10,
	}, got)
	assert.Equal(t, "spear:3,axe:1,hammer:10", adventure.FormatWeapons(got))

	empty, err := adventure.ParseWeapons("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseWeapons_Errors(t *testing.T) {
	for _, bad := range []string{"club", "spear:x", "spear:0", "sword:-2"} {
		_, err := adventure.ParseWeapons(bad)
		assert.ErrorIs(t, err, adventure.ErrBadLoadout, bad)
	}
}

func TestNewHero(t *testing.T) {
	cat := content.Default()
	h, err := adventure.NewHero(cat, 4, map[combat.WeaponType]int{combat.WeaponHammer: 2, combat.WeaponSpear: 1}, "troll_hide")
	require.NoError(t, err)
	require.Len(t, h.Weapons, 2)
	assert.Equal(t, combat.WeaponSpear, h.Weapons[0].Type)
	assert.Equal(t, combat.WeaponHammer, h.Weapons[1].Type)
	assert.Equal(t, 2, h.Weapons[1].Level)
	assert.Equal(t, combat.EffectRegeneration, h.Armor.Effect)
	assert.Equal(t, 180.0, h.MaxHP())
}

func TestNewHero_Errors(t *testing.T) {
	cat := content.Default()
	_, err := adventure.NewHero(cat, 1, map[combat.WeaponType]int{"club": 1}, "")
	assert.ErrorIs(t, err, adventure.ErrBadLoadout)
	_, err = adventure.NewHero(cat, 1, map[combat.WeaponType]int{combat.WeaponSword: 0}, "")
	assert.ErrorIs(t, err, adventure.ErrBadLoadout)
	_, err = adventure.NewHero(cat, 1, nil, "paper_hat")
	assert.ErrorIs(t, err, adventure.ErrBadLoadout)
}
