package combat

const (
	// AdvantageMultiplier applies when a weapon is strong against the enemy type.
	AdvantageMultiplier = 1.5
	// ResistanceMultiplier applies when the enemy type resists the weapon.
	ResistanceMultiplier = 0.5
	// NeutralMultiplier applies to every other pairing.
	NeutralMultiplier = 1.0
)

// advantage maps each weapon to the single enemy type it is strong against.
var advantage = map[WeaponType]EnemyType{
	WeaponSpear:  EnemyBeetle,
	WeaponSword:  EnemyPlant,
	WeaponBow:    EnemyHawk,
	WeaponAxe:    EnemyWolf,
	WeaponHammer: EnemySpider,
}

// resistance maps each weapon to the single enemy type that resists it.
// Slimes appear in neither table.
var resistance = map[WeaponType]EnemyType{
	WeaponSpear:  EnemyPlant,
	WeaponSword:  EnemyWolf,
	WeaponBow:    EnemyBeetle,
	WeaponAxe:    EnemySpider,
	WeaponHammer: EnemyHawk,
}

// Advantage returns the enemy type w is strong against.
//
// Postcondition: ok is false for unknown weapon types.
func Advantage(w WeaponType) (EnemyType, bool) {
	e, ok := advantage[w]
	return e, ok
}

// Resistance returns the enemy type that resists w.
//
// Postcondition: ok is false for unknown weapon types.
func Resistance(w WeaponType) (EnemyType, bool) {
	e, ok := resistance[w]
	return e, ok
}

// Multiplier returns the damage multiplier for weapon w against enemy type e.
//
// Postcondition: Returns AdvantageMultiplier iff advantage[w] == e,
// ResistanceMultiplier iff resistance[w] == e, NeutralMultiplier otherwise.
func Multiplier(w WeaponType, e EnemyType) float64 {
	if a, ok := advantage[w]; ok && a == e {
		return AdvantageMultiplier
	}
	if r, ok := resistance[w]; ok && r == e {
		return ResistanceMultiplier
	}
	return NeutralMultiplier
}

// CounterWeapon returns the weapon type with advantage against e.
//
// Postcondition: ok is false for the neutral enemy type.
func CounterWeapon(e EnemyType) (WeaponType, bool) {
	for _, w := range weaponTypes {
		if advantage[w] == e {
			return w, true
		}
	}
	return "", false
}
