package content

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/idlesim/internal/game/combat"
)

//go:embed data/*.yaml
var defaultData embed.FS

// file names read from a content directory.
const (
	enemiesFile = "enemies.yaml"
	weaponsFile = "weapons.yaml"
	armorFile   = "armor.yaml"
	bossesFile  = "bosses.yaml"
	routesFile  = "routes.yaml"
)

type enemiesDoc struct {
	Enemies []EnemyDef `yaml:"enemies"`
}

type weaponsDoc struct {
	Weapons []WeaponDef `yaml:"weapons"`
}

type armorDoc struct {
	Armor []ArmorDef `yaml:"armor"`
}

type bossesDoc struct {
	Bosses []BossDef `yaml:"bosses"`
}

type routesDoc struct {
	Routes []RouteDef `yaml:"routes"`
}

// Default returns the catalog built from the embedded content files.
//
// Postcondition: Panics if the embedded content fails to parse or validate.
func Default() *Catalog {
	sub, err := fs.Sub(defaultData, "data")
	if err != nil {
		panic(fmt.Sprintf("content: embedded data: %v", err))
	}
	c, err := LoadFS(sub)
	if err != nil {
		panic(fmt.Sprintf("content: embedded data: %v", err))
	}
	return c
}

// LoadDir reads a catalog from the YAML files in dir.
//
// Precondition: dir must be a readable directory containing enemies.yaml,
// weapons.yaml, armor.yaml, bosses.yaml and routes.yaml.
// Postcondition: Returns a validated catalog or an error.
func LoadDir(dir string) (*Catalog, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading content dir %q: %w", dir, err)
	}
	c, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("loading content dir %q: %w", dir, err)
	}
	return c, nil
}

// LoadFS reads a catalog from the YAML files at the root of fsys.
//
// Postcondition: Returns a validated catalog or an error on the first parse
// failure, duplicate id, or cross-reference violation.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	var (
		enemies enemiesDoc
		weapons weaponsDoc
		armor   armorDoc
		bosses  bossesDoc
		routes  routesDoc
	)
	docs := []struct {
		name string
		out  any
	}{
		{enemiesFile, &enemies},
		{weaponsFile, &weapons},
		{armorFile, &armor},
		{bossesFile, &bosses},
		{routesFile, &routes},
	}
	for _, d := range docs {
		data, err := fs.ReadFile(fsys, d.name)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", d.name, err)
		}
		if err := yaml.Unmarshal(data, d.out); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", d.name, err)
		}
	}

	c := &Catalog{
		Enemies: make(map[combat.EnemyType]EnemyDef, len(enemies.Enemies)),
		Weapons: make(map[combat.WeaponType]WeaponDef, len(weapons.Weapons)),
		Armors:  make(map[string]ArmorDef, len(armor.Armor)),
		Bosses:  make(map[string]BossDef, len(bosses.Bosses)),
		Routes:  make(map[string]RouteDef, len(routes.Routes)),
	}
	for _, e := range enemies.Enemies {
		if _, dup := c.Enemies[e.Type]; dup {
			return nil, fmt.Errorf("%s: duplicate enemy %q", enemiesFile, e.Type)
		}
		c.Enemies[e.Type] = e
	}
	for _, w := range weapons.Weapons {
		if _, dup := c.Weapons[w.Type]; dup {
			return nil, fmt.Errorf("%s: duplicate weapon %q", weaponsFile, w.Type)
		}
		c.Weapons[w.Type] = w
	}
	for _, a := range armor.Armor {
		if a.ID == "" {
			return nil, fmt.Errorf("%s: armor id must not be empty", armorFile)
		}
		if _, dup := c.Armors[a.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate armor %q", armorFile, a.ID)
		}
		c.Armors[a.ID] = a
	}
	for _, b := range bosses.Bosses {
		if b.ID == "" {
			return nil, fmt.Errorf("%s: boss id must not be empty", bossesFile)
		}
		if _, dup := c.Bosses[b.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate boss %q", bossesFile, b.ID)
		}
		c.Bosses[b.ID] = b
	}
	for _, r := range routes.Routes {
		if r.ID == "" {
			return nil, fmt.Errorf("%s: route id must not be empty", routesFile)
		}
		if _, dup := c.Routes[r.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate route %q", routesFile, r.ID)
		}
		c.Routes[r.ID] = r
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
