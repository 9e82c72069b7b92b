package gamedata

import (
	"errors"
	"io/fs"
)

// Catalog bundles every static table the battle core reads.
type Catalog struct {
	Types    TypeChart
	Statuses *Registry[StatusDef]
	Skills   *Registry[SkillDef]
	Terrains *Registry[TerrainDef]
	Items    *Registry[ItemDef]
	Summons  *Registry[SummonDef]
	Passives *Registry[PassiveDef]
	Specials *Registry[SpecialDef]
	Enemies  *Registry[EnemyDef]
	Classes  *Registry[ClassDef]
}

// Warning describes a catalog that could not be loaded. The matching registry
// is left empty and the features depending on it become inert.
type Warning struct {
	File string
	Err  error
}

func (w Warning) Error() string {
	return "catalog " + w.File + " unavailable: " + w.Err.Error()
}

func (w Warning) Unwrap() error { return w.Err }

// LoadCatalog loads every table from fsys. Missing or malformed tables never
// fail the whole load; each one is reported as a Warning instead.
func LoadCatalog(fsys fs.FS) (*Catalog, []Warning) {
	var warnings []Warning
	warn := func(file string, err error) {
		warnings = append(warnings, Warning{File: file, Err: err})
	}

	c := &Catalog{Types: TypeChart{}}

	if f, err := LoadFS[TypesFile](fsys, "types.json"); err != nil {
		warn("types.json", err)
	} else if f.Chart != nil {
		c.Types = f.Chart
	}

	c.Statuses = loadRegistry(fsys, "statuses.json", warn,
		func(f StatusesFile) []StatusDef { return f.Statuses },
		func(d *StatusDef) string { return d.ID })
	c.Skills = loadRegistry(fsys, "skills.json", warn,
		func(f SkillsFile) []SkillDef { return f.Skills },
		func(d *SkillDef) string { return d.ID })
	c.Terrains = loadRegistry(fsys, "terrains.json", warn,
		func(f TerrainsFile) []TerrainDef { return f.Terrains },
		func(d *TerrainDef) string { return d.ID })
	c.Items = loadRegistry(fsys, "items.json", warn,
		func(f ItemsFile) []ItemDef { return f.Items },
		func(d *ItemDef) string { return d.ID })
	c.Summons = loadRegistry(fsys, "summons.json", warn,
		func(f SummonsFile) []SummonDef { return f.Summons },
		func(d *SummonDef) string { return d.ID })
	c.Passives = loadRegistry(fsys, "passives.json", warn,
		func(f PassivesFile) []PassiveDef { return f.Passives },
		func(d *PassiveDef) string { return d.ID })
	c.Specials = loadRegistry(fsys, "specials.json", warn,
		func(f SpecialsFile) []SpecialDef { return f.Specials },
		func(d *SpecialDef) string { return d.ID })
	c.Enemies = loadRegistry(fsys, "enemies.json", warn,
		func(f EnemiesFile) []EnemyDef { return f.Enemies },
		func(d *EnemyDef) string { return d.ID })
	c.Classes = loadRegistry(fsys, "classes.json", warn,
		func(f ClassesFile) []ClassDef { return f.Classes },
		func(d *ClassDef) string { return d.ID })

	return c, warnings
}

// LoadDefaultCatalog loads the embedded catalogs.
func LoadDefaultCatalog() (*Catalog, []Warning) {
	return LoadCatalog(dataFS)
}

// MustLoadDefaultCatalog loads the embedded catalogs, panicking if any table
// is unusable. Intended for tests and tools.
func MustLoadDefaultCatalog() *Catalog {
	c, warnings := LoadDefaultCatalog()
	if len(warnings) > 0 {
		errs := make([]error, len(warnings))
		for i, w := range warnings {
			errs[i] = w
		}
		panic(errors.Join(errs...))
	}
	return c
}

// EmptyCatalog returns a catalog with every table empty. Useful for building
// fixtures by hand.
func EmptyCatalog() *Catalog {
	return &Catalog{
		Types:    TypeChart{},
		Statuses: NewRegistry[StatusDef](nil, func(d *StatusDef) string { return d.ID }),
		Skills:   NewRegistry[SkillDef](nil, func(d *SkillDef) string { return d.ID }),
		Terrains: NewRegistry[TerrainDef](nil, func(d *TerrainDef) string { return d.ID }),
		Items:    NewRegistry[ItemDef](nil, func(d *ItemDef) string { return d.ID }),
		Summons:  NewRegistry[SummonDef](nil, func(d *SummonDef) string { return d.ID }),
		Passives: NewRegistry[PassiveDef](nil, func(d *PassiveDef) string { return d.ID }),
		Specials: NewRegistry[SpecialDef](nil, func(d *SpecialDef) string { return d.ID }),
		Enemies:  NewRegistry[EnemyDef](nil, func(d *EnemyDef) string { return d.ID }),
		Classes:  NewRegistry[ClassDef](nil, func(d *ClassDef) string { return d.ID }),
	}
}

func loadRegistry[F any, T any](
	fsys fs.FS,
	file string,
	warn func(string, error),
	items func(F) []T,
	id func(*T) string,
) *Registry[T] {
	f, err := LoadFS[F](fsys, file)
	if err != nil {
		warn(file, err)
		return NewRegistry[T](nil, id)
	}
	return NewRegistry(items(f), id)
}
