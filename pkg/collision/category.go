// pkg/collision/category.go
package collision

import (
	"fmt"
	"strings"
)

// Category tags a collider with its collision role. The set is closed:
// adding a value means adding a case to every switch in handler.go.
type Category int

const (
	PlayerCharacter Category = iota
	NonPlayerCharacter
	Scenery
	Movable
	Effect
	Trigger
)

var categoryNames = [...]string{
	PlayerCharacter:    "pc",
	NonPlayerCharacter: "npc",
	Scenery:            "scenery",
	Movable:            "movable",
	Effect:             "effect",
	Trigger:            "trigger",
}

var categoryAliases = map[string]Category{
	"player":               PlayerCharacter,
	"playercharacter":      PlayerCharacter,
	"player-character":     PlayerCharacter,
	"nonplayer":            NonPlayerCharacter,
	"non-player":           NonPlayerCharacter,
	"nonplayercharacter":   NonPlayerCharacter,
	"non-player-character": NonPlayerCharacter,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	return []Category{PlayerCharacter, NonPlayerCharacter, Scenery, Movable, Effect, Trigger}
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c >= PlayerCharacter && c <= Trigger
}

// CanMove reports whether colliders of this category may request
// collision-gated movement.
func (c Category) CanMove() bool {
	return c == PlayerCharacter
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory converts a configuration name such as "pc" or "scenery".
func ParseCategory(name string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range categoryNames {
		if n == key {
			return Category(i), nil
		}
	}
	if c, ok := categoryAliases[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown collider category %q", name)
}
