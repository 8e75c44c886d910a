package core

import "strings"

// Character is the cosmetic selection of the local player.
type Character string

const (
	Naruto  Character = "naruto"
	Sasuke  Character = "sasuke"
	Kakashi Character = "kakashi"
	Obito   Character = "obito"
)

var Characters = []Character{Naruto, Sasuke, Kakashi, Obito}

// Costume holds the colours a presenter draws a character with.
type Costume struct {
	Body string
	Trim string
	Head string
}

var costumes = map[Character]Costume{
	Naruto:  {Body: "#ffcc00", Trim: "#663300", Head: "#ffd9a6"},
	Sasuke:  {Body: "#223344", Trim: "#000", Head: "#ffd9a6"},
	Kakashi: {Body: "#bdbdbd", Trim: "#222", Head: "#ffd9a6"},
	Obito:   {Body: "#800000", Trim: "#331111", Head: "#ffd9a6"},
}

// ParseCharacter accepts any casing; unknown names fall back to Naruto.
func ParseCharacter(s string) Character {
	c := Character(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := costumes[c]; ok {
		return c
	}
	return Naruto
}

func (c Character) Costume() Costume {
	if cos, ok := costumes[c]; ok {
		return cos
	}
	return costumes[Naruto]
}
