package services

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/locus/pkg/registry"
)

// Greeter produces a greeting in one style.
type Greeter interface {
	Greet(name string) string
	Style() string
}

// GreeterCapability is the key greeters are registered under.
var GreeterCapability = registry.Declare[Greeter]("greeter")

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "world"
	}
	return name
}

// EnglishGreeter greets plainly. Salutation defaults to "Hello".
type EnglishGreeter struct {
	Salutation string
}

func (g *EnglishGreeter) Greet(name string) string {
	s := g.Salutation
	if s == "" {
		s = "Hello"
	}
	return s + ", " + displayName(name) + "!"
}

func (*EnglishGreeter) Style() string { return "english" }

// PirateGreeter greets like a pirate.
type PirateGreeter struct {
	Salutation string
}

func (g *PirateGreeter) Greet(name string) string {
	s := g.Salutation
	if s == "" {
		s = "Ahoy"
	}
	return s + ", " + displayName(name) + "!"
}

func (*PirateGreeter) Style() string { return "pirate" }

// FormalGreeter greets with a title. Title defaults to "Dear".
type FormalGreeter struct {
	Title string
}

func (g *FormalGreeter) Greet(name string) string {
	title := g.Title
	if title == "" {
		title = "Dear"
	}
	return fmt.Sprintf("%s %s, good day.", title, displayName(name))
}

func (*FormalGreeter) Style() string { return "formal" }
