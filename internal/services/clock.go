package services

import (
	"time"

	"github.com/fyrsmithlabs/locus/pkg/registry"
)

// Clock reports the current time in a fixed location.
type Clock interface {
	Now() time.Time
	Zone() string
}

// ClockCapability is the key clocks are registered under.
var ClockCapability = registry.Declare[Clock]("clock")

// SystemClock reports local time.
type SystemClock struct {
	now func() time.Time
}

func (c *SystemClock) Now() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *SystemClock) Zone() string {
	name, _ := c.Now().Zone()
	return name
}

// UTCClock reports UTC.
type UTCClock struct {
	now func() time.Time
}

func (c *UTCClock) Now() time.Time {
	if c.now != nil {
		return c.now().UTC()
	}
	return time.Now().UTC()
}

func (*UTCClock) Zone() string { return "UTC" }
