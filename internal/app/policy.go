package app

import (
	"strings"

	"github.com/dkeye/fieldcast/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a link whose send queue is full.
type Policy interface {
	OnBackPressure(room domain.Identity, member domain.ConnID) BackpressureAction
}

// SimplePolicy applies one action to every slow link.
type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(domain.Identity, domain.ConnID) BackpressureAction {
	return p.Action
}

// PolicyFromString maps the config value; anything unknown drops frames.
func PolicyFromString(s string) SimplePolicy {
	switch strings.ToLower(s) {
	case "kick":
		return SimplePolicy{Action: KickMember}
	case "none":
		return SimplePolicy{Action: NoAction}
	}
	return SimplePolicy{Action: DropFrame}
}
