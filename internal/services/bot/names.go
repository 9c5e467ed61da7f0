package bot

import (
	"github.com/mcoot/fourinarow/internal/dependencies/random"
	"github.com/mcoot/fourinarow/internal/model"
)

var (
	nameAdjectives = []string{
		"Swift", "Clever", "Mighty", "Shadow", "Golden",
		"Crystal", "Thunder", "Lunar", "Cosmic", "Blazing",
	}
	nameNouns = []string{
		"Fox", "Wolf", "Dragon", "Phoenix", "Titan",
		"Ninja", "Knight", "Wizard", "Falcon", "Panther",
	}
)

// Name generates an automated participant id that differs from avoid
func Name(rnd random.Random, avoid model.PlayerID) model.PlayerID {
	name := model.PlayerID(nameAdjectives[rnd.Intn(len(nameAdjectives))] + nameNouns[rnd.Intn(len(nameNouns))])
	if name == avoid {
		name += "Bot"
	}
	return name
}
