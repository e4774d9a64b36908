package bot

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/blademasters/bladebot/internal/ladder"
	"github.com/blademasters/bladebot/internal/ledger"
)

const (
	colorSuccess = 0x2ecc71
	colorError   = 0xe74c3c
	colorInfo    = 0x3498db
	colorWarning = 0xf1c40f
)

var tierColors = map[string]int{
	ladder.TierBronze:   0xcd7f32,
	ladder.TierSilver:   0xc0c0c0,
	ladder.TierGold:     0xffd700,
	ladder.TierPlatinum: 0x00c2a8,
	ladder.TierDiamond:  0xb9f2ff,
}

func tierColor(tier string) int {
	if c, ok := tierColors[tier]; ok {
		return c
	}
	return colorInfo
}

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: colorSuccess}
}

func errorEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "Error", Description: description, Color: colorError}
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: colorInfo}
}

// userMessage turns a business error into text safe to show in chat.
// The sentinel prefix is stripped so users see "you already have a
// pending duel" rather than "conflict: you already have...".
func userMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		ledger.ErrValidation,
		ledger.ErrPermissionDenied,
		ledger.ErrNotFound,
		ledger.ErrCapacity,
		ledger.ErrConflict,
	} {
		if errors.Is(err, sentinel) {
			msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
			break
		}
	}
	if msg == "" {
		return "something went wrong"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
