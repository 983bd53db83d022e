package settle

import (
	"strings"

	"poker-settle/internal/room"
)

// ValidatePlayer reports everything wrong with a player's ledger ahead of a
// settlement: a display name, at least one buy-in, positive buy-in amounts,
// and a non-negative cash-out when one has been entered. An empty slice means
// the ledger is settleable.
func ValidatePlayer(p *room.Player) []string {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "player name is required")
	}
	if len(p.BuyIns) == 0 {
		problems = append(problems, "at least one buy-in is required")
	}
	for _, b := range p.BuyIns {
		if b.Amount <= 0 {
			problems = append(problems, "all buy-in amounts must be positive")
			break
		}
	}
	if p.CashOut != nil && *p.CashOut < 0 {
		problems = append(problems, "cash-out must not be negative")
	}
	return problems
}
