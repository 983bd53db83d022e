// Package settle converts per-player ledgers into the minimal set of money
// transfers that squares everyone up. It is pure computation over room
// snapshots: no state, no I/O, callable at any point in a game.
package settle

import (
	"fmt"
	"math"
	"sort"

	"poker-settle/internal/room"
)

// Tolerance below which a net amount counts as zero. Absorbs float rounding
// noise from the chip-ratio division.
const epsilon = 0.01

// PlayerNet is a player enriched with the derived settlement figures.
type PlayerNet struct {
	Name         string       `json:"name"`
	BuyIns       []room.BuyIn `json:"buyIns"`
	TotalBuyIn   float64      `json:"totalBuyIn"`
	CashOut      float64      `json:"cashOut"`
	CashOutValue float64      `json:"cashOutValue"`
	Net          float64      `json:"net"`
}

// Transaction is one recommended transfer. From the winner to the loser, per
// the product's convention, with an advisory payment channel attached.
type Transaction struct {
	From    string       `json:"from"`
	To      string       `json:"to"`
	Amount  float64      `json:"amount"`
	Channel room.Channel `json:"paymentChannel"`
}

type Summary struct {
	TotalBuyIns   float64 `json:"totalBuyIns"`
	TotalCashOuts float64 `json:"totalCashOuts"`
	Transactions  int     `json:"totalTransactions"`
	ChipRatio     string  `json:"chipRatio"`
}

type Result struct {
	Players      []PlayerNet   `json:"players"`
	Transactions []Transaction `json:"transactions"`
	IsBalanced   bool          `json:"isBalanced"`
	Discrepancy  float64       `json:"discrepancy"`
	Summary      Summary       `json:"summary"`
}

// Calculate settles the given players under the given settings.
//
// Winners are sorted by descending net, losers by ascending net (most negative
// first), both stably, then matched greedily two-pointer style. The result is
// deterministic for a given input; ties keep the players' original order. The
// greedy match yields at most one transaction fewer than the number of players
// with a nonzero net; it is a heuristic, not a proven minimum.
func Calculate(players []*room.Player, settings room.GameSettings) Result {
	ratio := settings.ChipRatio

	nets := make([]PlayerNet, 0, len(players))
	for _, p := range players {
		total := 0.0
		for _, b := range p.BuyIns {
			total += b.Amount
		}
		cashOut := 0.0
		if p.CashOut != nil {
			cashOut = *p.CashOut
		}
		value := cashOut * ratio.Shekel / ratio.Chips
		nets = append(nets, PlayerNet{
			Name:         p.Name,
			BuyIns:       p.BuyIns,
			TotalBuyIn:   total,
			CashOut:      cashOut,
			CashOutValue: value,
			Net:          value - total,
		})
	}

	totalNet := 0.0
	totalBuyIns := 0.0
	totalCashOuts := 0.0
	for _, n := range nets {
		totalNet += n.Net
		totalBuyIns += n.TotalBuyIn
		totalCashOuts += n.CashOutValue
	}

	var winners, losers []PlayerNet
	for _, n := range nets {
		switch {
		case n.Net > epsilon:
			winners = append(winners, n)
		case n.Net < -epsilon:
			losers = append(losers, n)
		}
	}
	sort.SliceStable(winners, func(i, j int) bool { return winners[i].Net > winners[j].Net })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].Net < losers[j].Net })

	transactions := match(winners, losers)

	return Result{
		Players:      nets,
		Transactions: transactions,
		IsBalanced:   math.Abs(totalNet) < epsilon,
		Discrepancy:  round2(totalNet),
		Summary: Summary{
			TotalBuyIns:   totalBuyIns,
			TotalCashOuts: totalCashOuts,
			Transactions:  len(transactions),
			ChipRatio:     fmt.Sprintf("%g = %g chips", ratio.Shekel, ratio.Chips),
		},
	}
}

func match(winners, losers []PlayerNet) []Transaction {
	remWin := make([]float64, len(winners))
	for i, w := range winners {
		remWin[i] = w.Net
	}
	remLose := make([]float64, len(losers))
	for i, l := range losers {
		remLose[i] = math.Abs(l.Net)
	}

	transactions := []Transaction{}
	wi, li := 0, 0
	for wi < len(winners) && li < len(losers) {
		amount := math.Min(remWin[wi], remLose[li])
		if amount > epsilon {
			transactions = append(transactions, Transaction{
				From:    winners[wi].Name,
				To:      losers[li].Name,
				Amount:  round2(amount),
				Channel: recommendChannel(losers[li], winners[wi], amount),
			})
			remWin[wi] -= amount
			remLose[li] -= amount
		}
		if remWin[wi] < epsilon {
			wi++
		}
		if remLose[li] < epsilon {
			li++
		}
	}
	return transactions
}

// recommendChannel picks how a transfer should be paid. Cash when the payer's
// cumulative cash buy-ins cover the amount and the receiver bought in with
// cash at least once, otherwise the bit channel. Advisory only; it never
// changes amounts, and a payer's cash is re-counted per transaction rather
// than drawn down across the pass.
func recommendChannel(payer, receiver PlayerNet, amount float64) room.Channel {
	if cashTotal(payer) >= amount && cashTotal(receiver) > 0 {
		return room.ChannelCash
	}
	return room.ChannelBit
}

func cashTotal(p PlayerNet) float64 {
	total := 0.0
	for _, b := range p.BuyIns {
		if b.Channel == room.ChannelCash {
			total += b.Amount
		}
	}
	return total
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
