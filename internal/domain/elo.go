package domain

import "math"

const (
	EloK       = 32
	DefaultElo = 1000
	MinElo     = 100
)

// ExpectedScore is the logistic win expectation of a player rated a against b.
func ExpectedScore(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/400))
}

// UpdateElo returns the new ratings of a winner and a loser. The loser never
// drops below MinElo.
func UpdateElo(winner, loser int) (int, int) {
	newWinner := int(math.Round(float64(winner) + EloK*(1-ExpectedScore(winner, loser))))
	newLoser := int(math.Round(float64(loser) + EloK*(0-ExpectedScore(loser, winner))))
	if newLoser < MinElo {
		newLoser = MinElo
	}
	return newWinner, newLoser
}
