package domain

// Badge identifies an achievement a user can hold once.
type Badge string

const (
	BadgeFirstWin    Badge = "first_win"
	BadgeStreak5     Badge = "streak_5"
	BadgeStreak10    Badge = "streak_10"
	BadgeStreak20    Badge = "streak_20"
	BadgeGames10     Badge = "games_10"
	BadgeGames50     Badge = "games_50"
	BadgeGames100    Badge = "games_100"
	BadgePerfectGame Badge = "perfect_game"
	BadgeSpeedDemon  Badge = "speed_demon"
	BadgeYDSMaster   Badge = "yds_master"
	BadgeElo1200     Badge = "elo_1200"
	BadgeElo1500     Badge = "elo_1500"
	BadgeElo1800     Badge = "elo_1800"
)

// BadgeInfo is the display metadata of a badge.
type BadgeInfo struct {
	ID          Badge  `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

var badgeCatalog = []BadgeInfo{
	{ID: BadgeFirstWin, Name: "First Win", Icon: "🏆", Description: "Won a challenge for the first time"},
	{ID: BadgeStreak5, Name: "5 Streak", Icon: "🔥", Description: "5 correct answers in a row"},
	{ID: BadgeStreak10, Name: "10 Streak", Icon: "💥", Description: "10 correct answers in a row"},
	{ID: BadgeStreak20, Name: "Streak Master", Icon: "⚡", Description: "20 correct answers in a row"},
	{ID: BadgeGames10, Name: "Experienced", Icon: "🎮", Description: "Finished 10 games"},
	{ID: BadgeGames50, Name: "Veteran", Icon: "🎖️", Description: "Finished 50 games"},
	{ID: BadgeGames100, Name: "Legend", Icon: "👑", Description: "Finished 100 games"},
	{ID: BadgePerfectGame, Name: "Perfect Game", Icon: "💎", Description: "Finished a game without a single mistake"},
	{ID: BadgeSpeedDemon, Name: "Speed Demon", Icon: "⚡", Description: "Answered correctly within 5 seconds"},
	{ID: BadgeYDSMaster, Name: "YDS Master", Icon: "📚", Description: "Won a full YDS simulation"},
	{ID: BadgeElo1200, Name: "Bronze", Icon: "🥉", Description: "Reached a rating of 1200"},
	{ID: BadgeElo1500, Name: "Silver", Icon: "🥈", Description: "Reached a rating of 1500"},
	{ID: BadgeElo1800, Name: "Gold", Icon: "🥇", Description: "Reached a rating of 1800"},
}

// Badges lists the badge catalog in display order.
func Badges() []BadgeInfo {
	out := make([]BadgeInfo, len(badgeCatalog))
	copy(out, badgeCatalog)
	return out
}

type threshold struct {
	min   int
	badge Badge
}

var (
	streakThresholds = []threshold{{5, BadgeStreak5}, {10, BadgeStreak10}, {20, BadgeStreak20}}
	gamesThresholds  = []threshold{{10, BadgeGames10}, {50, BadgeGames50}, {100, BadgeGames100}}
	eloThresholds    = []threshold{{1200, BadgeElo1200}, {1500, BadgeElo1500}, {1800, BadgeElo1800}}
)

func reached(value int, ts []threshold) []Badge {
	var out []Badge
	for _, t := range ts {
		if value >= t.min {
			out = append(out, t.badge)
		}
	}
	return out
}

// StreakBadges returns every streak badge earned by a run of length streak.
func StreakBadges(streak int) []Badge { return reached(streak, streakThresholds) }

// GamesBadges returns every games-played milestone reached by totalGames.
func GamesBadges(totalGames int) []Badge { return reached(totalGames, gamesThresholds) }

// EloBadges returns every rating tier reached by rating.
func EloBadges(rating int) []Badge { return reached(rating, eloThresholds) }
