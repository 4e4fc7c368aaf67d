package scoring

import (
	"sort"
	"time"

	"school-quiz-service/internal/domain"
)

// BuildLeaderboard derives the school ranking from a full team snapshot.
// It is recomputed from the store on every cache miss and never persisted.
//
// A school's total is the sum of its members' set-quiz marks. Live-round
// scores are reported per member but do not feed the total; the two score
// lifecycles stay separate all the way to presentation.
//
// Ranking policy: dense (ties share a rank, the next distinct total gets
// rank+1). Equal totals keep store iteration order via the stable sort.
func BuildLeaderboard(teams []domain.Team, now time.Time) domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(teams))
	for _, team := range teams {
		entry := domain.LeaderboardEntry{
			SchoolName: team.SchoolName,
			Members:    make([]domain.MemberScore, 0, len(team.Members)),
		}
		for _, m := range team.Members {
			final := 0
			if m.FinalRoundScore != nil {
				final = *m.FinalRoundScore
			}
			entry.TotalScore += m.Marks
			entry.Members = append(entry.Members, domain.MemberScore{
				StudentName:     m.Name,
				Marks:           m.Marks,
				FinalRoundScore: final,
			})
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].TotalScore != entries[i-1].TotalScore {
			rank++
		}
		entries[i].Rank = rank
	}

	return domain.Leaderboard{Entries: entries, UpdatedAt: now}
}
