package domain

// Stats tallies the votes of one match.
type Stats struct {
	HomeWin int `json:"homeWin"`
	Draw    int `json:"draw"`
	AwayWin int `json:"awayWin"`
	Total   int `json:"total"`
}

// Add counts one vote. Unknown types are ignored.
func (s *Stats) Add(voteType string) bool {
	switch voteType {
	case HomeWin:
		s.HomeWin++
	case Draw:
		s.Draw++
	case AwayWin:
		s.AwayWin++
	default:
		return false
	}
	s.Total++
	return true
}

type Percentages struct {
	HomeWin int `json:"homeWin"`
	Draw    int `json:"draw"`
	AwayWin int `json:"awayWin"`
}

// Percentages rounds each share half up. ok is false when nobody voted.
func (s Stats) Percentages() (Percentages, bool) {
	if s.Total <= 0 {
		return Percentages{}, false
	}
	return Percentages{
		HomeWin: roundPercent(s.HomeWin, s.Total),
		Draw:    roundPercent(s.Draw, s.Total),
		AwayWin: roundPercent(s.AwayWin, s.Total),
	}, true
}

func roundPercent(n, total int) int {
	return (200*n + total) / (2 * total)
}

// Panel modes of the match detail view.
const (
	PanelSetResult = "set-result"
	PanelResult    = "result"
	PanelPredict   = "predict"
	PanelStats     = "stats"
)

// PanelMode picks what the match detail panel offers the viewer.
func PanelMode(m Match, isAdmin, loggedIn, voted bool) string {
	switch {
	case m.Status == StatusFinished && m.AdminResult == "" && isAdmin:
		return PanelSetResult
	case m.Status == StatusFinished && m.AdminResult != "":
		return PanelResult
	case m.Status == StatusScheduled && loggedIn && !voted:
		return PanelPredict
	default:
		return PanelStats
	}
}
