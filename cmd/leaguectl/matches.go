package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	chatdomain "github.com/hsp-league/league-backend/internal/chat/domain"
	"github.com/hsp-league/league-backend/internal/client"
	matchdomain "github.com/hsp-league/league-backend/internal/matches/domain"
)

func matchesCmd(opts *options) *cobra.Command {
	var page int
	var next, prev bool
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List matches, newest first",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			current := a.file.Page
			if current < 1 {
				current = 1
			}
			switch {
			case page > 0:
				current = page
			case next:
				current++
			case prev && current > 1:
				current--
			}

			res, err := a.reader().ListMatches(ctx, current)
			if err != nil {
				return err
			}
			a.file.Page = res.Page
			printMatches(a.out, res)
			return nil
		}),
	}
	cmd.Flags().IntVar(&page, "page", 0, "Page to show")
	cmd.Flags().BoolVar(&next, "next", false, "Show the next page")
	cmd.Flags().BoolVar(&prev, "prev", false, "Show the previous page")
	cmd.MarkFlagsMutuallyExclusive("page", "next", "prev")
	return cmd
}

func printMatches(out io.Writer, res *matchdomain.Page) {
	if len(res.Matches) == 0 {
		fmt.Fprintln(out, "표시할 경기가 없습니다.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tLEAGUE\tHOME\tSCORE\tAWAY\tSTATUS")
	for _, m := range res.Matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Date, m.League, m.HomeTeam, score(m), m.AwayTeam, status(m))
	}
	tw.Flush()
	fmt.Fprintf(out, "page %d/%d\n", res.Page, max(res.TotalPages, 1))
}

func score(m matchdomain.Match) string {
	if m.Status == matchdomain.StatusScheduled {
		return "-"
	}
	return fmt.Sprintf("%d:%d", m.HomeScore, m.AwayScore)
}

func status(m matchdomain.Match) string {
	if m.AdminResult != "" {
		return m.Status + " (" + m.AdminResult + ")"
	}
	return m.Status
}

func matchCmd(opts *options) *cobra.Command {
	var lineups bool
	cmd := &cobra.Command{
		Use:   "match <id>",
		Short: "Show a match with its prediction stats",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			d, err := a.reader().GetMatch(ctx, args[0])
			if err != nil {
				return err
			}
			printMatch(a.out, d)

			if !lineups {
				return nil
			}
			l, err := a.reader().Lineups(ctx, args[0])
			if err != nil {
				return err
			}
			printLineups(a.out, d.Match, l)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&lineups, "lineups", false, "Also show both lineups")
	return cmd
}

func printMatch(out io.Writer, d *client.MatchDetail) {
	m := d.Match
	fmt.Fprintf(out, "%s  %s  %s\n", m.Date, m.League, status(m))
	fmt.Fprintf(out, "%s %s %s\n", m.HomeTeam, score(m), m.AwayTeam)

	if d.Stats.HasVotes && d.Stats.Percentages != nil {
		p := d.Stats.Percentages
		fmt.Fprintf(out, "예측 %d명: 홈 승 %d%% / 무 %d%% / 원정 승 %d%%\n",
			d.Stats.Counts.Total, p.HomeWin, p.Draw, p.AwayWin)
	} else {
		fmt.Fprintln(out, "아직 예측이 없습니다.")
	}

	switch d.Panel {
	case matchdomain.PanelPredict:
		fmt.Fprintf(out, "예측하기: leaguectl vote %s <homeWin|draw|awayWin>\n", m.ID)
	case matchdomain.PanelSetResult:
		fmt.Fprintf(out, "결과 입력: leaguectl admin result %s <homeWin|draw|awayWin>\n", m.ID)
	}
	if d.Voted {
		fmt.Fprintln(out, "이미 예측했습니다.")
	}
}

func printLineups(out io.Writer, m matchdomain.Match, l *matchdomain.Lineups) {
	for _, side := range []struct {
		team   string
		lineup matchdomain.Lineup
	}{{m.HomeTeam, l.Home}, {m.AwayTeam, l.Away}} {
		fmt.Fprintf(out, "\n[%s]\n", side.team)
		if side.lineup.Empty() {
			fmt.Fprintln(out, "  명단 없음")
			continue
		}
		fmt.Fprintf(out, "  1학년: %s\n", strings.Join(side.lineup.First, ", "))
		fmt.Fprintf(out, "  2학년: %s\n", strings.Join(side.lineup.Second, ", "))
		fmt.Fprintf(out, "  3학년: %s\n", strings.Join(side.lineup.Third, ", "))
	}
}

func voteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <match-id> <homeWin|draw|awayWin>",
		Short: "Predict the outcome of a scheduled match",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			if !matchdomain.ValidVoteType(args[1]) {
				return &localError{err: matchdomain.ErrInvalidVoteType}
			}
			if err := a.requireUser(); err != nil {
				return err
			}
			res, err := a.api.Vote(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if res.Accepted {
				fmt.Fprintln(a.out, "예측이 등록되었습니다.")
			} else {
				fmt.Fprintln(a.out, "이미 예측한 경기입니다.")
			}
			if p := res.Stats.Percentages; p != nil {
				fmt.Fprintf(a.out, "홈 승 %d%% / 무 %d%% / 원정 승 %d%%\n", p.HomeWin, p.Draw, p.AwayWin)
			}
			return nil
		}),
	}
}

func chatCmd(opts *options) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "chat <match-id> [message...]",
		Short: "Read or post match chat",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			matchID := args[0]
			if len(args) > 1 {
				if err := a.requireUser(); err != nil {
					return err
				}
				msg, err := a.api.SendChat(ctx, matchID, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				if msg != nil {
					printMessage(a.out, *msg)
				}
				return nil
			}

			if !follow {
				msgs, err := a.reader().Chat(ctx, matchID)
				if err != nil {
					return err
				}
				for _, m := range msgs {
					printMessage(a.out, m)
				}
				return nil
			}

			svc, stop, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer stop()

			var mu sync.Mutex
			seen := make(map[string]bool)
			err = svc.WatchChat(ctx, matchID, func(msgs []chatdomain.Message) {
				mu.Lock()
				defer mu.Unlock()
				for _, m := range msgs {
					if seen[m.ID] {
						continue
					}
					seen[m.ID] = true
					printMessage(a.out, m)
				}
			})
			if err != nil {
				return err
			}
			defer svc.StopChat()
			<-ctx.Done()
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new messages")
	return cmd
}

func printMessage(out io.Writer, m chatdomain.Message) {
	fmt.Fprintf(out, "[%s] %s: %s\n", m.Time.Local().Format("01-02 15:04"), m.Nickname, m.Text)
}

func leaderboardCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top point holders",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			entries, err := a.reader().Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tNICKNAME\tPOINTS")
			for _, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%d\n", e.Rank, e.Nickname, e.Points)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries")
	return cmd
}
