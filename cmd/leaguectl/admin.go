package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	matchdomain "github.com/hsp-league/league-backend/internal/matches/domain"
)

func adminCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator commands",
	}
	cmd.AddCommand(adminResultCmd(opts))
	cmd.AddCommand(adminImportCmd(opts))
	cmd.AddCommand(adminAwardsCmd(opts))
	return cmd
}

func adminResultCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "result <match-id> <homeWin|draw|awayWin>",
		Short: "Set the result of a finished match and pay the winners",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			if !matchdomain.ValidVoteType(args[1]) {
				return &localError{err: matchdomain.ErrInvalidVoteType}
			}
			if err := a.requireUser(); err != nil {
				return err
			}
			out, err := a.api.SetResult(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			a.printf("결과가 저장되었습니다: %s\n", out.Result)
			a.printf("적중 %d명, 지급 %d명 (각 %dP)\n", len(out.Winners), len(out.Credited), out.Reward)
			if len(out.Failed) > 0 {
				a.printf("지급 실패: %s\n", strings.Join(out.Failed, ", "))
			}
			return nil
		}),
	}
}

func adminImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import-matches <file.yaml>",
		Short: "Create matches from a YAML fixture file",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return localf("read fixtures: %w", err)
			}
			matches, err := parseFixtures(data)
			if err != nil {
				return localf("parse %s: %w", args[0], err)
			}
			if len(matches) == 0 {
				return localf("%s has no matches", args[0])
			}
			if err := a.requireUser(); err != nil {
				return err
			}
			n, err := a.api.ImportMatches(ctx, matches)
			if err != nil {
				return err
			}
			a.printf("%d개 경기를 등록했습니다.\n", n)
			return nil
		}),
	}
}

// parseFixtures accepts either a top-level list of matches or a document
// with a "matches" key.
func parseFixtures(data []byte) ([]matchdomain.Match, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var matches []matchdomain.Match
	if node.Content[0].Kind == yaml.SequenceNode {
		err := node.Content[0].Decode(&matches)
		return matches, err
	}

	var doc struct {
		Matches []matchdomain.Match `yaml:"matches"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Matches, nil
}

func adminAwardsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "awards <match-id>",
		Short: "Show the payout journal of a match",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			list, err := a.api.Awards(ctx, args[0])
			if err != nil {
				return err
			}
			if len(list) == 0 {
				a.printf("지급 기록이 없습니다.\n")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "UID\tAMOUNT\tSTATUS\tATTEMPT\tERROR")
			for _, aw := range list {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", aw.UID, aw.Amount, aw.Status, aw.Attempt, aw.Error)
			}
			return tw.Flush()
		}),
	}
}
