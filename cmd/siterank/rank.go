package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/igusev/siterank/internal/index"
	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/search"
)

var rankCmd = &cobra.Command{
	Use:   "rank <raw.json|->",
	Short: "Rank a saved grouped index response",
	Long: `Runs aggregation, the time window and pagination over a raw grouped
response read from a file or stdin. Popularity weights are applied with
zero popularity signals, which isolates the relevance share of the score.`,
	Args: cobra.ExactArgs(1),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().IntVarP(&page, "page", "p", 1, "result page (starting at 1)")
	rankCmd.Flags().StringVarP(&maxAge, "days", "d", "all", "only sites updated within this many days")
	rankCmd.Flags().Float64Var(&globalW, "gp", 0, "weight of global popularity")
	rankCmd.Flags().Float64Var(&localW, "lp", 0, "weight of query-local popularity")
	rankCmd.Flags().BoolVar(&showScores, "scores", false, "show score breakdown")
	rankCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the response as JSON")
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	req := search.ParseParams(flagParams(cmd, "(saved response)"))
	resp, err := rankRaw(cmd.Context(), data, req, time.Now(), 0)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderResults(resp, showScores))
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// rawIndex answers every query with a saved grouped response
type rawIndex struct {
	raw *model.RawResponse
}

func (r rawIndex) Query(context.Context, string, index.QueryOptions) (*model.RawResponse, error) {
	return r.raw, nil
}

// zeroPopularity reports no popularity for any site
type zeroPopularity struct{}

func (zeroPopularity) GlobalScores(context.Context, []string) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (zeroPopularity) LocalScores(context.Context, []string, []model.SearchHit) (map[string]float64, error) {
	return map[string]float64{}, nil
}

// rankRaw runs the search pipeline over a raw grouped response
func rankRaw(ctx context.Context, data []byte, req search.Request, now time.Time, pageSize int) (*search.Response, error) {
	raw, err := model.DecodeRawResponse(data)
	if err != nil {
		return nil, err
	}

	p := search.NewPipeline(search.Network{Name: network, Index: rawIndex{raw: raw}}, zeroPopularity{}, nil)
	if pageSize > 0 {
		p.PageSize = pageSize
	}
	p.Now = func() time.Time { return now }

	return p.Search(ctx, req)
}
