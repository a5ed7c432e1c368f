package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scholarly-group/paper-pipeline/internal/agent"
	"github.com/scholarly-group/paper-pipeline/internal/paper"
	"github.com/scholarly-group/paper-pipeline/internal/pipeline"
)

var (
	runPaperFiles []string
	runUserID     string
	runParallel   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis pipeline over local paper text files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if len(runPaperFiles) == 0 {
			return eris.New("at least one --paper file is required")
		}
		userID, err := uuid.Parse(strings.TrimSpace(runUserID))
		if err != nil {
			return eris.Wrapf(err, "invalid --user id %q", runUserID)
		}

		papers := paper.NewMemoryStore()
		docIDs := make([]uuid.UUID, 0, len(runPaperFiles))
		for _, path := range runPaperFiles {
			raw, err := os.ReadFile(path)
			if err != nil {
				return eris.Wrapf(err, "read paper file %s", path)
			}
			doc := &paper.Document{
				ID:          uuid.New(),
				OwnerID:     userID,
				Title:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				TextContent: string(raw),
				Status:      paper.StatusUploaded,
				UploadedAt:  time.Now().UTC(),
			}
			papers.Put(doc)
			docIDs = append(docIDs, doc.ID)
		}

		env, err := initPipeline(ctx, papers, paper.FixedCredits{Balance: cfg.Credits.FullPipelineCost * len(docIDs)}, false)
		if err != nil {
			return err
		}
		defer env.Close()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runParallel)
		results := make([]*pipeline.ExecutionContext, len(docIDs))
		for i, docID := range docIDs {
			g.Go(func() error {
				ec, err := env.Orchestrator.Run(gctx, pipeline.RunParams{
					"paperId": docID.String(),
					"userId":  userID.String(),
				})
				results[i] = ec
				if err != nil {
					zap.L().Error("run failed",
						zap.String("paper_id", docID.String()),
						zap.Error(err),
					)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, ec := range results {
			fmt.Printf("\n%s (%s)\n", runPaperFiles[i], docIDs[i])
			printOutcomes(ec)
		}
		return nil
	},
}

// printOutcomes renders the per-stage outcome table for one run.
func printOutcomes(ec *pipeline.ExecutionContext) {
	if ec == nil {
		fmt.Println("  no results")
		return
	}
	for _, t := range []agent.AgentType{
		agent.TypePaperProcessor,
		agent.TypeMetadataEnhancer,
		agent.TypeContentSummarizer,
		agent.TypeConceptExplainer,
		agent.TypeQualityChecker,
		agent.TypeCitationFormatter,
		agent.TypePerplexityResearch,
		agent.TypeRelatedPaperDiscovery,
	} {
		res, ok := ec.Result(pipeline.StageResultKey(t))
		switch {
		case !ok:
			fmt.Printf("  %-26s skipped\n", t)
		case res.Success:
			fmt.Printf("  %-26s ok\n", t)
		default:
			fmt.Printf("  %-26s FAILED: %s\n", t, res.ErrorMessage)
		}
	}
}

func init() {
	runCmd.Flags().StringArrayVar(&runPaperFiles, "paper", nil, "paper text file (repeatable)")
	runCmd.Flags().StringVar(&runUserID, "user", "", "requesting user uuid")
	runCmd.Flags().IntVar(&runParallel, "parallel", 2, "max concurrent runs")
	_ = runCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(runCmd)
}
