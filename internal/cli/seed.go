package cli

import (
	"context"
	"fmt"
	"io"

	"docquiz/internal/app"
	"docquiz/internal/config"
	"docquiz/internal/database"
	"docquiz/internal/logger"
	"docquiz/internal/model"
	"docquiz/internal/service"

	"github.com/spf13/cobra"
)

const sampleTitle = "The Solar System"

const sampleContent = `The Sun contains more than ninety nine percent of the mass of the solar system.
Mercury is the closest planet to the Sun and has almost no atmosphere.
Venus is the hottest planet because its thick clouds trap heat.
Mars is called the red planet because of the iron oxide on its surface.
Jupiter is the largest planet and has a storm called the Great Red Spot.
Saturn is famous for its bright rings made of ice and rock.
Neptune has the strongest winds measured on any planet.`

type documentCreator interface {
	Create(ctx context.Context, userID string, req model.CreateDocumentRequest) (*model.Document, error)
}

type questionGenerator interface {
	Generate(ctx context.Context, userID, documentID string, opts model.GenerateOptions) (*service.GenerateResult, error)
}

func newSeedCmd() *cobra.Command {
	var (
		userID string
		count  int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a sample document and generate questions for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New(cfg.App.LogFile, cfg.App.IsProduction())
			defer log.Sync()

			a := app.New(cfg, log, database.MongoDialer{})
			defer a.Close(context.Background())

			if err := a.Connect(cmd.Context()); err != nil {
				return err
			}
			return seed(cmd.Context(), a.DocumentService, a.QuestionService, userID, count, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner of the sample document")
	cmd.Flags().IntVar(&count, "count", 5, "number of questions to generate")
	cmd.MarkFlagRequired("user")
	return cmd
}

func seed(ctx context.Context, documents documentCreator, questions questionGenerator, userID string, count int, out io.Writer) error {
	doc, err := documents.Create(ctx, userID, model.CreateDocumentRequest{Title: sampleTitle, Content: sampleContent})
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	res, err := questions.Generate(ctx, userID, doc.ID.Hex(), model.GenerateOptions{Count: count})
	if err != nil {
		return fmt.Errorf("generate questions: %w", err)
	}

	fmt.Fprintf(out, "document %s: %d questions\n", doc.ID.Hex(), len(res.Questions))
	for _, q := range res.Preview {
		fmt.Fprintf(out, "  - %s\n", q.Question)
	}
	return nil
}
