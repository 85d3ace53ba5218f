// internal/cli/info.go
package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/toonworks/webtoon-dl/internal/ui"
	headersutil "github.com/toonworks/webtoon-dl/internal/utils/headers"
	urlutil "github.com/toonworks/webtoon-dl/internal/utils/url"
	"github.com/toonworks/webtoon-dl/pkg/models"
)

var (
	infoOutput  string
	infoMode    string
	infoSession string
	infoHeaders []string
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <series-url>",
	Short: "Show series metadata and chapter index",
	Long: `Fetches a series page and prints its title, creator, summary, and full
chapter index without downloading anything. The index can be saved as
JSON or CSV with --output.`,
	Example: `  # Print series metadata and chapters
  webtoon-dl info "https://www.webtoons.com/en/fantasy/tower-of-god/list?title_no=95"

  # Save the chapter index as JSON
  webtoon-dl info <series-url> --output=index.json

  # Save the chapter index as CSV
  webtoon-dl info <series-url> --output=index.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoOutput, "output", "o", "", "File path to save the index (.json or .csv)")
	infoCmd.Flags().StringVarP(&infoMode, "mode", "m", "auto", "Fetch mode: auto, static, or browser")
	infoCmd.Flags().StringVarP(&infoSession, "session", "s", "", "Name of a saved auth session to use")
	infoCmd.Flags().StringArrayVarP(&infoHeaders, "header", "H", []string{}, "Custom headers")
}

func runInfo(cmd *cobra.Command, args []string) error {
	seriesURL := args[0]

	if err := urlutil.ValidateURL(seriesURL); err != nil {
		return err
	}

	fetchMode, err := parseFetchMode(infoMode)
	if err != nil {
		return err
	}

	appCtx := getApp()
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	ctx := context.Background()
	if fetchMode == models.ModeBrowser || fetchMode == models.ModeAuto {
		if err := appCtx.EnsureBrowser(ctx); err != nil && fetchMode == models.ModeBrowser {
			return fmt.Errorf("browser mode unavailable: %w", err)
		}
	}

	opts := models.FetchOptions{
		URL:         seriesURL,
		Mode:        fetchMode,
		Headers:     headersutil.ParseHeaders(infoHeaders),
		SessionName: infoSession,
		Timeout:     appCtx.Config.HTTPTimeout,
	}

	log.Debug().Str("url", seriesURL).Msg("Fetching series info")
	series, err := appCtx.Webtoon.FetchSeries(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to fetch series: %w", err)
	}

	if infoOutput != "" {
		return saveIndex(series, infoOutput)
	}

	printSeries(series)
	return nil
}

// printSeries writes a human-readable series overview to stdout
func printSeries(series *models.Series) {
	fmt.Printf("\n%s\n", ui.Bold(series.Title))
	if series.Creator != "" {
		fmt.Printf("%s %s\n", ui.ColorDim+"Creator:"+ui.ColorReset, series.Creator)
	}
	if series.Genre != "" {
		fmt.Printf("%s %s\n", ui.ColorDim+"Genre:"+ui.ColorReset, series.Genre)
	}
	fmt.Printf("%s %d\n", ui.ColorDim+"Chapters:"+ui.ColorReset, len(series.Chapters))
	if series.Summary != "" {
		fmt.Printf("\n%s\n", series.Summary)
	}

	fmt.Printf("\n%s\n", ui.Bold("Chapter Index"))
	fmt.Println(strings.Repeat("-", 60))
	for _, ch := range series.Chapters {
		fmt.Printf("  %s%4d%s  %s\n", ui.ColorCyan, ch.Number, ui.ColorReset, ch.Title)
	}
	fmt.Println()
}

// saveIndex writes the chapter index to a JSON or CSV file
func saveIndex(series *models.Series, filePath string) error {
	switch {
	case strings.HasSuffix(filePath, ".csv"):
		if err := saveIndexCSV(series, filePath); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
	default:
		content, err := json.MarshalIndent(series, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal series: %w", err)
		}
		if err := os.WriteFile(filePath, content, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}

	log.Debug().Str("file", filePath).Msg("Index saved")
	fmt.Printf("%s Saved to %s\n", ui.Success("✓"), filePath)
	return nil
}

func saveIndexCSV(series *models.Series, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"number", "episode_no", "title", "viewer_url"}); err != nil {
		return err
	}
	for _, ch := range series.Chapters {
		row := []string{
			strconv.Itoa(ch.Number),
			strconv.Itoa(ch.EpisodeNo),
			ch.Title,
			ch.ViewerURL,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}
