package cli

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/map-harvest/harvest/internal/ui"
)

var mediaLimit int

// mediaCmd archives the images of harvested businesses to disk.
var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Download images of harvested businesses",
	Long: `Downloads the hero photo, gallery tiles and menu photos of every
harvested business into the media directory, one folder per business.`,
	Example: `  # Archive images for every harvested business
  harvest media --config plan.yaml

  # Only the first 100 businesses
  harvest media --config plan.yaml --limit 100`,
	RunE: runMedia,
}

func init() {
	rootCmd.AddCommand(mediaCmd)
	mediaCmd.Flags().IntVarP(&mediaLimit, "limit", "l", 0, "Maximum businesses to process (0 = all)")
}

func runMedia(cmd *cobra.Command, _ []string) error {
	a := GetApp()

	const page = 200
	processed, images, failures := 0, 0, 0

	var bar *progressbar.ProgressBar
	if mediaLimit > 0 {
		bar = progressbar.Default(int64(mediaLimit), "businesses")
	} else {
		bar = progressbar.Default(-1, "businesses")
	}

	for offset := 0; ; offset += page {
		batch, err := a.Store.ListBusinesses(cmd.Context(), page, offset)
		if err != nil {
			return err
		}
		for i := range batch {
			if mediaLimit > 0 && processed >= mediaLimit {
				break
			}
			results, err := a.Media.DownloadBusiness(cmd.Context(), &batch[i])
			if err != nil {
				a.Logger.Warn().Err(err).Str("name", batch[i].Name).Msg("media download failed")
				continue
			}
			for _, r := range results {
				if r.Err != nil {
					failures++
				} else {
					images++
				}
			}
			processed++
			_ = bar.Add(1)
		}
		if len(batch) < page || (mediaLimit > 0 && processed >= mediaLimit) {
			break
		}
	}

	_ = bar.Finish()
	fmt.Fprintln(os.Stdout, ui.Success(fmt.Sprintf(
		"archived %d images for %d businesses (%d failed)", images, processed, failures)))
	return nil
}
