package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	calibrateGenuine  []string
	calibrateImpostor []string
	calibrateWrite    string
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <user-id>",
	Short: "Suggest a match threshold from genuine and impostor captures",
	Long: `Measures the distance between an enrolled user's template and two labeled sets
of captures: --genuine (the same person) and --impostor (other people). Prints the
error rates of the current threshold and the threshold minimizing FAR + FRR.
With --write, the suggested threshold is saved as a calibration profile that
CALIBRATION_FILE can point at. Nothing is written to the audit log.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		ownerID := args[0]

		genuinePaths, err := collectImages(calibrateGenuine)
		if err != nil {
			utils.Die("Failed to read genuine captures", err, nil)
		}
		impostorPaths, err := collectImages(calibrateImpostor)
		if err != nil {
			utils.Die("Failed to read impostor captures", err, nil)
		}
		genuineImages, err := loadImages(genuinePaths)
		if err != nil {
			utils.Die("Failed to read genuine captures", err, nil)
		}
		impostorImages, err := loadImages(impostorPaths)
		if err != nil {
			utils.Die("Failed to read impostor captures", err, nil)
		}

		svc, err := newService(ctx)
		if err != nil {
			utils.Die("Failed to start service", err, nil)
		}

		bar := progressbar.NewOptions(len(genuineImages)+len(impostorImages),
			progressbar.OptionSetDescription("🎯 FaceGuard Calibrating"),
			progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
			progressbar.OptionShowCount(),
		)
		tick := func() { bar.Add(1) }

		genuine, skippedG, err := measureAll(ctx, svc, ownerID, genuineImages, engineSlots, tick)
		if err != nil {
			utils.Die("Calibration failed", err, nil)
		}
		impostor, skippedI, err := measureAll(ctx, svc, ownerID, impostorImages, engineSlots, tick)
		if err != nil {
			utils.Die("Calibration failed", err, nil)
		}
		bar.Finish()
		fmt.Fprintln(os.Stderr)

		if skippedG+skippedI > 0 {
			fmt.Printf("⚠️  Skipped %d genuine and %d impostor captures that failed quality checks\n", skippedG, skippedI)
		}

		c, err := biometric.SuggestThreshold(genuine, impostor)
		if err != nil {
			utils.Die("Calibration failed", err, nil)
		}
		policy := svc.Policy()
		printCalibration(os.Stdout, policy.MatchThreshold, genuine, impostor, c)

		if calibrateWrite != "" {
			policy.MatchThreshold = c.Threshold
			if err := config.WriteCalibration(calibrateWrite, policy); err != nil {
				utils.Die("Failed to write calibration profile", err, nil)
			}
			fmt.Printf("💾 Calibration profile written to %s\n", calibrateWrite)
		}
	},
}

type measurer interface {
	Measure(ctx context.Context, ownerID string, image []byte) (types.MatchResult, error)
}

// measureAll returns the template distance of every image that passes the
// capture checks. Rejected captures are counted and skipped; any other
// failure aborts the run.
func measureAll(ctx context.Context, m measurer, ownerID string, images [][]byte, workers int, done func()) ([]float64, int, error) {
	var (
		mu        sync.Mutex
		distances []float64
		skipped   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			defer done()
			res, err := m.Measure(gctx, ownerID, img)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				distances = append(distances, res.Distance)
			case biometric.IsCaptureRejection(err):
				skipped++
				logger.Debug("capture skipped",
					logger.LoggerOptions{Key: "index", Data: i},
					logger.LoggerOptions{Key: "reason", Data: biometric.Code(err)})
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return distances, skipped, nil
}

func printCalibration(out io.Writer, current float64, genuine, impostor []float64, c biometric.Calibration) {
	far, frr := biometric.Rates(genuine, impostor, current)
	fmt.Fprintf(out, "Samples:   %d genuine, %d impostor\n", c.GenuineSamples, c.ImpostorSamples)
	fmt.Fprintf(out, "Distances: max genuine %.4f, min impostor %.4f\n", c.MaxGenuineDist, c.MinImpostorDist)
	fmt.Fprintf(out, "Current:   threshold %.4f  FAR %.1f%%  FRR %.1f%%\n", current, far*100, frr*100)
	fmt.Fprintf(out, "Suggested: threshold %.4f  FAR %.1f%%  FRR %.1f%%\n", c.Threshold, c.FalseAcceptRate*100, c.FalseRejectRate*100)
	if c.MaxGenuineDist >= c.MinImpostorDist {
		fmt.Fprintln(out, "⚠️  Genuine and impostor distances overlap; no threshold separates them.")
	}
}

func init() {
	calibrateCmd.Flags().StringSliceVar(&calibrateGenuine, "genuine", nil, "Captures of the enrolled user (files or directories)")
	calibrateCmd.Flags().StringSliceVar(&calibrateImpostor, "impostor", nil, "Captures of other people (files or directories)")
	calibrateCmd.Flags().StringVar(&calibrateWrite, "write", "", "Write the suggested profile to this YAML file")
	calibrateCmd.MarkFlagRequired("genuine")
	calibrateCmd.MarkFlagRequired("impostor")
	rootCmd.AddCommand(calibrateCmd)
}
