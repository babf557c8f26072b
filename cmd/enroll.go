package cmd

import (
	"errors"
	"fmt"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/utils"
	"github.com/spf13/cobra"
)

var enrollReplace bool

var enrollCmd = &cobra.Command{
	Use:   "enroll <user-id> <image|dir>...",
	Short: "Enroll a user's face from 3 to 6 captures",
	Long: `Builds a face template from several captures of the same person and stores it.
Every capture must show exactly one clear, frontal face. Use --replace to re-enroll
a user who already has a template; the old template is kept if any capture fails.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ownerID := args[0]
		paths, err := collectImages(args[1:])
		if err != nil {
			utils.Die("Failed to read captures", err, nil)
		}
		images, err := loadImages(paths)
		if err != nil {
			utils.Die("Failed to read captures", err, nil)
		}

		svc, err := newService(cmd.Context())
		if err != nil {
			utils.Die("Failed to start service", err, nil)
		}

		enroll := svc.Enroll
		if enrollReplace {
			enroll = svc.ReEnroll
		}
		tpl, err := enroll(cmd.Context(), ownerID, images)
		if err != nil {
			var ce *biometric.CaptureError
			if errors.As(err, &ce) && ce.Index < len(paths) {
				utils.Die(fmt.Sprintf("Capture rejected: %s", paths[ce.Index]), err, nil)
			}
			utils.Die("Enrollment failed", err, nil)
		}

		fmt.Printf("✅ Enrolled %s from %d captures\n", ownerID, tpl.SampleCount)
		fmt.Printf("   Template: %s\n", tpl.TemplateID)
	},
}

func init() {
	enrollCmd.Flags().BoolVar(&enrollReplace, "replace", false, "Replace an existing template (re-enroll)")
	rootCmd.AddCommand(enrollCmd)
}
