package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/polite-crawler/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(build.FullVersion())
	},
}
