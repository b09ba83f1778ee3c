package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qrave1/TaleRoom/internal/application/constant"
)

var rootCmd = &cobra.Command{
	Use:     "taleroom",
	Short:   "TaleRoom is a collaborative storytelling service.",
	Long:    "TaleRoom hosts turn-based story rooms over websocket and classifies uploaded images in the background.",
	Version: constant.APIVersion,
	Run: func(cmd *cobra.Command, args []string) {
		runApp()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
