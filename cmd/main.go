package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/insightslm/insightslm/cmd/render"
	"github.com/insightslm/insightslm/cmd/service"
	_ "github.com/insightslm/insightslm/pkg/plugins"
)

func main() {
	root := &cobra.Command{
		Use:   "insights",
		Short: "notebook service",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewCommand(), service.NewProcessCommand(), render.NewCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
