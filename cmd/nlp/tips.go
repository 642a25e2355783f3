package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var tipsCmd = &cobra.Command{
	Use:     "tips",
	GroupID: groupEntities,
	Short:   "Read and write a task's Agent Tips section",
	Long: `Agent Tips is a bullet list in the task body where working notes for
automated helpers accumulate. Tips survive every header edit.`,
}

var tipsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print a task's agent tips",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := mustStore()
		tips, err := s.AgentTips(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(tips) == 0 {
			fmt.Println("No agent tips.")
			return
		}
		for _, tip := range tips {
			fmt.Printf("  - %s\n", tip)
		}
	},
}

var tipsSetCmd = &cobra.Command{
	Use:   "set ID [TEXT...]",
	Short: "Replace or append to a task's agent tips",
	Long: `Write agent tips. Each argument becomes one bullet; --file reads
bullets from a file instead, one per line. By default the section is
replaced; --append keeps the existing tips.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		appendTips, _ := cmd.Flags().GetBool("append")
		file, _ := cmd.Flags().GetString("file")

		tips := args[1:]
		if file != "" {
			if len(tips) > 0 {
				fmt.Fprintf(os.Stderr, "Error: pass tip text or --file, not both\n")
				os.Exit(1)
			}
			data, err := os.ReadFile(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to read tips file: %v\n", err)
				os.Exit(1)
			}
			for _, line := range strings.Split(string(data), "\n") {
				line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
				if line != "" {
					tips = append(tips, line)
				}
			}
		}
		if len(tips) == 0 && appendTips {
			fmt.Fprintf(os.Stderr, "Error: nothing to append\n")
			os.Exit(1)
		}

		s := mustStore()
		if err := s.UpdateAgentTips(args[0], tips, !appendTips); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if appendTips {
			fmt.Printf("Appended %d tip(s) to %s\n", len(tips), args[0])
		} else {
			fmt.Printf("Set %d tip(s) on %s\n", len(tips), args[0])
		}
	},
}

func init() {
	tipsSetCmd.Flags().Bool("append", false, "Keep existing tips and add to them")
	tipsSetCmd.Flags().String("file", "", "Read tips from a file, one per line")

	tipsCmd.AddCommand(tipsGetCmd)
	tipsCmd.AddCommand(tipsSetCmd)
	rootCmd.AddCommand(tipsCmd)
}
