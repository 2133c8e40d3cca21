package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/asheshgoplani/promptdeck/internal/lifecycle"
	"github.com/asheshgoplani/promptdeck/internal/osc"
)

// promptMarker returns the prompt-start mark wrapped in the shell's
// zero-width markers, so the line editor does not count the escape
// sequence toward the prompt width.
func promptMarker(shell string) string {
	seq := string(osc.PromptStartRedrawable())
	switch shell {
	case "zsh":
		return "%{" + seq + "%}"
	case "bash":
		return "\\[" + seq + "\\]"
	default:
		return seq
	}
}

// handlePrompt patches or strips the prompt mark in a prompt template.
// Used by the hook glue when no supervisor is listening:
//
//	PS1="$(promptdeck prompt patch -shell zsh -- "$PS1")"
func handlePrompt(args []string) {
	if len(args) == 0 || (args[0] != "patch" && args[0] != "strip") {
		fmt.Fprintln(os.Stderr, "Usage: promptdeck prompt <patch|strip> [-shell <name>] [-continuation] -- <template>")
		os.Exit(1)
	}
	mode := args[0]

	fs := flag.NewFlagSet("prompt "+mode, flag.ExitOnError)
	shell := fs.String("shell", "", "Shell dialect for zero-width wrapping (zsh, bash, fish)")
	continuation := fs.Bool("continuation", false, "Template is the continuation prompt; an empty one stays empty")
	fs.Usage = func() {
		fmt.Printf("Usage: promptdeck prompt %s [options] -- <template>\n", mode)
		fmt.Println()
		if mode == "patch" {
			fmt.Println("Print the template with the prompt-start mark spliced in.")
			fmt.Println("Idempotent: a template that already carries the mark is")
			fmt.Println("printed unchanged.")
		} else {
			fmt.Println("Print the template with any prompt-start mark removed.")
		}
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args[1:]); err != nil {
		os.Exit(1)
	}

	// Everything after the flags is the template; join so templates
	// containing spaces survive even unquoted.
	template := strings.Join(fs.Args(), " ")

	switch mode {
	case "patch":
		fmt.Print(patchTemplate(template, *shell, *continuation))
	case "strip":
		fmt.Print(stripTemplate(template, *shell))
	}
}

// patchTemplate splices the prompt mark into a template. An empty
// continuation template stays empty: a shell with no continuation
// prompt should not gain a mark-only one that repaints the prompt
// start on every continuation line.
func patchTemplate(template, shell string, continuation bool) string {
	if continuation && template == "" {
		return ""
	}
	return lifecycle.Insert(template, promptMarker(shell))
}

// stripTemplate removes the prompt mark from a template. A template
// patched under a different dialect still loses its mark.
func stripTemplate(template, shell string) string {
	out := lifecycle.Remove(template, promptMarker(shell))
	return lifecycle.Remove(out, string(osc.PromptStartRedrawable()))
}
