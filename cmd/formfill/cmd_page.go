package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/formfill/internal/extractor"
	"github.com/GriffinCanCode/formfill/internal/relay"
)

var (
	pageTab   int
	pageFrame int
	pageRelay string
	pageOut   string
)

// pageCmd attaches an HTML file to the relay as a page
var pageCmd = &cobra.Command{
	Use:   "page [file.html]",
	Short: "Attach an HTML document to the relay",
	Long: `Loads an HTML document and connects it to the relay as the page for
one tab and frame. Fill triggers aimed at that origin are answered from the
document, and generated text is written into its fields.

On exit the document, with any filled values, is written to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: runPage,
}

func init() {
	pageCmd.Flags().IntVar(&pageTab, "tab", 1, "Tab id to register as")
	pageCmd.Flags().IntVar(&pageFrame, "frame", 0, "Frame id to register as")
	pageCmd.Flags().StringVar(&pageRelay, "relay", "", "Relay base URL (default from config)")
	pageCmd.Flags().StringVarP(&pageOut, "out", "o", "", "Write the filled document here on exit")
}

func runPage(cmd *cobra.Command, args []string) error {
	doc, err := extractor.LoadFile(args[0])
	if err != nil {
		return err
	}

	relayURL := pageRelay
	if relayURL == "" {
		relayURL = "http://" + net.JoinHostPort(cfg.Relay.Host, cfg.Relay.Port)
	}

	out := cmd.OutOrStdout()
	page := relay.NewPage(doc, func(n relay.Notice) {
		fmt.Fprintf(out, "[%s] %s\n", n.Type, n.Message)
	}, logger)
	doc.AddEventListener(func(e extractor.Event) {
		fmt.Fprintf(out, "%s on #%s\n", e.Type, e.TargetID)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	origin := relay.Origin{TabID: pageTab, FrameID: pageFrame}
	conn, err := relay.DialPage(ctx, relayURL, origin, page, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Fprintf(out, "Attached %s as %s\n", args[0], origin)
	runErr := conn.Run(ctx)
	return errors.Join(runErr, writePage(doc, pageOut))
}

// writePage saves doc to path; an empty path is a no-op. Values filled before
// a lost connection are kept.
func writePage(doc *extractor.Document, path string) error {
	if path == "" {
		return nil
	}
	html, err := doc.HTML()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(html), 0o644)
}
