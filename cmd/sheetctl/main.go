package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-shopfloor/internal/config"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/overlay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sheetctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheetctl",
		Short: "Nesting report overlay and hand-off CLI",
		Long: `sheetctl computes checkbox overlays for nesting report PDFs, renders pages with the
overlay burned in, and drives the per-department row hand-off against the ERP backend.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	cmd.AddCommand(
		newLayoutCmd(),
		newRenderCmd(),
		newLoginCmd(),
		newHandoffCmd(),
	)
	return cmd
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// overlayFlags layout 和 render 共用的参数
type overlayFlags struct {
	rowsFile string
	checked  []int
	disabled []int
	scale    float64
	dpr      float64
	viewOnly bool
}

func (f *overlayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.rowsFile, "rows", "", "JSON file with subnest rows (\"-\" for stdin)")
	cmd.Flags().IntSliceVar(&f.checked, "checked", nil, "Row IDs to show checked")
	cmd.Flags().IntSliceVar(&f.disabled, "disabled", nil, "Row IDs to show checked and disabled")
	cmd.Flags().Float64Var(&f.scale, "scale", 1.3, "Zoom factor (clamped to 0.5-3)")
	cmd.Flags().Float64Var(&f.dpr, "dpr", 1, "Device pixel ratio")
	cmd.Flags().BoolVar(&f.viewOnly, "view-only", false, "Omit checkboxes")
}

func (f *overlayFlags) options() overlay.Options {
	return overlay.Options{Scale: f.scale, DevicePixelRatio: f.dpr, Interactive: !f.viewOnly}
}

func (f *overlayFlags) state() overlay.RowState {
	checked := make(map[int]bool, len(f.checked)+len(f.disabled))
	disabled := make(map[int]bool, len(f.disabled))
	for _, id := range f.checked {
		checked[id] = true
	}
	for _, id := range f.disabled {
		checked[id] = true
		disabled[id] = true
	}
	return func(rowID int) (bool, bool) {
		return checked[rowID], disabled[rowID]
	}
}

func (f *overlayFlags) rows(stdin io.Reader) ([]overlay.Row, error) {
	if f.rowsFile == "" {
		return nil, nil
	}
	var data []byte
	var err error
	if f.rowsFile == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(f.rowsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	var subnests []entity.SubnestRow
	if err := json.Unmarshal(data, &subnests); err != nil {
		return nil, fmt.Errorf("parse rows: %w", err)
	}
	return overlay.RowsFromSubnests(subnests), nil
}

func loadViewer(path string) (*overlay.Viewer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	v := overlay.NewViewer(newLogger())
	if err := v.Load(data); err != nil {
		return nil, err
	}
	return v, nil
}

func newLayoutCmd() *cobra.Command {
	var f overlayFlags
	cmd := &cobra.Command{
		Use:   "layout input.pdf",
		Short: "Print checkbox positions for every page as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := f.rows(cmd.InOrStdin())
			if err != nil {
				return err
			}
			v, err := loadViewer(args[0])
			if err != nil {
				return err
			}
			pages, err := v.Layout(rows, f.state(), f.options())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pages)
		},
	}
	f.register(cmd)
	return cmd
}

func newRenderCmd() *cobra.Command {
	var f overlayFlags
	var page int
	cmd := &cobra.Command{
		Use:   "render input.pdf output.png",
		Short: "Render one page with its checkbox overlay to PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := f.rows(cmd.InOrStdin())
			if err != nil {
				return err
			}
			v, err := loadViewer(args[0])
			if err != nil {
				return err
			}
			frame, err := v.Render(cmd.Context(), page, rows, f.state(), f.options())
			if err != nil {
				return err
			}

			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer out.Close()
			if err := overlay.EncodePNG(out, frame.Image); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rendered page %d of %s to %s (%dx%d, %d checkboxes)\n",
				page, args[0], args[1], frame.Layout.BackingWidth, frame.Layout.BackingHeight, len(frame.Layout.Checkboxes))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number to render (1-based)")
	return cmd
}

// backendURL 未指定时沿用服务端配置
func backendURL(flag string) string {
	if flag != "" {
		return flag
	}
	return config.GetEnvOrDefault("BACKEND_URL", "http://localhost:8080")
}
