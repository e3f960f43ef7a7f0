package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bitfantasy/nimo-shopfloor/internal/shared/auth"
	"github.com/bitfantasy/nimo-shopfloor/internal/shared/backend"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/entity"
	"github.com/bitfantasy/nimo-shopfloor/internal/shopfloor/handoff"
	"github.com/spf13/cobra"
)

// backendFlags 访问 ERP 后端的公共参数
type backendFlags struct {
	url     string
	token   string
	timeout time.Duration
}

func (f *backendFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.url, "backend", "", "ERP backend base URL (default $BACKEND_URL)")
	cmd.PersistentFlags().StringVar(&f.token, "token", os.Getenv("SHOPFLOOR_TOKEN"), "Bearer token (default $SHOPFLOOR_TOKEN)")
	cmd.PersistentFlags().DurationVar(&f.timeout, "timeout", 30*time.Second, "Backend request timeout")
}

func (f *backendFlags) client() (*backend.Client, error) {
	return backend.NewClient(backendURL(f.url), f.timeout, newLogger().Named("backend"))
}

// session 构建会话并放入 context，后端客户端只从这里取 token
func (f *backendFlags) session(ctx context.Context) (context.Context, error) {
	s, err := auth.NewSession(f.token, time.Now())
	if err != nil {
		return nil, err
	}
	return auth.WithSession(ctx, s), nil
}

func newLoginCmd() *cobra.Command {
	var bf backendFlags
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := bf.client()
			if err != nil {
				return err
			}
			resp, err := client.Login(cmd.Context(), backend.LoginRequest{Username: username, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}
	bf.register(cmd)
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

// handoffTarget 一次交接操作的定位参数
type handoffTarget struct {
	department string
	orderID    int64
	attachment string
}

func (t *handoffTarget) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&t.department, "department", "d", "", "Acting department (design, production, machining, inspection)")
	cmd.PersistentFlags().Int64VarP(&t.orderID, "order", "o", 0, "Order ID")
	cmd.PersistentFlags().StringVarP(&t.attachment, "attachment", "a", "", "Nesting report attachment URL")
	cmd.MarkPersistentFlagRequired("department")
	cmd.MarkPersistentFlagRequired("order")
	cmd.MarkPersistentFlagRequired("attachment")
}

func (t *handoffTarget) dept() (entity.Department, error) {
	d, ok := entity.ParseDepartment(t.department)
	if !ok {
		return "", fmt.Errorf("unknown department %q", t.department)
	}
	return d, nil
}

func newHandoffCmd() *cobra.Command {
	var bf backendFlags
	var target handoffTarget
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Open, save or send a department's row selection",
	}
	bf.register(cmd)
	target.register(cmd)

	workflow := func() (*handoff.Workflow, error) {
		client, err := bf.client()
		if err != nil {
			return nil, err
		}
		return handoff.NewWorkflow(client, newLogger().Named("handoff"), nil, true), nil
	}

	open := &cobra.Command{
		Use:   "open",
		Short: "Show the selection columns for the acting department",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := bf.session(cmd.Context())
			if err != nil {
				return err
			}
			dept, err := target.dept()
			if err != nil {
				return err
			}
			w, err := workflow()
			if err != nil {
				return err
			}
			wb, err := w.Open(ctx, dept, target.orderID, target.attachment)
			if err != nil {
				return err
			}
			return printBoard(cmd.OutOrStdout(), wb.Board, wb.Warnings)
		},
	}

	var rows []int
	save := &cobra.Command{
		Use:   "save",
		Short: "Persist the acting department's column",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, w, ctx, err := prepareBoard(cmd, &bf, &target, workflow, rows)
			if err != nil {
				return err
			}
			if _, err := w.Save(ctx, b); err != nil {
				return err
			}
			return printBoard(cmd.OutOrStdout(), b, nil)
		},
	}
	save.Flags().IntSliceVar(&rows, "rows", nil, "Row IDs for the acting department (replaces the saved column)")

	send := &cobra.Command{
		Use:   "send",
		Short: "Save the column and advance the order to the next department",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, w, ctx, err := prepareBoard(cmd, &bf, &target, workflow, rows)
			if err != nil {
				return err
			}
			res, err := w.Send(ctx, b)
			if err != nil {
				return err
			}
			if res.Order == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "order %d sent with rows %v\n", target.orderID, b.Own())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "order %s sent to %s with rows %v\n",
				res.Order.DisplayID(), res.Order.Department, b.Own())
			return nil
		},
	}
	send.Flags().IntSliceVar(&rows, "rows", nil, "Row IDs for the acting department (replaces the saved column)")

	cmd.AddCommand(open, save, send)
	return cmd
}

func prepareBoard(cmd *cobra.Command, bf *backendFlags, target *handoffTarget, workflow func() (*handoff.Workflow, error), rows []int) (*handoff.Board, *handoff.Workflow, context.Context, error) {
	ctx, err := bf.session(cmd.Context())
	if err != nil {
		return nil, nil, nil, err
	}
	dept, err := target.dept()
	if err != nil {
		return nil, nil, nil, err
	}
	w, err := workflow()
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := w.Board(ctx, dept, target.orderID, target.attachment)
	if err != nil {
		return nil, nil, nil, err
	}
	if cmd.Flags().Changed("rows") {
		if err := b.SetOwn(rows); err != nil {
			return nil, nil, nil, err
		}
	}
	return b, w, ctx, nil
}

func printBoard(out io.Writer, b *handoff.Board, warnings []string) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Columns  []handoff.Column `json:"columns"`
		Claimed  []int            `json:"claimed"`
		Own      []int            `json:"own"`
		Seeded   bool             `json:"seeded"`
		CanSend  bool             `json:"can_send"`
		Stage    handoff.Stage    `json:"stage"`
		Warnings []string         `json:"warnings,omitempty"`
	}{
		Columns:  b.Columns(),
		Claimed:  b.Claimed(),
		Own:      b.Own(),
		Seeded:   b.Seeded(),
		CanSend:  b.CanSend(),
		Stage:    b.Stage(),
		Warnings: warnings,
	})
}
