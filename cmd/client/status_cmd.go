package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hm-skb/skb/internal/client/sync"
	"github.com/hm-skb/skb/internal/skbsdk"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage usage, connected servers and saved files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd.Context())
			if err != nil {
				return err
			}

			info, err := c.sdk.Info.GetInfo(cmd.Context())
			if err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), c.sdk.BaseURL(), info)
			return nil
		},
	}
}

func printStatus(w io.Writer, serverURL string, info *skbsdk.InfoResponse) {
	color.New(color.FgHiCyan, color.Bold).Fprintf(w, "Info for server %s\n\n", serverURL)

	free := uint64(0)
	if info.TotalUsageSize > info.UsedData {
		free = info.TotalUsageSize - info.UsedData
	}

	fmt.Fprintf(w, "Size of backup system:  %s\n", bytesOf(info.TotalUsageSize))
	fmt.Fprintf(w, "Used space:             %s (%s)\n", bytesOf(info.UsedData), percent(info.UsedData, info.TotalUsageSize))
	fmt.Fprintf(w, "Free space:             %s (%s)\n", bytesOf(free), percent(free, info.TotalUsageSize))
	fmt.Fprintf(w, "Data unsecured:         %s\n", bytesOf(info.DataUnsecured))
	fmt.Fprintf(w, "Data only once secured: %s\n", bytesOf(info.DataSecured))
	fmt.Fprintf(w, "Data safely secured:    %s\n", bytesOf(info.DataSafelySecured))

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold.Render("Connected servers:"))
	for _, srv := range sync.ServerListings(info) {
		switch srv.State {
		case skbsdk.ServerConnected:
			health := green.Render("healthy")
			if !srv.Healthy {
				health = red.Render("unhealthy")
			}
			fmt.Fprintf(w, "%s [%s]: free %s, used %s, %s\n",
				srv.Hostname, srv.Owner,
				bytesOf(srv.BlockSize*srv.FreeBlocks),
				bytesOf(srv.BlockSize*srv.UsedBlocks),
				health,
			)
		case skbsdk.ServerAwaitingRemoteConfirmation:
			fmt.Fprintf(w, "%s [%s]: %s\n", srv.Hostname, srv.Owner, yellow.Render("waiting for remote confirmation"))
		case skbsdk.ServerAwaitingLocalConfirmation:
			fmt.Fprintf(w, "%s [%s]: %s\n", srv.Hostname, srv.Owner, yellow.Render("waiting for confirmation"))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, bold.Render("Saved files:"))
	for _, f := range info.Files {
		fmt.Fprintln(w, f.Path)
	}
}
